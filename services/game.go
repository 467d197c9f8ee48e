package services

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qianlnk/avalon/models"
)

var (
	ErrGameNotFound  = errors.New("游戏不存在")
	ErrPlayerMissing = errors.New("玩家不存在")
)

// maxAutoPlaySteps 自动演出的推进次数上限，防止异常情况下死循环
const maxAutoPlaySteps = 200

// defaultNames 默认的圆桌骑士名字，按座位顺序分配
var defaultNames = []string{"亚瑟", "兰斯洛特", "高文", "凯", "崔斯坦", "加拉哈德"}

// defaultPersonalities 性格池，开局随机分配
var defaultPersonalities = []models.Personality{
	models.PersonalityAggressive,
	models.PersonalityCautious,
	models.PersonalityStrategic,
	models.PersonalityRandom,
}

// GameSession 一局游戏的完整运行时：状态机、各玩家的信念模型和决策来源。
// stepMu 保证同一局内的推进严格串行，包括等待决策来源返回的整个过程。
type GameSession struct {
	ID        string
	CreatedAt time.Time

	engine    *GameEngine
	projector *EvidenceProjector
	providers map[int]DecisionProvider

	stepMu sync.Mutex
}

// GameManager 游戏会话注册表
type GameManager struct {
	mu    sync.RWMutex
	games map[string]*GameSession

	opts EngineOptions
	llm  *LLMConfig // 为nil时所有玩家使用规则策略
}

// NewGameManager 创建游戏管理器实例
func NewGameManager(opts EngineOptions, llm *LLMConfig) *GameManager {
	return &GameManager{
		games: make(map[string]*GameSession),
		opts:  opts,
		llm:   llm,
	}
}

// CreateGame 创建一局新游戏：随机分配角色、性格和可见性，注册决策来源。
// names 不足时用默认名字补齐。
func (gm *GameManager) CreateGame(playerCount int, names []string) (*models.GameView, error) {
	config, err := RolesFor(playerCount)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	roles := append([]models.RoleDef(nil), config.Roles...)
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	players := make([]models.Player, playerCount)
	for i := 0; i < playerCount; i++ {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		if name == "" {
			name = defaultNames[i%len(defaultNames)]
		}
		players[i] = models.Player{
			ID:          i,
			Name:        name,
			Role:        roles[i].Role,
			Team:        roles[i].Team,
			Personality: defaultPersonalities[rng.Intn(len(defaultPersonalities))],
		}
	}
	for i := range players {
		players[i].Visible = VisibleIDs(players[i], players)
	}

	engine, err := NewGameEngine(players, gm.opts)
	if err != nil {
		return nil, err
	}

	projector := NewEvidenceProjector(players)
	engine.Subscribe(projector.HandleEvent)

	providers := make(map[int]DecisionProvider, playerCount)
	for _, player := range players {
		if gm.llm != nil {
			providers[player.ID] = NewLLMProvider(player, *gm.llm)
		} else {
			providers[player.ID] = NewStrategyProvider(player)
		}
	}

	session := &GameSession{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		engine:    engine,
		projector: projector,
		providers: providers,
	}

	gm.mu.Lock()
	gm.games[session.ID] = session
	gm.mu.Unlock()

	log.Printf("[游戏管理] 创建游戏 %s，%d名玩家", session.ID, playerCount)
	return session.view(models.NoActor), nil
}

// GetSession 按ID查找游戏会话
func (gm *GameManager) GetSession(gameID string) (*GameSession, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	session, exists := gm.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}
	return session, nil
}

// View 游戏的公共视图
func (gm *GameManager) View(gameID string) (*models.GameView, error) {
	session, err := gm.GetSession(gameID)
	if err != nil {
		return nil, err
	}
	return session.view(models.NoActor), nil
}

// PlayerView 某个玩家视角的视图，含按可见性规则过滤后的私有信息和信念快照
func (gm *GameManager) PlayerView(gameID string, playerID int) (*models.GameView, error) {
	session, err := gm.GetSession(gameID)
	if err != nil {
		return nil, err
	}
	if playerID < 0 || playerID >= len(session.engine.Players()) {
		return nil, ErrPlayerMissing
	}
	return session.view(playerID), nil
}

// History 游戏的完整历史事件日志
func (gm *GameManager) History(gameID string) ([]models.HistoryEvent, error) {
	session, err := gm.GetSession(gameID)
	if err != nil {
		return nil, err
	}
	return session.engine.Events(), nil
}

// Step 推进游戏恰好一个阶段
func (gm *GameManager) Step(ctx context.Context, gameID string) (*models.GameView, error) {
	session, err := gm.GetSession(gameID)
	if err != nil {
		return nil, err
	}
	if err := session.Step(ctx); err != nil {
		return nil, err
	}
	return session.view(models.NoActor), nil
}

// AutoPlay 自动推进游戏直到结束
func (gm *GameManager) AutoPlay(ctx context.Context, gameID string) (*models.GameView, error) {
	session, err := gm.GetSession(gameID)
	if err != nil {
		return nil, err
	}

	for i := 0; i < maxAutoPlaySteps; i++ {
		if session.engine.GameOver() {
			break
		}
		if err := session.Step(ctx); err != nil {
			return nil, err
		}
	}
	return session.view(models.NoActor), nil
}

// Subscribe 订阅该局游戏的事件流
func (gm *GameManager) Subscribe(gameID string, sink func(models.HistoryEvent)) error {
	session, err := gm.GetSession(gameID)
	if err != nil {
		return err
	}
	session.engine.Subscribe(sink)
	return nil
}

// view 构建带信念快照和历史事件的完整视图
func (s *GameSession) view(playerID int) *models.GameView {
	view := s.engine.View(s.ID, playerID)
	view.Events = s.engine.Events()
	if view.Me != nil {
		view.Me.Beliefs = s.projector.TrustSnapshot(playerID)
	}
	return view
}

// Step 按当前阶段推进游戏恰好一步。
// stepMu 覆盖从取决策到写入状态机的全过程，同一局内不存在并发的半成品回合。
// 状态机自身的锁只保护单次读写，绝不在等待决策来源期间持有。
func (s *GameSession) Step(ctx context.Context) error {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	if s.engine.GameOver() {
		return ErrGameOver
	}

	switch s.engine.Phase() {
	case models.PhaseTeamProposal:
		return s.stepProposal(ctx)
	case models.PhaseTeamVote:
		return s.stepTeamVote(ctx)
	case models.PhaseMissionVote:
		return s.stepMissionVote(ctx)
	case models.PhaseAssassination:
		return s.stepAssassination(ctx)
	default:
		return ErrGameOver
	}
}

// decide 向某个玩家的决策来源发起一次请求并校验类型
func (s *GameSession) decide(ctx context.Context, playerID int, kind models.DecisionKind) (*models.Decision, error) {
	req := &models.DecisionRequest{
		Kind: kind,
		View: s.view(playerID),
	}
	decision, err := s.providers[playerID].Decide(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := checkDecisionKind(req, decision); err != nil {
		return nil, err
	}
	return decision, nil
}

// stepProposal 讨论加组队：从队长下一位开始按座位顺序发言，队长最后发言，
// 然后由队长提议本轮任务队伍。
func (s *GameSession) stepProposal(ctx context.Context) error {
	players := s.engine.Players()
	leader := s.engine.Leader()
	total := len(players)

	for offset := 1; offset <= total; offset++ {
		speakerID := (leader + offset) % total
		decision, err := s.decide(ctx, speakerID, models.DecisionSpeech)
		if err != nil {
			return err
		}
		if err := s.engine.RecordSpeech(speakerID, decision.Text); err != nil {
			return rejectDecision(err)
		}
	}

	decision, err := s.decide(ctx, leader, models.DecisionTeamProposal)
	if err != nil {
		return err
	}
	if err := s.engine.ProposeTeam(leader, decision.Members); err != nil {
		return rejectDecision(err)
	}

	log.Printf("[游戏进程] 游戏 %s 第%d轮 队长%d提议队伍 %v",
		s.ID, s.engine.View(s.ID, models.NoActor).Round, leader, decision.Members)
	return nil
}

// stepTeamVote 全体公投。队长总是同意自己的提议，不再询问其决策来源。
func (s *GameSession) stepTeamVote(ctx context.Context) error {
	players := s.engine.Players()
	leader := s.engine.Leader()

	votes := make(map[int]bool, len(players))
	for _, player := range players {
		if player.ID == leader {
			votes[player.ID] = true
			continue
		}
		decision, err := s.decide(ctx, player.ID, models.DecisionVote)
		if err != nil {
			return err
		}
		votes[player.ID] = decision.Approve
	}

	if err := s.engine.CastVotes(votes); err != nil {
		return rejectDecision(err)
	}
	return nil
}

// stepMissionVote 队伍成员秘密投票。好人没有投失败的选项，
// 决策来源给出失败票时直接纠正为成功，避免非法票打断游戏。
func (s *GameSession) stepMissionVote(ctx context.Context) error {
	players := s.engine.Players()
	proposal := s.engine.Proposal()

	votes := make(map[int]bool, len(proposal))
	for _, memberID := range proposal {
		decision, err := s.decide(ctx, memberID, models.DecisionMissionVote)
		if err != nil {
			return err
		}
		success := decision.Success
		if players[memberID].Team == models.TeamGood && !success {
			log.Printf("[游戏进程] 游戏 %s 玩家%d是好人却投了失败票，已纠正", s.ID, memberID)
			success = true
		}
		votes[memberID] = success
	}

	if err := s.engine.CastMissionVotes(votes); err != nil {
		return rejectDecision(err)
	}
	return nil
}

// stepAssassination 刺客选择刺杀目标，游戏就此终局
func (s *GameSession) stepAssassination(ctx context.Context) error {
	assassinID := AssassinOf(s.engine.Players())
	if assassinID < 0 {
		return ErrIllegalAssassination
	}

	decision, err := s.decide(ctx, assassinID, models.DecisionAssassination)
	if err != nil {
		return err
	}
	if err := s.engine.Assassinate(assassinID, decision.Target); err != nil {
		return rejectDecision(err)
	}

	log.Printf("[游戏进程] 游戏 %s 刺客%d刺杀玩家%d，获胜方: %s",
		s.ID, assassinID, decision.Target, s.engine.Winner())
	return nil
}
