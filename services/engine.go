package services

import (
	"errors"
	"sync"
	"time"

	"github.com/qianlnk/avalon/models"
)

var (
	ErrIllegalProposal      = errors.New("非法的组队提议")
	ErrIllegalVote          = errors.New("非法的公投")
	ErrIllegalMissionVote   = errors.New("非法的任务投票")
	ErrIllegalAssassination = errors.New("非法的刺杀")
	ErrGameOver             = errors.New("游戏已结束")
)

// MissionsToWin 任一阵营获胜所需的任务数
const MissionsToWin = 3

// EngineOptions 引擎可配置策略
type EngineOptions struct {
	RejectLimit     int         // 连续流局多少次后强制结束
	StalemateWinner models.Team // 流局时判给哪个阵营
}

// DefaultEngineOptions 标准阿瓦隆规则：连续5次流局坏人直接获胜
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		RejectLimit:     5,
		StalemateWinner: models.TeamEvil,
	}
}

// GameEngine 阶段状态机，独占持有一局游戏的可变状态。
// 所有变更操作都是原子的：校验失败时状态保持不变，并返回具体的错误类型。
type GameEngine struct {
	mu sync.RWMutex

	players []models.Player
	opts    EngineOptions

	phase        models.Phase
	round        int
	voteRound    int
	rejectStreak int
	leader       int
	proposal     []int
	missions     []models.MissionRecord
	successCount int
	failCount    int
	winner       models.Team
	gameOver     bool

	events  []models.HistoryEvent
	nextSeq int64
	sinks   []func(models.HistoryEvent)
}

// NewGameEngine 创建游戏引擎实例。players 必须已经分配好角色和可见性。
func NewGameEngine(players []models.Player, opts EngineOptions) (*GameEngine, error) {
	if _, err := RolesFor(len(players)); err != nil {
		return nil, err
	}
	if opts.RejectLimit <= 0 {
		opts.RejectLimit = 5
	}
	if opts.StalemateWinner == "" {
		opts.StalemateWinner = models.TeamEvil
	}

	return &GameEngine{
		players: players,
		opts:    opts,
		phase:   models.PhaseTeamProposal,
		round:   1,
		leader:  0,
	}, nil
}

// Subscribe 注册事件监听器，事件按产生顺序送达。
// 监听器在引擎锁之外被调用，可以安全地回读引擎状态。
func (e *GameEngine) Subscribe(sink func(models.HistoryEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, sink)
}

// emit 在持锁状态下追加一条历史事件，返回事件副本用于锁外分发
func (e *GameEngine) emit(ev models.HistoryEvent) models.HistoryEvent {
	e.nextSeq++
	ev.Seq = e.nextSeq
	ev.Round = e.round
	ev.Timestamp = time.Now().Unix()
	e.events = append(e.events, ev)
	return ev
}

// dispatch 锁外把事件按顺序送给所有监听器
func (e *GameEngine) dispatch(evs []models.HistoryEvent) {
	e.mu.RLock()
	sinks := make([]func(models.HistoryEvent), len(e.sinks))
	copy(sinks, e.sinks)
	e.mu.RUnlock()

	for _, ev := range evs {
		for _, sink := range sinks {
			sink(ev)
		}
	}
}

// ProposeTeam 队长提议队伍，成功后进入公投阶段
func (e *GameEngine) ProposeTeam(leaderID int, members []int) error {
	e.mu.Lock()

	if e.gameOver || e.phase != models.PhaseTeamProposal {
		e.mu.Unlock()
		return ErrIllegalProposal
	}
	if leaderID != e.leader {
		e.mu.Unlock()
		return ErrIllegalProposal
	}

	config, err := MissionConfigFor(len(e.players), e.round)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if len(members) != config.TeamSize {
		e.mu.Unlock()
		return ErrIllegalProposal
	}

	// 成员必须互不相同且在范围内
	seen := make(map[int]bool, len(members))
	for _, id := range members {
		if id < 0 || id >= len(e.players) || seen[id] {
			e.mu.Unlock()
			return ErrIllegalProposal
		}
		seen[id] = true
	}

	e.proposal = append([]int(nil), members...)
	e.phase = models.PhaseTeamVote

	ev := e.emit(models.HistoryEvent{
		Type:     models.EventTeamProposal,
		Actor:    leaderID,
		Proposal: &models.TeamProposalPayload{Members: append([]int(nil), members...)},
	})
	e.mu.Unlock()

	e.dispatch([]models.HistoryEvent{ev})
	return nil
}

// RecordSpeech 记录一条发言进入历史
func (e *GameEngine) RecordSpeech(playerID int, text string) error {
	e.mu.Lock()

	if e.gameOver {
		e.mu.Unlock()
		return ErrGameOver
	}
	if playerID < 0 || playerID >= len(e.players) {
		e.mu.Unlock()
		return ErrIllegalProposal
	}

	ev := e.emit(models.HistoryEvent{
		Type:   models.EventSpeech,
		Actor:  playerID,
		Speech: &models.SpeechPayload{Text: text},
	})
	e.mu.Unlock()

	e.dispatch([]models.HistoryEvent{ev})
	return nil
}

// CastVotes 全体玩家对提议队伍公投。每名玩家必须恰好投一票，不允许弃权。
// 通过需要严格多数（超过玩家总数的一半），平票视为否决。
func (e *GameEngine) CastVotes(votes map[int]bool) error {
	e.mu.Lock()

	if e.gameOver || e.phase != models.PhaseTeamVote {
		e.mu.Unlock()
		return ErrIllegalVote
	}
	if len(votes) != len(e.players) {
		e.mu.Unlock()
		return ErrIllegalVote
	}
	for _, player := range e.players {
		if _, ok := votes[player.ID]; !ok {
			e.mu.Unlock()
			return ErrIllegalVote
		}
	}

	emitted := make([]models.HistoryEvent, 0, len(votes)+1)
	approveCount := 0
	for _, player := range e.players {
		approve := votes[player.ID]
		if approve {
			approveCount++
		}
		emitted = append(emitted, e.emit(models.HistoryEvent{
			Type:  models.EventVote,
			Actor: player.ID,
			Vote:  &models.VotePayload{Approve: approve},
		}))
	}

	approved := approveCount > len(e.players)/2
	members := append([]int(nil), e.proposal...)

	if approved {
		e.phase = models.PhaseMissionVote
		e.rejectStreak = 0
		e.voteRound = 0
	} else {
		e.rejectStreak++
		e.voteRound++
		e.leader = (e.leader + 1) % len(e.players)
		e.proposal = nil
		e.phase = models.PhaseTeamProposal
	}

	emitted = append(emitted, e.emit(models.HistoryEvent{
		Type:  models.EventVoteResult,
		Actor: models.NoActor,
		VoteResult: &models.VoteResultPayload{
			Members:      members,
			ApproveCount: approveCount,
			RejectCount:  len(e.players) - approveCount,
			Approved:     approved,
			VoteRound:    e.voteRound,
			RejectStreak: e.rejectStreak,
		},
	}))

	// 防死锁保护：连续流局达到上限时强制判负，保证游戏必然终止
	if !approved && e.rejectStreak >= e.opts.RejectLimit {
		e.winner = e.opts.StalemateWinner
		e.gameOver = true
		e.phase = models.PhaseGameOver
	}

	e.mu.Unlock()
	e.dispatch(emitted)
	return nil
}

// CastMissionVotes 任务队伍成员投票决定任务成败。
// 只有坏人阵营成员可以投失败票，好人投失败属于调用方契约违规。
// 对外只公开失败票总数，永远不公开具体是谁投的。
func (e *GameEngine) CastMissionVotes(votes map[int]bool) error {
	e.mu.Lock()

	if e.gameOver || e.phase != models.PhaseMissionVote {
		e.mu.Unlock()
		return ErrIllegalMissionVote
	}
	if len(votes) != len(e.proposal) {
		e.mu.Unlock()
		return ErrIllegalMissionVote
	}

	// 先完整校验再落任何状态，保证原子性
	for _, id := range e.proposal {
		success, ok := votes[id]
		if !ok {
			e.mu.Unlock()
			return ErrIllegalMissionVote
		}
		if !success && e.players[id].Team == models.TeamGood {
			e.mu.Unlock()
			return ErrIllegalMissionVote
		}
	}

	config, err := MissionConfigFor(len(e.players), e.round)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	failCount := 0
	emitted := make([]models.HistoryEvent, 0, len(e.proposal)+1)
	for _, id := range e.proposal {
		if !votes[id] {
			failCount++
		}
		// 只记录成员提交了任务票，不记录票面内容
		emitted = append(emitted, e.emit(models.HistoryEvent{
			Type:  models.EventMissionVote,
			Actor: id,
		}))
	}

	passed := failCount < config.FailsRequired
	members := append([]int(nil), e.proposal...)

	e.missions = append(e.missions, models.MissionRecord{
		Round:     e.round,
		Team:      members,
		FailCount: failCount,
		Passed:    passed,
	})
	if passed {
		e.successCount++
	} else {
		e.failCount++
	}

	emitted = append(emitted, e.emit(models.HistoryEvent{
		Type:  models.EventMissionResult,
		Actor: models.NoActor,
		MissionResult: &models.MissionResultPayload{
			Members:   members,
			FailCount: failCount,
			Passed:    passed,
		},
	}))

	e.proposal = nil
	e.advanceAfterMission()

	e.mu.Unlock()
	e.dispatch(emitted)
	return nil
}

// advanceAfterMission 任务结算后的阶段推进。
// 好人满3个任务时，如有刺客则进入刺杀阶段，否则好人直接获胜；
// 坏人满3个任务时坏人直接获胜，不再有刺杀阶段。
func (e *GameEngine) advanceAfterMission() {
	switch {
	case e.successCount >= MissionsToWin:
		if AssassinOf(e.players) != models.NoActor {
			e.phase = models.PhaseAssassination
		} else {
			e.winner = models.TeamGood
			e.gameOver = true
			e.phase = models.PhaseGameOver
		}
	case e.failCount >= MissionsToWin:
		e.winner = models.TeamEvil
		e.gameOver = true
		e.phase = models.PhaseGameOver
	default:
		e.round++
		e.leader = (e.leader + 1) % len(e.players)
		e.voteRound = 0
		e.phase = models.PhaseTeamProposal
	}
}

// Assassinate 刺客选择刺杀目标，命中梅林则坏人获胜，否则好人获胜。
// 无论结果如何游戏都就此结束。
func (e *GameEngine) Assassinate(assassinID, targetID int) error {
	e.mu.Lock()

	if e.gameOver || e.phase != models.PhaseAssassination {
		e.mu.Unlock()
		return ErrIllegalAssassination
	}
	if assassinID != AssassinOf(e.players) {
		e.mu.Unlock()
		return ErrIllegalAssassination
	}
	if targetID < 0 || targetID >= len(e.players) || targetID == assassinID {
		e.mu.Unlock()
		return ErrIllegalAssassination
	}

	hit := e.players[targetID].Role == models.Merlin
	if hit {
		e.winner = models.TeamEvil
	} else {
		e.winner = models.TeamGood
	}
	e.gameOver = true
	e.phase = models.PhaseGameOver

	ev := e.emit(models.HistoryEvent{
		Type:          models.EventAssassination,
		Actor:         assassinID,
		Assassination: &models.AssassinationPayload{Target: targetID, Hit: hit},
	})
	e.mu.Unlock()

	e.dispatch([]models.HistoryEvent{ev})
	return nil
}

// Phase 当前游戏阶段
func (e *GameEngine) Phase() models.Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

// Leader 当前队长ID
func (e *GameEngine) Leader() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.leader
}

// Proposal 当前提议队伍的副本
func (e *GameEngine) Proposal() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]int(nil), e.proposal...)
}

// Players 玩家列表的副本
func (e *GameEngine) Players() []models.Player {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.Player(nil), e.players...)
}

// Events 历史事件日志的副本
func (e *GameEngine) Events() []models.HistoryEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.HistoryEvent(nil), e.events...)
}

// GameOver 游戏是否已结束
func (e *GameEngine) GameOver() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gameOver
}

// Winner 获胜阵营，未分出胜负时为空
func (e *GameEngine) Winner() models.Team {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.winner
}

// View 构建游戏状态快照。playerID 为 models.NoActor 时只含公共信息，
// 否则附带该玩家按可见性规则过滤后的私有视角。
func (e *GameEngine) View(gameID string, playerID int) *models.GameView {
	e.mu.RLock()
	defer e.mu.RUnlock()

	view := &models.GameView{
		GameID:             gameID,
		Phase:              e.phase,
		Round:              e.round,
		VoteRound:          e.voteRound,
		RejectStreak:       e.rejectStreak,
		Leader:             e.leader,
		Proposal:           append([]int(nil), e.proposal...),
		Missions:           append([]models.MissionRecord(nil), e.missions...),
		SuccessfulMissions: e.successCount,
		FailedMissions:     e.failCount,
		GameOver:           e.gameOver,
		Winner:             e.winner,
	}

	if config, err := MissionConfigFor(len(e.players), e.round); err == nil {
		view.MissionConfig = &config
	}

	for _, player := range e.players {
		view.Players = append(view.Players, models.PlayerPublic{ID: player.ID, Name: player.Name})
	}

	if playerID >= 0 && playerID < len(e.players) {
		view.Me = e.privateView(playerID)
	}

	return view
}

// privateView 构建单个玩家的私有视角，调用方必须持有读锁
func (e *GameEngine) privateView(playerID int) *models.PrivateView {
	me := e.players[playerID]
	private := &models.PrivateView{
		PlayerID: me.ID,
		Name:     me.Name,
		Role:     me.Role,
		Team:     me.Team,
	}

	for _, id := range me.Visible {
		private.Visible = append(private.Visible, models.VisiblePlayer{
			ID:   id,
			Name: e.players[id].Name,
			Team: e.players[id].Team,
		})
	}
	for _, id := range MerlinCandidates(me, e.players) {
		private.Visible = append(private.Visible, models.VisiblePlayer{
			ID:             id,
			Name:           e.players[id].Name,
			PossibleMerlin: true,
		})
	}

	return private
}
