package services

import (
	"sync"

	"github.com/qianlnk/avalon/models"
)

// 固定的启发式似然表。
// 失败票数等于队伍人数时全员必然是坏人；失败票数越少牵连越轻；
// 任务成功只对成员信任做非常微弱的提升。
const (
	lGoodAllFail   = 0.05 // 全员投败：好人假设几乎不可能
	lGoodFailScale = 0.6  // 部分投败：按失败票比例削弱好人似然
	lGoodSuccess   = 1.08 // 任务成功：微弱提升

	lEvilRejectTrusted   = 1.15 // 拒绝由可信玩家组成的队伍
	lGoodRejectTrusted   = 0.85
	lEvilApproveSuspects = 1.10 // 支持由可疑玩家组成的队伍
	lGoodApproveSuspects = 0.90

	trustedTeamThreshold = 0.60 // 平均信任度高于该值视为可信队伍
	suspectTeamThreshold = 0.40 // 平均信任度低于该值视为可疑队伍
)

// EvidenceProjector 把引擎的历史事件翻译成信念更新证据。
// 投影对每个观察者独立进行：证据只依据该观察者自己的可见信息和
// 当前信任度推导，观察者之间不共享任何信念。
type EvidenceProjector struct {
	mu       sync.Mutex
	beliefs  map[int]*BeliefModel
	proposal []int // 最近一次提议的队伍，用于解读公投票
}

// NewEvidenceProjector 为每名玩家创建私有信念模型
func NewEvidenceProjector(players []models.Player) *EvidenceProjector {
	p := &EvidenceProjector{
		beliefs: make(map[int]*BeliefModel, len(players)),
	}
	for _, player := range players {
		p.beliefs[player.ID] = NewBeliefModel(player, players)
	}
	return p
}

// BeliefOf 获取某名玩家的信念模型
func (p *EvidenceProjector) BeliefOf(playerID int) *BeliefModel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.beliefs[playerID]
}

// TrustSnapshot 某名玩家信任度的快照
func (p *EvidenceProjector) TrustSnapshot(playerID int) map[int]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	belief, ok := p.beliefs[playerID]
	if !ok {
		return nil
	}
	return belief.Snapshot()
}

// HandleEvent 事件监听入口，事件严格按产生顺序送入
func (p *EvidenceProjector) HandleEvent(ev models.HistoryEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type {
	case models.EventTeamProposal:
		p.proposal = append([]int(nil), ev.Proposal.Members...)

	case models.EventVote:
		for _, belief := range p.beliefs {
			evidence := p.projectVote(belief, ev)
			belief.ApplyEvidence(ev.Seq, evidence)
		}

	case models.EventMissionResult:
		for _, belief := range p.beliefs {
			evidence := p.projectMissionResult(belief, ev)
			belief.ApplyEvidence(ev.Seq, evidence)
		}
	}
	// 发言、任务票提交和刺杀本身不携带可推断阵营的信息
}

// projectVote 依据观察者自己的信任度解读一张公投票。
// 拒绝一支在观察者看来可信的队伍是可疑行为；支持可疑队伍同理。
func (p *EvidenceProjector) projectVote(observer *BeliefModel, ev models.HistoryEvent) []Evidence {
	voter := ev.Actor
	if voter == observer.Owner() || len(p.proposal) == 0 {
		return nil
	}

	total := 0.0
	for _, id := range p.proposal {
		if id == observer.Owner() {
			total += TrustCeil // 自己当然信任自己
			continue
		}
		total += observer.Trust(id)
	}
	meanTrust := total / float64(len(p.proposal))

	switch {
	case !ev.Vote.Approve && meanTrust > trustedTeamThreshold:
		return []Evidence{{
			Subject: voter,
			LGood:   lGoodRejectTrusted,
			LEvil:   lEvilRejectTrusted,
			Reason:  "拒绝可信队伍",
		}}
	case ev.Vote.Approve && meanTrust < suspectTeamThreshold:
		return []Evidence{{
			Subject: voter,
			LGood:   lGoodApproveSuspects,
			LEvil:   lEvilApproveSuspects,
			Reason:  "支持可疑队伍",
		}}
	default:
		return nil
	}
}

// projectMissionResult 依据任务结果更新观察者对全体成员的信念。
// 失败票数只以总数公开，所以牵连强度对所有成员一视同仁。
func (p *EvidenceProjector) projectMissionResult(observer *BeliefModel, ev models.HistoryEvent) []Evidence {
	result := ev.MissionResult
	teamSize := len(result.Members)
	if teamSize == 0 {
		return nil
	}

	evidence := make([]Evidence, 0, teamSize)
	for _, member := range result.Members {
		if member == observer.Owner() {
			continue
		}

		switch {
		case result.Passed:
			evidence = append(evidence, Evidence{
				Subject: member,
				LGood:   lGoodSuccess,
				LEvil:   1.0,
				Reason:  "任务成功",
			})
		case result.FailCount >= teamSize:
			// 失败票数等于队伍人数：所有成员都投了失败票
			evidence = append(evidence, Evidence{
				Subject: member,
				LGood:   lGoodAllFail,
				LEvil:   1.0,
				Reason:  "任务失败且全员投败",
			})
		default:
			frac := float64(result.FailCount) / float64(teamSize)
			evidence = append(evidence, Evidence{
				Subject: member,
				LGood:   1.0 - lGoodFailScale*frac,
				LEvil:   1.0,
				Reason:  "身处失败任务队伍",
			})
		}
	}
	return evidence
}
