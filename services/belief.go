package services

import (
	"sort"

	"github.com/qianlnk/avalon/models"
)

// 信任度边界。隐藏信息永远不完整，信念不允许坍缩为确定值。
const (
	TrustFloor = 0.05
	TrustCeil  = 0.95
	TrustPrior = 0.5

	// trustMerlinCandidate 派西维尔对两名候选人的初始信任：
	// 其中一个是梅林（好人），另一个是莫甘娜（坏人），略偏向好人
	trustMerlinCandidate = 0.6
)

// Evidence 一条针对单个玩家的证据：该行为在其为好人/坏人假设下的似然
type Evidence struct {
	Subject int     `json:"subject"`
	LGood   float64 `json:"l_good"`
	LEvil   float64 `json:"l_evil"`
	Reason  string  `json:"reason"`
}

// AppliedEvidence 已应用的证据记录
type AppliedEvidence struct {
	Seq     int64   `json:"seq"`
	Subject int     `json:"subject"`
	Reason  string  `json:"reason"`
	Before  float64 `json:"before"`
	After   float64 `json:"after"`
}

// BeliefModel 单个玩家私有的信念模型：对其他每名玩家维护一个好人概率。
// 阵营已经通过可见性确知的玩家被固定在边界值上，不再参与更新。
type BeliefModel struct {
	owner  int
	trust  map[int]float64
	pinned map[int]bool
	log    []AppliedEvidence
}

// NewBeliefModel 创建信念模型。先验为0.5，按可见性规则调整：
// 可见阵营的玩家固定在 0.95/0.05，派西维尔的两名候选人初始化为 0.6。
func NewBeliefModel(owner models.Player, players []models.Player) *BeliefModel {
	b := &BeliefModel{
		owner:  owner.ID,
		trust:  make(map[int]float64, len(players)-1),
		pinned: make(map[int]bool),
	}

	for _, other := range players {
		if other.ID == owner.ID {
			continue
		}
		b.trust[other.ID] = TrustPrior
	}

	for _, id := range owner.Visible {
		if players[id].Team == models.TeamGood {
			b.trust[id] = TrustCeil
		} else {
			b.trust[id] = TrustFloor
		}
		b.pinned[id] = true
	}

	for _, id := range MerlinCandidates(owner, players) {
		b.trust[id] = trustMerlinCandidate
	}

	return b
}

// Owner 该信念模型所属的玩家ID
func (b *BeliefModel) Owner() int {
	return b.owner
}

// Trust 对某个玩家的当前信任度
func (b *BeliefModel) Trust(subject int) float64 {
	return b.trust[subject]
}

// Pinned 某个玩家的阵营是否已通过可见性确知
func (b *BeliefModel) Pinned(subject int) bool {
	return b.pinned[subject]
}

// ApplyEvidence 应用同一事件产生的一批证据。
// 同一事件内的更新彼此独立：全部基于事件前的信任度计算后再统一写回，
// 因此同一事件内证据的顺序不影响结果。已固定的玩家被跳过。
func (b *BeliefModel) ApplyEvidence(seq int64, evidence []Evidence) {
	updated := make(map[int]float64, len(evidence))

	for _, ev := range evidence {
		prior, ok := b.trust[ev.Subject]
		if !ok || b.pinned[ev.Subject] {
			continue
		}

		// 贝叶斯更新：p' = p*Lg / (p*Lg + (1-p)*Le)
		numerator := prior * ev.LGood
		denominator := numerator + (1-prior)*ev.LEvil
		posterior := prior
		if denominator > 0 {
			posterior = numerator / denominator
		}
		posterior = clampTrust(posterior)

		updated[ev.Subject] = posterior
		b.log = append(b.log, AppliedEvidence{
			Seq:     seq,
			Subject: ev.Subject,
			Reason:  ev.Reason,
			Before:  prior,
			After:   posterior,
		})
	}

	for subject, score := range updated {
		b.trust[subject] = score
	}
}

// Snapshot 信任度快照
func (b *BeliefModel) Snapshot() map[int]float64 {
	snapshot := make(map[int]float64, len(b.trust))
	for id, score := range b.trust {
		snapshot[id] = score
	}
	return snapshot
}

// Log 已应用证据的记录副本
func (b *BeliefModel) Log() []AppliedEvidence {
	return append([]AppliedEvidence(nil), b.log...)
}

// MostTrusted 按信任度从高到低返回最多 count 个玩家ID
func (b *BeliefModel) MostTrusted(count int) []int {
	return b.ranked(count, func(a, c float64) bool { return a > c })
}

// MostSuspicious 按信任度从低到高返回最多 count 个玩家ID
func (b *BeliefModel) MostSuspicious(count int) []int {
	return b.ranked(count, func(a, c float64) bool { return a < c })
}

func (b *BeliefModel) ranked(count int, better func(a, c float64) bool) []int {
	ids := make([]int, 0, len(b.trust))
	for id := range b.trust {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if b.trust[ids[i]] == b.trust[ids[j]] {
			return ids[i] < ids[j]
		}
		return better(b.trust[ids[i]], b.trust[ids[j]])
	})

	if count > len(ids) {
		count = len(ids)
	}
	return ids[:count]
}

func clampTrust(score float64) float64 {
	if score < TrustFloor {
		return TrustFloor
	}
	if score > TrustCeil {
		return TrustCeil
	}
	return score
}
