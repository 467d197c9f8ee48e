package models

// EventType 历史事件类型
type EventType string

const (
	EventTeamProposal  EventType = "team_proposal"
	EventVote          EventType = "vote"
	EventVoteResult    EventType = "vote_result"
	EventMissionVote   EventType = "mission_vote"
	EventMissionResult EventType = "mission_result"
	EventSpeech        EventType = "speech"
	EventAssassination EventType = "assassination"
)

// NoActor 事件没有具体行为者时的占位ID
const NoActor = -1

// HistoryEvent 历史事件，追加写入，序列号单调递增，写入后不再修改
type HistoryEvent struct {
	Seq       int64     `json:"seq"`
	Type      EventType `json:"type"`
	Round     int       `json:"round"`
	Actor     int       `json:"actor"` // NoActor 表示无行为者
	Timestamp int64     `json:"timestamp"`

	Proposal      *TeamProposalPayload  `json:"proposal,omitempty"`
	Vote          *VotePayload          `json:"vote,omitempty"`
	VoteResult    *VoteResultPayload    `json:"vote_result,omitempty"`
	MissionResult *MissionResultPayload `json:"mission_result,omitempty"`
	Speech        *SpeechPayload        `json:"speech,omitempty"`
	Assassination *AssassinationPayload `json:"assassination,omitempty"`
}

// TeamProposalPayload 队长提议的队伍
type TeamProposalPayload struct {
	Members []int `json:"members"`
}

// VotePayload 单个玩家的公投票（阿瓦隆的公投是公开的）
type VotePayload struct {
	Approve bool `json:"approve"`
}

// VoteResultPayload 一次公投的计票结果
type VoteResultPayload struct {
	Members      []int `json:"members"`
	ApproveCount int   `json:"approve_count"`
	RejectCount  int   `json:"reject_count"`
	Approved     bool  `json:"approved"`
	VoteRound    int   `json:"vote_round"`
	RejectStreak int   `json:"reject_streak"`
}

// MissionResultPayload 任务结果，只公开失败票总数
type MissionResultPayload struct {
	Members   []int `json:"members"`
	FailCount int   `json:"fail_count"`
	Passed    bool  `json:"passed"`
}

// SpeechPayload 玩家发言内容
type SpeechPayload struct {
	Text string `json:"text"`
}

// AssassinationPayload 刺杀结果
type AssassinationPayload struct {
	Target int  `json:"target"`
	Hit    bool `json:"hit"` // 是否命中梅林
}
