package models

// DecisionKind 决策类型
type DecisionKind string

const (
	DecisionTeamProposal  DecisionKind = "team_proposal"  // 队长组队
	DecisionVote          DecisionKind = "vote"           // 公投表决
	DecisionMissionVote   DecisionKind = "mission_vote"   // 任务投票
	DecisionAssassination DecisionKind = "assassination"  // 刺杀目标
	DecisionSpeech        DecisionKind = "speech"         // 发言
)

// Decision 决策结果，带类型标签的闭合变体。
// 决策来源（规则或LLM）返回的内容必须能严格解析成该结构，
// 无法解析或字段越界的决策一律被拒绝，不做静默修正。
type Decision struct {
	Kind    DecisionKind `json:"kind"`
	Members []int        `json:"members,omitempty"` // 组队决策：队伍成员ID
	Approve bool         `json:"approve"`           // 公投决策：是否同意
	Success bool         `json:"success"`           // 任务决策：是否投成功
	Target  int          `json:"target"`            // 刺杀决策：目标玩家ID
	Text    string       `json:"text,omitempty"`    // 发言决策：发言内容
}

// DecisionRequest 一次决策请求：决策类型加上请求者视角的游戏视图
type DecisionRequest struct {
	Kind DecisionKind `json:"kind"`
	View *GameView    `json:"view"`
}
