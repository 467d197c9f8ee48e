package models

// Team 阵营
type Team string

const (
	TeamGood Team = "good" // 好人阵营
	TeamEvil Team = "evil" // 坏人阵营
)

// Role 游戏角色
type Role string

const (
	// 好人阵营角色
	Merlin   Role = "merlin"   // 梅林：能看到坏人（莫德雷德除外）
	Percival Role = "percival" // 派西维尔：能看到梅林和莫甘娜，但分不清
	Servant  Role = "servant"  // 忠臣：普通好人

	// 坏人阵营角色
	Assassin Role = "assassin" // 刺客：最后可以刺杀梅林
	Morgana  Role = "morgana"  // 莫甘娜：在派西维尔眼中与梅林无法区分
	Mordred  Role = "mordred"  // 莫德雷德：梅林看不到的坏人
	Minion   Role = "minion"   // 爪牙：普通坏人
)

// RoleDef 角色定义，能力通过标志位表达而不是继承
type RoleDef struct {
	Role                 Role `json:"role"`
	Team                 Team `json:"team"`
	SeesEvil             bool `json:"sees_evil"`               // 能看到坏人阵营成员
	SeesMerlinAndMorgana bool `json:"sees_merlin_and_morgana"` // 派西维尔能力
	IsAssassin           bool `json:"is_assassin"`             // 刺杀能力
	ConcealedFromMerlin  bool `json:"concealed_from_merlin"`   // 梅林看不到
}

// Phase 游戏阶段
type Phase string

const (
	PhaseTeamProposal  Phase = "team_proposal" // 组队阶段（含讨论）
	PhaseTeamVote      Phase = "team_vote"     // 公投阶段
	PhaseMissionVote   Phase = "mission_vote"  // 任务执行阶段
	PhaseAssassination Phase = "assassination" // 刺杀阶段
	PhaseGameOver      Phase = "game_over"     // 游戏结束
)

// Personality AI性格特征
type Personality string

const (
	PersonalityAggressive Personality = "aggressive" // 激进
	PersonalityCautious   Personality = "cautious"   // 谨慎
	PersonalityStrategic  Personality = "strategic"  // 策略
	PersonalityRandom     Personality = "random"     // 随机
)

// Player 玩家信息，游戏开始时创建，此后不再变更
type Player struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Role        Role        `json:"role"`
	Team        Team        `json:"team"`
	Personality Personality `json:"personality,omitempty"`
	// Visible 该玩家可以看到阵营的玩家ID集合，由角色可见性规则推导
	Visible []int `json:"-"`
}

// RoleConfig 某一玩家数量下的角色配置
type RoleConfig struct {
	PlayerCount int       `json:"player_count"`
	Roles       []RoleDef `json:"roles"`
	GoodCount   int       `json:"good_count"`
	EvilCount   int       `json:"evil_count"`
}

// MissionConfig 单轮任务配置
type MissionConfig struct {
	Round         int `json:"round"`          // 第几轮（1..5）
	TeamSize      int `json:"team_size"`      // 队伍人数
	FailsRequired int `json:"fails_required"` // 破坏任务所需的失败票数
}

// MissionRecord 任务结果记录，只保留失败票总数，不记录任何成员的具体投票
type MissionRecord struct {
	Round     int   `json:"round"`
	Team      []int `json:"team"`
	FailCount int   `json:"fail_count"`
	Passed    bool  `json:"passed"`
}
