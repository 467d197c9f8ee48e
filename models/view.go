package models

// PlayerPublic 对外公开的玩家信息，不含角色和阵营
type PlayerPublic struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// VisiblePlayer 观察者按可见性规则能了解到的另一名玩家
type VisiblePlayer struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	// Team 已知阵营，未知时为空
	Team Team `json:"team,omitempty"`
	// PossibleMerlin 派西维尔视角：可能是梅林也可能是莫甘娜
	PossibleMerlin bool `json:"possible_merlin,omitempty"`
}

// PrivateView 单个玩家的私有视角
type PrivateView struct {
	PlayerID int             `json:"player_id"`
	Name     string          `json:"name"`
	Role     Role            `json:"role"`
	Team     Team            `json:"team"`
	Visible  []VisiblePlayer `json:"visible"`
	// Beliefs 该玩家对其他玩家的信任度快照（玩家ID -> 好人概率）
	Beliefs map[int]float64 `json:"beliefs,omitempty"`
}

// GameView 游戏状态快照。公共部分对所有人一致；
// Me 只在为某个玩家构建视图时填充，包含按可见性过滤后的身份信息。
type GameView struct {
	GameID             string          `json:"game_id"`
	Phase              Phase           `json:"phase"`
	Round              int             `json:"round"`
	VoteRound          int             `json:"vote_round"`
	RejectStreak       int             `json:"reject_streak"`
	Leader             int             `json:"leader"`
	Proposal           []int           `json:"proposal,omitempty"`
	MissionConfig      *MissionConfig  `json:"mission_config,omitempty"`
	Missions           []MissionRecord `json:"missions"`
	SuccessfulMissions int             `json:"successful_missions"`
	FailedMissions     int             `json:"failed_missions"`
	GameOver           bool            `json:"game_over"`
	Winner             Team            `json:"winner,omitempty"`
	Players            []PlayerPublic  `json:"players"`
	Events             []HistoryEvent  `json:"events,omitempty"`
	Me                 *PrivateView    `json:"me,omitempty"`
}
