package services

import (
	"errors"

	"github.com/qianlnk/avalon/models"
)

var ErrInvalidRound = errors.New("无效的任务轮次")

// TotalRounds 总任务轮数
const TotalRounds = 5

// missionTables 阿瓦隆标准任务配置表。
// 队伍人数不是单调递增的，这是规则原文如此。
var missionTables = map[int][TotalRounds]models.MissionConfig{
	5: {
		{Round: 1, TeamSize: 2, FailsRequired: 1},
		{Round: 2, TeamSize: 3, FailsRequired: 1},
		{Round: 3, TeamSize: 2, FailsRequired: 1},
		{Round: 4, TeamSize: 3, FailsRequired: 1},
		{Round: 5, TeamSize: 3, FailsRequired: 1},
	},
	6: {
		{Round: 1, TeamSize: 2, FailsRequired: 1},
		{Round: 2, TeamSize: 3, FailsRequired: 1},
		{Round: 3, TeamSize: 4, FailsRequired: 1},
		{Round: 4, TeamSize: 3, FailsRequired: 1},
		{Round: 5, TeamSize: 4, FailsRequired: 1},
	},
}

// MissionConfigFor 查询某一轮的任务配置，纯查表，无副作用
func MissionConfigFor(playerCount, round int) (models.MissionConfig, error) {
	table, ok := missionTables[playerCount]
	if !ok {
		return models.MissionConfig{}, ErrUnsupportedPlayerCount
	}
	if round < 1 || round > TotalRounds {
		return models.MissionConfig{}, ErrInvalidRound
	}
	return table[round-1], nil
}
