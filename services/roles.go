package services

import (
	"errors"

	"github.com/qianlnk/avalon/models"
)

var ErrUnsupportedPlayerCount = errors.New("不支持的玩家数量，仅支持5-6人")

// roleDefs 全部角色的能力定义表
var roleDefs = map[models.Role]models.RoleDef{
	models.Merlin: {
		Role: models.Merlin, Team: models.TeamGood,
	},
	models.Percival: {
		Role: models.Percival, Team: models.TeamGood,
		SeesMerlinAndMorgana: true,
	},
	models.Servant: {
		Role: models.Servant, Team: models.TeamGood,
	},
	models.Assassin: {
		Role: models.Assassin, Team: models.TeamEvil,
		SeesEvil: true, IsAssassin: true,
	},
	models.Morgana: {
		Role: models.Morgana, Team: models.TeamEvil,
		SeesEvil: true,
	},
	models.Mordred: {
		Role: models.Mordred, Team: models.TeamEvil,
		SeesEvil: true, ConcealedFromMerlin: true,
	},
	models.Minion: {
		Role: models.Minion, Team: models.TeamEvil,
		SeesEvil: true,
	},
}

// rolesByCount 各玩家数量下的标准角色配置
var rolesByCount = map[int][]models.Role{
	5: {models.Merlin, models.Percival, models.Servant, models.Assassin, models.Morgana},
	6: {models.Merlin, models.Percival, models.Servant, models.Servant, models.Assassin, models.Morgana},
}

// RoleDefOf 获取单个角色的定义
func RoleDefOf(role models.Role) models.RoleDef {
	return roleDefs[role]
}

// RolesFor 返回指定玩家数量的角色配置，纯查表，无副作用
func RolesFor(playerCount int) (*models.RoleConfig, error) {
	roles, ok := rolesByCount[playerCount]
	if !ok {
		return nil, ErrUnsupportedPlayerCount
	}

	config := &models.RoleConfig{PlayerCount: playerCount}
	for _, role := range roles {
		def := roleDefs[role]
		config.Roles = append(config.Roles, def)
		if def.Team == models.TeamGood {
			config.GoodCount++
		} else {
			config.EvilCount++
		}
	}

	return config, nil
}

// VisibleIDs 推导观察者可以确知阵营的玩家ID集合。
// 梅林能看到所有坏人（被隐藏的角色除外）；坏人之间互相可见；
// 派西维尔看到的两名候选人阵营并不确定，所以不在该集合中。
func VisibleIDs(observer models.Player, players []models.Player) []int {
	def := roleDefs[observer.Role]
	visible := make([]int, 0)

	for _, other := range players {
		if other.ID == observer.ID {
			continue
		}
		otherDef := roleDefs[other.Role]

		switch {
		case observer.Role == models.Merlin:
			if otherDef.Team == models.TeamEvil && !otherDef.ConcealedFromMerlin {
				visible = append(visible, other.ID)
			}
		case def.SeesEvil:
			if otherDef.Team == models.TeamEvil {
				visible = append(visible, other.ID)
			}
		}
	}

	return visible
}

// MerlinCandidates 派西维尔视角下"可能是梅林"的玩家ID集合（梅林和莫甘娜，无法区分）
func MerlinCandidates(observer models.Player, players []models.Player) []int {
	if !roleDefs[observer.Role].SeesMerlinAndMorgana {
		return nil
	}

	candidates := make([]int, 0, 2)
	for _, other := range players {
		if other.ID == observer.ID {
			continue
		}
		if other.Role == models.Merlin || other.Role == models.Morgana {
			candidates = append(candidates, other.ID)
		}
	}
	return candidates
}

// AssassinOf 返回持有刺杀能力的玩家ID，没有则返回 models.NoActor
func AssassinOf(players []models.Player) int {
	for _, player := range players {
		if roleDefs[player.Role].IsAssassin {
			return player.ID
		}
	}
	return models.NoActor
}
