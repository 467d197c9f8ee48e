package services

import (
	"fmt"
	"math/rand"

	"github.com/qianlnk/avalon/models"
)

// GenerateSpeech 生成讨论阶段的发言内容。
// 发言只是公开信息的修辞，不泄露任何按可见性规则应当隐藏的身份。
func GenerateSpeech(player models.Player, view *models.GameView, rng *rand.Rand) string {
	if view.FailedMissions > 0 && rng.Float64() < 0.5 {
		return failedMissionSpeech(player, view, rng)
	}

	switch player.Team {
	case models.TeamEvil:
		return evilSpeech(player, rng)
	default:
		return goodSpeech(player, rng)
	}
}

// failedMissionSpeech 针对已失败任务的发言
func failedMissionSpeech(player models.Player, view *models.GameView, rng *rand.Rand) string {
	var last *models.MissionRecord
	for i := range view.Missions {
		if !view.Missions[i].Passed {
			last = &view.Missions[i]
		}
	}
	if last == nil {
		return goodSpeech(player, rng)
	}

	if last.FailCount >= len(last.Team) {
		return fmt.Sprintf("第%d轮任务失败票和队伍人数一样多，那支队伍里没有一个好人", last.Round)
	}

	lines := []string{
		fmt.Sprintf("第%d轮任务有%d张失败票，队伍里肯定混进了坏人", last.Round, last.FailCount),
		"上次失败的队伍成员都值得怀疑，这轮别再用同样的人",
		"失败票不会说谎，我们得从上次的队伍里找问题",
	}
	return lines[rng.Intn(len(lines))]
}

// evilSpeech 坏人阵营的发言：伪装和误导
func evilSpeech(player models.Player, rng *rand.Rand) string {
	switch player.Personality {
	case models.PersonalityAggressive:
		lines := []string{
			"我觉得有人一直在带节奏，大家想想是谁最积极否决队伍",
			"这个队伍我信不过，换几个人再说",
		}
		return lines[rng.Intn(len(lines))]
	case models.PersonalityCautious:
		lines := []string{
			"大家冷静分析，不要被一两次投票带偏",
			"我没什么意见，队长看着安排",
		}
		return lines[rng.Intn(len(lines))]
	default:
		lines := []string{
			"先看看任务记录再下结论，乱猜只会帮坏人",
			"我建议这轮选前几轮表现干净的人",
		}
		return lines[rng.Intn(len(lines))]
	}
}

// goodSpeech 好人阵营的发言：推动信息和组队
func goodSpeech(player models.Player, rng *rand.Rand) string {
	switch player.Personality {
	case models.PersonalityAggressive:
		lines := []string{
			"我强烈建议队长带上我，我可以自证清白",
			"谁反对可信的队伍，谁就有问题",
		}
		return lines[rng.Intn(len(lines))]
	case models.PersonalityCautious:
		lines := []string{
			"投票要谨慎，流局次数不多了",
			"我们不能浪费否决的机会，想清楚再投",
		}
		return lines[rng.Intn(len(lines))]
	default:
		lines := []string{
			"结合任务记录和投票记录，坏人是藏不住的",
			"这轮的队伍人选很关键，大家认真讨论",
			"大家对上一轮的投票有什么看法？",
		}
		return lines[rng.Intn(len(lines))]
	}
}
