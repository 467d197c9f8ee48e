package services

import (
	"errors"
	"testing"

	"github.com/qianlnk/avalon/models"
)

func TestRolesForComposition(t *testing.T) {
	cases := []struct {
		playerCount int
		good        int
		evil        int
	}{
		{5, 3, 2},
		{6, 4, 2},
	}

	for _, tc := range cases {
		config, err := RolesFor(tc.playerCount)
		if err != nil {
			t.Fatalf("%d人局查询失败: %v", tc.playerCount, err)
		}
		if config.GoodCount != tc.good || config.EvilCount != tc.evil {
			t.Errorf("%d人局好坏比应为%d/%d，得到 %d/%d",
				tc.playerCount, tc.good, tc.evil, config.GoodCount, config.EvilCount)
		}
		if len(config.Roles) != tc.playerCount {
			t.Errorf("%d人局应有%d个角色，得到 %d", tc.playerCount, tc.playerCount, len(config.Roles))
		}

		// 梅林、派西维尔、刺客、莫甘娜必须在场
		required := map[models.Role]bool{
			models.Merlin: false, models.Percival: false,
			models.Assassin: false, models.Morgana: false,
		}
		for _, def := range config.Roles {
			if _, ok := required[def.Role]; ok {
				required[def.Role] = true
			}
		}
		for role, present := range required {
			if !present {
				t.Errorf("%d人局缺少必备角色 %s", tc.playerCount, role)
			}
		}

		// 恰好一名坏人持有刺杀能力
		assassins := 0
		for _, def := range config.Roles {
			if def.IsAssassin {
				assassins++
				if def.Team != models.TeamEvil {
					t.Errorf("%d人局刺杀能力应属于坏人阵营", tc.playerCount)
				}
			}
		}
		if assassins != 1 {
			t.Errorf("%d人局应恰好有1名刺客，得到 %d", tc.playerCount, assassins)
		}
	}
}

func TestRolesForUnsupportedCount(t *testing.T) {
	for _, count := range []int{0, 4, 7, 10} {
		if _, err := RolesFor(count); !errors.Is(err, ErrUnsupportedPlayerCount) {
			t.Errorf("%d人局应返回 ErrUnsupportedPlayerCount，得到 %v", count, err)
		}
	}
}

func TestVisibleIDs(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)

	// 梅林看到刺客和莫甘娜
	merlin := VisibleIDs(players[0], players)
	if len(merlin) != 2 || !containsID(merlin, 3) || !containsID(merlin, 4) {
		t.Fatalf("梅林应看到玩家3和4，得到 %v", merlin)
	}

	// 坏人互相可见但看不到自己
	assassin := VisibleIDs(players[3], players)
	if len(assassin) != 1 || assassin[0] != 4 {
		t.Fatalf("刺客应只看到莫甘娜，得到 %v", assassin)
	}

	// 忠臣和派西维尔的确知集合为空
	if got := VisibleIDs(players[2], players); len(got) != 0 {
		t.Fatalf("忠臣不应确知任何人阵营，得到 %v", got)
	}
	if got := VisibleIDs(players[1], players); len(got) != 0 {
		t.Fatalf("派西维尔的候选人不属于确知集合，得到 %v", got)
	}
}

func TestVisibleIDsMordredConcealed(t *testing.T) {
	// 构造含莫德雷德的布局验证隐身规则
	roles := []models.Role{models.Merlin, models.Percival, models.Servant, models.Assassin, models.Mordred}
	players := newTestPlayers(t, roles)

	merlin := VisibleIDs(players[0], players)
	if containsID(merlin, 4) {
		t.Fatalf("梅林不应看到莫德雷德，得到 %v", merlin)
	}
	if !containsID(merlin, 3) {
		t.Fatalf("梅林应看到刺客，得到 %v", merlin)
	}

	// 莫德雷德对坏人队友正常可见
	assassin := VisibleIDs(players[3], players)
	if !containsID(assassin, 4) {
		t.Fatalf("刺客应看到莫德雷德，得到 %v", assassin)
	}
}

func TestMerlinCandidates(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)

	candidates := MerlinCandidates(players[1], players)
	if len(candidates) != 2 || !containsID(candidates, 0) || !containsID(candidates, 4) {
		t.Fatalf("派西维尔的候选人应为梅林和莫甘娜，得到 %v", candidates)
	}

	// 其他角色没有候选人视野
	if got := MerlinCandidates(players[0], players); got != nil {
		t.Fatalf("梅林不应有候选人视野，得到 %v", got)
	}
	if got := MerlinCandidates(players[2], players); got != nil {
		t.Fatalf("忠臣不应有候选人视野，得到 %v", got)
	}
}

func TestAssassinOf(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	if got := AssassinOf(players); got != 3 {
		t.Fatalf("刺客应为玩家3，得到 %d", got)
	}

	noAssassin := newTestPlayers(t, []models.Role{
		models.Merlin, models.Percival, models.Servant, models.Minion, models.Morgana,
	})
	if got := AssassinOf(noAssassin); got != models.NoActor {
		t.Fatalf("无刺客时应返回 NoActor，得到 %d", got)
	}
}
