package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/qianlnk/avalon/models"
)

// LLMConfig 远程模型配置
type LLMConfig struct {
	BaseURL string        // OpenAI兼容接口地址，例如 https://api.deepseek.com/v1
	APIKey  string        // 本地部署通常不需要真实key
	Model   string        // 模型名称
	Timeout time.Duration // 单次调用超时
}

// LLMProvider 基于LLM的决策来源，通过 OpenAI 兼容的 chat completions 接口取得决策。
// 远程调用失败或返回内容无法严格解析时，回退到规则策略，保证游戏可以继续。
type LLMProvider struct {
	config   LLMConfig
	client   *http.Client
	player   models.Player
	fallback *StrategyProvider
}

// NewLLMProvider 创建LLM决策来源
func NewLLMProvider(player models.Player, config LLMConfig) *LLMProvider {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &LLMProvider{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		player:   player,
		fallback: NewStrategyProvider(player),
	}
}

// Decide 实现 DecisionProvider
func (l *LLMProvider) Decide(ctx context.Context, req *models.DecisionRequest) (*models.Decision, error) {
	raw, err := l.callChat(ctx, l.systemPrompt(), l.userPrompt(req))
	if err != nil {
		log.Printf("[LLM决策] 玩家%d 调用失败，回退规则策略: %v", l.player.ID, err)
		return l.fallback.Decide(ctx, req)
	}

	decision, err := parseDecision(req.Kind, raw)
	if err != nil {
		log.Printf("[LLM决策] 玩家%d 返回内容无法解析，回退规则策略: %v", l.player.ID, err)
		return l.fallback.Decide(ctx, req)
	}
	return decision, nil
}

// === chat completions 请求/响应 ===

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const llmMaxRetries = 2

// callChat 调用远程模型，带重试
func (l *LLMProvider) callChat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: l.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(l.config.BaseURL, "/") + "/chat/completions"

	var lastErr error
	for attempt := 0; attempt <= llmMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if l.config.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+l.config.APIKey)
		}

		resp, err := l.client.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("状态码 %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
			continue
		}

		var parsed chatResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			lastErr = err
			continue
		}
		if len(parsed.Choices) == 0 {
			lastErr = fmt.Errorf("响应中没有choices")
			continue
		}
		return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}

// systemPrompt 角色设定提示
func (l *LLMProvider) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString("你是阿瓦隆游戏中的一名玩家。\n")
	sb.WriteString(fmt.Sprintf("你的名字是%s，角色是%s，属于%s阵营。\n", l.player.Name, roleName(l.player.Role), teamName(l.player.Team)))

	switch l.player.Role {
	case models.Merlin:
		sb.WriteString("你能看到坏人，但必须隐藏身份避免被刺客发现。\n")
	case models.Percival:
		sb.WriteString("你能看到梅林和莫甘娜两名候选人，但分不清哪个是梅林。\n")
	case models.Assassin:
		sb.WriteString("你能看到坏人队友，好人完成3个任务后你可以刺杀梅林翻盘。\n")
	case models.Morgana:
		sb.WriteString("你能看到坏人队友，并且在派西维尔眼中与梅林无法区分。\n")
	}

	sb.WriteString("\n游戏规则：\n")
	sb.WriteString("- 好人完成3个任务获胜；坏人破坏3个任务获胜\n")
	sb.WriteString("- 好人完成3个任务后，刺客刺中梅林则坏人翻盘获胜\n")
	sb.WriteString("- 同一局连续5次组队被否决，坏人直接获胜\n")
	sb.WriteString("\n关键推理规则：\n")
	sb.WriteString("- 任务失败票数等于队伍人数时，队伍全员都是坏人\n")
	sb.WriteString("- 失败票数小于队伍人数时，队伍中混有对应数量的坏人\n")
	sb.WriteString("- 任务成功说明队伍可能都是好人，也可能是坏人在隐藏\n")
	return sb.String()
}

// userPrompt 决策请求提示，附带当前局面、任务历史和信念摘要
func (l *LLMProvider) userPrompt(req *models.DecisionRequest) string {
	view := req.View
	var sb strings.Builder

	sb.WriteString("当前局面：\n")
	sb.WriteString(fmt.Sprintf("- 第%d轮任务，投票轮次%d，连续流局%d次\n", view.Round, view.VoteRound, view.RejectStreak))
	sb.WriteString(fmt.Sprintf("- 成功任务%d个，失败任务%d个，当前队长是玩家%d\n", view.SuccessfulMissions, view.FailedMissions, view.Leader))
	if view.MissionConfig != nil {
		sb.WriteString(fmt.Sprintf("- 本轮任务需要%d人，%d张失败票破坏\n", view.MissionConfig.TeamSize, view.MissionConfig.FailsRequired))
	}
	if len(view.Proposal) > 0 {
		sb.WriteString(fmt.Sprintf("- 当前提议队伍: %v\n", view.Proposal))
	}

	if len(view.Missions) > 0 {
		sb.WriteString("\n任务历史：\n")
		for _, m := range view.Missions {
			if m.Passed {
				sb.WriteString(fmt.Sprintf("- 第%d轮 队伍%v 成功\n", m.Round, m.Team))
			} else {
				sb.WriteString(fmt.Sprintf("- 第%d轮 队伍%v 失败（失败票%d/%d）\n", m.Round, m.Team, m.FailCount, len(m.Team)))
			}
		}
	}

	if view.Me != nil {
		if len(view.Me.Visible) > 0 {
			sb.WriteString("\n你能看到的信息：\n")
			for _, v := range view.Me.Visible {
				if v.PossibleMerlin {
					sb.WriteString(fmt.Sprintf("- %s(玩家%d): 可能是梅林\n", v.Name, v.ID))
				} else {
					sb.WriteString(fmt.Sprintf("- %s(玩家%d): %s阵营\n", v.Name, v.ID, teamName(v.Team)))
				}
			}
		}
		if len(view.Me.Beliefs) > 0 {
			sb.WriteString("\n你对其他玩家的信任度（好人概率）：\n")
			for _, p := range view.Players {
				if trust, ok := view.Me.Beliefs[p.ID]; ok {
					sb.WriteString(fmt.Sprintf("- %s(玩家%d): %.2f\n", p.Name, p.ID, trust))
				}
			}
		}
	}

	sb.WriteString("\n")
	switch req.Kind {
	case models.DecisionTeamProposal:
		size := 2
		if view.MissionConfig != nil {
			size = view.MissionConfig.TeamSize
		}
		sb.WriteString(fmt.Sprintf("你是本轮队长，请从所有玩家中选择%d人执行任务（可以包含你自己）。\n", size))
		sb.WriteString(`请只返回JSON：{"reasoning": "推理过程", "team": [玩家ID列表]}`)
	case models.DecisionVote:
		sb.WriteString("请对当前提议队伍投票。\n")
		sb.WriteString(`请只返回JSON：{"reasoning": "推理过程", "approve": true或false}`)
	case models.DecisionMissionVote:
		sb.WriteString("你在任务队伍中，请决定任务投票。注意：好人只能投成功。\n")
		sb.WriteString(`请只返回JSON：{"reasoning": "推理过程", "success": true或false}`)
	case models.DecisionAssassination:
		sb.WriteString("好人已完成3个任务，请选择刺杀目标，刺中梅林则坏人获胜。\n")
		sb.WriteString(`请只返回JSON：{"reasoning": "推理过程", "target": 玩家ID}`)
	case models.DecisionSpeech:
		sb.WriteString("现在是讨论阶段，请发表一段简短的发言（不要暴露按规则应当隐藏的身份）。\n")
		sb.WriteString(`请只返回JSON：{"speech": "发言内容"}`)
	}

	return sb.String()
}

// llmDecisionPayload LLM返回的决策载荷，按决策类型取用对应字段
type llmDecisionPayload struct {
	Reasoning string `json:"reasoning"`
	Team      []int  `json:"team"`
	Approve   *bool  `json:"approve"`
	Success   *bool  `json:"success"`
	Target    *int   `json:"target"`
	Speech    string `json:"speech"`
}

// parseDecision 把模型返回的文本严格解析成带类型标签的决策。
// 缺字段或类型不符都视为解析失败，交由调用方回退，绝不默认补值。
func parseDecision(kind models.DecisionKind, raw string) (*models.Decision, error) {
	cleaned := stripCodeFence(raw)

	var payload llmDecisionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("JSON解析失败: %w", err)
	}

	decision := &models.Decision{Kind: kind}
	switch kind {
	case models.DecisionTeamProposal:
		if len(payload.Team) == 0 {
			return nil, fmt.Errorf("缺少team字段")
		}
		decision.Members = payload.Team
	case models.DecisionVote:
		if payload.Approve == nil {
			return nil, fmt.Errorf("缺少approve字段")
		}
		decision.Approve = *payload.Approve
	case models.DecisionMissionVote:
		if payload.Success == nil {
			return nil, fmt.Errorf("缺少success字段")
		}
		decision.Success = *payload.Success
	case models.DecisionAssassination:
		if payload.Target == nil {
			return nil, fmt.Errorf("缺少target字段")
		}
		decision.Target = *payload.Target
	case models.DecisionSpeech:
		if payload.Speech == "" {
			return nil, fmt.Errorf("缺少speech字段")
		}
		decision.Text = payload.Speech
	default:
		return nil, fmt.Errorf("未知的决策类型: %s", kind)
	}

	return decision, nil
}

// stripCodeFence 去掉模型偶尔附带的markdown代码块标记
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	lines = lines[1:]
	if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// roleName 角色的中文名
func roleName(role models.Role) string {
	switch role {
	case models.Merlin:
		return "梅林"
	case models.Percival:
		return "派西维尔"
	case models.Servant:
		return "忠臣"
	case models.Assassin:
		return "刺客"
	case models.Morgana:
		return "莫甘娜"
	case models.Mordred:
		return "莫德雷德"
	case models.Minion:
		return "爪牙"
	default:
		return string(role)
	}
}

// teamName 阵营的中文名
func teamName(team models.Team) string {
	if team == models.TeamEvil {
		return "坏人"
	}
	return "好人"
}
