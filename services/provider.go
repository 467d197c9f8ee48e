package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/qianlnk/avalon/models"
)

var (
	ErrDecisionRejected    = errors.New("决策不合法，已拒绝")
	ErrProviderUnavailable = errors.New("决策来源不可用")
)

// DecisionProvider 决策来源。引擎在每个决策点通过该接口向外索取决策，
// 决策的产生方式（规则启发式或远程LLM）对引擎完全透明。
// 返回的决策在应用前还会经过引擎的合法性校验，不合法的决策被拒绝，
// 不做静默修正。实现可能很慢或失败（远程调用），必须响应 ctx 取消。
type DecisionProvider interface {
	Decide(ctx context.Context, req *models.DecisionRequest) (*models.Decision, error)
}

// checkDecisionKind 决策边界的第一道校验：返回的决策类型必须与请求一致
func checkDecisionKind(req *models.DecisionRequest, decision *models.Decision) error {
	if decision == nil {
		return fmt.Errorf("%w: 决策为空", ErrDecisionRejected)
	}
	if decision.Kind != req.Kind {
		return fmt.Errorf("%w: 期望 %s 却返回 %s", ErrDecisionRejected, req.Kind, decision.Kind)
	}
	return nil
}

// rejectDecision 把引擎的合法性错误包装为决策被拒绝
func rejectDecision(err error) error {
	return fmt.Errorf("%w: %v", ErrDecisionRejected, err)
}
