package handler

import (
	"context"
	"fmt"

	"interview-agent-go/internal/config"
	"interview-agent-go/internal/evaluator"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/types"
)

// InterviewHandler 면접 평가 API 핸들러. 요청 검증과 오케스트레이터 위임을 담당한다.
// 전송 계층(hertz)과 무관하게 유지하고 바인딩은 라우터 쪽에서 처리한다.
type InterviewHandler struct {
	cfg     *config.Config
	service *evaluator.Service
}

// NewInterviewHandler 면접 평가 핸들러를 만든다.
func NewInterviewHandler(cfg *config.Config, service *evaluator.Service) *InterviewHandler {
	return &InterviewHandler{
		cfg:     cfg,
		service: service,
	}
}

// HandleEvaluateSession 세션 전체 평가 요청을 처리한다.
// 반환 오류는 요청 자체가 잘못된 경우에만 쓰인다. 평가 중의 실패는
// 응답 본문의 success 플래그와 메시지로 전달된다.
func (h *InterviewHandler) HandleEvaluateSession(ctx context.Context, req *types.EvaluateSessionRequest) (*types.EvaluateSessionResponse, error) {
	if req.UserID <= 0 {
		return nil, fmt.Errorf("user_id가 유효하지 않습니다: %d", req.UserID)
	}

	logger.Ctx(ctx).Info().
		Int64("user_id", req.UserID).
		Int("question_count", len(req.QAPairs)).
		Msg("세션 평가 요청 수신")

	resp := h.service.EvaluateSession(ctx, req)

	logger.Ctx(ctx).Info().
		Bool("success", resp.Success).
		Uint64("interview_id", resp.InterviewID).
		Msg("세션 평가 요청 처리 완료")
	return resp, nil
}

// HandleGeneratePlan 면접 준비 계획 생성 요청을 처리한다.
func (h *InterviewHandler) HandleGeneratePlan(ctx context.Context, req *types.GeneratePlanRequest) (*types.GeneratePlanResponse, error) {
	if req.InterviewID == 0 {
		return nil, fmt.Errorf("interview_id가 유효하지 않습니다")
	}

	logger.Ctx(ctx).Info().
		Uint64("interview_id", req.InterviewID).
		Msg("계획 생성 요청 수신")

	resp := h.service.GeneratePlan(ctx, req)

	logger.Ctx(ctx).Info().
		Bool("success", resp.Success).
		Uint64("plan_id", resp.PlanID).
		Msg("계획 생성 요청 처리 완료")
	return resp, nil
}
