package evaluator

import (
	"context"
	"errors"
	"fmt"

	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/parser"
	"interview-agent-go/internal/tracing"
	"interview-agent-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Service 세션 오케스트레이터. 세션 생성부터 질문별 평가, 통합, 종합 평가,
// 결과 영속화, 이벤트 발행까지의 전체 흐름을 조율한다.
// 공개 메서드는 예외를 밖으로 흘리지 않고 항상 성공 플래그와 메시지를 돌려준다.
type Service struct {
	questionEvaluator *QuestionEvaluator
	aggregator        *Aggregator
	planGenerator     *PlanGenerator
	store             EvaluationStore
	publisher         EventPublisher      // nil이면 발행 생략
	archiver          DiagnosticsArchiver // nil이면 아카이브 생략
	locker            SessionLocker       // nil이면 잠금 생략
	defaultCompany    types.CompanyContext
}

// NewService 오케스트레이터를 만든다. publisher/archiver/locker는 nil일 수 있다.
func NewService(
	questionEvaluator *QuestionEvaluator,
	aggregator *Aggregator,
	planGenerator *PlanGenerator,
	store EvaluationStore,
	publisher EventPublisher,
	archiver DiagnosticsArchiver,
	locker SessionLocker,
	defaultCompany types.CompanyContext,
) *Service {
	return &Service{
		questionEvaluator: questionEvaluator,
		aggregator:        aggregator,
		planGenerator:     planGenerator,
		store:             store,
		publisher:         publisher,
		archiver:          archiver,
		locker:            locker,
		defaultCompany:    defaultCompany,
	}
}

// EvaluateSession 세션 전체를 평가한다. 질문 순서는 입력 순서를 그대로 보존한다.
func (s *Service) EvaluateSession(ctx context.Context, req *types.EvaluateSessionRequest) *types.EvaluateSessionResponse {
	ctx, span := otel.Tracer("interview-agent/evaluator").Start(ctx, "evaluator.EvaluateSession")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("session.user_id", req.UserID),
		attribute.Int("session.question_count", len(req.QAPairs)),
	)

	if len(req.QAPairs) == 0 {
		return &types.EvaluateSessionResponse{
			Success: false,
			Message: "평가할 질문-답변 쌍이 없습니다.",
		}
	}

	// 1. 세션 생성. 선택적 FK가 제약을 위반하면 user_id만으로 재시도한다.
	interviewID, err := s.store.CreateSession(ctx, req)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("면접 세션 생성 실패, 필수 필드만으로 재시도")
		interviewID, err = s.store.CreateSessionMinimal(ctx, req.UserID)
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return &types.EvaluateSessionResponse{
			Success: false,
			Message: fmt.Sprintf("면접 세션 생성 실패 - user_id: %d", req.UserID),
		}
	}
	span.SetAttributes(attribute.Int64("session.interview_id", int64(interviewID)))

	// 2. 회사 프로필 조회. 조회 실패나 부재는 설정된 기본 프로필로 폴백한다.
	company := s.resolveCompanyContext(ctx, req.CompanyID)

	// 3. 질문별 개별 평가. 엄격히 순차 실행하며 개별 실패는 대체 레코드로 흡수된다.
	logger.Ctx(ctx).Info().
		Uint64("interview_id", interviewID).
		Int("question_count", len(req.QAPairs)).
		Msg("질문 순차 평가 시작")

	perQuestion := make([]types.PerQuestionEvaluation, 0, len(req.QAPairs))
	for i, qa := range req.QAPairs {
		result := s.questionEvaluator.Evaluate(ctx, i+1, qa, company)
		perQuestion = append(perQuestion, result)
	}

	// 4. 질문별 통합 평가 + 즉시 영속화.
	// 종합 단계가 실패해도 질문별 결과는 조회 가능해야 하므로 먼저 저장한다.
	reconciled := make([]types.ReconciledQuestionResult, 0, len(perQuestion))
	for i := range perQuestion {
		record := s.reconcileQuestion(ctx, &perQuestion[i], company)
		reconciled = append(reconciled, record)
		s.persistQuestionRecord(ctx, interviewID, &perQuestion[i], &record)
	}

	// 5. 세션 종합 평가. 실패는 종합 결과에 한해 치명적이다.
	sessionResult, aggErr := s.aggregator.Aggregate(ctx, reconciled)
	if aggErr != nil {
		tracing.RecordError(span, aggErr, tracing.ErrorTypeLLM)
		logger.Ctx(ctx).Error().Err(aggErr).
			Uint64("interview_id", interviewID).
			Msg("세션 종합 평가 실패, 질문별 결과는 보존됨")

		return &types.EvaluateSessionResponse{
			Success:            true,
			InterviewID:        interviewID,
			Message:            fmt.Sprintf("질문별 평가는 완료되었으나 종합 평가에 실패했습니다 (%d개 질문)", len(req.QAPairs)),
			TotalQuestions:     len(req.QAPairs),
			PerQuestionResults: reconciled,
		}
	}

	// 6. 종합 결과 영속화. 세션당 한 번만 기록되도록 잠금으로 감싼다.
	s.persistSessionResult(ctx, interviewID, sessionResult)

	// 7. 평가 완료 이벤트. 실패해도 요청은 성공으로 남는다.
	if s.publisher != nil {
		if err := s.publisher.PublishInterviewEvaluated(ctx, interviewID, sessionResult.OverallScore); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Uint64("interview_id", interviewID).Msg("평가 완료 이벤트 발행 실패")
		}
	}

	return &types.EvaluateSessionResponse{
		Success:            true,
		InterviewID:        interviewID,
		Message:            fmt.Sprintf("전체 면접 평가 완료 (%d개 질문)", len(req.QAPairs)),
		TotalQuestions:     len(req.QAPairs),
		OverallScore:       sessionResult.OverallScore,
		OverallFeedback:    sessionResult.OverallFeedback,
		PerQuestionResults: sessionResult.PerQuestion,
	}
}

// GeneratePlan 저장된 세션 결과로부터 면접 준비 계획을 만든다.
func (s *Service) GeneratePlan(ctx context.Context, req *types.GeneratePlanRequest) *types.GeneratePlanResponse {
	ctx, span := otel.Tracer("interview-agent/evaluator").Start(ctx, "evaluator.GeneratePlan")
	defer span.End()
	span.SetAttributes(attribute.Int64("session.interview_id", int64(req.InterviewID)))

	sessionResult, err := s.store.GetSessionResult(ctx, req.InterviewID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return &types.GeneratePlanResponse{
			Success: false,
			Message: fmt.Sprintf("면접 데이터 조회 실패: %v", err),
		}
	}
	if sessionResult == nil {
		return &types.GeneratePlanResponse{
			Success: false,
			Message: "면접 데이터를 찾을 수 없습니다.",
		}
	}

	plan, err := s.planGenerator.Generate(ctx, sessionResult)
	if err != nil {
		// 파싱 실패 원문은 진단 아카이브에 남긴다
		var parseErr *parser.PlanParseError
		if errors.As(err, &parseErr) && s.archiver != nil {
			if key, archiveErr := s.archiver.ArchiveRawResponse(ctx, req.InterviewID, constants.TaskPlanEval, parseErr.RawResponse); archiveErr != nil {
				logger.Ctx(ctx).Warn().Err(archiveErr).Msg("계획 응답 원문 아카이브 실패")
			} else {
				logger.Ctx(ctx).Info().Str("object_key", key).Msg("계획 파싱 실패 원문 아카이브 완료")
			}
		}

		return &types.GeneratePlanResponse{
			Success:     false,
			InterviewID: req.InterviewID,
			Message:     fmt.Sprintf("면접 계획 생성 실패: %v", err),
		}
	}

	planID, err := s.store.SavePlan(ctx, req.InterviewID, plan)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return &types.GeneratePlanResponse{
			Success:     false,
			InterviewID: req.InterviewID,
			Message:     fmt.Sprintf("면접 계획 저장 실패: %v", err),
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPlanCreated(ctx, req.InterviewID, planID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Uint64("interview_id", req.InterviewID).Msg("계획 생성 이벤트 발행 실패")
		}
	}

	return &types.GeneratePlanResponse{
		Success:       true,
		InterviewID:   req.InterviewID,
		PlanID:        planID,
		InterviewPlan: plan,
		Message:       "면접 준비 계획 생성 완료",
	}
}

// resolveCompanyContext 저장소 -> 설정 기본 프로필 순으로 회사 정보를 찾는다.
func (s *Service) resolveCompanyContext(ctx context.Context, companyID *int64) *types.CompanyContext {
	if companyID != nil {
		company, err := s.store.GetCompanyContext(ctx, *companyID)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Int64("company_id", *companyID).Msg("회사 정보 조회 중 오류")
		} else if company != nil {
			logger.Ctx(ctx).Info().Str("company", company.Name).Msg("회사 정보 조회 완료")
			return company
		} else {
			logger.Ctx(ctx).Warn().Int64("company_id", *companyID).Msg("회사 정보를 찾을 수 없음, 기본 프로필 사용")
		}
	}

	fallback := s.defaultCompany
	logger.Ctx(ctx).Info().Str("company", fallback.Name).Msg("기본 회사 프로필 사용")
	return &fallback
}

// reconcileQuestion 통합 평가 한 건. 생성 호출이 실패하면 점수 nil과
// 오류 안내문을 담은 레코드로 낮추고 세션은 계속 진행한다.
func (s *Service) reconcileQuestion(ctx context.Context, eval *types.PerQuestionEvaluation, company *types.CompanyContext) types.ReconciledQuestionResult {
	record, err := s.aggregator.Reconcile(ctx, eval, company)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Int("question_index", eval.QuestionIndex).
			Msg("질문 통합 평가 실패, 대체 레코드로 계속 진행")

		return types.ReconciledQuestionResult{
			Question:   eval.Question,
			Answer:     eval.Answer,
			Intent:     eval.Intent,
			FinalScore: nil,
			Evaluation: fmt.Sprintf("통합 평가 중 오류 발생: %v", err),
		}
	}
	return *record
}

// persistQuestionRecord 질문별 최종 레코드를 저장한다. 실패는 로그로만 남긴다.
func (s *Service) persistQuestionRecord(ctx context.Context, interviewID uint64, eval *types.PerQuestionEvaluation, record *types.ReconciledQuestionResult) {
	detailID, err := s.store.SaveQuestionRecord(ctx, interviewID, &QuestionRecord{
		QuestionIndex: eval.QuestionIndex,
		QuestionID:    eval.QuestionIndex,
		Question:      record.Question,
		Answer:        record.Answer,
		Intent:        record.Intent,
		QuestionLevel: eval.QuestionLevel,
		Who:           constants.QuestionWhoInterviewer,
		Sequence:      eval.QuestionIndex,
		Duration:      eval.Duration,
		FinalScore:    record.FinalScore,
		Evaluation:    record.Evaluation,
		Improvement:   record.Improvement,
	})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Uint64("interview_id", interviewID).
			Int("question_index", eval.QuestionIndex).
			Msg("질문별 평가 저장 실패")
		return
	}
	logger.Ctx(ctx).Debug().
		Uint64("detail_id", detailID).
		Int("question_index", eval.QuestionIndex).
		Msg("질문별 평가 저장 완료")
}

// persistSessionResult 종합 결과를 한 번만 기록하고 트랜스크립트를 아카이브한다.
func (s *Service) persistSessionResult(ctx context.Context, interviewID uint64, result *types.SessionResult) {
	if s.locker != nil {
		acquired, err := s.locker.AcquireFinalizeLock(ctx, interviewID)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Uint64("interview_id", interviewID).Msg("최종 기록 잠금 획득 실패")
		} else if !acquired {
			logger.Ctx(ctx).Warn().Uint64("interview_id", interviewID).Msg("이미 최종 결과가 기록 중인 세션, 기록 생략")
			return
		} else {
			defer func() {
				if err := s.locker.ReleaseFinalizeLock(ctx, interviewID); err != nil {
					logger.Ctx(ctx).Warn().Err(err).Msg("최종 기록 잠금 해제 실패")
				}
			}()
		}
	}

	if err := s.store.SaveSessionResult(ctx, interviewID, result); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Uint64("interview_id", interviewID).Msg("세션 종합 결과 저장 실패")
	}

	if s.archiver != nil {
		if key, err := s.archiver.ArchiveTranscript(ctx, interviewID, result); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Uint64("interview_id", interviewID).Msg("세션 트랜스크립트 아카이브 실패")
		} else {
			logger.Ctx(ctx).Debug().Str("object_key", key).Msg("세션 트랜스크립트 아카이브 완료")
		}
	}
}
