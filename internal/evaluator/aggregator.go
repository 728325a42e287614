package evaluator

import (
	"context"
	"fmt"

	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/parser"
	"interview-agent-go/internal/speech"
	"interview-agent-go/internal/tracing"
	"interview-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Aggregator 2단계 통합 평가와 세션 종합 평가를 수행한다.
type Aggregator struct {
	llm            model.ToolCallingChatModel
	reconcileModel string // 질문별 통합 평가용 모델 (비면 기본)
	overallModel   string // 세션 종합 평가용 모델 (비면 기본)
}

// AggregatorOption 집계기 설정 옵션
type AggregatorOption func(*Aggregator)

// WithReconcileModel 통합 평가 단계 전용 모델을 지정한다.
func WithReconcileModel(modelName string) AggregatorOption {
	return func(a *Aggregator) {
		a.reconcileModel = modelName
	}
}

// WithOverallModel 종합 평가 단계 전용 모델을 지정한다.
func WithOverallModel(modelName string) AggregatorOption {
	return func(a *Aggregator) {
		a.overallModel = modelName
	}
}

// NewAggregator 집계기를 만든다.
func NewAggregator(llm model.ToolCallingChatModel, options ...AggregatorOption) *Aggregator {
	a := &Aggregator{llm: llm}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Reconcile 질문 하나의 ML 점수와 1단계 평가를 하나의 최종 평가로 통합한다.
// 의도 우선순위: 1단계에서 추출된 의도가 있으면 그 값이 이긴다.
// 점수를 추출하지 못하면 nil로 보존하고 0으로 강제하지 않는다.
// 생성 호출 실패 시에만 오류를 돌려주며, 파싱 실패는 오류가 아니다.
func (a *Aggregator) Reconcile(ctx context.Context, eval *types.PerQuestionEvaluation, company *types.CompanyContext) (*types.ReconciledQuestionResult, error) {
	ctx, span := otel.Tracer("interview-agent/evaluator").Start(ctx, "evaluator.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.Int("question.index", eval.QuestionIndex))

	// 로컬 반말 감지. 판정은 프롬프트 참고 라인과 로그로만 쓰고
	// 감점 계산은 생성 모델에 위임한다.
	informalDetected := speech.IsInformal(eval.Answer)
	if informalDetected {
		span.SetAttributes(attribute.Bool("answer.informal_detected", true))
		logger.Ctx(ctx).Warn().
			Int("question_index", eval.QuestionIndex).
			Msg("답변에서 반말 표현 감지")
	}

	prompt := buildReconcilePrompt(eval, informalDetected)
	messages := []*schema.Message{
		schema.SystemMessage(systemPromptReconcile),
		schema.UserMessage(prompt),
	}

	opts := []model.Option{model.WithTemperature(constants.TemperatureFinalEval)}
	if a.reconcileModel != "" {
		opts = append(opts, model.WithModel(a.reconcileModel))
	}

	response, err := a.llm.Generate(ctx, messages, opts...)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("통합 평가 생성 호출 실패: %w", err)
	}

	score, parsedIntent, evaluation, improvement := parser.ExtractReconciledFields(response.Content)

	intent := eval.Intent
	if intent == "" {
		intent = parsedIntent
	}

	if score == nil {
		logger.Ctx(ctx).Warn().
			Int("question_index", eval.QuestionIndex).
			Str("response", tracing.SafePromptContent(response.Content)).
			Msg("통합 평가 응답에서 점수를 추출하지 못함, nil로 보존")
	} else {
		span.SetAttributes(attribute.Int("question.final_score", *score))
	}

	return &types.ReconciledQuestionResult{
		Question:    eval.Question,
		Answer:      eval.Answer,
		Intent:      intent,
		FinalScore:  score,
		Evaluation:  evaluation,
		Improvement: improvement,
	}, nil
}

// Aggregate 질문별 최종 결과를 세션 하나의 종합 결과로 묶는다.
// 종합 점수는 로컬 평균이 아니라 생성 모델이 독립적으로 산정한다.
// 생성 호출 실패는 세션 종합 결과에 한해 치명적이다. 이미 계산된
// 질문별 결과는 호출자가 보존한다.
func (a *Aggregator) Aggregate(ctx context.Context, results []types.ReconciledQuestionResult) (*types.SessionResult, error) {
	ctx, span := otel.Tracer("interview-agent/evaluator").Start(ctx, "evaluator.Aggregate")
	defer span.End()
	span.SetAttributes(attribute.Int("session.question_count", len(results)))

	prompt := buildOverallPrompt(results)
	messages := []*schema.Message{
		schema.SystemMessage(systemPromptReconcile),
		schema.UserMessage(prompt),
	}

	opts := []model.Option{model.WithTemperature(constants.TemperatureOverallEval)}
	if a.overallModel != "" {
		opts = append(opts, model.WithModel(a.overallModel))
	}

	response, err := a.llm.Generate(ctx, messages, opts...)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("세션 종합 평가 생성 호출 실패: %w", err)
	}

	score, feedback, summary := parser.ExtractOverallFields(response.Content)
	if score != nil {
		span.SetAttributes(attribute.Int("session.overall_score", *score))
	}

	return &types.SessionResult{
		PerQuestion:     results,
		OverallScore:    score,
		OverallFeedback: feedback,
		Summary:         summary,
	}, nil
}
