package evaluator

import (
	"context"
	"fmt"

	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/parser"
	"interview-agent-go/internal/tracing"
	"interview-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
)

// PlanGenerator 세션 종합 결과로부터 면접 준비 계획을 생성한다.
type PlanGenerator struct {
	llm       model.ToolCallingChatModel
	modelName string
	maxTokens int
}

// PlanGeneratorOption 계획 생성기 설정 옵션
type PlanGeneratorOption func(*PlanGenerator)

// WithPlanModel 계획 생성 단계 전용 모델을 지정한다.
func WithPlanModel(modelName string) PlanGeneratorOption {
	return func(g *PlanGenerator) {
		g.modelName = modelName
	}
}

// WithPlanMaxTokens 계획 생성 응답의 토큰 상한을 지정한다.
func WithPlanMaxTokens(maxTokens int) PlanGeneratorOption {
	return func(g *PlanGenerator) {
		g.maxTokens = maxTokens
	}
}

// NewPlanGenerator 계획 생성기를 만든다.
func NewPlanGenerator(llm model.ToolCallingChatModel, options ...PlanGeneratorOption) *PlanGenerator {
	g := &PlanGenerator{llm: llm, maxTokens: 2000}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Generate 준비 계획을 생성하고 3개 영역 x 3개 항목 구조를 검증한다.
// 구조 위반은 *parser.PlanParseError로 보고되며 원시 응답이 함께 실린다.
// 빈 계획을 유효한 계획처럼 돌려주는 일은 없다.
func (g *PlanGenerator) Generate(ctx context.Context, result *types.SessionResult) (*types.InterviewPlan, error) {
	ctx, span := otel.Tracer("interview-agent/evaluator").Start(ctx, "evaluator.GeneratePlan")
	defer span.End()

	prompt := buildPlanPrompt(result)
	messages := []*schema.Message{
		schema.SystemMessage(systemPromptPlan),
		schema.UserMessage(prompt),
	}

	opts := []model.Option{
		model.WithTemperature(constants.TemperaturePlanEval),
		model.WithMaxTokens(g.maxTokens),
	}
	if g.modelName != "" {
		opts = append(opts, model.WithModel(g.modelName))
	}

	response, err := g.llm.Generate(ctx, messages, opts...)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("계획 생성 호출 실패: %w", err)
	}

	plan, err := parser.ParsePlan(response.Content)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeParse)
		return nil, err
	}

	return plan, nil
}
