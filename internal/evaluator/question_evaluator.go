package evaluator

import (
	"context"
	"fmt"

	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/parser"
	"interview-agent-go/internal/tracing"
	"interview-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// QuestionEvaluator 개별 질문 평가기.
// 채점 모델 점수와 의도 추출 + 루브릭 평가를 한 번의 생성 호출로 묶는다.
type QuestionEvaluator struct {
	llm       model.ToolCallingChatModel
	scorer    ModelScorer
	modelName string // 비어 있으면 클라이언트 기본 모델
}

// QuestionEvaluatorOption 평가기 설정 옵션
type QuestionEvaluatorOption func(*QuestionEvaluator)

// WithEvalModel 개별 평가 단계 전용 생성 모델을 지정한다.
func WithEvalModel(modelName string) QuestionEvaluatorOption {
	return func(e *QuestionEvaluator) {
		e.modelName = modelName
	}
}

// NewQuestionEvaluator 개별 질문 평가기를 만든다.
func NewQuestionEvaluator(llm model.ToolCallingChatModel, scorer ModelScorer, options ...QuestionEvaluatorOption) *QuestionEvaluator {
	e := &QuestionEvaluator{
		llm:    llm,
		scorer: scorer,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Evaluate 질문-답변 쌍 하나를 평가한다. 어떤 실패도 호출자에게 전파하지 않고
// ML 점수 0.0과 오류 안내문을 담은 대체 레코드를 돌려준다.
// 질문 하나가 망가져도 세션 전체가 중단되면 안 된다.
func (e *QuestionEvaluator) Evaluate(ctx context.Context, questionIndex int, qa types.QAPair, company *types.CompanyContext) types.PerQuestionEvaluation {
	ctx, span := otel.Tracer("interview-agent/evaluator").Start(ctx, "evaluator.EvaluateQuestion")
	defer span.End()
	span.SetAttributes(
		attribute.Int("question.index", questionIndex),
		attribute.String("question.text", tracing.SafeAnswerContent(qa.Question)),
	)

	result, err := e.evaluate(ctx, qa, company)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		logger.Ctx(ctx).Error().
			Err(err).
			Int("question_index", questionIndex).
			Msg("개별 질문 평가 실패, 대체 레코드로 계속 진행")

		return types.PerQuestionEvaluation{
			QuestionIndex: questionIndex,
			Question:      qa.Question,
			Answer:        qa.Answer,
			MLScore:       0.0,
			LLMEvaluation: fmt.Sprintf("평가 중 오류 발생: %v", err),
			Intent:        "",
			QuestionLevel: constants.QuestionLevelUnknown,
			Duration:      qa.Duration,
		}
	}

	result.QuestionIndex = questionIndex
	result.QuestionLevel = qa.QuestionLevel
	if result.QuestionLevel == "" {
		result.QuestionLevel = constants.QuestionLevelUnknown
	}
	result.Duration = qa.Duration

	span.SetAttributes(attribute.Float64("question.ml_score", result.MLScore))
	return result
}

// evaluate 실제 평가 경로. 실패는 Evaluate에서 대체 레코드로 바뀐다.
func (e *QuestionEvaluator) evaluate(ctx context.Context, qa types.QAPair, company *types.CompanyContext) (types.PerQuestionEvaluation, error) {
	var empty types.PerQuestionEvaluation

	mlScore, err := e.scorer.Score(ctx, qa.Question, qa.Answer)
	if err != nil {
		return empty, fmt.Errorf("채점 모델 호출 실패: %w", err)
	}

	prompt := buildQuestionEvalPrompt(qa.Question, qa.Answer, company)
	messages := []*schema.Message{
		schema.SystemMessage(systemPromptIndividualEval),
		schema.UserMessage(prompt),
	}

	opts := []model.Option{model.WithTemperature(constants.TemperatureIndividualEval)}
	if e.modelName != "" {
		opts = append(opts, model.WithModel(e.modelName))
	}

	response, err := e.llm.Generate(ctx, messages, opts...)
	if err != nil {
		return empty, fmt.Errorf("개별 평가 생성 호출 실패: %w", err)
	}

	intent, evaluation := parser.ExtractIntentAndEvaluation(response.Content)

	return types.PerQuestionEvaluation{
		Question:      qa.Question,
		Answer:        qa.Answer,
		Intent:        intent,
		MLScore:       mlScore,
		LLMEvaluation: evaluation,
	}, nil
}
