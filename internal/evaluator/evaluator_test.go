package evaluator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"interview-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 테스트용 생성 모델 모의 구현
type mockLLMModel struct {
	// 호출 순서대로 돌려줄 응답. 응답 수를 넘는 호출은 마지막 응답을 재사용한다.
	responses []string
	// 고정 오류. 설정되면 모든 호출이 실패한다.
	err error
	// 기록: 호출 횟수와 각 호출의 사용자 프롬프트
	callCount   int
	userPrompts []string
}

func (m *mockLLMModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	m.callCount++
	for _, msg := range messages {
		if msg.Role == schema.User {
			m.userPrompts = append(m.userPrompts, msg.Content)
		}
	}
	if m.err != nil {
		return nil, m.err
	}

	idx := m.callCount - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return &schema.Message{Role: schema.Assistant, Content: m.responses[idx]}, nil
}

func (m *mockLLMModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func (m *mockLLMModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func (m *mockLLMModel) lastPrompt() string {
	if len(m.userPrompts) == 0 {
		return ""
	}
	return m.userPrompts[len(m.userPrompts)-1]
}

// 테스트용 채점 모델 모의 구현
type mockScorer struct {
	score float64
	err   error
	calls int
}

func (s *mockScorer) Score(ctx context.Context, question, answer string) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.score, nil
}

func testCompany() *types.CompanyContext {
	return &types.CompanyContext{
		ID:                "naver",
		Name:              "네이버",
		TalentProfile:     "기술로 연결하는 혁신가",
		CoreCompetencies:  []string{"기술적 깊이", "대용량 설계"},
		TechFocus:         []string{"검색", "AI"},
		InterviewKeywords: []string{"검색랭킹", "클라우드"},
		QuestionDirection: "기술 깊이 중점 평가",
		Culture: types.CompanyCulture{
			WorkStyle:  "엔지니어링 문화",
			CoreValues: []string{"사용자 최우선"},
		},
	}
}

const stage1Response = `**질문 의도 분석**: 협업 갈등 해결 능력 확인
**답변 평가 결과**:
의도 일치도 점수 (25점 만점): 20점 - 이유: 의도에 부합
기본 총점: 78점`

// TestQuestionEvaluator_Success 정상 경로: ML 점수와 추출 의도, 평가 원문이 채워진다.
func TestQuestionEvaluator_Success(t *testing.T) {
	llm := &mockLLMModel{responses: []string{stage1Response}}
	scorer := &mockScorer{score: 42.5}
	evaluator := NewQuestionEvaluator(llm, scorer)

	qa := types.QAPair{Question: "갈등 경험을 말씀해주세요.", Answer: "팀원과 협의하여 해결했습니다.", QuestionLevel: "medium"}
	result := evaluator.Evaluate(context.Background(), 1, qa, testCompany())

	assert.Equal(t, 1, result.QuestionIndex)
	assert.Equal(t, 42.5, result.MLScore)
	assert.Equal(t, "협업 갈등 해결 능력 확인", result.Intent)
	assert.Equal(t, stage1Response, result.LLMEvaluation, "평가 본문은 응답 원문 전체")
	assert.Equal(t, "medium", result.QuestionLevel)
	assert.Equal(t, 1, scorer.calls)
}

// TestQuestionEvaluator_PromptContainsRubric 프롬프트에 루브릭 가중치와 감점 규칙이 들어간다.
func TestQuestionEvaluator_PromptContainsRubric(t *testing.T) {
	llm := &mockLLMModel{responses: []string{stage1Response}}
	evaluator := NewQuestionEvaluator(llm, &mockScorer{score: 30})

	evaluator.Evaluate(context.Background(), 1, types.QAPair{Question: "Q", Answer: "A"}, testCompany())

	prompt := llm.lastPrompt()
	assert.Contains(t, prompt, "질문 의도 일치도 (25점)")
	assert.Contains(t, prompt, "인재상 적합성 (18점)")
	assert.Contains(t, prompt, "예의/매너 (23점)")
	assert.Contains(t, prompt, "무조건 50점을 차감")
	assert.Contains(t, prompt, "네이버")
}

// TestQuestionEvaluator_ScorerFailure 채점 실패는 대체 레코드로 흡수된다.
func TestQuestionEvaluator_ScorerFailure(t *testing.T) {
	llm := &mockLLMModel{responses: []string{stage1Response}}
	scorer := &mockScorer{err: fmt.Errorf("sidecar unreachable")}
	evaluator := NewQuestionEvaluator(llm, scorer)

	duration := 90
	qa := types.QAPair{Question: "Q", Answer: "A", Duration: &duration}
	result := evaluator.Evaluate(context.Background(), 3, qa, testCompany())

	assert.Equal(t, 3, result.QuestionIndex)
	assert.Equal(t, 0.0, result.MLScore)
	assert.Contains(t, result.LLMEvaluation, "평가 중 오류 발생")
	assert.Empty(t, result.Intent)
	assert.Equal(t, "unknown", result.QuestionLevel)
	require.NotNil(t, result.Duration)
	assert.Equal(t, 90, *result.Duration)
}

// TestQuestionEvaluator_LLMFailure 생성 호출 실패도 패닉 없이 대체 레코드를 만든다.
func TestQuestionEvaluator_LLMFailure(t *testing.T) {
	llm := &mockLLMModel{err: fmt.Errorf("rate limited")}
	evaluator := NewQuestionEvaluator(llm, &mockScorer{score: 35})

	result := evaluator.Evaluate(context.Background(), 2, types.QAPair{Question: "Q", Answer: "A"}, testCompany())

	assert.Equal(t, 0.0, result.MLScore, "실패 시 ML 점수는 0.0으로 통일")
	assert.Contains(t, result.LLMEvaluation, "평가 중 오류 발생")
	assert.Equal(t, "Q", result.Question)
	assert.Equal(t, "A", result.Answer)
}

const reconcileResponse = `1. 📝 질문 의도: 재파생된 의도
2. 💬 평가: 구조적인 답변이었습니다.
3. 🔧 개선 방법: 수치 근거를 더하세요.
4. [최종 점수]: 75`

// TestAggregator_Reconcile_IntentPrecedence 1단계 의도가 있으면 그 값이 이긴다.
func TestAggregator_Reconcile_IntentPrecedence(t *testing.T) {
	llm := &mockLLMModel{responses: []string{reconcileResponse}}
	aggregator := NewAggregator(llm)

	eval := &types.PerQuestionEvaluation{
		QuestionIndex: 1,
		Question:      "Q",
		Answer:        "성실히 답변했습니다.",
		Intent:        "1단계 추출 의도",
		MLScore:       38.2,
		LLMEvaluation: "원문 평가",
	}
	record, err := aggregator.Reconcile(context.Background(), eval, testCompany())
	require.NoError(t, err)

	assert.Equal(t, "1단계 추출 의도", record.Intent)
	require.NotNil(t, record.FinalScore)
	assert.Equal(t, 75, *record.FinalScore)
	assert.Equal(t, "구조적인 답변이었습니다.", record.Evaluation)
	assert.Equal(t, "수치 근거를 더하세요.", record.Improvement)

	// 프롬프트에 ML 점수가 소수 한 자리로 들어간다
	assert.Contains(t, llm.lastPrompt(), "[머신러닝 점수]: 38.2")
}

// TestAggregator_Reconcile_IntentFallback 1단계 의도가 비어 있으면 재파생 의도를 쓴다.
func TestAggregator_Reconcile_IntentFallback(t *testing.T) {
	llm := &mockLLMModel{responses: []string{reconcileResponse}}
	aggregator := NewAggregator(llm)

	eval := &types.PerQuestionEvaluation{Question: "Q", Answer: "답변입니다.", Intent: ""}
	record, err := aggregator.Reconcile(context.Background(), eval, testCompany())
	require.NoError(t, err)
	assert.Equal(t, "재파생된 의도", record.Intent)
}

// TestAggregator_Reconcile_NilScorePreserved 점수 추출 실패는 nil로 남는다.
func TestAggregator_Reconcile_NilScorePreserved(t *testing.T) {
	llm := &mockLLMModel{responses: []string{"형식을 무시한 응답"}}
	aggregator := NewAggregator(llm)

	eval := &types.PerQuestionEvaluation{Question: "Q", Answer: "답변입니다."}
	record, err := aggregator.Reconcile(context.Background(), eval, testCompany())
	require.NoError(t, err, "파싱 실패는 오류가 아니다")
	assert.Nil(t, record.FinalScore)
	assert.Equal(t, "Q", record.Question)
	assert.Equal(t, "답변입니다.", record.Answer)
}

// TestAggregator_Reconcile_InformalAnnotation 반말 답변이면 감지기 참고 라인이 프롬프트에 붙는다.
func TestAggregator_Reconcile_InformalAnnotation(t *testing.T) {
	llm := &mockLLMModel{responses: []string{reconcileResponse}}
	aggregator := NewAggregator(llm)

	informal := &types.PerQuestionEvaluation{Question: "Q", Answer: "그 일은 내가 다 했어."}
	_, err := aggregator.Reconcile(context.Background(), informal, testCompany())
	require.NoError(t, err)
	assert.Contains(t, llm.lastPrompt(), "자동 감지기가 이 답변에서 반말 표현을 감지했습니다")

	polite := &types.PerQuestionEvaluation{Question: "Q", Answer: "제가 수행했습니다."}
	_, err = aggregator.Reconcile(context.Background(), polite, testCompany())
	require.NoError(t, err)
	assert.NotContains(t, llm.lastPrompt(), "자동 감지기")
	// 반말 감점 위임 지시문 자체는 항상 들어간다
	assert.Contains(t, llm.lastPrompt(), "점수를 반으로 깎되 소수점은 버리고")
}

const overallResponse = `[최종 점수]: 71
[전체 피드백]: 전반적으로 준수한 면접이었습니다. 깊이가 아쉽습니다.
[1줄 요약]: 소통 우수, 기술 어필 부족`

// TestAggregator_Aggregate 종합 평가 정상 경로. 로컬 평균 계산 없이 모델 점수를 쓴다.
func TestAggregator_Aggregate(t *testing.T) {
	llm := &mockLLMModel{responses: []string{overallResponse}}
	aggregator := NewAggregator(llm)

	score1, score2 := 80, 60
	results := []types.ReconciledQuestionResult{
		{Question: "Q1", Answer: "A1", FinalScore: &score1},
		{Question: "Q2", Answer: "A2", FinalScore: &score2},
	}
	session, err := aggregator.Aggregate(context.Background(), results)
	require.NoError(t, err)

	require.NotNil(t, session.OverallScore)
	assert.Equal(t, 71, *session.OverallScore, "종합 점수는 평균(70)이 아니라 모델 산정값")
	assert.Equal(t, "소통 우수, 기술 어필 부족", session.Summary)
	assert.Len(t, session.PerQuestion, 2)

	// 프롬프트에 질문별 점수가 열거된다
	prompt := llm.lastPrompt()
	assert.Contains(t, prompt, "1. 질문: Q1")
	assert.Contains(t, prompt, "점수: 80")
	assert.Contains(t, prompt, "점수: 60")
}

// TestAggregator_Aggregate_NilScoreListedAsNA 점수 없는 질문은 N/A로 열거된다.
func TestAggregator_Aggregate_NilScoreListedAsNA(t *testing.T) {
	llm := &mockLLMModel{responses: []string{overallResponse}}
	aggregator := NewAggregator(llm)

	_, err := aggregator.Aggregate(context.Background(), []types.ReconciledQuestionResult{
		{Question: "Q1", Answer: "A1", FinalScore: nil},
	})
	require.NoError(t, err)
	assert.Contains(t, llm.lastPrompt(), "점수: N/A")
}

// TestAggregator_Aggregate_GenerationFailure 종합 생성 실패는 오류로 전파된다.
func TestAggregator_Aggregate_GenerationFailure(t *testing.T) {
	llm := &mockLLMModel{err: fmt.Errorf("upstream 500")}
	aggregator := NewAggregator(llm)

	session, err := aggregator.Aggregate(context.Background(), []types.ReconciledQuestionResult{{Question: "Q"}})
	assert.Error(t, err)
	assert.Nil(t, session, "종합 결과를 로컬에서 합성하지 않는다")
}

// TestPlanGenerator_PromptEmbedsSessionResult 계획 프롬프트에 종합/질문별 결과가 들어간다.
func TestPlanGenerator_PromptEmbedsSessionResult(t *testing.T) {
	planJSON := `{
  "shortly_plan": {
    "즉시개선_가능한_부분": ["a", "b", "c"],
    "다음_면접_준비": ["a", "b", "c"],
    "구체적_개선사항": ["a", "b", "c"]
  },
  "long_plan": {
    "기술개발": ["a", "b", "c"],
    "경험_영역": ["a", "b", "c"],
    "경력_경로": ["a", "b", "c"]
  }
}`
	llm := &mockLLMModel{responses: []string{"```json\n" + planJSON + "\n```"}}
	generator := NewPlanGenerator(llm)

	score, qScore := 75, 80
	session := &types.SessionResult{
		OverallScore:    &score,
		OverallFeedback: "기술 깊이가 부족합니다.",
		Summary:         "소통 우수",
		PerQuestion: []types.ReconciledQuestionResult{
			{Question: "자기소개를 해주세요", FinalScore: &qScore, Evaluation: "무난함", Improvement: "수치 보강"},
		},
	}
	plan, err := generator.Generate(context.Background(), session)
	require.NoError(t, err)
	assert.Len(t, plan.ShortlyPlan.ImmediateImprovements, 3)

	prompt := llm.lastPrompt()
	assert.Contains(t, prompt, "종합 점수: 75/100")
	assert.Contains(t, prompt, "자기소개를 해주세요")
	assert.Contains(t, prompt, "shortly_plan")
}

// TestPlanGenerator_ShapeViolation 구조 위반은 원문이 실린 PlanParseError가 된다.
func TestPlanGenerator_ShapeViolation(t *testing.T) {
	raw := `{"shortly_plan": {"즉시개선_가능한_부분": ["하나"]}, "long_plan": {}}`
	llm := &mockLLMModel{responses: []string{raw}}
	generator := NewPlanGenerator(llm)

	plan, err := generator.Generate(context.Background(), &types.SessionResult{})
	assert.Nil(t, plan)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "계획 응답 파싱 실패"))
}
