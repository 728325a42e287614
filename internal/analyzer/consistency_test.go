package analyzer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"interview-agent-go/internal/evaluator"
	"interview-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stage1Fixture = `**질문 의도 분석**: 협업 역량과 갈등 해결 경험 확인

**답변 평가 결과**:
의도 일치도 점수 (25점 만점): 20점 - 이유: 의도에 맞는 사례 제시
최종 총점: 70점`

const reconcileFixture = `1. 📝 질문 의도: 협업 역량과 갈등 해결 경험 확인
2. 💬 평가: 구체적 사례가 잘 드러난 답변입니다.
3. 🔧 개선 방법: 수치 기반 성과를 덧붙이면 좋습니다.
4. [최종 점수]: 72`

// 단계를 프롬프트 내용으로 구분하는 모의 생성 모델.
// 통합 평가 응답은 큐에서 순서대로 꺼내 쓰고, 큐가 비면 마지막 응답을 재사용한다.
type stageKeyedModel struct {
	mu                 sync.Mutex
	stage1Response     string
	reconcileResponses []string
	reconcileIdx       int
	err                error
}

func (m *stageKeyedModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	prompt := messages[len(messages)-1].Content
	if strings.Contains(prompt, "[머신러닝 점수]") {
		response := m.reconcileResponses[len(m.reconcileResponses)-1]
		if m.reconcileIdx < len(m.reconcileResponses) {
			response = m.reconcileResponses[m.reconcileIdx]
			m.reconcileIdx++
		}
		return &schema.Message{Role: schema.Assistant, Content: response}, nil
	}
	return &schema.Message{Role: schema.Assistant, Content: m.stage1Response}, nil
}

func (m *stageKeyedModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not supported")
}

func (m *stageKeyedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

type fixedScorer struct {
	score float64
}

func (s *fixedScorer) Score(ctx context.Context, question, answer string) (float64, error) {
	return s.score, nil
}

func analyzerCompany() *types.CompanyContext {
	return &types.CompanyContext{
		Name:             "테스트회사",
		TalentProfile:    "도전하는 인재",
		CoreCompetencies: []string{"문제 해결"},
	}
}

func testQAPair() types.QAPair {
	return types.QAPair{
		Question: "협업 중 갈등을 해결한 경험을 말해주세요.",
		Answer:   "팀원과 의견 차이가 있었지만 데이터를 근거로 합의점을 찾았습니다.",
	}
}

// TestAnalyzer_Run_ConsistentScores 같은 응답이 반복되면 산포 0과 최고 등급이 나온다.
func TestAnalyzer_Run_ConsistentScores(t *testing.T) {
	llm := &stageKeyedModel{
		stage1Response:     stage1Fixture,
		reconcileResponses: []string{reconcileFixture},
	}

	var hookMu sync.Mutex
	hookCalls := 0
	analyzer := New(
		evaluator.NewQuestionEvaluator(llm, &fixedScorer{score: 40}),
		evaluator.NewAggregator(llm),
		WithMaxWorkers(2),
		WithReleaseHook(2, func() {
			hookMu.Lock()
			hookCalls++
			hookMu.Unlock()
		}),
	)

	report, err := analyzer.Run(context.Background(), testQAPair(), analyzerCompany(), 5)
	require.NoError(t, err)

	assert.Equal(t, 5, report.RepeatCount)
	assert.Equal(t, 5, report.Completed)
	assert.Zero(t, report.Failed)

	assert.Equal(t, 5, report.FinalScores.Count)
	assert.Equal(t, 72.0, report.FinalScores.Mean)
	assert.Zero(t, report.FinalScores.StdDev)
	assert.Equal(t, 72.0, report.FinalScores.Min)
	assert.Equal(t, 72.0, report.FinalScores.Max)

	assert.Equal(t, 40.0, report.MLScores.Mean)
	assert.Equal(t, "매우 우수", report.Grade)
	assert.Equal(t, 100.0, report.ConsistencyScore)

	// 5회 완료 중 2회, 4회 시점에 훅이 불린다
	assert.Equal(t, 2, hookCalls)
}

// TestAnalyzer_Run_ScoreMissingCountsAsFailure 점수 없는 반복은 실패로 세고 나머지로 통계를 낸다.
func TestAnalyzer_Run_ScoreMissingCountsAsFailure(t *testing.T) {
	noScore := `1. 📝 질문 의도: 협업 역량 확인
2. 💬 평가: 형식이 깨진 응답입니다.`

	llm := &stageKeyedModel{
		stage1Response:     stage1Fixture,
		reconcileResponses: []string{reconcileFixture, noScore, reconcileFixture},
	}
	// 응답 큐 순서를 보장하려고 순차 실행한다
	analyzer := New(
		evaluator.NewQuestionEvaluator(llm, &fixedScorer{score: 40}),
		evaluator.NewAggregator(llm),
		WithMaxWorkers(1),
	)

	report, err := analyzer.Run(context.Background(), testQAPair(), analyzerCompany(), 3)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.FinalScores.Count)
}

// TestAnalyzer_Run_AllFailures 전부 실패하면 보고서 대신 오류를 돌려준다.
func TestAnalyzer_Run_AllFailures(t *testing.T) {
	llm := &stageKeyedModel{
		err:                fmt.Errorf("generation unavailable"),
		reconcileResponses: []string{""},
	}
	analyzer := New(
		evaluator.NewQuestionEvaluator(llm, &fixedScorer{score: 40}),
		evaluator.NewAggregator(llm),
	)

	_, err := analyzer.Run(context.Background(), testQAPair(), analyzerCompany(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "전체 실패")
}

// TestAnalyzer_Run_InvalidRepeatCount 0 이하 반복 횟수는 즉시 거부한다.
func TestAnalyzer_Run_InvalidRepeatCount(t *testing.T) {
	analyzer := New(nil, nil)

	_, err := analyzer.Run(context.Background(), testQAPair(), analyzerCompany(), 0)
	require.Error(t, err)
}
