package evaluator

import (
	"context"
	"fmt"
	"testing"

	"interview-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 테스트용 저장소 모의 구현
type fakeStore struct {
	failCreate        bool // CreateSession만 실패시켜 재시도 경로를 유도
	failCreateMinimal bool
	company           *types.CompanyContext

	createCalls        int
	createMinimalCalls int
	savedRecords       []QuestionRecord
	savedResult        *types.SessionResult
	savedResultFor     uint64
	storedResult       *types.SessionResult // GetSessionResult가 돌려줄 값
	savedPlan          *types.InterviewPlan
}

func (f *fakeStore) CreateSession(ctx context.Context, req *types.EvaluateSessionRequest) (uint64, error) {
	f.createCalls++
	if f.failCreate {
		return 0, fmt.Errorf("fk constraint violation")
	}
	return 100, nil
}

func (f *fakeStore) CreateSessionMinimal(ctx context.Context, userID int64) (uint64, error) {
	f.createMinimalCalls++
	if f.failCreateMinimal {
		return 0, fmt.Errorf("insert failed")
	}
	return 101, nil
}

func (f *fakeStore) GetCompanyContext(ctx context.Context, companyID int64) (*types.CompanyContext, error) {
	return f.company, nil
}

func (f *fakeStore) SaveQuestionRecord(ctx context.Context, interviewID uint64, record *QuestionRecord) (uint64, error) {
	f.savedRecords = append(f.savedRecords, *record)
	return uint64(len(f.savedRecords)), nil
}

func (f *fakeStore) SaveSessionResult(ctx context.Context, interviewID uint64, result *types.SessionResult) error {
	f.savedResult = result
	f.savedResultFor = interviewID
	return nil
}

func (f *fakeStore) GetSessionResult(ctx context.Context, interviewID uint64) (*types.SessionResult, error) {
	return f.storedResult, nil
}

func (f *fakeStore) SavePlan(ctx context.Context, interviewID uint64, plan *types.InterviewPlan) (uint64, error) {
	f.savedPlan = plan
	return 7, nil
}

// 발행 이벤트 기록용 모의 구현
type fakePublisher struct {
	evaluated []uint64
	plans     []uint64
}

func (f *fakePublisher) PublishInterviewEvaluated(ctx context.Context, interviewID uint64, overallScore *int) error {
	f.evaluated = append(f.evaluated, interviewID)
	return nil
}

func (f *fakePublisher) PublishPlanCreated(ctx context.Context, interviewID, planID uint64) error {
	f.plans = append(f.plans, planID)
	return nil
}

// newTestService 3단계 응답을 순서대로 돌려주는 서비스 구성.
// 생성 호출 순서: (질문 수 x 개별 평가) -> (질문 수 x 통합 평가) -> 종합 평가 1회.
func newTestService(llm *mockLLMModel, store *fakeStore, publisher *fakePublisher) *Service {
	questionEvaluator := NewQuestionEvaluator(llm, &mockScorer{score: 40})
	// nil *fakePublisher를 인터페이스에 그대로 담으면 typed-nil이 되어
	// 서비스의 nil 검사를 통과하므로 인터페이스 nil로 바꿔 넘긴다
	var eventPublisher EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}
	return NewService(
		questionEvaluator,
		NewAggregator(llm),
		NewPlanGenerator(llm),
		store,
		eventPublisher,
		nil,
		nil,
		*testCompany(),
	)
}

func evaluateRequest(n int) *types.EvaluateSessionRequest {
	req := &types.EvaluateSessionRequest{UserID: 42}
	for i := 1; i <= n; i++ {
		req.QAPairs = append(req.QAPairs, types.QAPair{
			Question: fmt.Sprintf("질문%d", i),
			Answer:   fmt.Sprintf("답변%d입니다.", i),
		})
	}
	return req
}

// TestService_EvaluateSession_HappyPath 전체 흐름: 평가, 영속화, 이벤트 발행, 순서 보존.
func TestService_EvaluateSession_HappyPath(t *testing.T) {
	// 개별 평가 3회 + 통합 평가 3회 + 종합 평가 1회
	llm := &mockLLMModel{responses: []string{
		stage1Response, stage1Response, stage1Response,
		reconcileResponse, reconcileResponse, reconcileResponse,
		overallResponse,
	}}
	store := &fakeStore{}
	publisher := &fakePublisher{}
	service := newTestService(llm, store, publisher)

	resp := service.EvaluateSession(context.Background(), evaluateRequest(3))

	require.True(t, resp.Success)
	assert.Equal(t, uint64(100), resp.InterviewID)
	assert.Equal(t, 3, resp.TotalQuestions)
	require.NotNil(t, resp.OverallScore)
	assert.Equal(t, 71, *resp.OverallScore)
	assert.Equal(t, 7, llm.callCount)

	// 질문 순서가 입력 순서대로 보존된다
	require.Len(t, resp.PerQuestionResults, 3)
	for i, record := range resp.PerQuestionResults {
		assert.Equal(t, fmt.Sprintf("질문%d", i+1), record.Question)
	}

	// 질문별 레코드는 종합 평가와 무관하게 저장된다
	require.Len(t, store.savedRecords, 3)
	for i, record := range store.savedRecords {
		assert.Equal(t, i+1, record.QuestionIndex)
		assert.Equal(t, i+1, record.Sequence)
		assert.Equal(t, "interviewer", record.Who)
	}

	require.NotNil(t, store.savedResult)
	assert.Equal(t, uint64(100), store.savedResultFor)
	assert.Equal(t, []uint64{100}, publisher.evaluated)
}

// TestService_EvaluateSession_FKRetry FK 제약 위반 시 user_id만으로 재시도한다.
func TestService_EvaluateSession_FKRetry(t *testing.T) {
	llm := &mockLLMModel{responses: []string{stage1Response, reconcileResponse, overallResponse}}
	store := &fakeStore{failCreate: true}
	service := newTestService(llm, store, nil)

	resp := service.EvaluateSession(context.Background(), evaluateRequest(1))

	require.True(t, resp.Success)
	assert.Equal(t, uint64(101), resp.InterviewID, "재시도로 만든 세션 id")
	assert.Equal(t, 1, store.createCalls)
	assert.Equal(t, 1, store.createMinimalCalls)
}

// TestService_EvaluateSession_SessionCreateFailure 재시도까지 실패하면 평가를 시작하지 않는다.
func TestService_EvaluateSession_SessionCreateFailure(t *testing.T) {
	llm := &mockLLMModel{responses: []string{stage1Response}}
	store := &fakeStore{failCreate: true, failCreateMinimal: true}
	service := newTestService(llm, store, nil)

	resp := service.EvaluateSession(context.Background(), evaluateRequest(2))

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "면접 세션 생성 실패")
	assert.Zero(t, llm.callCount, "세션 없이 생성 호출을 하지 않는다")
}

// TestService_EvaluateSession_EmptyQAPairs 빈 입력은 즉시 실패 응답.
func TestService_EvaluateSession_EmptyQAPairs(t *testing.T) {
	service := newTestService(&mockLLMModel{responses: []string{""}}, &fakeStore{}, nil)

	resp := service.EvaluateSession(context.Background(), &types.EvaluateSessionRequest{UserID: 1})
	assert.False(t, resp.Success)
}

// TestService_EvaluateSession_AggregationFailure 종합 실패 시에도 질문별 결과는 보존된다.
func TestService_EvaluateSession_AggregationFailure(t *testing.T) {
	// 개별 2회 + 통합 2회는 성공시키고 5번째 호출인 종합 평가만 실패시킨다
	llm := &failAfterModel{inner: &mockLLMModel{responses: []string{
		stage1Response, stage1Response, reconcileResponse, reconcileResponse,
	}}, failFrom: 5}
	store := &fakeStore{}
	service := NewService(
		NewQuestionEvaluator(llm, &mockScorer{score: 40}),
		NewAggregator(llm),
		NewPlanGenerator(llm),
		store, nil, nil, nil, *testCompany(),
	)

	resp := service.EvaluateSession(context.Background(), evaluateRequest(2))

	assert.True(t, resp.Success, "질문별 평가는 완료된 상태")
	assert.Contains(t, resp.Message, "종합 평가에 실패")
	assert.Nil(t, resp.OverallScore)
	assert.Len(t, resp.PerQuestionResults, 2)
	assert.Len(t, store.savedRecords, 2, "질문별 레코드는 이미 저장됨")
	assert.Nil(t, store.savedResult, "종합 결과는 기록되지 않음")
}

// TestService_GeneratePlan_HappyPath 저장된 세션 결과로 계획을 만들고 저장한다.
func TestService_GeneratePlan_HappyPath(t *testing.T) {
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
	score := 70
	store := &fakeStore{storedResult: &types.SessionResult{OverallScore: &score, OverallFeedback: "피드백"}}
	publisher := &fakePublisher{}
	service := newTestService(llm, store, publisher)

	resp := service.GeneratePlan(context.Background(), &types.GeneratePlanRequest{InterviewID: 100})

	require.True(t, resp.Success)
	assert.Equal(t, uint64(7), resp.PlanID)
	require.NotNil(t, resp.InterviewPlan)
	assert.NotNil(t, store.savedPlan)
	assert.Equal(t, []uint64{7}, publisher.plans)
}

// TestService_GeneratePlan_MissingSession 세션 결과가 없으면 실패 응답.
func TestService_GeneratePlan_MissingSession(t *testing.T) {
	service := newTestService(&mockLLMModel{responses: []string{""}}, &fakeStore{}, nil)

	resp := service.GeneratePlan(context.Background(), &types.GeneratePlanRequest{InterviewID: 999})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "면접 데이터를 찾을 수 없습니다")
}

// TestService_GeneratePlan_ParseFailure 파싱 실패는 실패 응답이며 계획은 저장되지 않는다.
func TestService_GeneratePlan_ParseFailure(t *testing.T) {
	llm := &mockLLMModel{responses: []string{"JSON이 아닌 응답"}}
	score := 70
	store := &fakeStore{storedResult: &types.SessionResult{OverallScore: &score}}
	service := newTestService(llm, store, nil)

	resp := service.GeneratePlan(context.Background(), &types.GeneratePlanRequest{InterviewID: 100})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "면접 계획 생성 실패")
	assert.Nil(t, store.savedPlan)
}

// failAfterModel n번째 호출부터 실패하는 래퍼
type failAfterModel struct {
	inner    *mockLLMModel
	failFrom int
	calls    int
}

func (f *failAfterModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	f.calls++
	if f.calls >= f.failFrom {
		return nil, fmt.Errorf("generation unavailable")
	}
	return f.inner.Generate(ctx, messages, options...)
}

func (f *failAfterModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func (f *failAfterModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}
