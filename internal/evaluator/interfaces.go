// Package evaluator 면접 평가 파이프라인의 핵심 단계들을 구현한다.
// 개별 평가 -> 통합 평가 -> 세션 종합 -> 준비 계획 순으로 흐르며
// 모든 외부 협력자는 인터페이스 뒤에 둔다.
package evaluator

import (
	"context"

	"interview-agent-go/internal/types"
)

// ModelScorer 수치 채점 모델 협력자. 호출 단위로 상태가 없어야 하며
// 여러 세션이 동시에 사용해도 안전해야 한다.
type ModelScorer interface {
	Score(ctx context.Context, question, answer string) (float64, error)
}

// EvaluationStore 저장소 협력자. 모든 호출은 실패할 수 있고
// 오케스트레이터가 실패를 잡아 보고 가능한 오류로 낮춘다.
type EvaluationStore interface {
	// CreateSession 새 면접 세션을 만든다. 선택적 FK가 제약을 위반하면 오류를 돌려준다.
	CreateSession(ctx context.Context, req *types.EvaluateSessionRequest) (uint64, error)
	// CreateSessionMinimal FK 없이 user_id만으로 세션을 만든다. 제약 위반 시 재시도 경로.
	CreateSessionMinimal(ctx context.Context, userID int64) (uint64, error)
	// GetCompanyContext 회사 프로필을 조회한다. 없으면 (nil, nil).
	GetCompanyContext(ctx context.Context, companyID int64) (*types.CompanyContext, error)
	// SaveQuestionRecord 질문별 최종 평가 레코드를 저장하고 detail id를 돌려준다.
	SaveQuestionRecord(ctx context.Context, interviewID uint64, record *QuestionRecord) (uint64, error)
	// SaveSessionResult 세션 종합 결과를 저장한다. 세션당 정확히 한 번만 기록된다.
	SaveSessionResult(ctx context.Context, interviewID uint64, result *types.SessionResult) error
	// GetSessionResult 저장된 세션 결과를 읽는다. 없으면 (nil, nil).
	GetSessionResult(ctx context.Context, interviewID uint64) (*types.SessionResult, error)
	// SavePlan 면접 준비 계획을 저장하고 plan id를 돌려준다.
	SavePlan(ctx context.Context, interviewID uint64, plan *types.InterviewPlan) (uint64, error)
}

// QuestionRecord history_detail 한 행에 해당하는 질문 레코드.
// Feedback은 {final_score, evaluation, improvement} JSON 블롭으로 직렬화된다.
type QuestionRecord struct {
	QuestionIndex int
	QuestionID    int
	Question      string
	Answer        string
	Intent        string
	QuestionLevel string
	Who           string
	Sequence      int
	Duration      *int
	FinalScore    *int
	Evaluation    string
	Improvement   string
}

// EventPublisher 평가 완료/계획 생성 이벤트 발행. 발행 실패는 요청을 실패시키지 않는다.
type EventPublisher interface {
	PublishInterviewEvaluated(ctx context.Context, interviewID uint64, overallScore *int) error
	PublishPlanCreated(ctx context.Context, interviewID, planID uint64) error
}

// DiagnosticsArchiver 파싱 실패 원문과 세션 트랜스크립트를 오브젝트 스토리지에 남긴다.
// 아카이브 실패 역시 요청을 실패시키지 않는다.
type DiagnosticsArchiver interface {
	ArchiveRawResponse(ctx context.Context, interviewID uint64, stage string, raw string) (string, error)
	ArchiveTranscript(ctx context.Context, interviewID uint64, result *types.SessionResult) (string, error)
}

// SessionLocker 세션 최종 레코드의 단일 기록을 보장하는 조언적 잠금.
type SessionLocker interface {
	AcquireFinalizeLock(ctx context.Context, interviewID uint64) (bool, error)
	ReleaseFinalizeLock(ctx context.Context, interviewID uint64) error
}
