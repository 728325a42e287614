package storage

import "time"

// InterviewEvaluatedEvent 세션 평가 완료 이벤트.
// 점수 파싱에 실패한 세션은 OverallScore가 null로 나간다.
type InterviewEvaluatedEvent struct {
	EventID      string    `json:"event_id"`
	InterviewID  uint64    `json:"interview_id"`
	OverallScore *int      `json:"overall_score"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// PlanCreatedEvent 면접 준비 계획 생성 이벤트
type PlanCreatedEvent struct {
	EventID     string    `json:"event_id"`
	InterviewID uint64    `json:"interview_id"`
	PlanID      uint64    `json:"plan_id"`
	CreatedAt   time.Time `json:"created_at"`
}
