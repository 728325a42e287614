package constants

import "time"

// 평가 단계별 기본 설정값.
// 각 단계의 모델/온도는 config의 task_models로 덮어쓸 수 있다.
const (
	// TaskIndividualEval 개별 질문 평가 (의도 추출 + 루브릭 평가)
	TaskIndividualEval = "individual_eval"
	// TaskFinalEval 개별 질문 통합 평가 (ML 점수 + LLM 평가 조정)
	TaskFinalEval = "final_eval"
	// TaskOverallEval 세션 전체 종합 평가
	TaskOverallEval = "overall_eval"
	// TaskPlanEval 면접 준비 계획 수립
	TaskPlanEval = "plan_eval"
)

// 단계별 생성 온도. 계획 수립만 다양성을 위해 높게 둔다.
const (
	TemperatureIndividualEval float32 = 0.3
	TemperatureFinalEval      float32 = 0.2
	TemperatureOverallEval    float32 = 0.2
	TemperaturePlanEval       float32 = 0.7
)

// 질문 레코드 관련 상수
const (
	// QuestionWhoInterviewer history_detail.who 기본값
	QuestionWhoInterviewer = "interviewer"
	// QuestionLevelUnknown 난이도 미지정 시 라벨
	QuestionLevelUnknown = "unknown"
)

// DefaultLLMQPM 모델별 QPM 설정이 없을 때의 기본 분당 호출 한도
const DefaultLLMQPM = 30

// DefaultCompanyCacheTTL 회사 프로필 Redis 캐시 유지 시간
const DefaultCompanyCacheTTL = 30 * time.Minute
