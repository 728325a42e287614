package types

// CompanyCulture 조직 문화 하위 레코드
type CompanyCulture struct {
	WorkStyle      string   `json:"work_style" yaml:"work_style"`           // 근무 방식
	DecisionMaking string   `json:"decision_making" yaml:"decision_making"` // 의사결정 방식
	GrowthSupport  string   `json:"growth_support" yaml:"growth_support"`   // 성장 지원
	CoreValues     []string `json:"core_values" yaml:"core_values"`         // 핵심 가치
}

// CompanyContext 평가 기준이 되는 회사 프로필.
// 한 번의 평가 세션 동안 불변으로 취급한다. DB 조회 결과 또는 설정의 기본 프로필에서 생성된다.
type CompanyContext struct {
	ID                  string         `json:"id" yaml:"id"`
	Name                string         `json:"name" yaml:"name"`
	TalentProfile       string         `json:"talent_profile" yaml:"talent_profile"`             // 인재상
	CoreCompetencies    []string       `json:"core_competencies" yaml:"core_competencies"`       // 핵심역량
	TechFocus           []string       `json:"tech_focus" yaml:"tech_focus"`                     // 기술 중점
	InterviewKeywords   []string       `json:"interview_keywords" yaml:"interview_keywords"`     // 면접 키워드
	QuestionDirection   string         `json:"question_direction" yaml:"question_direction"`     // 질문 방향
	Culture             CompanyCulture `json:"company_culture" yaml:"company_culture"`           // 조직 문화
	TechnicalChallenges []string       `json:"technical_challenges" yaml:"technical_challenges"` // 기술 과제
}

// QAPair 면접 질문-답변 쌍. 호출자가 평가 전에 생성하며 이후 변경되지 않는다.
type QAPair struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	QuestionLevel string `json:"question_level,omitempty"` // 사전 부여된 난이도 라벨 (없으면 "unknown" 처리)
	Duration      *int   `json:"duration,omitempty"`       // 답변 소요 시간(초)
}

// PerQuestionEvaluation 1단계 개별 평가 결과.
// QuestionIndex는 1부터 시작하며 입력 순서와 일치한다. ML 점수는 클램핑하지 않는다.
type PerQuestionEvaluation struct {
	QuestionIndex int     `json:"question_index"`
	Question      string  `json:"question"`
	Answer        string  `json:"answer"`
	Intent        string  `json:"intent"`         // 응답에서 추출한 질문 의도 (실패 시 빈 문자열)
	MLScore       float64 `json:"ml_score"`       // 수치 모델 점수, 통상 10~50 범위
	LLMEvaluation string  `json:"llm_evaluation"` // LLM 평가 원문 전체 (이 단계에서는 재파싱하지 않음)
	QuestionLevel string  `json:"question_level"`
	Duration      *int    `json:"duration,omitempty"`
}

// ReconciledQuestionResult 2단계 통합 평가 결과.
// FinalScore가 nil이면 "점수 추출 실패"를 뜻하며 0으로 강제 변환하지 않는다.
type ReconciledQuestionResult struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Intent      string `json:"intent"`
	FinalScore  *int   `json:"final_score"` // 0~100 정수, 파싱 실패 시 nil
	Evaluation  string `json:"evaluation"`
	Improvement string `json:"improvement"`
}

// SessionResult 세션 전체 평가 결과. 질문 순서는 입력 순서를 그대로 보존한다.
type SessionResult struct {
	PerQuestion     []ReconciledQuestionResult `json:"per_question"`
	OverallScore    *int                       `json:"overall_score"` // 0~100 정수, 파싱 실패 시 nil
	OverallFeedback string                     `json:"overall_feedback"`
	Summary         string                     `json:"summary"` // 1줄 요약
}

// PlanCategory 계획의 한 영역. 항목은 정확히 3개여야 한다.
type PlanCategory []string

// ShortTermPlan 1-2주차 단기 개선 계획
type ShortTermPlan struct {
	ImmediateImprovements PlanCategory `json:"즉시개선_가능한_부분"`
	NextInterviewPrep     PlanCategory `json:"다음_면접_준비"`
	ConcreteImprovements  PlanCategory `json:"구체적_개선사항"`
}

// LongTermPlan 3-4주차 장기 발전 계획
type LongTermPlan struct {
	SkillDevelopment PlanCategory `json:"기술개발"`
	ExperienceAreas  PlanCategory `json:"경험_영역"`
	CareerPath       PlanCategory `json:"경력_경로"`
}

// InterviewPlan 면접 준비 계획. 3개 영역 x 3개 항목 구조가 검증된 뒤에만 생성된다.
type InterviewPlan struct {
	ShortlyPlan ShortTermPlan `json:"shortly_plan"`
	LongPlan    LongTermPlan  `json:"long_plan"`
}

// EvaluateSessionRequest 세션 평가 진입점 요청
type EvaluateSessionRequest struct {
	UserID       int64    `json:"user_id"`
	QAPairs      []QAPair `json:"qa_pairs"`
	AIResumeID   *int64   `json:"ai_resume_id,omitempty"`
	UserResumeID *int64   `json:"user_resume_id,omitempty"`
	PostingID    *int64   `json:"posting_id,omitempty"`
	CompanyID    *int64   `json:"company_id,omitempty"`
	PositionID   *int64   `json:"position_id,omitempty"`
}

// EvaluateSessionResponse 세션 평가 진입점 응답
type EvaluateSessionResponse struct {
	Success            bool                       `json:"success"`
	InterviewID        uint64                     `json:"interview_id,omitempty"`
	Message            string                     `json:"message"`
	TotalQuestions     int                        `json:"total_questions"`
	OverallScore       *int                       `json:"overall_score,omitempty"`
	OverallFeedback    string                     `json:"overall_feedback,omitempty"`
	PerQuestionResults []ReconciledQuestionResult `json:"per_question_results,omitempty"`
}

// GeneratePlanRequest 계획 생성 진입점 요청
type GeneratePlanRequest struct {
	InterviewID uint64 `json:"interview_id"`
}

// GeneratePlanResponse 계획 생성 진입점 응답
type GeneratePlanResponse struct {
	Success       bool           `json:"success"`
	InterviewID   uint64         `json:"interview_id,omitempty"`
	PlanID        uint64         `json:"plan_id,omitempty"`
	InterviewPlan *InterviewPlan `json:"interview_plan,omitempty"`
	Message       string         `json:"message"`
}
