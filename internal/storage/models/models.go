package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Interview 면접 세션 주 테이블.
// 선택적 FK들은 모두 포인터로 두어 NULL 삽입이 가능하다.
// TotalFeedback에는 세션 종합 결과 전체가 JSON으로 들어간다.
type Interview struct {
	InterviewID   uint64         `gorm:"primaryKey;autoIncrement"`
	UserID        int64          `gorm:"not null;index:idx_interview_user_id"`
	AIResumeID    *int64         `gorm:"column:ai_resume_id"`
	UserResumeID  *int64         `gorm:"column:user_resume_id"`
	PostingID     *int64         `gorm:"column:posting_id"`
	CompanyID     *int64         `gorm:"column:company_id"`
	PositionID    *int64         `gorm:"column:position_id"`
	Date          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	TotalFeedback datatypes.JSON `gorm:"type:json"`
	CreatedAt     time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt     time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Interview) TableName() string {
	return "interview"
}

// HistoryDetail 질문-답변 단위 평가 레코드.
// Feedback에는 {final_score, evaluation, improvement} JSON 블롭이 들어간다.
type HistoryDetail struct {
	DetailID        uint64         `gorm:"primaryKey;autoIncrement"`
	InterviewID     uint64         `gorm:"not null;index:idx_hd_interview_id"`
	Who             string         `gorm:"type:varchar(20)"`
	QuestionIndex   int            `gorm:"not null"`
	QuestionID      int            `gorm:"column:question_id"`
	QuestionContent string         `gorm:"type:text"`
	QuestionIntent  string         `gorm:"type:text"`
	QuestionLevel   string         `gorm:"type:varchar(20)"`
	Answer          string         `gorm:"type:text"`
	Feedback        datatypes.JSON `gorm:"type:json"`
	Sequence        int            `gorm:"not null;index:idx_hd_interview_sequence,priority:2"`
	Duration        *int           `gorm:"type:int"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (HistoryDetail) TableName() string {
	return "history_detail"
}

// Plan 면접 준비 계획 테이블. 단기/장기 계획은 각각 JSON으로 저장한다.
type Plan struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement"`
	InterviewID uint64         `gorm:"not null;index:idx_plans_interview_id"`
	ShortlyPlan datatypes.JSON `gorm:"type:json"`
	LongPlan    datatypes.JSON `gorm:"type:json"`
	CreatedAt   time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (Plan) TableName() string {
	return "plans"
}

// Company 회사 프로필 테이블.
// 목록형 컬럼들은 원본 데이터 사정상 JSON 배열일 수도, 콤마 구분 텍스트일 수도 있어
// text로 두고 읽는 쪽에서 관대하게 해석한다.
type Company struct {
	CompanyID           int64     `gorm:"primaryKey;column:company_id"`
	Name                string    `gorm:"type:varchar(255);not null"`
	TalentProfile       string    `gorm:"type:text"`
	CoreCompetencies    string    `gorm:"type:text"`
	TechFocus           string    `gorm:"type:text"`
	InterviewKeywords   string    `gorm:"type:text"`
	QuestionDirection   string    `gorm:"type:text"`
	CompanyCulture      string    `gorm:"type:text"`
	TechnicalChallenges string    `gorm:"type:text"`
	CreatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Company) TableName() string {
	return "company"
}

// ToJSON 임의 값을 datatypes.JSON으로 직렬화하는 헬퍼
func ToJSON(v interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
