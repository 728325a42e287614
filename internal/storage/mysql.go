package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"interview-agent-go/internal/config"
	"interview-agent-go/internal/evaluator"
	"interview-agent-go/internal/storage/models"
	"interview-agent-go/internal/tracing"
	"interview-agent-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("interview-agent-go/storage/mysql")

// GormTracingPlugin GORM 조작에 OpenTelemetry 추적점을 붙이는 플러그인
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// Name 플러그인 이름
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 추적용 GORM 콜백 등록
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	// CRUD 전 조작에 Before/After 콜백을 건다
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before GORM 조작 직전에 실행되는 콜백
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", tracing.SafeSQL(sqlStatement)),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// after 콜백에서 쓰도록 span을 컨텍스트에 보관한다
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after GORM 조작 직후에 실행되는 콜백
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if db.Statement.RowsAffected > 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		} else {
			span.SetAttributes(attribute.Int64("db.rows_affected", 0))
		}

		// ErrRecordNotFound는 정상 흐름이므로 오류로 잡지 않는다
		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.SetAttributes(attribute.String("error.message", db.Error.Error()))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 추적 플러그인을 만든다.
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// 컴파일 타임에 저장소 인터페이스 구현을 확인한다
var _ evaluator.EvaluationStore = (*MySQL)(nil)

// MySQL 면접 세션/평가/계획 영속화 담당
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL MySQL 클라이언트를 만든다.
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL 설정이 비어 있습니다")
	}

	// DSN에 타임아웃까지 포함해 구성한다
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("MySQL 연결 실패: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("하위 sql.DB 획득 실패: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	tracingPlugin := NewGormTracingPlugin(cfg.Database)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("추적 플러그인 등록 실패: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("테이블 자동 마이그레이션 실패: %w", err)
	}

	log.Println("MySQL 연결 및 테이블 마이그레이션 완료")
	return m, nil
}

// autoMigrateSchema GORM AutoMigrate로 테이블 구조를 맞춘다.
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 마이그레이션 SQL 로그는 소음이라 잠시 끈다
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.Interview{},
		&models.HistoryDetail{},
		&models.Plan{},
		&models.Company{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM 자동 마이그레이션 실패: %w", err)
	}
	return nil
}

// DB GORM 핸들을 돌려준다.
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 커넥션을 닫는다.
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("하위 sql.DB 획득 실패: %w", err)
	}
	return sqlDB.Close()
}

// CreateSession 새 면접 세션 행을 만든다. 선택적 FK를 전부 그대로 싣는다.
// FK 제약 위반 등 삽입 실패는 그대로 오류로 돌려주고, 재시도 판단은 호출자가 한다.
func (m *MySQL) CreateSession(ctx context.Context, req *types.EvaluateSessionRequest) (uint64, error) {
	interview := models.Interview{
		UserID:       req.UserID,
		AIResumeID:   req.AIResumeID,
		UserResumeID: req.UserResumeID,
		PostingID:    req.PostingID,
		CompanyID:    req.CompanyID,
		PositionID:   req.PositionID,
		Date:         time.Now(),
	}
	if err := m.db.WithContext(ctx).Create(&interview).Error; err != nil {
		return 0, fmt.Errorf("면접 세션 생성 실패: %w", err)
	}
	return interview.InterviewID, nil
}

// CreateSessionMinimal FK 필드를 전부 비우고 user_id만으로 세션을 만든다.
func (m *MySQL) CreateSessionMinimal(ctx context.Context, userID int64) (uint64, error) {
	interview := models.Interview{
		UserID: userID,
		Date:   time.Now(),
	}
	if err := m.db.WithContext(ctx).Create(&interview).Error; err != nil {
		return 0, fmt.Errorf("최소 정보 면접 세션 생성 실패: %w", err)
	}
	return interview.InterviewID, nil
}

// GetCompanyContext company 테이블 행을 평가용 프로필로 변환한다. 없으면 (nil, nil).
// 목록형 컬럼은 JSON 배열일 수도 콤마 구분 텍스트일 수도 있어 둘 다 받아들인다.
func (m *MySQL) GetCompanyContext(ctx context.Context, companyID int64) (*types.CompanyContext, error) {
	var company models.Company
	err := m.db.WithContext(ctx).Where("company_id = ?", companyID).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("회사 정보 조회 실패 (company_id=%d): %w", companyID, err)
	}

	return &types.CompanyContext{
		ID:                  strings.ReplaceAll(strings.ToLower(company.Name), " ", "_"),
		Name:                company.Name,
		TalentProfile:       company.TalentProfile,
		CoreCompetencies:    safeTextToList(company.CoreCompetencies),
		TechFocus:           safeTextToList(company.TechFocus),
		InterviewKeywords:   safeTextToList(company.InterviewKeywords),
		QuestionDirection:   company.QuestionDirection,
		Culture:             safeTextToCulture(company.CompanyCulture),
		TechnicalChallenges: safeTextToList(company.TechnicalChallenges),
	}, nil
}

// SaveQuestionRecord 질문 하나의 최종 평가를 history_detail에 저장한다.
func (m *MySQL) SaveQuestionRecord(ctx context.Context, interviewID uint64, record *evaluator.QuestionRecord) (uint64, error) {
	feedback, err := models.ToJSON(map[string]interface{}{
		"final_score": record.FinalScore,
		"evaluation":  record.Evaluation,
		"improvement": record.Improvement,
	})
	if err != nil {
		return 0, fmt.Errorf("피드백 직렬화 실패: %w", err)
	}

	detail := models.HistoryDetail{
		InterviewID:     interviewID,
		Who:             record.Who,
		QuestionIndex:   record.QuestionIndex,
		QuestionID:      record.QuestionID,
		QuestionContent: record.Question,
		QuestionIntent:  record.Intent,
		QuestionLevel:   record.QuestionLevel,
		Answer:          record.Answer,
		Feedback:        feedback,
		Sequence:        record.Sequence,
		Duration:        record.Duration,
	}
	if err := m.db.WithContext(ctx).Create(&detail).Error; err != nil {
		return 0, fmt.Errorf("질문 평가 레코드 저장 실패 (Q%d): %w", record.QuestionIndex, err)
	}
	return detail.DetailID, nil
}

// SaveSessionResult 세션 종합 결과를 interview.total_feedback에 기록한다.
func (m *MySQL) SaveSessionResult(ctx context.Context, interviewID uint64, result *types.SessionResult) error {
	feedback, err := models.ToJSON(result)
	if err != nil {
		return fmt.Errorf("종합 결과 직렬화 실패: %w", err)
	}
	res := m.db.WithContext(ctx).Model(&models.Interview{}).
		Where("interview_id = ?", interviewID).
		Update("total_feedback", feedback)
	if res.Error != nil {
		return fmt.Errorf("종합 결과 저장 실패 (interview_id=%d): %w", interviewID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("종합 결과 저장 대상 세션 없음 (interview_id=%d)", interviewID)
	}
	return nil
}

// GetSessionResult 저장된 종합 결과를 읽는다. 세션이 없거나 아직 결과가 없으면 (nil, nil).
func (m *MySQL) GetSessionResult(ctx context.Context, interviewID uint64) (*types.SessionResult, error) {
	var interview models.Interview
	err := m.db.WithContext(ctx).Where("interview_id = ?", interviewID).First(&interview).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("면접 세션 조회 실패 (interview_id=%d): %w", interviewID, err)
	}
	if len(interview.TotalFeedback) == 0 {
		return nil, nil
	}

	var result types.SessionResult
	if err := json.Unmarshal(interview.TotalFeedback, &result); err != nil {
		return nil, fmt.Errorf("종합 결과 역직렬화 실패 (interview_id=%d): %w", interviewID, err)
	}
	return &result, nil
}

// SavePlan 면접 준비 계획을 plans 테이블에 저장하고 plan id를 돌려준다.
func (m *MySQL) SavePlan(ctx context.Context, interviewID uint64, plan *types.InterviewPlan) (uint64, error) {
	shortly, err := models.ToJSON(plan.ShortlyPlan)
	if err != nil {
		return 0, fmt.Errorf("단기 계획 직렬화 실패: %w", err)
	}
	long, err := models.ToJSON(plan.LongPlan)
	if err != nil {
		return 0, fmt.Errorf("장기 계획 직렬화 실패: %w", err)
	}

	row := models.Plan{
		InterviewID: interviewID,
		ShortlyPlan: shortly,
		LongPlan:    long,
	}
	if err := m.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("면접 계획 저장 실패 (interview_id=%d): %w", interviewID, err)
	}
	return row.ID, nil
}

// safeTextToList 텍스트 컬럼을 문자열 목록으로 관대하게 해석한다.
// JSON 배열이면 그대로 풀고, 아니면 줄바꿈을 콤마로 바꾼 뒤 콤마로 나눈다.
func safeTextToList(text string) []string {
	if text == "" {
		return []string{}
	}

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
			return items
		}
		return []string{text}
	}

	var items []string
	for _, item := range strings.Split(strings.ReplaceAll(text, "\n", ","), ",") {
		if s := strings.TrimSpace(item); s != "" {
			items = append(items, s)
		}
	}
	if items == nil {
		return []string{}
	}
	return items
}

// safeTextToCulture 조직 문화 컬럼을 구조화 레코드로 해석한다.
// JSON 객체가 아니면 전체 텍스트를 근무 방식 설명으로 취급한다.
func safeTextToCulture(text string) types.CompanyCulture {
	if text == "" {
		return types.CompanyCulture{CoreValues: []string{}}
	}

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		var culture types.CompanyCulture
		if err := json.Unmarshal([]byte(trimmed), &culture); err == nil {
			if culture.CoreValues == nil {
				culture.CoreValues = []string{}
			}
			return culture
		}
	}
	return types.CompanyCulture{WorkStyle: text, CoreValues: []string{}}
}
