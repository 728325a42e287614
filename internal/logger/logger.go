package logger // 전역 zerolog 기반 로깅 구성

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger 전역 로그 인스턴스. 애플리케이션 어디서든 바로 사용한다.
	Logger = log.Logger
)

// Config 로그 시스템 동작 설정
type Config struct {
	Level        string `json:"level" yaml:"level"`                 // 로그 레벨: debug, info, warn, error
	Format       string `json:"format" yaml:"format"`               // json(기계 판독) 또는 pretty(콘솔 출력)
	TimeFormat   string `json:"time_format" yaml:"time_format"`     // 타임스탬프 형식
	ReportCaller bool   `json:"report_caller" yaml:"report_caller"` // 호출 파일:행 기록 여부
}

// Init 설정에 따라 전역 로그 시스템을 초기화한다.
func Init(config Config) {
	InitWithWriter(config, nil)
}

// InitWithWriter 출력 대상을 직접 지정해 초기화한다.
// writer가 nil이면 표준 출력을 쓴다. 파일+콘솔 멀티 라이터 조합은 main에서 만든다.
func InitWithWriter(config Config, writer io.Writer) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if writer != nil {
		output = writer
	} else if config.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: config.TimeFormat,
			NoColor:    false,
		}
	}

	if config.TimeFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	} else {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	contextLogger := zerolog.New(output).
		Level(level).
		With().
		Timestamp()

	if config.ReportCaller {
		contextLogger = contextLogger.Caller()
	}

	// 패키지 전역과 zerolog 전역을 함께 교체한다
	Logger = contextLogger.Logger()
	log.Logger = Logger
}

// Debug 디버그 레벨 로그 이벤트를 시작한다.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info 정보 레벨 로그 이벤트를 시작한다.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn 경고 레벨 로그 이벤트를 시작한다.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error 오류 레벨 로그 이벤트를 시작한다.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal 치명적 오류 이벤트를 시작한다. 기록 후 프로세스가 종료된다.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// Ctx 컨텍스트에 실려 있는 로거를 꺼낸다.
func Ctx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithContext 전역 로거를 담은 새 컨텍스트를 돌려준다.
func WithContext(ctx context.Context) context.Context {
	return Logger.WithContext(ctx)
}
