package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 오류 분류 태그. 트레이스 필터링에 쓴다.
type ErrorType string

const (
	// ErrorTypeHTTP HTTP 오류
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeDB 데이터베이스 오류
	ErrorTypeDB ErrorType = "db"
	// ErrorTypeRedis Redis 오류
	ErrorTypeRedis ErrorType = "redis"
	// ErrorTypeRabbitMQ RabbitMQ 오류
	ErrorTypeRabbitMQ ErrorType = "rabbitmq"
	// ErrorTypeLLM 텍스트 생성 호출 오류
	ErrorTypeLLM ErrorType = "llm"
	// ErrorTypeScorer 채점 모델 호출 오류
	ErrorTypeScorer ErrorType = "scorer"
	// ErrorTypeParse 응답 파싱 오류
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeValidation 입력 검증 오류
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInternal 내부 오류
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeExternal 외부 시스템 오류
	ErrorTypeExternal ErrorType = "external_system"
	// ErrorTypeTimeout 타임아웃 오류
	ErrorTypeTimeout ErrorType = "timeout"
)

// RecordError 오류를 span에 기록하고 분류 속성을 붙인다.
func RecordError(span trace.Span, err error, errorType ErrorType) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)

	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", err.Error()),
	)

	span.SetStatus(codes.Error, err.Error())
}

// RecordErrorWithInfo 오류 기록에 추가 속성을 함께 붙인다.
func RecordErrorWithInfo(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)

	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", err.Error()),
	)

	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}

	span.SetStatus(codes.Error, err.Error())
}
