package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 기본 속성 최대 길이
	DefaultMaxLength = 200

	// MaxSQLLength SQL 문 최대 길이
	MaxSQLLength = 500

	// MaxRedisLength Redis 키/값 최대 길이
	MaxRedisLength = 100

	// MaxAnswerLength 면접 답변 내용 최대 길이
	MaxAnswerLength = 150

	// MaxPromptLength 프롬프트/생성 결과 최대 길이
	MaxPromptLength = 300
)

// maskPIILookup 마스킹 대상 키워드
var maskPIILookup = map[string]bool{
	"email":    true,
	"phone":    true,
	"password": true,
	"id_card":  true,
	"address":  true,
	"주소":       true,
	"name":     true,
	"이름":       true,
	"age":      true,
	"나이":       true,
	"secret":   true,
	"token":    true,
}

// SafeAttributeValue 속성 값에서 민감 정보를 제거한다.
// 1. 민감 키워드에 해당하면 마스킹한 값을 돌려준다
// 2. maxLength를 넘으면 잘라내고 말줄임표를 붙인다
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for keyword := range maskPIILookup {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}

	return TruncateString(value, maxLength)
}

// MaskPII 개인 식별 정보를 마스킹한다.
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	runes := []rune(value)
	length := len(runes)

	if length <= 1 {
		return "*"
	}
	// "김철" (len=2) -> "김*", "김철수" (len=3) -> "김*수"
	if length <= 4 {
		if length == 2 {
			return string(runes[0:1]) + "*"
		}
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	}

	// 긴 문자열(이메일, 전화번호)은 앞뒤 2자만 남긴다.
	// "myemail@example.com" -> "my***************om"
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// TruncateString 문자열을 잘라내고 잘린 자리에 ...을 넣는다.
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}

	// 앞뒤를 남기고 가운데를 ...으로 잇는다
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeSQL SQL 문을 트레이스에 싣기 전에 잘라낸다.
func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

// SafeRedisKey Redis 키를 잘라낸다.
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeAnswerContent 면접 답변 내용을 잘라낸다.
func SafeAnswerContent(content string) string {
	return TruncateString(content, MaxAnswerLength)
}

// SafePromptContent 프롬프트나 생성 결과를 잘라낸다.
func SafePromptContent(content string) string {
	return TruncateString(content, MaxPromptLength)
}
