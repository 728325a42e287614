package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	// 한도 이내면 그대로 돌려준다
	assert.Equal(t, "짧은 문자열", TruncateString("짧은 문자열", 20))

	// 한도를 넘으면 앞뒤를 남기고 가운데를 ...으로 잇는다
	long := strings.Repeat("가", 50)
	got := TruncateString(long, 21)
	assert.Equal(t, 21, len([]rune(got)))
	assert.True(t, strings.HasPrefix(got, "가가가가가가가가가"))
	assert.True(t, strings.HasSuffix(got, "가가가가가가가가가"))
	assert.Contains(t, got, "...")

	// 말줄임표를 넣을 자리도 없으면 그냥 자른다
	assert.Equal(t, "abc", TruncateString("abcdef", 3))
}

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("김"))
	assert.Equal(t, "김*", MaskPII("김철"))
	assert.Equal(t, "김*수", MaskPII("김철수"))

	// 긴 값은 앞뒤 2자만 남긴다
	masked := MaskPII("myemail@example.com")
	assert.Equal(t, "my***************om", masked)
	assert.Equal(t, len([]rune("myemail@example.com")), len([]rune(masked)))
}

func TestSafeAttributeValue(t *testing.T) {
	// 민감 키워드가 포함된 속성 이름이면 마스킹한다
	assert.Equal(t, "us************om", SafeAttributeValue("user.email", "user@example.com", DefaultMaxLength))
	assert.Equal(t, "김*수", SafeAttributeValue("candidate_name", "김철수", DefaultMaxLength))

	// 일반 속성은 길이만 제한한다
	long := strings.Repeat("a", 300)
	got := SafeAttributeValue("question.text", long, DefaultMaxLength)
	assert.Equal(t, DefaultMaxLength, len([]rune(got)))
	assert.Contains(t, got, "...")

	// 짧은 일반 속성은 건드리지 않는다
	assert.Equal(t, "자기소개", SafeAttributeValue("question.text", "자기소개", DefaultMaxLength))
}

func TestSafeLengthHelpers(t *testing.T) {
	assert.Equal(t, MaxSQLLength, len([]rune(SafeSQL(strings.Repeat("S", 2000)))))
	assert.Equal(t, MaxRedisLength, len([]rune(SafeRedisKey(strings.Repeat("k", 500)))))
	assert.Equal(t, MaxAnswerLength, len([]rune(SafeAnswerContent(strings.Repeat("답", 500)))))
	assert.Equal(t, MaxPromptLength, len([]rune(SafePromptContent(strings.Repeat("p", 1000)))))
}
