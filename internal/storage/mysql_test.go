package storage

import (
	"testing"

	"interview-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
)

// TestSafeTextToList 회사 컬럼의 느슨한 텍스트 형식들을 모두 목록으로 푼다.
func TestSafeTextToList(t *testing.T) {
	// JSON 배열
	assert.Equal(t, []string{"검색", "AI"}, safeTextToList(`["검색", "AI"]`))

	// 콤마 구분 텍스트
	assert.Equal(t, []string{"검색", "AI", "클라우드"}, safeTextToList("검색, AI, 클라우드"))

	// 줄바꿈 구분 텍스트
	assert.Equal(t, []string{"검색", "AI"}, safeTextToList("검색\nAI"))

	// 깨진 JSON 배열은 원문을 한 항목으로 감싼다
	assert.Equal(t, []string{`["검색",`}, safeTextToList(`["검색",`))

	// 빈 입력은 nil이 아닌 빈 목록
	assert.NotNil(t, safeTextToList(""))
	assert.Empty(t, safeTextToList(""))
	assert.Empty(t, safeTextToList(" , , "))
}

// TestSafeTextToCulture JSON 객체면 구조로, 아니면 근무 방식 설명으로 해석한다.
func TestSafeTextToCulture(t *testing.T) {
	culture := safeTextToCulture(`{"work_style": "자율 근무", "core_values": ["신뢰"]}`)
	assert.Equal(t, "자율 근무", culture.WorkStyle)
	assert.Equal(t, []string{"신뢰"}, culture.CoreValues)

	// core_values가 빠진 JSON도 nil 목록을 만들지 않는다
	culture = safeTextToCulture(`{"work_style": "자율 근무"}`)
	assert.NotNil(t, culture.CoreValues)

	// 평문은 근무 방식 설명으로
	culture = safeTextToCulture("수평적인 문화")
	assert.Equal(t, types.CompanyCulture{WorkStyle: "수평적인 문화", CoreValues: []string{}}, culture)

	// 빈 입력
	assert.Equal(t, types.CompanyCulture{CoreValues: []string{}}, safeTextToCulture(""))
}
