package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIsInformal_PoliteAnswer 존댓말 답변은 반말로 판정되지 않아야 한다.
func TestIsInformal_PoliteAnswer(t *testing.T) {
	answers := []string{
		"저는 백엔드 개발자로 3년간 일했습니다.",
		"대규모 트래픽을 처리한 경험이 있습니다.",
		"먼저 문제를 분석하고 해결책을 제시합니다.",
		"제 강점은 꼼꼼함입니다.",
		"좋은 질문 감사합니다. 차근차근 설명드리겠습니다!",
	}
	for _, answer := range answers {
		assert.False(t, IsInformal(answer), "존댓말 답변: %s", answer)
	}
}

// TestIsInformal_CasualAnswer 반말 마커가 있으면 true.
func TestIsInformal_CasualAnswer(t *testing.T) {
	answers := []string{
		"나는 백엔드 개발자야.",
		"그 프로젝트는 내가 다 했어.",
		"경험이 꽤 있어.",
		"그건 내 전문 분야이야.",
		"문제를 빨리 해결했지.",
		"일단 코드부터 확인해.",
	}
	for _, answer := range answers {
		assert.True(t, IsInformal(answer), "반말 답변: %s", answer)
	}
}

// TestIsInformal_QuotedCasualIsIgnored 인용문 속 반말은 제외된다.
func TestIsInformal_QuotedCasualIsIgnored(t *testing.T) {
	assert.False(t, IsInformal(`그때 상사가 "괜찮다"고 말씀하셨습니다.`))
	assert.False(t, IsInformal("동료가 '네가 했어'라고 했습니다."))
	assert.False(t, IsInformal("사용자가 “이건 버그야”라고 제보했습니다."))
}

// TestIsInformal_TokenBoundary "했어"가 "했어요"의 일부로 매칭되면 안 된다.
func TestIsInformal_TokenBoundary(t *testing.T) {
	assert.False(t, IsInformal("제가 그 작업을 했어요."))
	assert.False(t, IsInformal("경험이 있어요."))
}

// TestIsInformal_MixedSentences 문장 단위 판정: 한 문장이라도 반말이면 true.
func TestIsInformal_MixedSentences(t *testing.T) {
	assert.True(t, IsInformal("먼저 요구사항을 정리했습니다. 그 다음은 내가 다 했어."))
}

// TestIsInformal_EmptyAndDegenerateInput 빈 입력과 구두점만 있는 입력은 false.
func TestIsInformal_EmptyAndDegenerateInput(t *testing.T) {
	assert.False(t, IsInformal(""))
	assert.False(t, IsInformal("   "))
	assert.False(t, IsInformal("...!?"))
	assert.False(t, IsInformal("Hello, this is an English answer."))
}

// TestIsInformal_Deterministic 같은 입력에 대해 항상 같은 결과.
func TestIsInformal_Deterministic(t *testing.T) {
	input := "나는 그렇게 생각해. 하지만 팀과 협의했습니다."
	first := IsInformal(input)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, IsInformal(input))
	}
}
