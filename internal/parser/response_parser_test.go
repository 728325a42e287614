package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtractIntentAndEvaluation_BothHeaders 의도 헤더와 평가 헤더가 모두 있는 정상 응답.
func TestExtractIntentAndEvaluation_BothHeaders(t *testing.T) {
	raw := `**질문 의도 분석**: 지원자의 협업 경험과 갈등 해결 능력을 확인하려는 질문입니다.
**답변 평가 결과**:
답변이 구체적이고 STAR 구조를 잘 따랐습니다.`

	intent, evaluation := ExtractIntentAndEvaluation(raw)
	assert.Equal(t, "지원자의 협업 경험과 갈등 해결 능력을 확인하려는 질문입니다.", intent)
	assert.Equal(t, raw, evaluation, "평가 본문은 항상 응답 원문 전체")
}

// TestExtractIntentAndEvaluation_NewlineFallback 평가 헤더가 없으면 줄바꿈까지 자른다.
func TestExtractIntentAndEvaluation_NewlineFallback(t *testing.T) {
	raw := "**질문 의도 분석**: 기술 깊이 확인\n이후 자유 서술이 이어집니다."

	intent, evaluation := ExtractIntentAndEvaluation(raw)
	assert.Equal(t, "기술 깊이 확인", intent)
	assert.Equal(t, raw, evaluation)
}

// TestExtractIntentAndEvaluation_MissingHeader 의도 헤더가 없으면 의도는 빈 문자열.
func TestExtractIntentAndEvaluation_MissingHeader(t *testing.T) {
	raw := "형식을 무시한 자유 서술 평가입니다."

	intent, evaluation := ExtractIntentAndEvaluation(raw)
	assert.Empty(t, intent)
	assert.Equal(t, raw, evaluation)
}

// TestExtractIntentAndEvaluation_HeaderWithoutTerminator 헤더 뒤에 줄바꿈도 평가 헤더도 없는 경우.
func TestExtractIntentAndEvaluation_HeaderWithoutTerminator(t *testing.T) {
	raw := "**질문 의도 분석**: 끝까지 이어지는 한 줄"

	intent, _ := ExtractIntentAndEvaluation(raw)
	assert.Empty(t, intent, "구간 종결자가 없으면 의도를 추출하지 않는다")
}

const wellFormedReconciled = `1. 📝 질문 의도: 프로젝트 주도 경험 확인
2. 💬 평가: 답변의 구조는 좋으나 수치 근거가 부족합니다.
구체적 사례가 하나뿐입니다.
3. 🔧 개선 방법: 성과를 정량 지표로 제시하세요.
4. [최종 점수]: 72`

// TestExtractReconciledFields_WellFormed 4개 마커가 모두 있는 정상 응답.
func TestExtractReconciledFields_WellFormed(t *testing.T) {
	score, intent, evaluation, improvement := ExtractReconciledFields(wellFormedReconciled)

	require.NotNil(t, score)
	assert.Equal(t, 72, *score)
	assert.Equal(t, "프로젝트 주도 경험 확인", intent)
	assert.Equal(t, "답변의 구조는 좋으나 수치 근거가 부족합니다.\n구체적 사례가 하나뿐입니다.", evaluation)
	assert.Equal(t, "성과를 정량 지표로 제시하세요.", improvement)
}

// TestExtractReconciledFields_IndependentDefaults 필드별로 독립적으로 기본값 처리된다.
func TestExtractReconciledFields_IndependentDefaults(t *testing.T) {
	raw := `2. 💬 평가: 평가만 있는 응답입니다.
3. 🔧 개선 방법: 개선안입니다.
4. [최종 점수]: 55`

	score, intent, evaluation, improvement := ExtractReconciledFields(raw)
	require.NotNil(t, score)
	assert.Equal(t, 55, *score)
	assert.Empty(t, intent, "의도 마커가 없으면 빈 문자열")
	assert.Equal(t, "평가만 있는 응답입니다.", evaluation)
	assert.Equal(t, "개선안입니다.", improvement)
}

// TestExtractReconciledFields_MissingScoreStaysNil 점수 마커가 없으면 nil, 0이 아니다.
func TestExtractReconciledFields_MissingScoreStaysNil(t *testing.T) {
	raw := `1. 📝 질문 의도: 의도
2. 💬 평가: 평가
3. 🔧 개선 방법: 개선
4. [최종 점수]: 미정`

	score, _, _, _ := ExtractReconciledFields(raw)
	assert.Nil(t, score)
}

// TestExtractReconciledFields_GarbageInput 형식이 완전히 다른 입력.
func TestExtractReconciledFields_GarbageInput(t *testing.T) {
	score, intent, evaluation, improvement := ExtractReconciledFields("죄송합니다. 평가를 수행할 수 없습니다.")
	assert.Nil(t, score)
	assert.Empty(t, intent)
	assert.Empty(t, evaluation)
	assert.Empty(t, improvement)
}

// TestExtractOverallFields_WellFormed 종합 평가 정상 응답.
func TestExtractOverallFields_WellFormed(t *testing.T) {
	raw := `[최종 점수]: 68
[전체 피드백]: 전반적으로 안정적인 답변이었습니다.
다만 기술 깊이가 아쉽습니다.
[1줄 요약]: 소통은 우수하나 기술 어필이 부족함`

	score, feedback, summary := ExtractOverallFields(raw)
	require.NotNil(t, score)
	assert.Equal(t, 68, *score)
	assert.Equal(t, "전반적으로 안정적인 답변이었습니다.\n다만 기술 깊이가 아쉽습니다.", feedback)
	assert.Equal(t, "소통은 우수하나 기술 어필이 부족함", summary)
}

// TestExtractOverallFields_FeedbackBoundedByEOF 피드백이 마지막 필드면 끝까지 잡는다.
func TestExtractOverallFields_FeedbackBoundedByEOF(t *testing.T) {
	raw := `[최종 점수]: 80
[전체 피드백]: 마무리 마커 없이 끝나는 피드백`

	score, feedback, summary := ExtractOverallFields(raw)
	require.NotNil(t, score)
	assert.Equal(t, 80, *score)
	assert.Equal(t, "마무리 마커 없이 끝나는 피드백", feedback)
	assert.Empty(t, summary)
}

// TestExtractOverallFields_MissingScoreStaysNil 점수가 없으면 nil 유지.
func TestExtractOverallFields_MissingScoreStaysNil(t *testing.T) {
	score, feedback, summary := ExtractOverallFields("[전체 피드백]: 점수 없는 응답\n[1줄 요약]: 요약")
	assert.Nil(t, score)
	assert.Equal(t, "점수 없는 응답", feedback)
	assert.Equal(t, "요약", summary)
}

// TestValidateReconciledLayout 마커 누락과 순서 뒤바뀜을 잡아낸다.
func TestValidateReconciledLayout(t *testing.T) {
	assert.NoError(t, ValidateReconciledLayout(wellFormedReconciled))

	missing := "1. 📝 질문 의도: a\n2. 💬 평가: b\n4. [최종 점수]: 10"
	assert.Error(t, ValidateReconciledLayout(missing))

	reordered := "2. 💬 평가: b\n1. 📝 질문 의도: a\n3. 🔧 개선 방법: c\n4. [최종 점수]: 10"
	assert.Error(t, ValidateReconciledLayout(reordered))
}

// TestValidateOverallLayout 종합 평가 마커 검증.
func TestValidateOverallLayout(t *testing.T) {
	assert.NoError(t, ValidateOverallLayout("[최종 점수]: 1\n[전체 피드백]: f\n[1줄 요약]: s"))
	assert.Error(t, ValidateOverallLayout("[최종 점수]: 1\n[1줄 요약]: s"))
}
