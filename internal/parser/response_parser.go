// Package parser 텍스트 생성 결과에서 구조화된 평가 필드를 추출한다.
// 추출은 관대하게(필드별 독립 기본값), 검증은 엄격하게(테스트 전용) 나눈다.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// 1단계 개별 평가 응답의 의도 구간 마커
const (
	intentHeaderMarker     = "**질문 의도 분석**:"
	evaluationHeaderMarker = "**답변 평가 결과**:"
)

// 2단계 통합 평가 응답 마커. 각 필드는 다음 번호 마커 직전까지를 잡는다.
var (
	reconciledIntentPattern      = regexp.MustCompile(`(?s)1\. 📝 질문 의도:\s*(.+?)\n2\.`)
	reconciledEvaluationPattern  = regexp.MustCompile(`(?s)2\. 💬 평가:\s*(.+?)\n3\.`)
	reconciledImprovementPattern = regexp.MustCompile(`(?s)3\. 🔧 개선 방법:\s*(.+?)\n4\.`)
	reconciledScorePattern       = regexp.MustCompile(`4\. \[최종 점수\]:\s*(\d+)`)
)

// 세션 종합 평가 응답 마커
var (
	overallScorePattern    = regexp.MustCompile(`\[최종 점수\]:\s*(\d+)`)
	overallFeedbackPattern = regexp.MustCompile(`(?s)\[전체 피드백\]:\s*(.+?)(?:\n\[|$)`)
	overallSummaryPattern  = regexp.MustCompile(`\[1줄 요약\]:\s*(.+)`)
)

// ExtractIntentAndEvaluation 개별 평가 응답에서 질문 의도를 추출한다.
// 의도는 의도 헤더와 평가 헤더 사이 구간이고, 평가 헤더가 없으면 다음 줄바꿈까지다.
// 의도 헤더 자체가 없으면 의도는 빈 문자열이다. 평가 본문은 항상 응답 원문 전체를
// 그대로 돌려준다. 이 단계에서는 본문을 더 쪼개지 않는다.
func ExtractIntentAndEvaluation(text string) (intent string, evaluation string) {
	evaluation = text

	headerIdx := strings.Index(text, intentHeaderMarker)
	if headerIdx < 0 {
		return "", evaluation
	}

	start := headerIdx + len(intentHeaderMarker)
	rest := text[start:]

	if end := strings.Index(rest, evaluationHeaderMarker); end >= 0 {
		return strings.TrimSpace(rest[:end]), evaluation
	}
	if end := strings.Index(rest, "\n"); end >= 0 {
		return strings.TrimSpace(rest[:end]), evaluation
	}
	return "", evaluation
}

// ExtractReconciledFields 통합 평가 응답에서 4개 필드를 추출한다.
// 각 필드는 독립적으로 기본값 처리된다. 점수 마커가 없거나 숫자가 아니면
// score는 nil로 남으며 절대 0으로 대체하지 않는다.
func ExtractReconciledFields(text string) (score *int, intent, evaluation, improvement string) {
	if m := reconciledIntentPattern.FindStringSubmatch(text); m != nil {
		intent = strings.TrimSpace(m[1])
	}
	if m := reconciledEvaluationPattern.FindStringSubmatch(text); m != nil {
		evaluation = strings.TrimSpace(m[1])
	}
	if m := reconciledImprovementPattern.FindStringSubmatch(text); m != nil {
		improvement = strings.TrimSpace(m[1])
	}
	if m := reconciledScorePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			score = &v
		}
	}
	return score, intent, evaluation, improvement
}

// ExtractOverallFields 세션 종합 평가 응답에서 점수/피드백/요약을 추출한다.
// 피드백은 다음 대괄호 마커 직전 또는 텍스트 끝까지, 요약은 해당 줄 끝까지다.
func ExtractOverallFields(text string) (score *int, feedback, summary string) {
	if m := overallScorePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			score = &v
		}
	}
	if m := overallFeedbackPattern.FindStringSubmatch(text); m != nil {
		feedback = strings.TrimSpace(m[1])
	}
	if m := overallSummaryPattern.FindStringSubmatch(text); m != nil {
		summary = strings.TrimSpace(m[1])
	}
	return score, feedback, summary
}

// ValidateReconciledLayout 통합 평가 응답이 4개 마커를 모두 순서대로 갖췄는지 확인한다.
// 프로덕션 경로는 관대한 추출만 쓰고, 이 검증은 상류 프롬프트 형식 변경을
// 테스트에서 조기에 잡아내는 용도다.
func ValidateReconciledLayout(text string) error {
	markers := []string{"1. 📝 질문 의도:", "2. 💬 평가:", "3. 🔧 개선 방법:", "4. [최종 점수]:"}
	return validateMarkerOrder(text, markers)
}

// ValidateOverallLayout 종합 평가 응답이 3개 마커를 모두 순서대로 갖췄는지 확인한다.
func ValidateOverallLayout(text string) error {
	markers := []string{"[최종 점수]:", "[전체 피드백]:", "[1줄 요약]:"}
	return validateMarkerOrder(text, markers)
}

func validateMarkerOrder(text string, markers []string) error {
	pos := 0
	for _, marker := range markers {
		idx := strings.Index(text[pos:], marker)
		if idx < 0 {
			return fmt.Errorf("마커 누락 또는 순서 불일치: %q", marker)
		}
		pos += idx + len(marker)
	}
	return nil
}
