// Package speech 면접 답변의 반말 사용 여부를 판정한다.
// 인용문이나 예시 설명 속의 반말은 제외하고 답변 본문의 반말만 본다.
package speech

import (
	"regexp"
	"strings"
	"unicode"
)

// 인용문 제거 패턴. 일반 따옴표와 전각 따옴표를 모두 걷어낸다.
var quotePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"[^"]*"`),
	regexp.MustCompile(`'[^']*'`),
	regexp.MustCompile(`“[^”]*”`),
	regexp.MustCompile(`‘[^’]*’`),
}

// 문장 분리 구분자
var sentenceSplitter = regexp.MustCompile(`[.!?]`)

// 문장 끝 반말 어미. Go의 \b는 ASCII 전용이라 한글 경계에 쓸 수 없으므로
// 어절 단위 마커는 containsCasualToken에서 룬 경계를 직접 확인한다.
var casualEndingPattern = regexp.MustCompile(`[가-힣]+(해|야|지|어|다)$`)

// 어절 단위 반말 마커
var casualTokens = []string{"나는", "했어", "있어", "이야", "했지"}

// 반말로 오인되기 쉬운 존댓말 어미. 이 어미로 끝나는 문장은 검사에서 제외한다.
var politeSuffixes = []string{"습니다", "했습니다", "입니다", "있습니다", "합니다"}

// IsInformal 답변 텍스트에 반말이 섞여 있으면 true를 돌려준다.
// 순수 함수이며 입력이 같으면 결과도 항상 같다. 어떤 입력에도 패닉하지 않는다.
func IsInformal(text string) bool {
	cleaned := text
	for _, pattern := range quotePatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}

	for _, sentence := range sentenceSplitter.Split(cleaned, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if hasPoliteSuffix(sentence) {
			continue
		}

		if containsCasualToken(sentence) || casualEndingPattern.MatchString(sentence) {
			return true
		}
	}

	return false
}

func hasPoliteSuffix(sentence string) bool {
	for _, suffix := range politeSuffixes {
		if strings.HasSuffix(sentence, suffix) {
			return true
		}
	}
	return false
}

// containsCasualToken 어절 마커가 한글 경계를 지키며 나타나는지 확인한다.
// "했어"가 "했어요"의 일부로 매칭되는 것을 막는다.
func containsCasualToken(sentence string) bool {
	runes := []rune(sentence)
	for _, token := range casualTokens {
		tokenRunes := []rune(token)
		for i := 0; i+len(tokenRunes) <= len(runes); i++ {
			if string(runes[i:i+len(tokenRunes)]) != token {
				continue
			}
			beforeOK := i == 0 || !isHangul(runes[i-1])
			afterOK := i+len(tokenRunes) == len(runes) || !isHangul(runes[i+len(tokenRunes)])
			if beforeOK && afterOK {
				return true
			}
		}
	}
	return false
}

func isHangul(r rune) bool {
	return unicode.Is(unicode.Hangul, r)
}
