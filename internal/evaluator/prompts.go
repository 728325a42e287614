package evaluator

import (
	"fmt"
	"strings"

	"interview-agent-go/internal/types"
)

// 단계별 시스템 프롬프트. 단계마다 평가 페르소나가 다르다.
const (
	systemPromptIndividualEval = "너는 매우 엄격한 면접관입니다. 반말 사용 시 반드시 50점을 차감하고, 출력 형식을 반드시 지키세요. 예의없는 답변에는 절대 관대하지 마세요."
	systemPromptReconcile      = "당신은 전문적인 인사 담당자입니다. 일관된 어조와 말투로 평가와 피드백을 제공해주세요. 반드시 출력 형식을 지켜주세요."
	systemPromptPlan           = "당신은 전문 면접 코치입니다. 면접자의 평가 결과를 바탕으로 체계적이고 실행 가능한 면접 준비 계획을 수립합니다."
)

// buildCompanySection 회사 프로필을 프롬프트 블록으로 푼다.
func buildCompanySection(company *types.CompanyContext) string {
	industryContext := industryEvalContext(company)

	var b strings.Builder
	b.WriteString("\n🏢 회사 정보:\n")
	fmt.Fprintf(&b, "- 회사명: %s\n", company.Name)
	fmt.Fprintf(&b, "- 인재상: %s\n", orNA(company.TalentProfile))
	fmt.Fprintf(&b, "- 핵심역량: %s\n", strings.Join(company.CoreCompetencies, ", "))
	fmt.Fprintf(&b, "- 기술 중점: %s\n", strings.Join(company.TechFocus, ", "))
	fmt.Fprintf(&b, "- 면접 키워드: %s\n", strings.Join(company.InterviewKeywords, ", "))
	fmt.Fprintf(&b, "- 질문 방향: %s\n", orNA(company.QuestionDirection))
	fmt.Fprintf(&b, "- 기술 과제: %s\n", strings.Join(company.TechnicalChallenges, ", "))
	b.WriteString("\n📋 조직 문화:\n")
	fmt.Fprintf(&b, "- 근무 방식: %s\n", orNA(company.Culture.WorkStyle))
	fmt.Fprintf(&b, "- 의사결정: %s\n", orNA(company.Culture.DecisionMaking))
	fmt.Fprintf(&b, "- 성장 지원: %s\n", orNA(company.Culture.GrowthSupport))
	fmt.Fprintf(&b, "- 핵심 가치: %s\n", strings.Join(company.Culture.CoreValues, ", "))
	fmt.Fprintf(&b, "\n🎯 평가 관점: %s\n", industryContext)
	return b.String()
}

// industryEvalContext 회사 성격에 따라 평가 관점 문구를 고른다.
func industryEvalContext(company *types.CompanyContext) string {
	if strings.Contains(company.Name, "IT") || containsString(company.TechFocus, "tech") {
		return "IT/기술 기업의 관점에서 기술적 역량과 문제해결 능력을 중점적으로 평가하세요."
	}
	if strings.Contains(company.Name, "금융") || strings.Contains(strings.ToLower(company.Name), "finance") {
		return "금융업의 관점에서 신뢰성, 정확성, 리스크 관리 능력을 중점적으로 평가하세요."
	}
	return fmt.Sprintf("%s의 사업 특성과 기업 문화를 고려하여 평가하세요.", company.Name)
}

// buildQuestionEvalPrompt 개별 질문 평가 프롬프트.
// 질문 의도 분석과 루브릭 평가를 한 번의 생성 호출로 수행한다.
// 반말 50점 차감 규칙은 여기서 생성 모델에 지시문으로 전달된다.
func buildQuestionEvalPrompt(question, answer string, company *types.CompanyContext) string {
	companySection := buildCompanySection(company)

	return fmt.Sprintf(`
당신은 인공지능 면접관입니다. 먼저 질문의 의도를 분석한 후, 회사 정보와 면접 데이터를 기반으로 지원자의 답변을 평가해주세요.

**1단계: 질문 의도 분석**
아래 질문만을 보고 면접관이 무엇을 알고자 하는지 의도를 분석해주세요. (답변은 보지 말고 질문만으로 판단)

[질문]: %s

**2단계: 답변 평가**
이제 답변을 보고 위에서 분석한 질문 의도에 맞게 평가해주세요.

📝 평가 항목 및 가중치:
- 질문 의도 일치도 (25점): 질문의 핵심 의도를 정확히 파악하고 응답했는가? (가장 중요)
- 인재상 적합성 (18점): 회사 인재상과 어느 정도 부합하는가?
- 논리성 (12점): 주장과 근거가 논리적으로 연결되었는가?
- 타당성 (12점): 제시된 경험이 신뢰 가능하고 과장되지 않았는가?
- 키워드 적합성 (10점): 면접 키워드나 질문 방향과 얼마나 관련 있는가?
- 예의/매너 (23점): 면접 상황에 적절한 존댓말과 예의를 갖추었는가?

💡 참고: 이 답변은 별도 ML 모델에서도 평가되며, ML 점수는 보통 10~50점 범위로 산출됩니다.

🚨 절대 규칙: 면접에서 반말이나 무례한 표현을 사용한 경우 무조건 50점을 차감합니다.
- 반말 패턴: 문장 끝의 "~해", "~야", "~지", "~어", "~다", "나는", "했어", "있어", "이야", "했지" 등
- 단, 인용문이나 예시 설명 중의 반말은 제외 ("그때 상사가 '괜찮다'고 했습니다" 등)
- 이는 협상 불가능한 절대 규칙이며, 내용이 아무리 좋아도 반드시 적용해야 합니다.
- 예의/매너 점수도 0~5점 이하로만 평가하세요.

--- 회사 정보 ---
%s

--- 지원자 답변 ---
[답변]: %s

--- 출력 형식 ---
**질문 의도 분석**: [이 질문을 통해 면접관이 알고자 하는 것]

**답변 평가 결과**:
의도 일치도 점수 (25점 만점): X점 - 이유: [...]
인재상 적합성 점수 (18점 만점): X점 - 이유: [...]
논리성 점수 (12점 만점): X점 - 이유: [...]
타당성 점수 (12점 만점): X점 - 이유: [...]
키워드 적합성 점수 (10점 만점): X점 - 이유: [...]
예의/매너 점수 (23점 만점): X점 - 이유: [...]

기본 총점: XX점
예의 페널티: -X점 (예의가 부족한 경우 -50점, 없으면 -0점)
최종 총점: XX점 (최소 0점)

[💡 전체 피드백]
- 👍 좋았던 점: ...
- 👎 아쉬운 점: ...
- ✨ 개선 제안: ...
- 총평: ...
`, question, companySection, answer)
}

// buildReconcilePrompt 질문별 통합 평가 프롬프트.
// ML 점수와 1단계 LLM 평가를 제시하고 4개 번호 필드를 요구한다.
// informalDetected는 로컬 감지기의 판정으로, 생성 모델에 참고 라인으로만 전달한다.
// 감점 계산 자체는 원래 동작대로 생성 모델에 위임한다.
func buildReconcilePrompt(eval *types.PerQuestionEvaluation, informalDetected bool) string {
	detectorNote := ""
	if informalDetected {
		detectorNote = "\n[참고] 자동 감지기가 이 답변에서 반말 표현을 감지했습니다. 점수 산정 시 반드시 반영하세요.\n"
	}

	return fmt.Sprintf(`
[질문]: %s
[답변]: %s
[머신러닝 점수]: %.1f (ML 모델 예측 점수, 일반적 범위: 10~50점)
[LLM 평가결과]: %s
%s
위 정보를 바탕으로 아래 항목을 작성해주세요.

1. 📝 질문 의도: 이 질문이 무엇을 평가하고자 하는지를 간결하고 명확하게 작성해주세요.
2. 💬 평가: 답변의 강점과 약점을 구체적으로 분석해주세요. 핵심 요소가 누락되었거나 부족한 경우 분명히 지적해주세요. **답변에서 반말이나 예의 없는 표현을 사용했다면 이는 면접에서 절대 용납될 수 없는 중대한 문제점으로 강하게 지적해주세요.** 평가는 전문적이면서도 일관된 어조로 작성해주세요.
3. 🔧 개선 방법: 면접자가 답변을 어떻게 보완하면 좋을지 구체적이고 실용적인 방법을 제시해주세요. 개선 제안은 건설적이고 실행 가능한 조언으로 작성해주세요.
4. [최종 점수]: 100점 만점 기준으로 정수 점수를 부여해주세요. 점수를 후하게 주지 말고 냉정하게 판단해주세요. **답변에서 반말이나 예의 없는 표현(~해, ~야, ~다 등)을 사용했다면 점수를 반으로 깎되 소수점은 버리고 정수로 처리해주세요.**
`, eval.Question, eval.Answer, eval.MLScore, eval.LLMEvaluation, detectorNote)
}

// buildOverallPrompt 세션 종합 평가 프롬프트.
// 질문별 최종 점수만 나열하고, 종합 점수 계산은 생성 모델에 맡긴다.
// 로컬 평균 계산은 하지 않는다.
func buildOverallPrompt(results []types.ReconciledQuestionResult) string {
	var perQ strings.Builder
	for i, item := range results {
		scoreText := "N/A"
		if item.FinalScore != nil {
			scoreText = fmt.Sprintf("%d", *item.FinalScore)
		}
		fmt.Fprintf(&perQ, "%d. 질문: %s\n   답변: %s\n   점수: %s\n", i+1, item.Question, item.Answer, scoreText)
	}

	return fmt.Sprintf(`
[전체 답변 평가]
아래는 지원자의 각 문항별 답변, 점수입니다.

%s

위 정보를 종합해 지원자에 대해
- 최종 점수(100점 만점, 정수)
- 전체 피드백(5~10문장, 구체적이고 길게, 전문적이고 일관된 어조로)
- 1줄 요약(한 문장, 임팩트 있게)
를 아래 형식으로 출력하세요.

[최종 점수]: XX
[전체 피드백]: ...
[1줄 요약]: ...
`, perQ.String())
}

// buildPlanPrompt 면접 준비 계획 프롬프트. 응답은 JSON 펜스 블록 하나여야 한다.
func buildPlanPrompt(result *types.SessionResult) string {
	var b strings.Builder

	overallScore := "N/A"
	if result.OverallScore != nil {
		overallScore = fmt.Sprintf("%d", *result.OverallScore)
	}

	fmt.Fprintf(&b, `
# 면접 평가 결과

## 전체 평가
- 종합 점수: %s/100
- 전체 피드백: %s
- 요약: %s
`, overallScore, result.OverallFeedback, result.Summary)

	for i, q := range result.PerQuestion {
		scoreText := "N/A"
		if q.FinalScore != nil {
			scoreText = fmt.Sprintf("%d", *q.FinalScore)
		}
		fmt.Fprintf(&b, `
질문 %d: %s
- 점수: %s/100
- 평가: %s
- 개선점: %s
`, i+1, q.Question, scoreText, q.Evaluation, q.Improvement)
	}

	b.WriteString(`

# 요구사항
위 평가 결과를 종합하여 다음과 같은 구체적인 면접 준비 계획을 수립해주세요:

## 1-2주차 단기 개선 계획 (shortly_plan)
다음 3개 영역에서 각각 3개씩 간단한 개선사항을 제시해주세요:
1. 즉시개선 가능한 부분 (3개)
2. 다음 면접 준비사항 (3개)
3. 구체적 개선 사항 (3개)

## 3-4주차 장기 발전 계획 (long_plan)
다음 3개 영역에서 각각 3개씩 간단한 발전계획을 제시해주세요:
1. 기술개발 (3개)
2. 경험 영역 (3개)
3. 경력 경로 (3개)

# 응답 형식
반드시 다음 JSON 형식으로만 응답해주세요:

` + "```json" + `
{
  "shortly_plan": {
    "즉시개선_가능한_부분": ["개선사항1", "개선사항2", "개선사항3"],
    "다음_면접_준비": ["준비사항1", "준비사항2", "준비사항3"],
    "구체적_개선사항": ["개선사항1", "개선사항2", "개선사항3"]
  },
  "long_plan": {
    "기술개발": ["기술계획1", "기술계획2", "기술계획3"],
    "경험_영역": ["경험계획1", "경험계획2", "경험계획3"],
    "경력_경로": ["경로계획1", "경로계획2", "경로계획3"]
  }
}
` + "```" + `

각 항목은 간단하고 실행 가능한 내용으로 작성해주세요.
`)

	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
