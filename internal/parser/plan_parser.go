package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"interview-agent-go/internal/types"
)

// PlanParseError 계획 응답 파싱/검증 실패.
// 원시 응답 전문을 함께 실어 진단 아카이브와 로그에서 그대로 쓸 수 있게 한다.
type PlanParseError struct {
	Reason      string // 사람이 읽을 실패 사유
	RawResponse string // 생성 모델 응답 원문
	Err         error  // 하위 원인 (json 디코드 오류 등)
}

func (e *PlanParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("계획 응답 파싱 실패: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("계획 응답 파싱 실패: %s", e.Reason)
}

func (e *PlanParseError) Unwrap() error {
	return e.Err
}

// ParsePlan 생성 모델 응답에서 면접 준비 계획 JSON을 추출하고 구조를 검증한다.
// 응답에는 JSON 객체가 정확히 하나 있어야 하며 shortly_plan 3개 영역과
// long_plan 3개 영역에 각각 항목이 정확히 3개씩 있어야 한다.
// 어떤 위반이든 *PlanParseError로 보고하고, 절대 빈 계획을 조용히 돌려주지 않는다.
func ParsePlan(raw string) (*types.InterviewPlan, error) {
	jsonStr := extractPlanJSON(raw)
	if jsonStr == "" {
		return nil, &PlanParseError{Reason: "응답에서 JSON 객체를 찾지 못함", RawResponse: raw}
	}

	var plan types.InterviewPlan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err != nil {
		return nil, &PlanParseError{Reason: "JSON 디코드 실패", RawResponse: raw, Err: err}
	}

	if err := validatePlanShape(&plan); err != nil {
		return nil, &PlanParseError{Reason: err.Error(), RawResponse: raw}
	}

	return &plan, nil
}

// extractPlanJSON 펜스 블록(```json ... ```)이 있으면 그 내용을, 없으면
// 중괄호 짝을 맞춰 첫 번째 최상위 JSON 객체를 잘라낸다.
func extractPlanJSON(text string) string {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		} else {
			text = rest
		}
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// validatePlanShape 2개 계획 x 3개 영역 x 3개 항목 구조를 확인한다.
func validatePlanShape(plan *types.InterviewPlan) error {
	categories := []struct {
		name  string
		items types.PlanCategory
	}{
		{"shortly_plan.즉시개선_가능한_부분", plan.ShortlyPlan.ImmediateImprovements},
		{"shortly_plan.다음_면접_준비", plan.ShortlyPlan.NextInterviewPrep},
		{"shortly_plan.구체적_개선사항", plan.ShortlyPlan.ConcreteImprovements},
		{"long_plan.기술개발", plan.LongPlan.SkillDevelopment},
		{"long_plan.경험_영역", plan.LongPlan.ExperienceAreas},
		{"long_plan.경력_경로", plan.LongPlan.CareerPath},
	}

	for _, category := range categories {
		if len(category.items) != 3 {
			return fmt.Errorf("%s 항목 수가 3이 아님 (실제 %d)", category.name, len(category.items))
		}
		for i, item := range category.items {
			if strings.TrimSpace(item) == "" {
				return fmt.Errorf("%s 항목 %d이 비어 있음", category.name, i+1)
			}
		}
	}
	return nil
}
