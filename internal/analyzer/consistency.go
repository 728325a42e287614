// Package analyzer 동일 입력을 반복 평가해 점수 산포를 측정하는 운영 보조 도구.
// 생성 모델 교체나 프롬프트 수정 후 점수 일관성이 유지되는지 확인하는 용도이며
// 실서비스 평가 경로와는 무관하다. 실서비스 평가는 순차 실행을 유지한다.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"sync"

	"interview-agent-go/internal/evaluator"
	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// 표준편차 기준 일관성 등급 경계
const (
	gradeExcellentBound = 3.0
	gradeGoodBound      = 7.0
	gradeFairBound      = 12.0
)

// ScoreStats 점수 집합의 기초 통계
type ScoreStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Report 반복 평가 결과 보고서
type Report struct {
	RepeatCount      int        `json:"repeat_count"`
	Completed        int        `json:"completed"`
	Failed           int        `json:"failed"`
	MLScores         ScoreStats `json:"ml_scores"`
	FinalScores      ScoreStats `json:"final_scores"`
	Grade            string     `json:"consistency_grade"`
	ConsistencyScore float64    `json:"consistency_score"` // 100 - 표준편차*10, 하한 0
}

// Analyzer 질문 하나를 반복 평가하는 일관성 측정기
type Analyzer struct {
	questionEvaluator *evaluator.QuestionEvaluator
	aggregator        *evaluator.Aggregator
	maxWorkers        int
	releaseEvery      int
	releaseFunc       func()
}

// Option 측정기 설정 옵션
type Option func(*Analyzer)

// WithMaxWorkers 동시 실행 상한을 지정한다.
func WithMaxWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxWorkers = n
		}
	}
}

// WithReleaseHook 반복 N회 완료마다 호출할 정리 훅을 건다.
// 외부 채점 서버의 메모리 정리 트리거 같은 주기적 해제 용도다.
func WithReleaseHook(every int, fn func()) Option {
	return func(a *Analyzer) {
		if every > 0 && fn != nil {
			a.releaseEvery = every
			a.releaseFunc = fn
		}
	}
}

// New 일관성 측정기를 만든다. 기본 동시 실행 상한은 4다.
func New(questionEvaluator *evaluator.QuestionEvaluator, aggregator *evaluator.Aggregator, options ...Option) *Analyzer {
	a := &Analyzer{
		questionEvaluator: questionEvaluator,
		aggregator:        aggregator,
		maxWorkers:        4,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Run 질문-답변 하나를 repeatCount회 평가하고 점수 산포를 보고한다.
// 실행 순서는 통계에 영향을 주지 않으므로 반복들은 상한 내에서 병렬로 돈다.
// 최종 점수를 얻지 못한 반복은 실패로 센다. 전부 실패하면 오류를 돌려준다.
func (a *Analyzer) Run(ctx context.Context, qa types.QAPair, company *types.CompanyContext, repeatCount int) (*Report, error) {
	if repeatCount <= 0 {
		return nil, fmt.Errorf("반복 횟수는 1 이상이어야 합니다: %d", repeatCount)
	}

	ctx, span := otel.Tracer("interview-agent/analyzer").Start(ctx, "analyzer.Run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("analyzer.repeat_count", repeatCount),
		attribute.Int("analyzer.max_workers", a.maxWorkers),
	)

	var (
		mu          sync.Mutex
		wg          sync.WaitGroup
		mlScores    []float64
		finalScores []float64
		failed      int
		done        int
	)

	sem := make(chan struct{}, a.maxWorkers)

	for repeat := 1; repeat <= repeatCount; repeat++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(repeat int) {
			defer wg.Done()
			defer func() { <-sem }()

			score, mlScore, ok := a.evaluateOnce(ctx, repeat, qa, company)

			mu.Lock()
			defer mu.Unlock()
			if ok {
				mlScores = append(mlScores, mlScore)
				finalScores = append(finalScores, score)
			} else {
				failed++
			}
			done++
			if a.releaseFunc != nil && done%a.releaseEvery == 0 {
				a.releaseFunc()
			}
		}(repeat)
	}
	wg.Wait()

	if len(finalScores) == 0 {
		return nil, fmt.Errorf("반복 평가 전체 실패 (%d회)", repeatCount)
	}

	finalStats := computeStats(finalScores)
	report := &Report{
		RepeatCount:      repeatCount,
		Completed:        len(finalScores),
		Failed:           failed,
		MLScores:         computeStats(mlScores),
		FinalScores:      finalStats,
		Grade:            consistencyGrade(finalStats.StdDev),
		ConsistencyScore: math.Max(0, 100-finalStats.StdDev*10),
	}

	span.SetAttributes(
		attribute.Float64("analyzer.final_std_dev", finalStats.StdDev),
		attribute.Int("analyzer.failed", failed),
	)
	return report, nil
}

// evaluateOnce 1단계 평가와 통합 평가를 한 번 수행한다.
func (a *Analyzer) evaluateOnce(ctx context.Context, repeat int, qa types.QAPair, company *types.CompanyContext) (finalScore, mlScore float64, ok bool) {
	eval := a.questionEvaluator.Evaluate(ctx, repeat, qa, company)

	result, err := a.aggregator.Reconcile(ctx, &eval, company)
	if err != nil {
		logger.Ctx(ctx).Warn().Int("repeat", repeat).Err(err).Msg("반복 평가 실패")
		return 0, 0, false
	}
	if result.FinalScore == nil {
		logger.Ctx(ctx).Warn().Int("repeat", repeat).Msg("반복 평가에서 점수 추출 실패")
		return 0, 0, false
	}

	// 통계용으로만 0~100으로 자른다
	score := float64(*result.FinalScore)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, eval.MLScore, true
}

// computeStats 모표준편차 기준 기초 통계를 계산한다.
func computeStats(scores []float64) ScoreStats {
	if len(scores) == 0 {
		return ScoreStats{}
	}

	min, max := scores[0], scores[0]
	var sum float64
	for _, s := range scores {
		sum += s
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	mean := sum / float64(len(scores))

	var variance float64
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(scores))

	return ScoreStats{
		Count:  len(scores),
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Min:    min,
		Max:    max,
	}
}

// consistencyGrade 표준편차를 등급 문구로 바꾼다.
func consistencyGrade(stdDev float64) string {
	switch {
	case stdDev < gradeExcellentBound:
		return "매우 우수"
	case stdDev < gradeGoodBound:
		return "우수"
	case stdDev < gradeFairBound:
		return "보통"
	default:
		return "개선 필요"
	}
}
