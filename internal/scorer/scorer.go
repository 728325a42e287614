// Package scorer 수치 채점 모델 서빙 사이드카의 HTTP 클라이언트.
// 모델 로드는 프로세스 전체에서 정확히 한 번만 기다린다.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"interview-agent-go/internal/logger"
	"interview-agent-go/internal/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Client 채점 사이드카 클라이언트. 동시 세션에서 공유해도 안전하다.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	warmupTimeout time.Duration

	warmupOnce sync.Once
	warmupErr  error
}

// NewClient 채점 클라이언트를 만든다.
func NewClient(baseURL string, timeout, warmupTimeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("채점 서버 주소가 비어 있습니다")
	}

	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout},
		warmupTimeout: warmupTimeout,
	}, nil
}

type scoreRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// Warmup 모델 로드가 끝날 때까지 기다린다. 여러 세션이 동시에 호출해도
// 실제 대기는 한 번만 일어나며 나머지는 같은 결과를 공유한다.
func (c *Client) Warmup(ctx context.Context) error {
	c.warmupOnce.Do(func() {
		warmupCtx, cancel := context.WithTimeout(ctx, c.warmupTimeout)
		defer cancel()

		started := time.Now()
		logger.Info().Str("base_url", c.baseURL).Msg("채점 모델 웜업 시작")

		// 준비될 때까지 헬스 체크를 폴링한다
		for {
			req, err := http.NewRequestWithContext(warmupCtx, http.MethodGet, c.baseURL+"/healthz", nil)
			if err != nil {
				c.warmupErr = fmt.Errorf("웜업 요청 생성 실패: %w", err)
				return
			}

			resp, err := c.httpClient.Do(req)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					logger.Info().Dur("elapsed", time.Since(started)).Msg("채점 모델 웜업 완료")
					return
				}
			}

			select {
			case <-warmupCtx.Done():
				c.warmupErr = fmt.Errorf("채점 모델 웜업 시간 초과: %w", warmupCtx.Err())
				return
			case <-time.After(2 * time.Second):
			}
		}
	})
	return c.warmupErr
}

// Score 질문-답변 쌍의 수치 점수를 받아온다. 통상 10~50 범위지만 클램핑하지 않는다.
func (c *Client) Score(ctx context.Context, question, answer string) (float64, error) {
	ctx, span := otel.Tracer("interview-agent/scorer").Start(ctx, "scorer.Score")
	defer span.End()

	if err := c.Warmup(ctx); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeScorer)
		return 0, err
	}

	payload, err := json.Marshal(scoreRequest{Question: question, Answer: answer})
	if err != nil {
		return 0, fmt.Errorf("채점 요청 직렬화 실패: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("채점 요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeScorer)
		return 0, fmt.Errorf("채점 요청 전송 실패: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("채점 응답 읽기 실패: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("채점 요청 실패, 상태 %s: %s", resp.Status, tracing.TruncateString(string(body), tracing.DefaultMaxLength))
		tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeScorer,
			attribute.Int("http.status_code", resp.StatusCode))
		return 0, err
	}

	var result scoreResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("채점 응답 역직렬화 실패: %w", err)
	}

	span.SetAttributes(attribute.Float64("scorer.score", result.Score))
	return result.Score, nil
}
