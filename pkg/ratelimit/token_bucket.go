package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// TokenBucket 토큰 버킷 방식 호출 제한기
type TokenBucket struct {
	rate           float64       // 초당 생성 토큰 수
	capacity       float64       // 버킷 용량
	tokens         float64       // 현재 토큰 수
	lastRefillTime time.Time     // 마지막 보충 시각
	mutex          sync.Mutex    // 동시 접근 보호
	retryWaitTime  time.Duration // 재시도 대기 시간
	maxRetries     int           // 최대 재시도 횟수
}

// NewTokenBucket 토큰 버킷을 만든다. capacity가 0 이하면 QPM의 절반으로 잡는다.
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}

	return &TokenBucket{
		rate:           float64(qpm) / 60.0, // 분당 한도를 초당 속도로 환산
		capacity:       float64(capacity),
		tokens:         float64(capacity), // 시작은 가득 채운다
		lastRefillTime: time.Now(),
		retryWaitTime:  1 * time.Second,
		maxRetries:     3,
	}
}

// WithRetryPolicy 재시도 정책을 설정한다.
func (tb *TokenBucket) WithRetryPolicy(waitTime time.Duration, maxRetries int) *TokenBucket {
	tb.retryWaitTime = waitTime
	tb.maxRetries = maxRetries
	return tb
}

// refill 경과 시간만큼 토큰을 보충한다.
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now

	newTokens := elapsed * tb.rate

	if tb.tokens+newTokens > tb.capacity {
		tb.tokens = tb.capacity
	} else {
		tb.tokens += newTokens
	}
}

// Allow 토큰 하나를 소비하고 통과 여부를 돌려준다.
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Wait 토큰이 생길 때까지 기다린다. 컨텍스트 취소를 따른다.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mutex.Lock()
		tb.refill()

		if tb.tokens >= 1.0 {
			tb.tokens -= 1.0
			tb.mutex.Unlock()
			return nil
		}

		// 토큰 하나가 채워질 때까지 필요한 시간
		waitTime := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mutex.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
			// 다시 획득 시도
		}
	}
}

// RetryWithBackoff 토큰을 확보한 뒤 함수를 실행하고, 일시적 오류면 지수 백오프로 재시도한다.
func (tb *TokenBucket) RetryWithBackoff(ctx context.Context, fn func() error) error {
	var err error

	for retry := 0; retry <= tb.maxRetries; retry++ {
		if err = tb.Wait(ctx); err != nil {
			return err
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !isRetryableError(err) || retry >= tb.maxRetries {
			return err
		}

		backoffTime := tb.retryWaitTime * time.Duration(1<<uint(retry))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffTime):
			// 재시도 계속
		}
	}

	return err
}

// isRetryableError 일시적 오류 여부를 메시지로 판정한다.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return containsAny(errStr, []string{
		"timeout",
		"deadline exceeded",
		"connection reset",
		"EOF",
		"connection refused",
		"429 Too Many Requests",
		"rate limit",
		"no such host",
		"server overloaded",
	})
}

// containsAny 문자열이 목록 중 하나라도 포함하는지 확인한다.
func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if substr != "" && strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
