package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"interview-agent-go/internal/config"
	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/evaluator"
	"interview-agent-go/internal/tracing"
	"interview-agent-go/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound 키가 없을 때 돌려주는 오류. redis.Nil을 감싼다.
var ErrNotFound = redis.Nil

var redisTracer = otel.Tracer("interview-agent-go/storage/redis")

// finalizeLockTTL 최종 기록 잠금의 만료 시간. 프로세스가 죽어도 잠금이 풀리도록 짧게 둔다.
const finalizeLockTTL = 2 * time.Minute

// 키 접두사별 span 샘플링 비율. 잠금은 드물고 중요해서 높게 잡는다.
var redisKeySamplingRates = map[string]float64{
	"company:": 0.1,
	"lock:":    0.5,
	"session:": 0.05,
}

var (
	rnd      *rand.Rand
	rndMutex sync.Mutex
)

func init() {
	source := rand.NewSource(time.Now().UnixNano())
	rnd = rand.New(source)
}

// shouldSampleRedisOp 키 접두사에 따라 span 생성 여부를 결정한다.
func shouldSampleRedisOp(key string) bool {
	if key == "" {
		return false
	}

	for prefix, rate := range redisKeySamplingRates {
		if strings.HasPrefix(key, prefix) {
			return randFloat() < rate
		}
	}

	// 기본 샘플링 5%
	return randFloat() < 0.05
}

func randFloat() float64 {
	rndMutex.Lock()
	defer rndMutex.Unlock()
	return rnd.Float64()
}

// 컴파일 타임에 잠금 인터페이스 구현을 확인한다
var _ evaluator.SessionLocker = (*Redis)(nil)

// Redis 회사 프로필 캐시와 세션 최종화 잠금을 담당한다.
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig

	// interview_id -> 잠금 토큰. 잠금을 잡은 프로세스만 풀 수 있게 한다.
	lockTokens sync.Map
}

// NewRedisAdapter Redis 클라이언트를 만든다.
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis 설정이 비어 있습니다")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis 주소가 필요합니다")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}

	client := redis.NewClient(opt)

	// 모든 Redis 조작을 OpenTelemetry 훅으로 기록한다
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("redis OpenTelemetry 훅 등록 실패: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis 연결 실패 (%s): %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close 연결을 닫는다.
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 연결 상태를 확인한다.
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis 클라이언트가 초기화되지 않았습니다")
	}
	return r.Client.Ping(ctx).Err()
}

// companyCacheTTL 설정값이 없으면 기본 TTL을 쓴다.
func (r *Redis) companyCacheTTL() time.Duration {
	if ttl := r.config.CompanyCacheTTL(); ttl > 0 {
		return ttl
	}
	return constants.DefaultCompanyCacheTTL
}

// GetCachedCompanyContext 캐시된 회사 프로필을 읽는다. 캐시 미스는 (nil, nil).
func (r *Redis) GetCachedCompanyContext(ctx context.Context, companyID int64) (*types.CompanyContext, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis 클라이언트가 초기화되지 않았습니다")
	}

	key := fmt.Sprintf(constants.CompanyContextKeyFmt, companyID)
	val, err := r.Get(ctx, key)
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("회사 프로필 캐시 조회 실패: %w", err)
	}

	var company types.CompanyContext
	if err := json.Unmarshal([]byte(val), &company); err != nil {
		// 손상된 캐시는 미스로 취급하고 DB 경로를 타게 한다
		return nil, nil
	}
	return &company, nil
}

// CacheCompanyContext 회사 프로필을 TTL과 함께 캐시한다.
func (r *Redis) CacheCompanyContext(ctx context.Context, companyID int64, company *types.CompanyContext) error {
	if r.Client == nil {
		return fmt.Errorf("redis 클라이언트가 초기화되지 않았습니다")
	}

	data, err := json.Marshal(company)
	if err != nil {
		return fmt.Errorf("회사 프로필 직렬화 실패: %w", err)
	}

	key := fmt.Sprintf(constants.CompanyContextKeyFmt, companyID)
	return r.Set(ctx, key, string(data), r.companyCacheTTL())
}

// AcquireFinalizeLock 세션 최종 기록 잠금을 시도한다.
// 잡았으면 true, 다른 쪽이 이미 잡고 있으면 false를 돌려준다.
func (r *Redis) AcquireFinalizeLock(ctx context.Context, interviewID uint64) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis 클라이언트가 초기화되지 않았습니다")
	}

	lockKey := fmt.Sprintf(constants.SessionFinalizeLockFmt, interviewID)

	ctx, span := redisTracer.Start(ctx, "Redis.AcquireFinalizeLock",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.operation", "SETNX"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(lockKey)),
	)

	lockValue := fmt.Sprintf("%d", time.Now().UnixNano())
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, finalizeLockTTL).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("최종화 잠금 획득 실패: %w", err)
	}

	span.SetAttributes(attribute.Bool("lock.acquired", ok))
	span.SetStatus(codes.Ok, "")

	if ok {
		r.lockTokens.Store(interviewID, lockValue)
	}
	return ok, nil
}

// ReleaseFinalizeLock 잠금을 푼다. 토큰이 일치할 때만 지워 다른 보유자의 잠금을 건드리지 않는다.
func (r *Redis) ReleaseFinalizeLock(ctx context.Context, interviewID uint64) error {
	if r.Client == nil {
		return fmt.Errorf("redis 클라이언트가 초기화되지 않았습니다")
	}

	token, ok := r.lockTokens.LoadAndDelete(interviewID)
	if !ok {
		return nil
	}

	lockKey := fmt.Sprintf(constants.SessionFinalizeLockFmt, interviewID)

	// 값이 일치할 때만 삭제하는 Lua 스크립트로 원자성을 지킨다
	script := `
        if redis.call("get", KEYS[1]) == ARGV[1] then
            return redis.call("del", KEYS[1])
        else
            return 0
        end
    `
	if _, err := r.Client.Eval(ctx, script, []string{lockKey}, token).Result(); err != nil {
		return fmt.Errorf("최종화 잠금 해제 실패: %w", err)
	}
	return nil
}

// Get 키의 값을 읽는다.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis 클라이언트가 초기화되지 않았습니다")
	}

	var span trace.Span

	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Get", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "GET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
			// redisotel 훅의 span과 중복 생성을 피한다
			attribute.Bool("otel.propagate_to_child", false),
		)
	}

	val, err := r.Client.Get(ctx, key).Result()

	if span != nil {
		if err != nil {
			// 키 없음은 오류가 아니다
			if err == redis.Nil {
				span.SetStatus(codes.Ok, "key not found")
				span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			} else {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return "", err
		}

		span.SetAttributes(
			attribute.Bool("db.redis.key_exists", true),
			attribute.Int("db.redis.value_length", len(val)),
		)
		span.SetStatus(codes.Ok, "")
	}

	return val, err
}

// Set 키에 값을 쓴다.
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis 클라이언트가 초기화되지 않았습니다")
	}

	var span trace.Span

	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Set", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "SET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
			attribute.Int("db.redis.value_length", len(value)),
			attribute.Bool("otel.propagate_to_child", false),
		)

		if expiration > 0 {
			span.SetAttributes(attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()))
		}
	}

	err := r.Client.Set(ctx, key, value, expiration).Err()

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
	}

	return err
}
