package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"interview-agent-go/internal/config"
	"interview-agent-go/internal/evaluator"
	"interview-agent-go/internal/types"
)

// Storage 저장소 관리자. 모든 저장 계층 의존성을 한데 모은다.
type Storage struct {
	// 오브젝트 스토리지 (평가 트랜스크립트, 파싱 실패 원문)
	MinIO *MinIO

	// 메시지 큐 (도메인 이벤트 발행)
	RabbitMQ *RabbitMQ

	// 관계형 데이터베이스 (세션/평가/계획 영속화)
	MySQL *MySQL

	// 키-값 저장소 (회사 프로필 캐시, 최종화 잠금)
	Redis *Redis
}

// NewStorage 저장소 관리자를 만든다.
// 보조 컴포넌트(MinIO, RabbitMQ, Redis)는 실패해도 경고만 남기고 축소 동작한다.
// MySQL까지 전부 실패하면 기동할 수 없다.
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("설정이 비어 있습니다")
	}

	storage := &Storage{}
	var err error
	var initErrors []string

	// debug 레벨일 때만 MinIO 내부 로그를 살린다
	var minioLogger *log.Logger
	if cfg.Logger.Level == "debug" {
		minioLogger = log.New(os.Stderr, "[MinIOStorage] ", log.LstdFlags|log.Lshortfile)
	} else {
		minioLogger = log.New(io.Discard, "", 0)
	}

	if cfg.MinIO.Endpoint != "" {
		storage.MinIO, err = NewMinIO(&cfg.MinIO, minioLogger)
		if err != nil {
			log.Printf("경고: MinIO 초기화 실패: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			log.Printf("경고: RabbitMQ 초기화 실패: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	if cfg.MySQL.Host != "" {
		storage.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			log.Printf("경고: MySQL 초기화 실패: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			log.Printf("경고: Redis 초기화 실패: %v", err)
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	}

	if storage.MinIO == nil && storage.RabbitMQ == nil && storage.MySQL == nil && storage.Redis == nil {
		return nil, fmt.Errorf("모든 저장 컴포넌트 초기화 실패: %s", strings.Join(initErrors, "; "))
	}

	if len(initErrors) > 0 {
		log.Printf("경고: 일부 저장 컴포넌트 초기화 실패: %s", strings.Join(initErrors, "; "))
	}

	return storage, nil
}

// EvaluationStore 평가 저장소 인터페이스 구현체를 돌려준다.
// Redis가 살아 있으면 회사 프로필 조회에 캐시를 끼운다.
func (s *Storage) EvaluationStore() evaluator.EvaluationStore {
	if s.MySQL == nil {
		return nil
	}
	if s.Redis == nil {
		return s.MySQL
	}
	return &cachedEvaluationStore{
		EvaluationStore: s.MySQL,
		redis:           s.Redis,
	}
}

// Close 모든 연결을 닫는다.
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Printf("RabbitMQ 연결 종료 실패: %v", err)
		}
	}

	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Printf("MySQL 연결 종료 실패: %v", err)
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Printf("Redis 연결 종료 실패: %v", err)
		}
	}
	// MinIO 클라이언트는 명시적 Close가 필요 없다
}

// cachedEvaluationStore 회사 프로필 조회에만 캐시 어사이드를 적용한 저장소.
// 회사 프로필은 세션 간 재사용이 많고 갱신이 드물어 캐시 효율이 가장 좋은 지점이다.
type cachedEvaluationStore struct {
	evaluator.EvaluationStore
	redis *Redis
}

// GetCompanyContext 캐시를 먼저 보고, 미스일 때만 DB를 탄다.
// 캐시 오류는 로그만 남기고 DB 경로로 넘어간다.
func (c *cachedEvaluationStore) GetCompanyContext(ctx context.Context, companyID int64) (*types.CompanyContext, error) {
	cached, err := c.redis.GetCachedCompanyContext(ctx, companyID)
	if err != nil {
		log.Printf("경고: 회사 프로필 캐시 조회 실패 (company_id=%d): %v", companyID, err)
	} else if cached != nil {
		return cached, nil
	}

	company, err := c.EvaluationStore.GetCompanyContext(ctx, companyID)
	if err != nil || company == nil {
		return company, err
	}

	if cacheErr := c.redis.CacheCompanyContext(ctx, companyID, company); cacheErr != nil {
		log.Printf("경고: 회사 프로필 캐시 기록 실패 (company_id=%d): %v", companyID, cacheErr)
	}
	return company, nil
}
