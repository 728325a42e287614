package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"interview-agent-go/internal/config"
	"interview-agent-go/internal/evaluator"
	"interview-agent-go/internal/types"

	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// 컴파일 타임에 아카이버 인터페이스 구현을 확인한다
var _ evaluator.DiagnosticsArchiver = (*MinIO)(nil)

// MinIO 평가 트랜스크립트와 파싱 실패 원문 아카이브를 담당한다.
// 아카이브는 진단 용도라 본 요청 흐름과 달리 실패해도 치명적이지 않다.
type MinIO struct {
	client            *minio.Client
	cfg               *config.MinIOConfig
	transcriptsBucket string
	diagnosticsBucket string
	logger            *log.Logger
}

// NewMinIO MinIO 클라이언트를 만들고 버킷/수명주기 규칙을 준비한다.
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO 설정이 비어 있습니다")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("MinIO 클라이언트 생성 실패: %w", err)
	}

	transcriptsBucket := cfg.TranscriptsBucket
	if transcriptsBucket == "" {
		transcriptsBucket = "interview-transcripts"
	}
	diagnosticsBucket := cfg.DiagnosticsBucket
	if diagnosticsBucket == "" {
		diagnosticsBucket = "interview-diagnostics"
	}

	m := &MinIO{
		client:            client,
		cfg:               cfg,
		transcriptsBucket: transcriptsBucket,
		diagnosticsBucket: diagnosticsBucket,
		logger:            logger,
	}

	if err := m.ensureBucketExists(transcriptsBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("트랜스크립트 버킷 %s 준비 실패: %w", transcriptsBucket, err)
	}
	if err := m.ensureBucketExists(diagnosticsBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("진단 버킷 %s 준비 실패: %w", diagnosticsBucket, err)
	}

	// 만료 일수가 설정된 버킷에만 수명주기 규칙을 건다
	if cfg.TranscriptExpireDays > 0 || cfg.DiagnosticExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			logger.Printf("[MinIO] 수명주기 규칙 설정 실패 (계속 진행): %v", err)
		}
	}

	logger.Printf("[MinIO] 클라이언트 초기화 완료: %s", cfg.Endpoint)
	return m, nil
}

// ensureBucketExists 버킷이 없으면 만든다.
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("버킷 %s 존재 확인 실패: %w", bucketName, err)
	}
	if !exists {
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("버킷 %s 생성 실패: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] 버킷 생성: %s", bucketName)
	}
	return nil
}

// setupLifecycleRules 버킷별 객체 만료 규칙을 설정한다.
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.TranscriptExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.transcriptsBucket, "expire-transcripts", m.cfg.TranscriptExpireDays); err != nil {
			return fmt.Errorf("트랜스크립트 버킷 수명주기 설정 실패: %w", err)
		}
	}
	if m.cfg.DiagnosticExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.diagnosticsBucket, "expire-diagnostics", m.cfg.DiagnosticExpireDays); err != nil {
			return fmt.Errorf("진단 버킷 수명주기 설정 실패: %w", err)
		}
	}
	return nil
}

// setupBucketLifecycle 지정 버킷에 만료 규칙 하나를 건다.
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}

	if err := m.client.SetBucketLifecycle(ctx, bucketName, lc); err != nil {
		return err
	}
	m.logger.Printf("[MinIO] 버킷 %s 수명주기 설정: %d일 후 만료", bucketName, expiryDays)
	return nil
}

// ArchiveRawResponse 파싱에 실패한 생성 모델 응답 원문을 진단 버킷에 남긴다.
// 나중에 파서를 고칠 때 실제 실패 사례를 재현할 수 있게 하는 용도다.
func (m *MinIO) ArchiveRawResponse(ctx context.Context, interviewID uint64, stage string, raw string) (string, error) {
	objectID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("객체 ID 생성 실패: %w", err)
	}

	objectName := fmt.Sprintf("diagnostics/%d/%s-%s.txt", interviewID, stage, objectID.String())

	_, err = m.client.PutObject(ctx, m.diagnosticsBucket, objectName,
		strings.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return "", fmt.Errorf("진단 원문 업로드 실패 (%s): %w", objectName, err)
	}

	m.logger.Printf("[MinIO] 진단 원문 보관: %s/%s (%d bytes)", m.diagnosticsBucket, objectName, len(raw))
	return objectName, nil
}

// ArchiveTranscript 세션 종합 결과 전체를 JSON 트랜스크립트로 보관한다.
func (m *MinIO) ArchiveTranscript(ctx context.Context, interviewID uint64, result *types.SessionResult) (string, error) {
	objectID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("객체 ID 생성 실패: %w", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("트랜스크립트 직렬화 실패: %w", err)
	}

	objectName := fmt.Sprintf("transcripts/%d/%s.json", interviewID, objectID.String())

	_, err = m.client.PutObject(ctx, m.transcriptsBucket, objectName,
		strings.NewReader(string(data)), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("트랜스크립트 업로드 실패 (%s): %w", objectName, err)
	}

	m.logger.Printf("[MinIO] 트랜스크립트 보관: %s/%s", m.transcriptsBucket, objectName)
	return objectName, nil
}
