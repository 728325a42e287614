package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"interview-agent-go/internal/config"
	"interview-agent-go/internal/evaluator"

	"github.com/gofrs/uuid/v5"
	amqp "github.com/rabbitmq/amqp091-go"
)

// 설정이 비어 있을 때 쓰는 기본 교환기/라우팅 키
const (
	defaultInterviewEventsExchange = "interview.events"
	defaultEvaluatedRoutingKey     = "interview.evaluated"
	defaultPlanCreatedRoutingKey   = "interview.plan.created"
)

// 컴파일 타임에 발행자 인터페이스 구현을 확인한다
var _ evaluator.EventPublisher = (*RabbitMQ)(nil)

// RabbitMQ 면접 도메인 이벤트 발행을 담당한다.
type RabbitMQ struct {
	conn         *amqp.Connection
	channelPool  sync.Pool
	exchangeMap  map[string]bool // 선언이 끝난 exchange 기록
	publishMutex sync.Mutex      // 발행 조작 보호
	cfg          *config.RabbitMQConfig
}

// NewRabbitMQ RabbitMQ 클라이언트를 만들고 이벤트 교환기를 미리 선언한다.
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ 설정이 비어 있습니다")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL이 비어 있습니다")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ 연결 실패 (%s): %w", cfg.URL, err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		exchangeMap: make(map[string]bool),
		cfg:         cfg,
	}

	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, errPool := conn.Channel()
			if errPool != nil {
				log.Printf("RabbitMQ 채널 생성 실패: %v", errPool)
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("RabbitMQ 채널을 만들 수 없습니다")
	}
	mq.putChannel(testCh)

	// 발행 시점의 선언 실패로 이벤트를 잃지 않도록 기동 시 선언해 둔다
	if err := mq.EnsureExchange(mq.eventsExchange(), "topic", true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("이벤트 교환기 선언 실패: %w", err)
	}

	log.Printf("RabbitMQ 연결 완료: %s", cfg.URL)
	return mq, nil
}

func (r *RabbitMQ) eventsExchange() string {
	if r.cfg.InterviewEventsExchange != "" {
		return r.cfg.InterviewEventsExchange
	}
	return defaultInterviewEventsExchange
}

func (r *RabbitMQ) evaluatedRoutingKey() string {
	if r.cfg.EvaluatedRoutingKey != "" {
		return r.cfg.EvaluatedRoutingKey
	}
	return defaultEvaluatedRoutingKey
}

func (r *RabbitMQ) planCreatedRoutingKey() string {
	if r.cfg.PlanCreatedRoutingKey != "" {
		return r.cfg.PlanCreatedRoutingKey
	}
	return defaultPlanCreatedRoutingKey
}

// 사용 가능한 채널을 얻는다
func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			log.Printf("새 RabbitMQ 채널 생성 실패: %v", err)
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

// 채널을 풀에 돌려놓는다
func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

// Close 연결을 닫는다.
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// EnsureExchange exchange가 선언되어 있도록 한다.
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange 이름이 비어 있습니다")
	}
	if exchangeName == "amq.default" || exchangeName == "default" {
		return fmt.Errorf("기본 교환기 '%s'는 선언할 수 없습니다", exchangeName)
	}

	if _, exists := r.exchangeMap[exchangeName]; exists {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("RabbitMQ 채널을 얻을 수 없습니다")
	}
	defer r.putChannel(ch)

	err := ch.ExchangeDeclare(
		exchangeName,
		exchangeType,
		durable,
		false, // 자동 삭제
		false, // 내부 전용
		false, // 논블로킹
		nil,
	)
	if err != nil {
		return fmt.Errorf("exchange 선언 실패: %w", err)
	}

	r.exchangeMap[exchangeName] = true
	log.Printf("exchange 선언 완료: '%s'", exchangeName)
	return nil
}

// PublishMessage exchange에 메시지를 발행한다.
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("RabbitMQ 채널을 얻을 수 없습니다")
	}
	defer r.putChannel(ch)

	var deliveryMode uint8 = 1
	if persistent {
		deliveryMode = 2
	}

	return ch.PublishWithContext(
		ctx,
		exchangeName,
		routingKey,
		false, // 강제
		false, // 즉시
		amqp.Publishing{
			DeliveryMode: deliveryMode,
			ContentType:  "application/json",
			Body:         message,
			Timestamp:    time.Now(),
		},
	)
}

// PublishJSON JSON 직렬화 후 발행한다.
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON 직렬화 실패: %w", err)
	}

	return r.PublishMessage(ctx, exchangeName, routingKey, jsonData, persistent)
}

// PublishInterviewEvaluated 세션 평가 완료 이벤트를 발행한다.
func (r *RabbitMQ) PublishInterviewEvaluated(ctx context.Context, interviewID uint64, overallScore *int) error {
	eventID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("이벤트 ID 생성 실패: %w", err)
	}

	event := InterviewEvaluatedEvent{
		EventID:      eventID.String(),
		InterviewID:  interviewID,
		OverallScore: overallScore,
		EvaluatedAt:  time.Now(),
	}
	return r.PublishJSON(ctx, r.eventsExchange(), r.evaluatedRoutingKey(), event, true)
}

// PublishPlanCreated 준비 계획 생성 이벤트를 발행한다.
func (r *RabbitMQ) PublishPlanCreated(ctx context.Context, interviewID, planID uint64) error {
	eventID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("이벤트 ID 생성 실패: %w", err)
	}

	event := PlanCreatedEvent{
		EventID:     eventID.String(),
		InterviewID: interviewID,
		PlanID:      planID,
		CreatedAt:   time.Now(),
	}
	return r.PublishJSON(ctx, r.eventsExchange(), r.planCreatedRoutingKey(), event, true)
}
