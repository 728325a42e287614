package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interview-agent-go/internal/agent"
	"interview-agent-go/internal/api/handler"
	"interview-agent-go/internal/api/router"
	"interview-agent-go/internal/config"
	"interview-agent-go/internal/constants"
	"interview-agent-go/internal/evaluator"
	appCoreLogger "interview-agent-go/internal/logger"
	"interview-agent-go/internal/scorer"
	"interview-agent-go/internal/storage"
	"interview-agent-go/internal/tracing"
	"interview-agent-go/pkg/ratelimit"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "config.yaml", "설정 파일 경로")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("설정 로드 실패: %v", err)
	}

	initLogger(cfg)
	glog.Info("설정 로드 완료")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitTracerProvider(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		ServiceName:  cfg.Tracing.ServiceName,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		glog.Fatalf("트레이싱 초기화 실패: %v", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			glog.Warnf("트레이서 종료 실패: %v", err)
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("저장소 초기화 실패: %v", err)
	}
	defer storageManager.Close()

	store := storageManager.EvaluationStore()
	if store == nil {
		glog.Fatal("MySQL은 필수 의존성입니다. mysql 설정을 확인하세요")
	}
	glog.Info("저장소 초기화 완료")

	// 수치 채점 사이드카. 최초 모델 로드는 기동을 막지 않도록 백그라운드에서 기다린다.
	scorerClient, err := scorer.NewClient(
		cfg.Scorer.BaseURL,
		time.Duration(cfg.Scorer.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Scorer.WarmupTimeoutSec)*time.Second,
	)
	if err != nil {
		glog.Fatalf("채점 클라이언트 초기화 실패: %v", err)
	}
	go func() {
		if err := scorerClient.Warmup(context.Background()); err != nil {
			glog.Warnf("채점 모델 웜업 실패, 첫 채점 호출 시 재시도: %v", err)
		} else {
			glog.Info("채점 모델 웜업 완료")
		}
	}()

	baseModel, err := agent.NewOpenAIChatModel(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.APIURL, cfg.OpenAI.MaxTokens)
	if err != nil {
		glog.Fatalf("생성 모델 초기화 실패: %v", err)
	}
	llm := ratelimit.NewLLMWithRateLimit(
		baseModel,
		cfg.OpenAI.Model,
		cfg.ModelQPMLimits,
		constants.DefaultLLMQPM,
		3,
		time.Second,
	)
	glog.Infof("생성 모델 초기화 완료: %s", cfg.OpenAI.Model)

	// 보조 컴포넌트는 초기화에 실패했을 수 있다. nil 포인터를 인터페이스에
	// 그대로 담으면 nil 검사가 통하지 않으므로 여기서 걸러 넣는다.
	var publisher evaluator.EventPublisher
	if storageManager.RabbitMQ != nil {
		publisher = storageManager.RabbitMQ
	}
	var archiver evaluator.DiagnosticsArchiver
	if storageManager.MinIO != nil {
		archiver = storageManager.MinIO
	}
	var locker evaluator.SessionLocker
	if storageManager.Redis != nil {
		locker = storageManager.Redis
	}

	service := evaluator.NewService(
		evaluator.NewQuestionEvaluator(llm, scorerClient,
			evaluator.WithEvalModel(cfg.OpenAI.ModelForTask(constants.TaskIndividualEval))),
		evaluator.NewAggregator(llm,
			evaluator.WithReconcileModel(cfg.OpenAI.ModelForTask(constants.TaskFinalEval)),
			evaluator.WithOverallModel(cfg.OpenAI.ModelForTask(constants.TaskOverallEval))),
		evaluator.NewPlanGenerator(llm,
			evaluator.WithPlanModel(cfg.OpenAI.ModelForTask(constants.TaskPlanEval)),
			evaluator.WithPlanMaxTokens(cfg.OpenAI.MaxTokens)),
		store,
		publisher,
		archiver,
		locker,
		cfg.DefaultCompany,
	)
	interviewHandler := handler.NewInterviewHandler(cfg, service)
	glog.Info("평가 서비스 초기화 완료")

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	// 요청 컨텍스트에 전역 로거를 싣는다. logger.Ctx가 이 로거를 꺼내 쓴다.
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		c = appCoreLogger.WithContext(c)
		ctx.Next(c)
	})

	router.RegisterRoutes(h, interviewHandler, cfg.Server.APIKey)
	glog.Info("HTTP 라우트 등록 완료")

	go func() {
		glog.Infof("HTTP 서버 시작, 주소: %s", cfg.Server.Address)
		if err := h.Run(); err != nil {
			glog.Fatalf("HTTP 서버 시작 실패: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("종료 신호 수신, 정리 시작")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("서버 종료 실패: %v", err)
	}
	glog.Info("정리 완료")
}

// initLogger 전역 zerolog와 hertz 로그를 같은 설정으로 묶는다.
// 콘솔과 logs/app.log 파일에 함께 남긴다. 파일을 열지 못하면 콘솔만 쓴다.
func initLogger(cfg *config.Config) {
	logCfg := appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	}

	var console io.Writer = os.Stdout
	if cfg.Logger.Format == "pretty" {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: cfg.Logger.TimeFormat}
	}

	if err := os.MkdirAll("logs", 0755); err == nil {
		if fileWriter, err := os.OpenFile("logs/app.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			appCoreLogger.InitWithWriter(logCfg, zerolog.MultiLevelWriter(console, fileWriter))
		} else {
			log.Printf("로그 파일 열기 실패, 콘솔만 사용: %v", err)
			appCoreLogger.InitWithWriter(logCfg, console)
		}
	} else {
		log.Printf("로그 디렉터리 생성 실패, 콘솔만 사용: %v", err)
		appCoreLogger.InitWithWriter(logCfg, console)
	}

	glog.SetLogger(hertzadapter.From(appCoreLogger.Logger))
	switch cfg.Logger.Level {
	case "debug":
		glog.SetLevel(glog.LevelDebug)
	case "warn":
		glog.SetLevel(glog.LevelWarn)
	case "error":
		glog.SetLevel(glog.LevelError)
	default:
		glog.SetLevel(glog.LevelInfo)
	}
}
