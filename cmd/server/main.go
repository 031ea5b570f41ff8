package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"resume-extractor/internal/api/handler"
	"resume-extractor/internal/api/router"
	appconfig "resume-extractor/internal/config"
	"resume-extractor/internal/logger"
	"resume-extractor/internal/processor"
	"resume-extractor/internal/queue"
	"resume-extractor/internal/tracing"
)

func main() {
	var (
		configPath string
		addr       string
		noQueue    bool
	)
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，为空时按默认位置查找")
	pflag.StringVar(&addr, "addr", "", "HTTP监听地址，覆盖配置文件")
	pflag.BoolVar(&noQueue, "no-queue", false, "不启动RabbitMQ消费者")
	pflag.Parse()

	cfg, err := appconfig.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	if addr != "" {
		cfg.Server.Address = addr
	}

	log := logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	log.Info().Str("address", cfg.Server.Address).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	resumeProcessor, err := processor.NewFromConfig(ctx, cfg, logger.Component("processor"))
	if err != nil {
		log.Fatal().Err(err).Msg("初始化简历处理器失败")
	}
	log.Info().Bool("summary", resumeProcessor.HasSummarizer()).Msg("简历处理器初始化成功")

	var (
		mq         *queue.RabbitMQ
		workerDone <-chan struct{}
	)
	if !noQueue && cfg.RabbitMQ.URL != "" {
		mq, workerDone, err = startQueueWorker(ctx, cfg.RabbitMQ, resumeProcessor, logger.Component("queue"))
		if err != nil {
			log.Fatal().Err(err).Msg("启动RabbitMQ消费者失败")
		}
	}

	h := newHTTPServer(cfg)
	router.RegisterRoutes(h, handler.NewResumeHandler(cfg, resumeProcessor, logger.Component("api")), cfg.Auth.Keys)
	log.Info().Bool("auth", len(cfg.Auth.Keys) > 0).Msg("HTTP路由注册成功")

	go func() {
		if err := h.Run(); err != nil {
			log.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("接收到终止信号，正在优雅退出...")

	// 先停止消费，等在途消息确认后再关闭连接
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), appconfig.GetDuration(cfg.Server.ExitWaitTime, 5*time.Second))
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("服务器关闭失败")
	}
	if mq != nil {
		select {
		case <-workerDone:
		case <-shutdownCtx.Done():
			log.Warn().Msg("等待消费者退出超时")
		}
		if err := mq.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("关闭链路追踪失败")
	}
	log.Info().Msg("优雅退出完成")
}

func newHTTPServer(cfg *appconfig.Config) *server.Hertz {
	opts := []config.Option{
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithExitWaitTime(appconfig.GetDuration(cfg.Server.ExitWaitTime, 5*time.Second)),
		server.WithReadTimeout(appconfig.GetDuration(cfg.Server.RequestTimeout, 3*time.Minute)),
	}
	if cfg.Server.MaxUploadMB > 0 {
		// 额外 1MB 留给 multipart 边界与其它表单字段
		opts = append(opts, server.WithMaxRequestBodySize((cfg.Server.MaxUploadMB+1)<<20))
	}

	if !cfg.Tracing.Enabled {
		return server.New(opts...)
	}
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(append(opts, tracer)...)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	return h
}

func startQueueWorker(ctx context.Context, cfg appconfig.RabbitMQConfig, p *processor.ResumeProcessor, log zerolog.Logger) (*queue.RabbitMQ, <-chan struct{}, error) {
	mq, err := queue.NewRabbitMQ(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DeclareTopology {
		if err := mq.DeclareTopology(cfg); err != nil {
			_ = mq.Close()
			return nil, nil, err
		}
	}
	deliveries, err := mq.Consume(ctx, cfg.RequestQueue, cfg.PrefetchCount)
	if err != nil {
		_ = mq.Close()
		return nil, nil, err
	}

	worker := queue.NewWorker(p, mq, cfg, log)
	done := worker.Start(ctx, deliveries, cfg.Workers)
	log.Info().Str("queue", cfg.RequestQueue).Int("workers", cfg.Workers).Msg("简历抽取消费者已启动")
	return mq, done, nil
}
