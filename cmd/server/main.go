package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"ess-gateway/internal/config"
	"ess-gateway/internal/infra/canbus"
	"ess-gateway/internal/infra/kafka"
	"ess-gateway/internal/infra/mq"
	"ess-gateway/internal/infra/rabbitmq"
	"ess-gateway/internal/server"
	"ess-gateway/internal/usecase"
	"ess-gateway/internal/usecase/bms"
)

func newLogger(cfg config.LogConfig) *zap.Logger {
	writeSyncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	})
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zap.InfoLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), writeSyncer, zap.NewAtomicLevelAt(level)),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(zap.WarnLevel)),
	)
	return zap.New(core, zap.AddCaller())
}

func newProducer(cfg config.MessageQueueConfig, logger *zap.Logger) (mq.Producer, error) {
	if !cfg.Enabled {
		logger.Info("Message queue disabled, reports are only logged")
		return mq.NewLogProducer(logger), nil
	}
	codec, err := mq.NewCodec(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "kafka":
		return kafka.NewKafkaProducer(cfg.Kafka, codec, logger)
	case "rabbitmq":
		return rabbitmq.NewRabbitMQProducer(cfg.RabbitMQ, codec, logger)
	default:
		return nil, fmt.Errorf("unknown message_queue.type %q", cfg.Type)
	}
}

func publishTopic(cfg config.MessageQueueConfig) string {
	if cfg.Type == "kafka" && cfg.Kafka.Topic != "" {
		return cfg.Kafka.Topic
	}
	return "bms_reports"
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// 1. 配置加载
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Log)
	defer logger.Sync()

	// 2. 基础设施层 (消息队列)
	producer, err := newProducer(cfg.MessageQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize producer, falling back to log only", zap.Error(err))
		producer = mq.NewLogProducer(logger)
	}
	defer producer.Close()

	// 3. 业务逻辑层 (分发器 & 监控)
	dispatcher := usecase.NewDataDispatcher(producer, cfg.Publish.Workers, 1000, logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	monitor := bms.NewMonitor(bms.Options{
		PackID:    cfg.Pack.ID,
		Topic:     publishTopic(cfg.MessageQueue),
		DebugDump: cfg.CAN.DebugDump,
	}, dispatcher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. 帧来源
	var src canbus.FrameSource
	switch cfg.CAN.Source {
	case "socketcan":
		src, err = canbus.NewSocketCANSource(ctx, cfg.CAN.Interface)
		if err != nil {
			logger.Fatal("Failed to open SocketCAN", zap.String("interface", cfg.CAN.Interface), zap.Error(err))
		}
		logger.Info("Reading SocketCAN", zap.String("interface", cfg.CAN.Interface))
	case "replay":
		f, err := os.Open(cfg.CAN.ReplayFile)
		if err != nil {
			logger.Fatal("Failed to open replay file", zap.String("file", cfg.CAN.ReplayFile), zap.Error(err))
		}
		replay := canbus.NewReplaySource(f)
		replay.Realtime = cfg.CAN.Realtime
		src = replay
		logger.Info("Replaying candump log", zap.String("file", cfg.CAN.ReplayFile))
	case "tcp":
		chanSrc := canbus.NewChanSource(cfg.CAN.Buffer)
		src = chanSrc

		// 新网桥接入即复位快照
		bridges := bms.NewBridgeRegistry(func(string) { monitor.Reset() }, logger)
		go bridges.RunIdleCheck(ctx.Done(), cfg.Server.IdleTimeout)

		srv := server.NewTCPServer(cfg, logger, chanSrc, bridges)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("TCP ingest failed", zap.Error(err))
				stop()
			}
		}()
		defer func() { _ = srv.Stop(context.Background()) }()
	}
	defer src.Close()

	// 5. 主循环
	err = monitor.Run(ctx, src, cfg.Publish.Interval, cfg.Publish.StatsInterval)
	if err != nil && ctx.Err() == nil {
		logger.Error("Monitor stopped", zap.Error(err))
	}
	logger.Info("Shutting down...", zap.Object("stats", monitor.Stats()))
}
