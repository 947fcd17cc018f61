package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"ess-gateway/internal/config"
	"ess-gateway/internal/infra/mq"
)

type KafkaProducer struct {
	writer *kafka.Writer
	codec  mq.Codec
	logger *zap.Logger
	topic  string
}

var _ mq.Producer = (*KafkaProducer)(nil)

func NewKafkaProducer(cfg config.KafkaConfig, codec mq.Codec, logger *zap.Logger) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{}, // 同一电池包的报告落在同一分区, 保证顺序
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
	}
	// Async 模式下 WriteMessages 不返回投递错误, 在回调里记录
	w.Completion = func(messages []kafka.Message, err error) {
		if err != nil {
			logger.Error("Kafka async delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
		}
	}

	logger.Info("Initialized Kafka producer",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.String("encoding", codec.Encoding),
		zap.Duration("batch_timeout", cfg.BatchTimeout))

	return &KafkaProducer{
		writer: w,
		codec:  codec,
		logger: logger,
		topic:  cfg.Topic,
	}, nil
}

func (p *KafkaProducer) Produce(ctx context.Context, topic string, key string, data interface{}) error {
	body, err := p.codec.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	targetTopic := p.topic
	if topic != "" {
		targetTopic = topic
	}

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: targetTopic,
			Key:   []byte(key),
			Value: body,
			Headers: []kafka.Header{
				{Key: "content-type", Value: []byte(p.codec.ContentType())},
			},
		},
	)
	if err != nil {
		p.logger.Error("Failed to produce message to Kafka", zap.Error(err), zap.String("topic", targetTopic))
		return err
	}

	p.logger.Debug("Produced message to Kafka", zap.String("topic", targetTopic), zap.String("key", key))
	return nil
}

func (p *KafkaProducer) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}
