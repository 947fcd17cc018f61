package mq

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Producer 消息队列生产者
type Producer interface {
	Produce(ctx context.Context, topic string, key string, data interface{}) error
	Close()
}

// LogProducer 消息队列关闭时使用: 只在 debug 级别记录, 不外发
type LogProducer struct {
	logger *zap.Logger
	count  atomic.Uint64
}

var _ Producer = (*LogProducer)(nil)

func NewLogProducer(logger *zap.Logger) *LogProducer {
	return &LogProducer{logger: logger}
}

func (p *LogProducer) Produce(ctx context.Context, topic string, key string, data interface{}) error {
	p.count.Add(1)
	if ce := p.logger.Check(zap.DebugLevel, "Message (mq disabled)"); ce != nil {
		ce.Write(zap.String("topic", topic), zap.String("key", key), zap.Any("data", data))
	}
	return nil
}

// Count 返回累计记录的消息数
func (p *LogProducer) Count() uint64 {
	return p.count.Load()
}

func (p *LogProducer) Close() {
	p.logger.Info("Log producer closed", zap.Uint64("messages", p.count.Load()))
}
