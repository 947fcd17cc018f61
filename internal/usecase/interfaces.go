package usecase

import "context"

// DataProducer 发布报告到消息队列
type DataProducer interface {
	// Produce 发送数据到指定 Topic, key 用于分区/路由
	Produce(ctx context.Context, topic string, key string, data interface{}) error
}
