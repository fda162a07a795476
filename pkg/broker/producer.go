package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer 审计事件流生产者：每条 AuditLog 一条消息，key 为 targetId
type Producer struct {
	logger *zap.Logger
	w      *kafka.Writer
	topic  string
}

// NewProducer 创建 Kafka 写入器
func NewProducer(logger *zap.Logger, brokers []string, topic string) *Producer {
	logger = logger.With(zap.String("topic", topic))

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...))
		}),
	}

	return &Producer{logger: logger, w: w, topic: topic}
}

// Publish 序列化并写入一条消息
func (p *Producer) Publish(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b}); err != nil {
		return fmt.Errorf("写入 kafka 失败: %w", err)
	}
	return nil
}

// Close 刷新缓冲并关闭写入器
func (p *Producer) Close() {
	if err := p.w.Close(); err != nil {
		p.logger.Error("关闭 kafka writer 失败", zap.Error(err))
	}
}
