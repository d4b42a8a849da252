package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DocQA/backend/go/internal/models"

	"github.com/segmentio/kafka-go"
)

// Publisher 发布文档生命周期事件。
type Publisher interface {
	Publish(ctx context.Context, event models.DocumentEvent) error
	Close() error
}

// messageWriter 是 *kafka.Writer 中用到的部分。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 封装了向 Kafka 发送文档事件的逻辑。
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaPublisher 创建一个新的 KafkaPublisher，writer 需要已经设置好 Topic。
func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, now: time.Now}
}

// Publish 将事件序列化为 JSON 并发送到 Kafka，以文档 ID 作为消息 Key。
func (p *KafkaPublisher) Publish(ctx context.Context, event models.DocumentEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal document event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.DocumentID),
		Value: jsonData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close 关闭底层的 writer 连接。
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher 丢弃所有事件，未配置 Kafka 时使用。
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.DocumentEvent) error { return nil }
func (NopPublisher) Close() error                                        { return nil }
