// Package kafka 提供了与 Kafka 消息队列交互的功能，用于传输查询审计。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"sqlchat-go/internal/config"
	"sqlchat-go/pkg/log"
	"sqlchat-go/pkg/tasks"
)

// maxAttempts 是单条审计消息的最大处理次数，超过后提交 offset 丢弃。
const maxAttempts = 3

// AuditSink 处理消费到的审计任务，使 consumer 与具体存储解耦。
type AuditSink interface {
	Handle(ctx context.Context, task tasks.QueryAuditTask) error
}

// messageWriter 是 kafka.Writer 的最小子集，便于测试替换。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer 把审计任务写入 Kafka。
type Producer struct {
	writer messageWriter
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.BrokerList()...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	log.Infof("Kafka 生产者初始化成功, topic: %s", cfg.Topic)
	return &Producer{writer: w}
}

// Publish 发送一个审计任务。消息以用户 ID 为 key，同一用户的审计保持顺序。
func (p *Producer) Publish(ctx context.Context, task tasks.QueryAuditTask) error {
	value, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal audit task: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", task.UserID)),
		Value: value,
	})
}

// Close 关闭底层 writer 并刷出缓冲中的消息。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// messageReader 是 kafka.Reader 的最小子集，便于测试替换。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StartConsumer 启动审计消费者，阻塞直到 ctx 被取消。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, sink AuditSink) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.BrokerList(),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	consume(ctx, r, sink, time.Second)
}

func consume(ctx context.Context, r messageReader, sink AuditSink, backoff time.Duration) {
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			// broker 暂时不可用时等待后重试，消费者不能因此退出
			log.Errorf("从 Kafka 读取消息失败，%v 后重试: %v", backoff, err)
			select {
			case <-ctx.Done():
				log.Info("Kafka 消费者已停止")
				return
			case <-time.After(backoff):
			}
			continue
		}

		var task tasks.QueryAuditTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(ctx, r, m)
			continue
		}

		if err := handleWithRetry(ctx, sink, task, backoff); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("审计任务多次失败(>=%d)，提交 offset 丢弃: user=%d, err=%v", maxAttempts, task.UserID, err)
		}
		commit(ctx, r, m)
	}
}

func handleWithRetry(ctx context.Context, sink AuditSink, task tasks.QueryAuditTask, backoff time.Duration) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = sink.Handle(ctx, task); err == nil {
			return nil
		}
		log.Warnf("处理审计任务失败(第 %d 次): %v", attempt, err)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(attempt)):
		}
	}
	return err
}

func commit(ctx context.Context, r messageReader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
