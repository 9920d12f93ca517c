// Package mq 提供 Kafka producer 通用封装，供 outbox 转发器使用。
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/vehicletax/pkg/logger"
)

// Config Kafka 配置。
type Config struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff int // 毫秒
}

// Producer Kafka 生产者。
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer 创建 Kafka 生产者。写入等待全部副本确认。
func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        time.Duration(cfg.RetryBackoff) * time.Millisecond,
		WriteBackoffMax:        time.Duration(cfg.RetryBackoff*10) * time.Millisecond,
	}
	logger.Info(context.Background(), "kafka producer created", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return &Producer{writer: writer, topic: cfg.Topic}, nil
}

// Send 发送单条 JSON 消息。
func (p *Producer) Send(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// SendRaw 发送已经序列化好的消息体。
func (p *Producer) SendRaw(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}
