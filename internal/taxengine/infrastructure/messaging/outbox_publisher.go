// Package messaging 实现事务 Outbox 事件发布：事件先落库，
// 由后台 relay 批量投递到 Kafka，投递失败不影响计税主流程。
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wyfcoding/vehicletax/internal/taxengine/domain"
	"github.com/wyfcoding/vehicletax/pkg/logger"
	"github.com/wyfcoding/vehicletax/pkg/mq"
)

// OutboxMessage 消息队列
type OutboxMessage struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	EventID   string    `gorm:"type:varchar(36);index"`
	EventType string    `gorm:"type:varchar(100);index"`
	Payload   string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);index;default:'pending'"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "taxengine_outbox_messages"
}

// OutboxEventPublisher 实现 EventPublisher 接口，使用 Outbox 模式
type OutboxEventPublisher struct {
	db *gorm.DB
}

// NewOutboxEventPublisher 创建新的 OutboxEventPublisher 实例
func NewOutboxEventPublisher(db *gorm.DB) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: db}
}

// AutoMigrate 建表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&OutboxMessage{})
}

// PublishTaxQuoteComputed 发布计税完成事件
func (p *OutboxEventPublisher) PublishTaxQuoteComputed(event domain.TaxQuoteComputedEvent) error {
	return p.publishEvent("TaxQuoteComputedEvent", event)
}

// publishEvent 通用事件发布方法
func (p *OutboxEventPublisher) publishEvent(eventType string, event interface{}) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	message := OutboxMessage{
		ID:        uuid.New().String(),
		EventID:   uuid.New().String(),
		EventType: eventType,
		Payload:   string(eventData),
		Status:    "pending",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return p.db.Create(&message).Error
}

// OutboxRelay 后台投递器：轮询待发消息并投递到 Kafka。
type OutboxRelay struct {
	db        *gorm.DB
	producer  *mq.Producer
	batchSize int
	interval  time.Duration
}

// NewOutboxRelay 创建投递器。
func NewOutboxRelay(db *gorm.DB, producer *mq.Producer, batchSize int, interval time.Duration) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelay{db: db, producer: producer, batchSize: batchSize, interval: interval}
}

// Run 循环投递，直到 ctx 取消。
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil {
				logger.Error(ctx, "outbox relay drain failed", "error", err)
			}
		}
	}
}

// drainOnce 投递一批待发消息。
func (r *OutboxRelay) drainOnce(ctx context.Context) error {
	var messages []OutboxMessage
	if err := r.db.WithContext(ctx).
		Where("status = ?", "pending").
		Order("created_at").
		Limit(r.batchSize).
		Find(&messages).Error; err != nil {
		return err
	}

	for _, message := range messages {
		if err := r.producer.SendRaw(ctx, message.EventID, []byte(message.Payload)); err != nil {
			// 保持 pending，下一轮重试。
			logger.Warn(ctx, "outbox message send failed", "event_id", message.EventID, "error", err)
			continue
		}
		if err := r.db.WithContext(ctx).Model(&message).Update("status", "sent").Error; err != nil {
			return err
		}
	}
	return nil
}

// CleanupProcessedMessages 清理已处理的消息
func (r *OutboxRelay) CleanupProcessedMessages(ctx context.Context, before time.Time) error {
	return r.db.WithContext(ctx).Where("status = ? AND updated_at < ?", "sent", before).Delete(&OutboxMessage{}).Error
}
