// Package kafka 提供了与 Kafka 消息队列交互的功能：投递问答审计事件，并由消费者写入数据库。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"edi-assistant-go/internal/config"
	"edi-assistant-go/internal/model"
	"edi-assistant-go/internal/repository"
	"edi-assistant-go/pkg/database"
	"edi-assistant-go/pkg/log"

	"github.com/segmentio/kafka-go"
)

// maxAttempts 是单条消息写库失败后的最大重试次数。
const maxAttempts = 3

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:         kafka.TCP(brokerList(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	log.Info("Kafka 生产者初始化成功")
}

// CloseProducer 关闭生产者，刷新尚未发送的消息。
func CloseProducer() error {
	if producer == nil {
		return nil
	}
	return producer.Close()
}

// ProduceAskEvent 发送一个问答审计事件到 Kafka，以 request_id 作为消息键。
func ProduceAskEvent(ctx context.Context, evt model.AskEvent) error {
	if producer == nil {
		return errors.New("kafka producer not initialized")
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.RequestID),
		Value: value,
	})
}

// StartConsumer 启动一个 Kafka 消费者，将审计事件写入 ask_logs。ctx 结束时退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, repo repository.AskLogRepository) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokerList(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("从 Kafka 读取消息失败", err)
			}
			break
		}

		if handleMessage(ctx, m, repo) {
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
	log.Info("Kafka 消费者已退出")
}

// handleMessage 处理一条消息，返回是否应提交 offset。
func handleMessage(ctx context.Context, m kafka.Message, repo repository.AskLogRepository) bool {
	var evt model.AskEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil || evt.RequestID == "" {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		// 消息格式错误，直接提交，避免阻塞队列
		return true
	}

	attemptsKey := fmt.Sprintf("kafka:attempts:%s", evt.RequestID)
	if err := repo.Create(ctx, model.NewAskLog(evt)); err != nil {
		log.Errorf("写入问答记录失败: request_id=%s, Error: %v", evt.RequestID, err)
		return exhausted(ctx, attemptsKey)
	}

	if database.RDB != nil {
		// 清理失败计数
		_ = database.RDB.Del(ctx, attemptsKey).Err()
	}
	return true
}

// exhausted 使用 Redis 计数失败次数，达到阈值后返回 true 以提交 offset 终止重试。
func exhausted(ctx context.Context, attemptsKey string) bool {
	if database.RDB == nil {
		// 没有 Redis 无法计数，直接放弃该消息
		return true
	}
	attempts, err := database.RDB.Incr(ctx, attemptsKey).Result()
	if err != nil {
		// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
		return false
	}
	_ = database.RDB.Expire(ctx, attemptsKey, 24*time.Hour).Err()
	if attempts >= maxAttempts {
		log.Errorf("消息多次处理失败(>=%d)，提交 offset 终止重试: %s", maxAttempts, attemptsKey)
		return true
	}
	return false
}

func brokerList(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
