package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"resume-extractor/internal/config"
)

// Publisher 发布 JSON 消息
type Publisher interface {
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data any, persistent bool) error
}

var _ Publisher = (*RabbitMQ)(nil)

// RabbitMQ 提供消息队列功能
type RabbitMQ struct {
	conn        *amqp.Connection
	channelPool sync.Pool
	logger      zerolog.Logger

	mu       sync.Mutex
	declared map[string]bool // 已声明的 exchange/queue/binding

	publishMutex sync.Mutex
}

// NewRabbitMQ 创建RabbitMQ客户端
func NewRabbitMQ(cfg config.RabbitMQConfig, logger zerolog.Logger) (*RabbitMQ, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}
	conn, err := dialWithRetry(cfg, logger)
	if err != nil {
		return nil, err
	}

	mq := &RabbitMQ{
		conn:     conn,
		logger:   logger,
		declared: make(map[string]bool),
	}
	mq.channelPool.New = func() any {
		ch, err := conn.Channel()
		if err != nil {
			logger.Error().Err(err).Msg("创建RabbitMQ通道失败")
			return nil
		}
		return ch
	}

	ch, err := mq.getChannel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	mq.putChannel(ch)

	logger.Info().Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

// dialWithRetry 启动时 broker 可能尚未就绪，按 RetryInterval 重试 MaxRetries 次
func dialWithRetry(cfg config.RabbitMQConfig, logger zerolog.Logger) (*amqp.Connection, error) {
	interval := config.GetDuration(cfg.RetryInterval, 2*time.Second)
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("wait", interval).Msg("连接RabbitMQ失败，稍后重试")
			time.Sleep(interval)
		}
		conn, err := amqp.Dial(cfg.URL)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", lastErr)
}

func (r *RabbitMQ) getChannel() (*amqp.Channel, error) {
	if v := r.channelPool.Get(); v != nil {
		if ch, ok := v.(*amqp.Channel); ok && !ch.IsClosed() {
			return ch, nil
		}
	}
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("无法获取RabbitMQ通道: %w", err)
	}
	return ch, nil
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil && !ch.IsClosed() {
		r.channelPool.Put(ch)
	}
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// declareOnce 同一个 key 只声明一次
func (r *RabbitMQ) declareOnce(key string, fn func(ch *amqp.Channel) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.declared[key] {
		return nil
	}
	ch, err := r.getChannel()
	if err != nil {
		return err
	}
	defer r.putChannel(ch)
	if err := fn(ch); err != nil {
		return err
	}
	r.declared[key] = true
	return nil
}

// EnsureExchange 确保exchange存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" || exchangeName == "amq.default" {
		return fmt.Errorf("不能声明默认交换机 '%s'", exchangeName)
	}
	return r.declareOnce("exchange:"+exchangeName, func(ch *amqp.Channel) error {
		if err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
			return fmt.Errorf("声明exchange失败: %w", err)
		}
		r.logger.Info().Str("exchange", exchangeName).Msg("已确保exchange存在")
		return nil
	})
}

// EnsureQueue 确保队列存在
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	return r.declareOnce("queue:"+queueName, func(ch *amqp.Channel) error {
		if _, err := ch.QueueDeclare(queueName, durable, false, false, false, nil); err != nil {
			return fmt.Errorf("声明队列失败: %w", err)
		}
		r.logger.Info().Str("queue", queueName).Msg("已确保队列存在")
		return nil
	})
}

// BindQueue 绑定队列到exchange
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	key := fmt.Sprintf("binding:%s:%s:%s", exchangeName, queueName, routingKey)
	return r.declareOnce(key, func(ch *amqp.Channel) error {
		if err := ch.QueueBind(queueName, routingKey, exchangeName, false, nil); err != nil {
			return fmt.Errorf("绑定队列到exchange失败: %w", err)
		}
		return nil
	})
}

// DeclareTopology 声明请求与结果两条链路
func (r *RabbitMQ) DeclareTopology(cfg config.RabbitMQConfig) error {
	if err := r.EnsureExchange(cfg.Exchange, amqp.ExchangeDirect, true); err != nil {
		return err
	}
	for _, pair := range [][2]string{{cfg.RequestQueue, cfg.RequestKey}, {cfg.ResultQueue, cfg.ResultKey}} {
		if pair[0] == "" {
			continue
		}
		if err := r.EnsureQueue(pair[0], true); err != nil {
			return err
		}
		if err := r.BindQueue(pair[0], cfg.Exchange, pair[1]); err != nil {
			return err
		}
	}
	return nil
}

// PublishJSON 发布JSON格式的消息，MessageId 为随机 UUID
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data any, persistent bool) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}

	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ch, err := r.getChannel()
	if err != nil {
		return err
	}
	defer r.putChannel(ch)

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}
	return ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		DeliveryMode: deliveryMode,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Body:         body,
		Timestamp:    time.Now(),
	})
}

// Consume 注册消费者并返回投递通道，关闭 ctx 后取消消费并释放通道
func (r *RabbitMQ) Consume(ctx context.Context, queueName string, prefetchCount int) (<-chan amqp.Delivery, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("无法获取RabbitMQ通道: %w", err)
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("设置QoS失败: %w", err)
	}
	consumerTag := "resume-extractor-" + uuid.NewString()
	deliveries, err := ch.Consume(queueName, consumerTag, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("注册消费者失败: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = ch.Cancel(consumerTag, false)
		_ = ch.Close()
		r.logger.Info().Str("queue", queueName).Msg("RabbitMQ消费者已停止")
	}()

	r.logger.Info().Str("queue", queueName).Int("prefetch", prefetchCount).Msg("RabbitMQ消费者已启动")
	return deliveries, nil
}
