package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/IBM/sarama"
)

// Config Kafka配置
type Config struct {
	Brokers []string
	// ConsumerGroup 消费组ID。任务队列的所有Worker共用一个组（组内分摊），
	// 通知通道的每个API实例使用唯一的组（每实例都收到全量消息）。
	ConsumerGroup  string
	ConsumerTopics []string
	ServiceName    string
}

// MessageHandler 消息处理器接口
type MessageHandler interface {
	// HandleMessage 处理接收到的消息
	HandleMessage(ctx context.Context, topic string, message *Message) error
}

// Client Kafka客户端
type Client struct {
	config    *Config
	producer  sarama.SyncProducer
	consumer  sarama.ConsumerGroup
	handlers  map[string]MessageHandler
	ready     chan bool
	readyOnce sync.Once
	mutex     sync.Mutex
}

// NewClient 创建Kafka客户端
func NewClient(cfg *Config) (*Client, error) {
	client := &Client{
		config:   cfg,
		handlers: make(map[string]MessageHandler),
		ready:    make(chan bool),
	}

	// 初始化生产者
	if err := client.initProducer(); err != nil {
		return nil, err
	}

	// 初始化消费者（如果有配置消费主题）
	if len(cfg.ConsumerTopics) > 0 {
		if err := client.initConsumer(); err != nil {
			client.producer.Close()
			return nil, err
		}
	}

	return client, nil
}

// initProducer 初始化生产者
func (c *Client) initProducer() error {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(c.config.Brokers, config)
	if err != nil {
		return fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	c.producer = producer
	return nil
}

// initConsumer 初始化消费者。
// Offsets.Initial为Newest：新订阅者不回放历史消息。
func (c *Client) initConsumer() error {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumer, err := sarama.NewConsumerGroup(c.config.Brokers, c.config.ConsumerGroup, config)
	if err != nil {
		return fmt.Errorf("创建Kafka消费者组失败: %w", err)
	}

	c.consumer = consumer
	return nil
}

// RegisterHandler 注册消息处理器
func (c *Client) RegisterHandler(topic string, handler MessageHandler) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.handlers[topic] = handler
}

// SendMessage 发送消息
func (c *Client) SendMessage(topic string, msgType MessageType, data interface{}) error {
	// 创建消息
	message, err := NewMessage(msgType, data, c.config.ServiceName)
	if err != nil {
		return fmt.Errorf("创建消息失败: %w", err)
	}

	// 序列化消息
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	// 发送消息
	kafkaMsg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.StringEncoder(jsonData),
	}

	partition, offset, err := c.producer.SendMessage(kafkaMsg)
	if err != nil {
		return fmt.Errorf("发送消息失败: %w", err)
	}

	log.Printf("消息已发送: topic=%s, type=%s, partition=%d, offset=%d", topic, msgType, partition, offset)
	return nil
}

// StartConsumers 启动消费者并阻塞，直到ctx取消或消费出错。
// 消费者就绪后才返回开始消费的错误，分区重平衡时自动重入。
func (c *Client) StartConsumers(ctx context.Context) error {
	if c.consumer == nil || len(c.config.ConsumerTopics) == 0 {
		log.Println("未配置消费者或主题，跳过启动")
		return nil
	}

	consumeErrors := make(chan error, 1)

	go func() {
		defer close(consumeErrors)
		for {
			handler := &consumerHandler{
				client:  c,
				baseCtx: ctx,
			}

			if err := c.consumer.Consume(ctx, c.config.ConsumerTopics, handler); err != nil {
				consumeErrors <- fmt.Errorf("消费者组错误: %w", err)
				return
			}

			// 上下文取消时退出循环
			if ctx.Err() != nil {
				return
			}
		}
	}()

	// 等待消费者就绪。连接失败时Consume会在就绪前出错，这里一并接住
	select {
	case <-c.ready:
	case err := <-consumeErrors:
		return err
	}

	log.Printf("Kafka消费者已启动，正在监听主题: %v", c.config.ConsumerTopics)

	select {
	case <-ctx.Done():
		log.Println("上下文取消，正在关闭消费者...")
		return nil
	case err := <-consumeErrors:
		return err
	}
}

// Close 关闭Kafka客户端
func (c *Client) Close() {
	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			log.Printf("关闭Kafka生产者失败: %v", err)
		}
	}

	if c.consumer != nil {
		if err := c.consumer.Close(); err != nil {
			log.Printf("关闭Kafka消费者失败: %v", err)
		}
	}
}

// consumerHandler 实现 sarama.ConsumerGroupHandler 接口
type consumerHandler struct {
	client  *Client
	baseCtx context.Context
}

// Setup 消费者就绪。重平衡会多次进入，ready只关闭一次。
func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error {
	h.client.readyOnce.Do(func() {
		close(h.client.ready)
	})
	return nil
}

func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim 处理消息。消息处理完成后才标记offset，
// Worker崩溃时未标记的消息会重新投递（至少一次语义）。
func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		log.Printf("收到消息: topic=%s, partition=%d, offset=%d",
			msg.Topic, msg.Partition, msg.Offset)

		// 解析消息
		var message Message
		if err := json.Unmarshal(msg.Value, &message); err != nil {
			log.Printf("解析消息失败: %v", err)
			session.MarkMessage(msg, "")
			continue
		}

		// 获取该主题的处理器
		h.client.mutex.Lock()
		handler, ok := h.client.handlers[msg.Topic]
		h.client.mutex.Unlock()

		if !ok {
			log.Printf("未找到主题的处理器: %s", msg.Topic)
			session.MarkMessage(msg, "")
			continue
		}

		// 带追踪ID的上下文
		ctx := h.baseCtx
		if message.TraceID != "" {
			ctx = withTraceID(ctx, message.TraceID)
		}

		// 处理消息
		if err := handler.HandleMessage(ctx, msg.Topic, &message); err != nil {
			log.Printf("处理消息失败: %v", err)
		}

		// 标记消息为已处理
		session.MarkMessage(msg, "")
	}
	return nil
}
