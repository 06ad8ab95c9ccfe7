package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	rabbitConn    *amqp.Connection
	rabbitChannel *amqp.Channel
	feedExchange  = "feed_events"
)

// FeedEvent - событие о новом посте для подписчика
// (UserID - кому доставить, остальное - данные поста)
type FeedEvent struct {
	UserID   int64     `json:"user_id"`
	PostID   int64     `json:"post_id"`
	AuthorID int64     `json:"author_id"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`
}

// InitRabbitMQ инициализирует соединение и exchange
func InitRabbitMQ(url string) error {
	var err error
	rabbitConn, err = amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	rabbitChannel, err = rabbitConn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := rabbitChannel.ExchangeDeclare(
		feedExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // args
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	log.Printf("RabbitMQ initialized with URL: %s", url)
	return nil
}

// PublishFeedEvent публикует событие о новом посте для конкретного подписчика
func PublishFeedEvent(ctx context.Context, event FeedEvent) error {
	if rabbitChannel == nil {
		return fmt.Errorf("RabbitMQ channel not initialized")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	routingKey := fmt.Sprintf("user.%d", event.UserID)
	return rabbitChannel.PublishWithContext(ctx,
		feedExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// StartFeedEventConsumer слушает события и пушит их подписчикам через WebSocket
func StartFeedEventConsumer(ctx context.Context, queueName string) error {
	if rabbitChannel == nil {
		return fmt.Errorf("RabbitMQ channel not initialized")
	}
	q, err := rabbitChannel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := rabbitChannel.QueueBind(
		q.Name,
		"user.*",
		feedExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	msgs, err := rabbitChannel.Consume(
		q.Name,
		"",
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event FeedEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					log.Printf("notify: failed to unmarshal feed event: %v", err)
					continue
				}
				sendDirectWSEvent(event)
			}
		}
	}()
	return nil
}

// sendDirectWSEvent пушит событие подписчику по открытым WebSocket соединениям
func sendDirectWSEvent(event FeedEvent) {
	pushMsg := struct {
		Event string `json:"event"`
		FeedEvent
	}{
		Event:     "post_published",
		FeedEvent: event,
	}

	pushData, err := json.Marshal(pushMsg)
	if err != nil {
		log.Printf("notify: failed to marshal push message: %v", err)
		return
	}
	GlobalWSConnManager.Send(event.UserID, pushData)
}

func CloseRabbitMQ() {
	if rabbitChannel != nil {
		_ = rabbitChannel.Close()
	}
	if rabbitConn != nil {
		_ = rabbitConn.Close()
	}
}
