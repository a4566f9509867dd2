package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"fieldops-service/internal/model"
)

type pushMessage struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Type           string `json:"type"`
	RelatedJobID   string `json:"related_job_id,omitempty"`
}

// PushPublisher hands notifications to the push delivery worker over AMQP.
// Delivery to devices happens downstream of the queue.
type PushPublisher struct {
	url   string
	queue string
	log   zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPushPublisher(url, queue string, log zerolog.Logger) *PushPublisher {
	return &PushPublisher{
		url:   url,
		queue: queue,
		log:   log.With().Str("component", "push_publisher").Logger(),
	}
}

// connect must be called with p.mu held.
func (p *PushPublisher) connect() error {
	if p.ch != nil {
		return nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("connect to amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue %s: %w", p.queue, err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

// reset must be called with p.mu held.
func (p *PushPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch = nil
	p.conn = nil
}

func (p *PushPublisher) Publish(ctx context.Context, n *model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := pushMessage{
		NotificationID: n.ID.String(),
		UserID:         n.UserID.String(),
		Title:          n.Title,
		Message:        n.Message,
		Type:           string(n.Type),
	}
	if n.RelatedJobID != nil {
		msg.RelatedJobID = n.RelatedJobID.String()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return err
	}

	err = p.ch.Publish(
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    n.ID.String(),
		})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish push notification: %w", err)
	}
	return nil
}

func (p *PushPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
