// Package queue hands work items to a durable RabbitMQ queue. Delivery is
// at-least-once with no ordering guarantee across workers; handlers must be
// idempotent.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"wardrobe/internal/infra"
)

const queueName = "wardrobe_tasks"

// Task kinds understood by the worker.
const (
	KindProcessAIJob = "process_ai_job"
	KindIndexProduct = "index_product"
)

// Task is the wire format of one work item.
type Task struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Dispatcher enqueues tasks for asynchronous execution.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) (string, error)
}

// Client is a RabbitMQ-backed dispatcher and consumer over one durable queue.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  infra.Logger
}

// NewClient dials RabbitMQ and declares the durable task queue.
func NewClient(url string, logger infra.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("queue: connect: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue: declare %s: %w", queueName, err)
	}
	logger.Info().Str("queue", queueName).Msg("queue: declared")
	return &Client{conn: conn, channel: ch, logger: logger}, nil
}

// Dispatch publishes the task as a persistent message and returns the
// dispatch id assigned to this attempt.
func (c *Client) Dispatch(ctx context.Context, task Task) (string, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("queue: encode task: %w", err)
	}
	dispatchID := uuid.NewString()
	err = c.channel.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    dispatchID,
		Body:         body,
	})
	if err != nil {
		return "", fmt.Errorf("queue: publish: %w", err)
	}
	c.logger.Debug().
		Str("dispatch_id", dispatchID).
		Str("kind", task.Kind).
		Str("task_id", task.ID).
		Msg("queue: dispatched")
	return dispatchID, nil
}

// Consume pulls tasks and feeds them to handler from a pool of concurrency
// goroutines. Acks are manual: a handler error nacks the delivery back onto
// the queue (at-least-once), a malformed body is dropped. Each worker runs one
// task to completion before taking the next.
func (c *Client) Consume(ctx context.Context, concurrency int, handler func(context.Context, Task) error) error {
	if concurrency < 1 {
		concurrency = 1
	}
	if err := c.channel.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("queue: set qos: %w", err)
	}
	deliveries, err := c.channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue: consume: %w", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					c.handleDelivery(ctx, d, handler)
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (c *Client) handleDelivery(ctx context.Context, d amqp.Delivery, handler func(context.Context, Task) error) {
	var task Task
	if err := json.Unmarshal(d.Body, &task); err != nil {
		c.logger.Error().Err(err).Str("message_id", d.MessageId).Msg("queue: dropping malformed task")
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, task); err != nil {
		c.logger.Error().Err(err).
			Str("kind", task.Kind).
			Str("task_id", task.ID).
			Bool("redelivered", d.Redelivered).
			Msg("queue: task failed, requeueing")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// Close releases the channel and connection.
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("queue: close channel")
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
