// Package amqp carries ledger changes over a RabbitMQ exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"budgetbook/internal/core"

	"github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	dialTimeout    = 2 * time.Second
	heartbeat      = 10 * time.Second
	baseBackoff    = time.Second
	maxBackoff     = 30 * time.Second

	// pending changes waiting for the broker
	queueSize = 256
)

var (
	// ErrUnavailable is returned while the publisher waits before redialing.
	ErrUnavailable = errors.New("amqp connection unavailable")
	// ErrQueueFull is returned when Publish would have to wait for the broker.
	ErrQueueFull = errors.New("amqp publish queue full")
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("amqp client closed")
)

// Client publishes LedgerChangeMessages. Publish only enqueues; one
// background goroutine delivers the queue in order. It dials lazily and
// redials after a connection error, spacing attempts with exponential
// backoff, and fails fast with ErrUnavailable until the next attempt is due.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	dial func(url string) (*amqp091.Connection, error)
	now  func() time.Time

	queue     chan core.ChangeEvent
	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}

	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	failures int
	nextDial time.Time
}

func NewClient(url, exchangeName, queueName string) *Client {
	return &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		dial:         dialWithTimeout,
		now:          time.Now,
		queue:        make(chan core.ChangeEvent, queueSize),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

// dialWithTimeout bounds the TCP connect, which amqp091.Dial leaves at 30s.
func dialWithTimeout(url string) (*amqp091.Connection, error) {
	return amqp091.DialConfig(url, amqp091.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(dialTimeout),
	})
}

// Connect dials the broker and declares the exchange and queue.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	conn, err := c.dial(c.url)
	if err != nil {
		c.scheduleRedialLocked()
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		c.scheduleRedialLocked()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		c.scheduleRedialLocked()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	c.failures = 0
	c.nextDial = time.Time{}
	slog.InfoContext(ctx, "Connected to AMQP broker",
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name for a direct exchange
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish implements ledger.Notifier. It never waits on the broker: the event
// is queued for the delivery goroutine, or ErrQueueFull is returned.
func (c *Client) Publish(ctx context.Context, ev core.ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.startOnce.Do(func() { go c.run() })
	select {
	case c.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// run delivers queued events until Close, then flushes what is left.
func (c *Client) run() {
	defer close(c.stopped)
	for {
		select {
		case <-c.done:
			for {
				select {
				case ev := <-c.queue:
					c.deliver(ev)
				default:
					return
				}
			}
		case ev := <-c.queue:
			c.deliver(ev)
		}
	}
}

func (c *Client) deliver(ev core.ChangeEvent) {
	if err := c.send(context.Background(), ev); err != nil {
		slog.Warn("Ledger change not published",
			"type", ev.Type,
			"expense_id", ev.Expense.ID,
			"error", err)
	}
}

// send publishes one event, dialing first if needed.
func (c *Client) send(ctx context.Context, ev core.ChangeEvent) error {
	body, err := NewLedgerChangeMessage(ev).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil || c.conn == nil || c.conn.IsClosed() {
		c.dropLocked()
		if c.now().Before(c.nextDial) {
			return fmt.Errorf("%w: next attempt in %s", ErrUnavailable, c.nextDial.Sub(c.now()).Round(time.Millisecond))
		}
		if err := c.connectLocked(ctx); err != nil {
			return err
		}
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		pubCtx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    c.now(),
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			// Redial on the next publish.
			c.dropLocked()
		}
		return fmt.Errorf("publish message: %w", err)
	}

	slog.DebugContext(ctx, "Published ledger change",
		"type", ev.Type,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// Consume delivers ledger change messages to handler until ctx is done.
// Undecodable bodies are rejected without requeue; handler errors requeue.
func (c *Client) Consume(ctx context.Context, handler func(context.Context, *LedgerChangeMessage) error) error {
	c.mu.Lock()
	if c.channel == nil || c.conn == nil || c.conn.IsClosed() {
		c.dropLocked()
		if err := c.connectLocked(ctx); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	ch := c.channel
	c.mu.Unlock()

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming ledger changes", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}

			msg, err := LedgerChangeMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"type", msg.Type,
					"expense_id", msg.ExpenseID)
				_ = delivery.Nack(false, true)
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}

func (c *Client) scheduleRedialLocked() {
	c.nextDial = c.now().Add(exponentialBackoff(c.failures))
	c.failures++
}

func (c *Client) dropLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close stops the delivery goroutine after it flushes the queue, then closes
// the connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	// Without a running goroutine there is nothing to wait for.
	c.startOnce.Do(func() { close(c.stopped) })
	<-c.stopped

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := baseBackoff << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
