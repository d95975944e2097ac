package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// redialDelay bounds how often a dead publisher tries to reach the broker.
const redialDelay = 5 * time.Second

var ErrPublisherClosed = errors.New("amqp publisher closed")

// AMQPPublisher sends events to a durable topic exchange, routed by type.
// A lost connection is redialed on the next Publish.
type AMQPPublisher struct {
	mu           sync.Mutex
	url          string
	exchangeName string
	logger       *slog.Logger
	dial         func(url string) (*amqp091.Connection, error)

	conn       *amqp091.Connection
	channel    *amqp091.Channel
	lastDial   time.Time
	lastErr    error
	closed     bool
}

func NewAMQPPublisher(url, exchangeName string, logger *slog.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		url:          url,
		exchangeName: exchangeName,
		logger:       logger,
		dial:         amqp091.Dial,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect dials, opens a channel and declares the exchange. Callers hold mu.
func (p *AMQPPublisher) connect() error {
	p.lastDial = time.Now()

	conn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		p.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	p.conn, p.channel = conn, channel
	go p.watch(conn.NotifyClose(make(chan *amqp091.Error, 1)))
	return nil
}

func (p *AMQPPublisher) watch(closed <-chan *amqp091.Error) {
	// nil means a clean Close.
	if err, ok := <-closed; ok && err != nil && p.logger != nil {
		p.logger.Warn("amqp connection lost, will redial on next publish", "error", err)
	}
}

// ready returns a usable channel, redialing at most once per redialDelay.
// Callers hold mu.
func (p *AMQPPublisher) ready() (*amqp091.Channel, error) {
	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.channel != nil && !p.channel.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.channel, nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn, p.channel = nil, nil
	}
	if !p.lastDial.IsZero() && time.Since(p.lastDial) < redialDelay {
		if p.lastErr != nil {
			return nil, fmt.Errorf("amqp unavailable: %w", p.lastErr)
		}
		return nil, errors.New("amqp unavailable: connection closed")
	}

	p.lastErr = p.connect()
	if p.lastErr != nil {
		return nil, fmt.Errorf("reconnect: %w", p.lastErr)
	}
	if p.logger != nil {
		p.logger.Info("amqp publisher reconnected", "exchange", p.exchangeName)
	}
	return p.channel, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp091 channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	channel, err := p.ready()
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	err = channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		string(e.Type), // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.At,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn, p.channel = nil, nil
		return err
	}
	return nil
}
