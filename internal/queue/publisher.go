package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrReconnectBackoff is returned by Publish while the publisher waits before
// dialing the broker again.
var ErrReconnectBackoff = errors.New("rabbitmq reconnect backing off")

const maxReconnectBackoff = 30 * time.Second

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func(url, exchange string) (channel, io.Closer, error)

// Publisher sends BookingEvents to a durable topic exchange using the event
// type as routing key.  When the broker drops the connection the next
// Publish dials again; failed dials back off up to 30s.
type Publisher struct {
	url      string
	exchange string
	dial     dialFunc
	now      func() time.Time

	mu      sync.Mutex
	conn    io.Closer
	ch      channel
	backoff time.Duration
	retryAt time.Time
}

// NewPublisher dials url and declares exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	p := newPublisher(url, exchange, dialChannel, time.Now)
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func newPublisher(url, exchange string, dial dialFunc, now func() time.Time) *Publisher {
	return &Publisher{url: url, exchange: exchange, dial: dial, now: now}
}

func dialChannel(url, exchange string) (channel, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn, nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// connect makes sure an open channel is held.  Caller holds mu.
func (p *Publisher) connect() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.drop()
	now := p.now()
	if now.Before(p.retryAt) {
		return ErrReconnectBackoff
	}
	ch, conn, err := p.dial(p.url, p.exchange)
	if err != nil {
		switch {
		case p.backoff == 0:
			p.backoff = time.Second
		case p.backoff < maxReconnectBackoff:
			p.backoff *= 2
		}
		if p.backoff > maxReconnectBackoff {
			p.backoff = maxReconnectBackoff
		}
		p.retryAt = now.Add(p.backoff)
		return err
	}
	p.ch, p.conn = ch, conn
	p.backoff, p.retryAt = 0, time.Time{}
	return nil
}

// drop releases the current channel and connection.  Caller holds mu.
func (p *Publisher) drop() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Publish marshals ev and publishes it as a persistent message.  A publish
// that fails because the channel was closed is retried once on a fresh
// connection.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    p.now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for attempt := 0; ; attempt++ {
		if err := p.connect(); err != nil {
			return err
		}
		err := p.ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, msg)
		if err == nil {
			return nil
		}
		if attempt > 0 || !errors.Is(err, amqp.ErrClosed) {
			return fmt.Errorf("publish %s: %w", ev.Type, err)
		}
		p.drop()
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drop()
	p.retryAt = time.Time{}
	return nil
}
