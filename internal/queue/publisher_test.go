package queue

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	closed    bool
	failNext  error
	published []string
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, _ amqp.Publishing) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.published = append(f.published, key)
	return nil
}

func (f *fakeChannel) IsClosed() bool { return f.closed }

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fakeBroker hands out fresh channels and can be switched off.
type fakeBroker struct {
	down     bool
	dials    int
	channels []*fakeChannel
}

func (b *fakeBroker) dial(string, string) (channel, io.Closer, error) {
	b.dials++
	if b.down {
		return nil, nil, errors.New("connection refused")
	}
	ch := &fakeChannel{}
	b.channels = append(b.channels, ch)
	return ch, nopCloser{}, nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestPublisher(b *fakeBroker, clk *fakeClock) *Publisher {
	return newPublisher("amqp://test", "parish.bookings", b.dial, clk.now)
}

func TestPublishRedialsAfterChannelClosed(t *testing.T) {
	b := &fakeBroker{}
	clk := &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	p := newTestPublisher(b, clk)
	ctx := context.Background()

	if err := p.Publish(ctx, BookingEvent{Type: EventSubmitted}); err != nil {
		t.Fatal(err)
	}
	b.channels[0].closed = true // broker restarted

	if err := p.Publish(ctx, BookingEvent{Type: EventConfirmed}); err != nil {
		t.Fatalf("publish after broker restart: %v", err)
	}
	if b.dials != 2 {
		t.Errorf("dials = %d, want 2", b.dials)
	}
	if got := b.channels[1].published; len(got) != 1 || got[0] != EventConfirmed {
		t.Errorf("second channel published %v", got)
	}
}

func TestPublishRetriesOnceOnErrClosed(t *testing.T) {
	b := &fakeBroker{}
	clk := &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	p := newTestPublisher(b, clk)
	ctx := context.Background()

	if err := p.Publish(ctx, BookingEvent{Type: EventSubmitted}); err != nil {
		t.Fatal(err)
	}
	// the channel still reports open but the first publish finds it closed
	b.channels[0].failNext = amqp.ErrClosed

	if err := p.Publish(ctx, BookingEvent{Type: EventDeclined}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(b.channels) != 2 || !b.channels[0].closed {
		t.Fatalf("expected the dead channel to be replaced, dials = %d", b.dials)
	}
	if got := b.channels[1].published; len(got) != 1 || got[0] != EventDeclined {
		t.Errorf("retry published %v", got)
	}
}

func TestPublishBacksOffWhileBrokerDown(t *testing.T) {
	b := &fakeBroker{}
	clk := &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	p := newTestPublisher(b, clk)
	ctx := context.Background()

	if err := p.Publish(ctx, BookingEvent{Type: EventSubmitted}); err != nil {
		t.Fatal(err)
	}
	b.channels[0].closed = true
	b.down = true

	if err := p.Publish(ctx, BookingEvent{Type: EventConfirmed}); err == nil || errors.Is(err, ErrReconnectBackoff) {
		t.Fatalf("first publish with broker down = %v, want dial error", err)
	}
	if err := p.Publish(ctx, BookingEvent{Type: EventConfirmed}); !errors.Is(err, ErrReconnectBackoff) {
		t.Fatalf("publish inside backoff = %v, want ErrReconnectBackoff", err)
	}
	if b.dials != 2 {
		t.Fatalf("dials = %d, want 2 (no dial inside the backoff window)", b.dials)
	}

	// second failure doubles the wait
	clk.t = clk.t.Add(time.Second)
	if err := p.Publish(ctx, BookingEvent{Type: EventConfirmed}); err == nil {
		t.Fatal("expected dial error")
	}
	clk.t = clk.t.Add(time.Second)
	if err := p.Publish(ctx, BookingEvent{Type: EventConfirmed}); !errors.Is(err, ErrReconnectBackoff) {
		t.Fatalf("publish 1s into a 2s backoff = %v", err)
	}

	b.down = false
	clk.t = clk.t.Add(time.Second)
	if err := p.Publish(ctx, BookingEvent{Type: EventConfirmed}); err != nil {
		t.Fatalf("publish after broker recovered: %v", err)
	}
	if b.dials != 4 {
		t.Errorf("dials = %d, want 4", b.dials)
	}
	if p.backoff != 0 {
		t.Errorf("backoff not reset after reconnect: %s", p.backoff)
	}
}
