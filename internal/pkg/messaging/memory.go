package messaging

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// MemoryMaxAttempts bounds redelivery of a nacked in-process event.
const MemoryMaxAttempts = 5

// Memory is an in-process broker. Each plain subscriber gets its own copy of
// an event; a queue group gets one copy, handed to its members in turn. A
// nacked event goes back to the same subscriber until MemoryMaxAttempts.
type Memory struct {
	mu     sync.Mutex
	topics map[string]*memoryTopic
	closed bool
	done   chan struct{}
}

type memoryTopic struct {
	plain  []*memorySub
	groups map[string]*memoryGroup
}

type memoryGroup struct {
	members []*memorySub
	next    int
}

type memorySub struct {
	queue string
	in    chan *memoryDelivery
}

func NewMemory() *Memory {
	return &Memory{topics: make(map[string]*memoryTopic), done: make(chan struct{})}
}

func (m *Memory) Publish(ctx context.Context, subject string, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if subject == "" {
		return ErrSubjectRequired
	}

	targets, err := m.route(subject)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, sub := range targets {
		d := &memoryDelivery{
			sub:     sub,
			subject: subject,
			body:    append([]byte(nil), env.Body...),
			headers: maps.Clone(env.Headers),
			at:      now,
			attempt: 1,
		}
		select {
		case sub.in <- d:
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		}
	}
	return nil
}

// route picks the receivers of one event on subject.
func (m *Memory) route(subject string) ([]*memorySub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	t := m.topics[subject]
	if t == nil {
		return nil, nil
	}

	out := append([]*memorySub(nil), t.plain...)
	for _, g := range t.groups {
		out = append(out, g.members[g.next%len(g.members)])
		g.next++
	}
	return out, nil
}

func (m *Memory) Consume(ctx context.Context, subject string, h Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if subject == "" {
		return ErrSubjectRequired
	}
	if h == nil {
		return ErrHandlerRequired
	}

	cfg := buildConsumeConfig(opts)
	sub := &memorySub{queue: cfg.queue, in: make(chan *memoryDelivery, 64)}
	if err := m.join(subject, sub); err != nil {
		return err
	}
	defer m.leave(subject, sub)

	var wg sync.WaitGroup
	for range cfg.workers {
		wg.Go(func() {
			for {
				select {
				case d := <-sub.in:
					deliver(ctx, DriverMemory, d, h, cfg.autoAck)
				case <-ctx.Done():
					return
				case <-m.done:
					return
				}
			}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrClosed
}

func (m *Memory) join(subject string, sub *memorySub) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	t := m.topics[subject]
	if t == nil {
		t = &memoryTopic{groups: make(map[string]*memoryGroup)}
		m.topics[subject] = t
	}
	if sub.queue == "" {
		t.plain = append(t.plain, sub)
		return nil
	}
	g := t.groups[sub.queue]
	if g == nil {
		g = &memoryGroup{}
		t.groups[sub.queue] = g
	}
	g.members = append(g.members, sub)
	return nil
}

func (m *Memory) leave(subject string, sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.topics[subject]
	if t == nil {
		return
	}
	drop := func(list []*memorySub) []*memorySub {
		out := list[:0:0]
		for _, s := range list {
			if s != sub {
				out = append(out, s)
			}
		}
		return out
	}
	if sub.queue == "" {
		t.plain = drop(t.plain)
		return
	}
	if g := t.groups[sub.queue]; g != nil {
		if g.members = drop(g.members); len(g.members) == 0 {
			delete(t.groups, sub.queue)
		}
	}
}

// Close stops every consumer. Events not yet handled are dropped.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

type memoryDelivery struct {
	sub     *memorySub
	subject string
	body    []byte
	headers Headers
	at      time.Time
	attempt int
}

func (d *memoryDelivery) Subject() string       { return d.subject }
func (d *memoryDelivery) Body() []byte          { return d.body }
func (d *memoryDelivery) Headers() Headers      { return d.headers }
func (d *memoryDelivery) ReceivedAt() time.Time { return d.at }

func (d *memoryDelivery) Ack(ctx context.Context) error { return ctx.Err() }

// Nack queues the event for another attempt on the same subscriber. The
// requeue runs in its own goroutine so a worker never blocks on its own
// inbox.
func (d *memoryDelivery) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.attempt >= MemoryMaxAttempts {
		slog.WarnContext(ctx, "dropping event after max attempts", "subject", d.subject, "attempts", d.attempt)
		return nil
	}

	next := *d
	next.attempt++
	next.at = time.Now()
	go func() {
		select {
		case d.sub.in <- &next:
		case <-ctx.Done():
		}
	}()
	return nil
}
