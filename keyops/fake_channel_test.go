package keyops

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakePublish struct {
	Exchange string
	Key      string
	Msg      amqp.Publishing
}

// fakeChannel stands in for a broker channel. Published messages are
// recorded; route, if set, may feed them back into queues or consumers.
type fakeChannel struct {
	mu         sync.Mutex
	published  []fakePublish
	nack       bool
	publishErr error
	getErr     error
	consumeErr error
	delay      time.Duration
	queues     map[string][]amqp.Delivery
	deliveries chan amqp.Delivery
	acked      []uint64
	cancelled  []string
	closed     bool
	nextTag    uint64
	route      func(fc *fakeChannel, exchange, key string, msg amqp.Publishing)

	calls       atomic.Int32
	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		queues:     map[string][]amqp.Delivery{},
		deliveries: make(chan amqp.Delivery, 16),
	}
}

func (fc *fakeChannel) enter() func() {
	fc.calls.Add(1)
	n := fc.inflight.Add(1)
	for {
		cur := fc.maxInflight.Load()
		if n <= cur || fc.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}
	return func() { fc.inflight.Add(-1) }
}

func (fc *fakeChannel) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (bool, error) {
	defer fc.enter()()
	if fc.delay > 0 {
		time.Sleep(fc.delay)
	}

	fc.mu.Lock()
	if fc.publishErr != nil {
		fc.mu.Unlock()
		return false, fc.publishErr
	}
	fc.published = append(fc.published, fakePublish{Exchange: exchange, Key: key, Msg: msg})
	nack := fc.nack
	route := fc.route
	fc.mu.Unlock()

	if route != nil {
		route(fc, exchange, key, msg)
	}
	return !nack, nil
}

// enqueue puts body on queue for Get.
func (fc *fakeChannel) enqueue(queue, body string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.nextTag++
	fc.queues[queue] = append(fc.queues[queue], amqp.Delivery{DeliveryTag: fc.nextTag, Body: []byte(body)})
}

// deliver pushes body to the active consumer.
func (fc *fakeChannel) deliver(body string) {
	fc.mu.Lock()
	fc.nextTag++
	d := amqp.Delivery{DeliveryTag: fc.nextTag, Body: []byte(body)}
	fc.mu.Unlock()
	fc.deliveries <- d
}

func (fc *fakeChannel) Get(queue string) (amqp.Delivery, bool, error) {
	defer fc.enter()()
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.getErr != nil {
		return amqp.Delivery{}, false, fc.getErr
	}
	q := fc.queues[queue]
	if len(q) == 0 {
		return amqp.Delivery{}, false, nil
	}
	fc.queues[queue] = q[1:]
	return q[0], true, nil
}

func (fc *fakeChannel) Consume(queue, tag string) (<-chan amqp.Delivery, error) {
	defer fc.enter()()
	if fc.consumeErr != nil {
		return nil, fc.consumeErr
	}
	return fc.deliveries, nil
}

func (fc *fakeChannel) Ack(tag uint64) error {
	defer fc.enter()()
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.acked = append(fc.acked, tag)
	return nil
}

func (fc *fakeChannel) Cancel(tag string) error {
	defer fc.enter()()
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.cancelled = append(fc.cancelled, tag)
	return nil
}

func (fc *fakeChannel) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.closed = true
	return nil
}

func (fc *fakeChannel) bodies() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	var out []string
	for _, p := range fc.published {
		out = append(out, string(p.Msg.Body))
	}
	return out
}

func (fc *fakeChannel) ackedTags() []uint64 {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]uint64(nil), fc.acked...)
}
