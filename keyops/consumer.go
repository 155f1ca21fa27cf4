/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

// ClusterConsumer processes flag updates from the other cluster nodes. At
// startup it drains whatever accumulated in the cluster queue while this
// node was down, then listens for new updates until its context is done.
type ClusterConsumer struct {
	Session    *Session
	Queue      string
	Tag        string
	Enabled    bool
	Reconciler *Reconciler
	Logger     *log.Logger
	state      atomic.Uint32
}

func NewClusterConsumer(s *Session, queue string, r *Reconciler) *ClusterConsumer {
	return &ClusterConsumer{
		Session:    s,
		Queue:      queue,
		Tag:        DefaultConsumerTag,
		Enabled:    queue != "",
		Reconciler: r,
		Logger:     log.Default(),
	}
}

func (cc *ClusterConsumer) State() ConsumerState {
	return ConsumerState(cc.state.Load())
}

func (cc *ClusterConsumer) setState(s ConsumerState) {
	cc.state.Store(uint32(s))
}

func (cc *ClusterConsumer) logger() *log.Logger {
	if cc.Logger == nil {
		return log.Default()
	}
	return cc.Logger
}

// Start runs the catch-up synchronously and then hands the listener to g.
// Without clustering the consumer goes straight to inactive.
func (cc *ClusterConsumer) Start(ctx context.Context, g *errgroup.Group) error {
	if !cc.Enabled {
		cc.setState(ConsumerInactive)
		log.Printf("ClusterConsumer: clustering not configured, not consuming cluster updates")
		return nil
	}

	n, err := cc.CatchUp(ctx)
	if err != nil {
		cc.setState(ConsumerStopped)
		return fmt.Errorf("catching up on cluster queue %q: %w", cc.Queue, err)
	}
	log.Printf("ClusterConsumer: caught up on queue %q, %d pending messages processed", cc.Queue, n)

	deliveries, err := cc.Session.Consume(cc.Queue, cc.Tag)
	if err != nil {
		cc.setState(ConsumerStopped)
		return fmt.Errorf("consuming from cluster queue %q: %w", cc.Queue, err)
	}
	cc.setState(ConsumerListening)

	g.Go(func() error {
		return cc.listen(ctx, deliveries)
	})
	return nil
}

// CatchUp fetches messages one by one without blocking until the queue is
// empty, and returns how many it processed.
func (cc *ClusterConsumer) CatchUp(ctx context.Context) (int, error) {
	cc.setState(ConsumerCatchingUp)

	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		d, ok, err := cc.Session.Get(cc.Queue)
		if err != nil {
			return n, err
		}
		if !ok {
			CatchupMessages.Set(float64(n))
			return n, nil
		}
		cc.handle(d)
		n++
	}
}

// Listen subscribes to the cluster queue and blocks until ctx is done or
// the broker closes the delivery channel.
func (cc *ClusterConsumer) Listen(ctx context.Context) error {
	deliveries, err := cc.Session.Consume(cc.Queue, cc.Tag)
	if err != nil {
		return err
	}
	cc.setState(ConsumerListening)
	return cc.listen(ctx, deliveries)
}

func (cc *ClusterConsumer) listen(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	defer cc.setState(ConsumerStopped)

	log.Printf("*** ClusterConsumer: listening on queue %q", cc.Queue)
	for {
		select {
		case <-ctx.Done():
			if err := cc.Session.Cancel(cc.Tag); err != nil {
				cc.logger().Printf("ClusterConsumer: error cancelling consumer %q: %v", cc.Tag, err)
			}
			log.Println("ClusterConsumer: terminating due to context cancelled")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for cluster queue %q closed", cc.Queue)
			}
			cc.handle(d)
		}
	}
}

// handle acks every message once it has been reconciled, also the ones the
// reconciler rejected; those are dropped, not redelivered.
func (cc *ClusterConsumer) handle(d amqp.Delivery) {
	cc.Reconciler.Apply(string(d.Body))
	if err := cc.Session.Ack(d.DeliveryTag); err != nil {
		cc.logger().Printf("Error: ClusterConsumer: ack of delivery %d failed: %v", d.DeliveryTag, err)
	}
}
