/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// KeyOps ties the publisher, the cluster notifier and the cluster consumer
// to a single broker session. This is the API that the RPC handling code
// uses to add and remove zones.
type KeyOps struct {
	Session    *Session
	Publisher  *Publisher
	Notifier   *ClusterNotifier
	Consumer   *ClusterConsumer
	Reconciler *Reconciler
}

func NewKeyOps(conf *Config, s *Session) *KeyOps {
	r := NewReconciler(conf.KeyOps.RpcDir, conf.KeyOps.LegacyClearCheck)
	return &KeyOps{
		Session:    s,
		Publisher:  NewPublisher(s, conf.Broker.Exchange, conf.KeyOps.RoutingKey),
		Notifier:   NewClusterNotifier(s, conf.Broker.Exchange, conf.KeyOps.ClusterKey),
		Consumer:   NewClusterConsumer(s, conf.ClusterQueueName(), r),
		Reconciler: r,
	}
}

func (ko *KeyOps) ManageZone(ctx context.Context, zone string) PublishStatus {
	return ko.Publisher.ManageZone(ctx, zone)
}

func (ko *KeyOps) UnmanageZone(ctx context.Context, zone string) PublishStatus {
	return ko.Publisher.UnmanageZone(ctx, zone)
}

func (ko *KeyOps) ClusterUpdate(ctx context.Context, flag string, value *string) bool {
	return ko.Notifier.ClusterUpdate(ctx, flag, value)
}

func (ko *KeyOps) StartConsumer(ctx context.Context, g *errgroup.Group) error {
	return ko.Consumer.Start(ctx, g)
}
