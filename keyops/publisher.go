/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"context"
	"fmt"
	"log"
)

// Publisher sends key management commands to the node-local work queue.
// The queue is local on purpose: PKCS #11 replication takes care of the
// keys, and zone files travel by rsync, so nothing else needs distributing.
type Publisher struct {
	Session    *Session
	Exchange   string
	RoutingKey string
	Logger     *log.Logger
}

func NewPublisher(s *Session, exchange, routingkey string) *Publisher {
	return &Publisher{
		Session:    s,
		Exchange:   exchange,
		RoutingKey: routingkey,
		Logger:     log.Default(),
	}
}

// ManageZone adds zone to keyed management.
func (p *Publisher) ManageZone(ctx context.Context, zone string) PublishStatus {
	return p.send(ctx, KeyCommand{Verb: VerbAddKey, Zone: zone})
}

// UnmanageZone removes zone from keyed management.
func (p *Publisher) UnmanageZone(ctx context.Context, zone string) PublishStatus {
	return p.send(ctx, KeyCommand{Verb: VerbDelKey, Zone: zone})
}

func (p *Publisher) send(ctx context.Context, kc KeyCommand) PublishStatus {
	lg := p.Logger
	if lg == nil {
		lg = log.Default()
	}

	verb := KeyVerbToString[kc.Verb]
	body := kc.String()
	if Globals.Debug {
		lg.Printf("Publisher: sending to exchange %q routing key %q body %q", p.Exchange, p.RoutingKey, body)
	}

	acked, err := p.Session.Publish(ctx, p.Exchange, p.RoutingKey, body)
	status := publishOutcome(lg, acked, err, fmt.Sprintf("zone %s during %s", kc.Zone, verb))
	if Globals.Debug {
		lg.Printf("Publisher: send success is %t (%s)", status == PublishOK, status)
	}

	PublishTotal.WithLabelValues(verb, status.String()).Inc()
	return status
}
