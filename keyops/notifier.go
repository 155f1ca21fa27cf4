/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ClusterNotifier tells the other nodes of a cluster, if any, about a new
// flag state.
type ClusterNotifier struct {
	Session    *Session
	Exchange   string
	ClusterKey string
	Now        func() time.Time
	Logger     *log.Logger
}

func NewClusterNotifier(s *Session, exchange, clusterkey string) *ClusterNotifier {
	return &ClusterNotifier{
		Session:    s,
		Exchange:   exchange,
		ClusterKey: clusterkey,
		Now:        time.Now,
		Logger:     log.Default(),
	}
}

func (cn *ClusterNotifier) Enabled() bool {
	return cn.ClusterKey != ""
}

// ClusterUpdate broadcasts SET (value non-nil) or CLEAR (value nil) for
// flag. Without a cluster key it does nothing and reports success. A flag
// name that peers could not parse back is refused.
func (cn *ClusterNotifier) ClusterUpdate(ctx context.Context, flag string, value *string) bool {
	if !cn.Enabled() {
		return true
	}

	lg := cn.Logger
	if lg == nil {
		lg = log.Default()
	}
	if err := ValidFlagName(flag); err != nil {
		lg.Printf("Error: ClusterNotifier: not sending update: %v", err)
		return false
	}
	now := time.Now
	if cn.Now != nil {
		now = cn.Now
	}

	var cm ClusterMessage
	if value != nil {
		cm = NewSetMessage(now().Unix(), flag, *value)
	} else {
		cm = NewClearMessage(now().Unix(), flag)
	}
	verb := ClusterVerbToString[cm.Verb]
	body := cm.String()

	if Globals.Debug {
		lg.Printf("ClusterNotifier: sending to exchange %q cluster key %q body %q", cn.Exchange, cn.ClusterKey, body)
	}

	acked, err := cn.Session.Publish(ctx, cn.Exchange, cn.ClusterKey, body)
	status := publishOutcome(lg, acked, err, fmt.Sprintf("flag %s during %s", flag, verb))
	if Globals.Debug {
		lg.Printf("ClusterNotifier: send success is %t (%s)", status == PublishOK, status)
	}

	PublishTotal.WithLabelValues(verb, status.String()).Inc()
	return status == PublishOK
}
