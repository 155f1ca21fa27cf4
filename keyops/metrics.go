/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keyops_publish_total",
		Help: "Messages published to the broker, by verb and outcome",
	}, []string{"verb", "status"})

	ClusterMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keyops_cluster_messages_total",
		Help: "Cluster messages processed, by reconciliation result",
	}, []string{"result"})

	CatchupMessages = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "keyops_cluster_catchup_messages",
		Help: "Cluster messages drained from the backlog at startup",
	})
)

// RegisterMetrics registers the keyops collectors on reg (or the default
// registerer if nil). Registering twice is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{PublishTotal, ClusterMessagesTotal, CatchupMessages} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
