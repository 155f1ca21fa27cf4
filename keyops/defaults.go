/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import "time"

const (
	DefaultCfgFile    = "/etc/keyops/keyops.yaml"
	DefaultCliCfgFile = "/etc/keyops/keyops-cli.yaml"

	// When used with RabbitDNSSEC, the routing key should always be "key_ops".
	DefaultRoutingKey  = "key_ops"
	DefaultRpcDir      = "/var/opendnssec/rpc"
	DefaultExchange    = "dnssec"
	DefaultBrokerPort  = 5672
	DefaultHeartbeat   = 10 * time.Second
	DefaultConsumerTag = "keyops-cluster"
)
