/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	Service   ServiceConf
	Log       LogConf
	Broker    BrokerConf
	KeyOps    KeyOpsConf    `mapstructure:"keyops"`
	ApiServer ApiServerConf `mapstructure:"apiserver"`
	Internal  InternalConf  `mapstructure:"-"`
}

type ServiceConf struct {
	Name    string `validate:"required"`
	Debug   *bool
	Verbose *bool
}

type LogConf struct {
	File string `validate:"required"`
}

type BrokerConf struct {
	Host        string `validate:"required"`
	Port        int    `validate:"required,min=1,max=65535"`
	Vhost       string
	Password    string
	TLS         bool   `mapstructure:"tls"`
	CaFile      string `mapstructure:"cafile"`
	CertFile    string `mapstructure:"certfile"`
	KeyFile     string `mapstructure:"keyfile" validate:"required_with=CertFile"`
	Heartbeat   time.Duration
	Exchange    string
	QueuePrefix string `mapstructure:"queue_prefix"`
}

type KeyOpsConf struct {
	Username         string `validate:"required"`
	RoutingKey       string `mapstructure:"routing_key" validate:"required"`
	ClusterKey       string `mapstructure:"cluster_key"` // "" means no clustering
	ClusterQueue     string `mapstructure:"cluster_queue"`
	RpcDir           string `mapstructure:"rpc_dir" validate:"required"`
	LegacyClearCheck bool   `mapstructure:"legacy_clear_check"`
}

type ApiServerConf struct {
	Address string
	ApiKey  string `mapstructure:"apikey" validate:"required_with=Address"`
}

type InternalConf struct {
	CfgFile   string
	Session   *Session
	KeyOps    *KeyOps
	Registry  *prometheus.Registry
	APIStopCh chan struct{}
}

func (bc *BrokerConf) Address() string {
	return net.JoinHostPort(bc.Host, strconv.Itoa(bc.Port))
}

func (kc *KeyOpsConf) Clustered() bool {
	return kc.ClusterKey != ""
}

// ClusterQueueName returns the queue this node consumes cluster updates from.
// Unless configured explicitly it is derived from the cluster key.
func (conf *Config) ClusterQueueName() string {
	if conf.KeyOps.ClusterQueue != "" {
		return conf.KeyOps.ClusterQueue
	}
	if !conf.KeyOps.Clustered() {
		return ""
	}
	return conf.Broker.QueuePrefix + conf.KeyOps.ClusterKey
}

func ValidateConfig(conf *Config, cfgfile string) error {
	var configsections = make(map[string]interface{}, 5)

	configsections["service"] = conf.Service
	configsections["log"] = conf.Log
	configsections["broker"] = conf.Broker
	configsections["keyops"] = conf.KeyOps
	configsections["apiserver"] = conf.ApiServer

	return ValidateBySection(conf, configsections, cfgfile)
}

func ValidateBySection(config *Config, configsections map[string]interface{}, cfgfile string) error {
	validate := validator.New()

	for k, data := range configsections {
		if Globals.Debug {
			log.Printf("%s: Validating config for %s section\n", strings.ToUpper(config.Service.Name), k)
		}
		if err := validate.Struct(data); err != nil {
			return fmt.Errorf("config %s, section %s: missing required attributes:\n%v", cfgfile, k, err)
		}
	}
	return nil
}
