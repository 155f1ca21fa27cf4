/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// configKeys lists every key of Config. Keys are bound to their KEYOPS_*
// environment variable explicitly, as Unmarshal only sees environment
// values for keys viper already knows about.
var configKeys = []string{
	"service.name", "service.debug", "service.verbose",
	"log.file",
	"broker.host", "broker.port", "broker.vhost", "broker.password",
	"broker.tls", "broker.cafile", "broker.certfile", "broker.keyfile",
	"broker.heartbeat", "broker.exchange", "broker.queue_prefix",
	"keyops.username", "keyops.routing_key", "keyops.cluster_key",
	"keyops.cluster_queue", "keyops.rpc_dir", "keyops.legacy_clear_check",
	"apiserver.address", "apiserver.apikey",
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "keyopsd")
	v.SetDefault("broker.host", "localhost")
	v.SetDefault("broker.port", DefaultBrokerPort)
	v.SetDefault("broker.vhost", "/")
	v.SetDefault("broker.heartbeat", DefaultHeartbeat)
	v.SetDefault("broker.exchange", DefaultExchange)
	v.SetDefault("keyops.routing_key", DefaultRoutingKey)
	v.SetDefault("keyops.cluster_key", "")
	v.SetDefault("keyops.rpc_dir", DefaultRpcDir)
}

func ParseConfig(conf *Config) error {
	if Globals.Debug {
		log.Printf("Enter ParseConfig")
	}
	cfgfile := conf.Internal.CfgFile
	if cfgfile == "" {
		cfgfile = DefaultCfgFile
	}

	err := LoadConfig(viper.GetViper(), conf, cfgfile)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())

	Globals.App.ServerConfigTime = time.Now()
	if conf.KeyOps.Clustered() {
		log.Printf("*** ParseConfig: cluster key %q, consuming cluster updates from queue %q",
			conf.KeyOps.ClusterKey, conf.ClusterQueueName())
	} else {
		log.Printf("*** ParseConfig: no cluster key configured, running as a single node")
	}
	if conf.KeyOps.LegacyClearCheck {
		log.Printf("ParseConfig: legacy_clear_check set, CLEAR is checked against the mtime of %s", conf.KeyOps.RpcDir)
	}

	if Globals.Debug {
		log.Printf("ParseConfig: exit")
	}
	return nil
}

// LoadConfig reads cfgfile into v and unmarshals the result into conf.
// Environment variables KEYOPS_<SECTION>_<KEY> override the file.
func LoadConfig(v *viper.Viper, conf *Config, cfgfile string) error {
	SetDefaults(v)
	v.SetConfigFile(cfgfile)
	v.SetEnvPrefix("KEYOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("binding environment for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("could not load config %s: %w", cfgfile, err)
	}

	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(conf, viper.DecodeHook(hook)); err != nil {
		return fmt.Errorf("error unmarshalling config into struct: %w", err)
	}

	if conf.Service.Debug != nil && *conf.Service.Debug {
		Globals.Debug = true
	}
	if conf.Service.Verbose != nil && *conf.Service.Verbose {
		Globals.Verbose = true
	}

	return ValidateConfig(conf, cfgfile)
}
