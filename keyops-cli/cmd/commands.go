/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/johanix/keyops/keyops"
)

var pings int

var PingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send an API ping request to keyopsd and present the response",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var pr keyops.PingResponse
		_, err := keyops.Globals.Api.RequestNG("/ping", keyops.PingPost{Msg: "Hello there!", Pings: pings}, &pr)
		if err != nil {
			if strings.Contains(err.Error(), "connection refused") {
				fmt.Printf("Error: connection refused. Most likely the daemon is not running\n")
				return
			}
			log.Fatalf("Error from keyopsd: %v", err)
		}
		uptime := pr.Time.Sub(pr.BootTime).Round(time.Second)
		if keyops.Globals.Verbose {
			fmt.Printf("%s (version %s): pings: %d, pongs: %d, uptime: %v, time: %s\n",
				pr.Msg, pr.Version, pr.Pings, pr.Pongs, uptime, pr.Time.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Printf("%s: pings: %d, pongs: %d\n", pr.Msg, pr.Pings, pr.Pongs)
		}
	},
}

var StopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Send stop command to keyopsd",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var cr keyops.CommandResponse
		_, err := keyops.Globals.Api.RequestNG("/command", keyops.CommandPost{Command: "stop"}, &cr)
		if err != nil {
			log.Fatalf("Error from keyopsd: %v", err)
		}
		if cr.Error {
			log.Fatalf("Error: %s", cr.ErrorMsg)
		}
		fmt.Println(cr.Msg)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show keyopsd configuration",
}

var configStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show broker naming, cluster settings and consumer state of keyopsd",
	Run: func(cmd *cobra.Command, args []string) {
		var cr keyops.ConfigResponse
		_, err := keyops.Globals.Api.RequestNG("/config", keyops.ConfigPost{Command: "status"}, &cr)
		if err != nil {
			log.Fatalf("Error from keyopsd: %v", err)
		}
		if cr.Error {
			log.Fatalf("Error: %s", cr.ErrorMsg)
		}
		out, err := configStatusYaml(cr)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		fmt.Print(out)
	},
}

type configStatus struct {
	Daemon        string `yaml:"daemon"`
	ConfigTime    string `yaml:"config_time,omitempty"`
	Exchange      string `yaml:"exchange"`
	RoutingKey    string `yaml:"routing_key"`
	ClusterKey    string `yaml:"cluster_key"`
	ClusterQueue  string `yaml:"cluster_queue,omitempty"`
	RpcDir        string `yaml:"rpc_dir"`
	LegacyClear   bool   `yaml:"legacy_clear_check"`
	ConsumerState string `yaml:"consumer_state"`
}

func configStatusYaml(cr keyops.ConfigResponse) (string, error) {
	cs := configStatus{
		Daemon:        cr.AppName,
		Exchange:      cr.Exchange,
		RoutingKey:    cr.RoutingKey,
		ClusterKey:    cr.ClusterKey,
		ClusterQueue:  cr.ClusterQueue,
		RpcDir:        cr.RpcDir,
		LegacyClear:   cr.LegacyClear,
		ConsumerState: cr.ConsumerState,
	}
	if !cr.ConfigTime.IsZero() {
		cs.ConfigTime = cr.ConfigTime.Format("2006-01-02 15:04:05")
	}
	out, err := yaml.Marshal(cs)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func init() {
	rootCmd.AddCommand(PingCmd, StopCmd, configCmd)
	configCmd.AddCommand(configStatusCmd)

	PingCmd.Flags().IntVarP(&pings, "count", "c", 0, "#pings to send")
}
