/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/gookit/goutil/dump"
	"github.com/spf13/cobra"

	"github.com/johanix/keyops/keyops"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Propagate RPC flag changes to the other cluster nodes",
}

var clusterSetCmd = &cobra.Command{
	Use:   "set <flag> <value>",
	Short: "Broadcast SET of a flag to the cluster",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if !SendClusterCommand("set", args[0], args[1]) {
			os.Exit(1)
		}
	},
}

var clusterClearCmd = &cobra.Command{
	Use:   "clear <flag>",
	Short: "Broadcast CLEAR of a flag to the cluster",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !SendClusterCommand("clear", args[0], "") {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterCmd.AddCommand(clusterSetCmd, clusterClearCmd)
}

func SendClusterCommand(command, flag, value string) bool {
	if err := keyops.ValidFlagName(flag); err != nil {
		log.Printf("Error: %v", err)
		return false
	}

	var cr keyops.ClusterResponse
	_, err := keyops.Globals.Api.RequestNG("/cluster", keyops.ClusterPost{
		Command: command,
		Flag:    flag,
		Value:   value,
	}, &cr)
	if err != nil {
		log.Printf("Error from keyopsd: %v", err)
		return false
	}
	if keyops.Globals.Debug {
		dump.P(cr)
	}

	if cr.Error {
		fmt.Printf("Error: %s\n", cr.ErrorMsg)
		return false
	}
	fmt.Println(cr.Msg)
	return true
}
