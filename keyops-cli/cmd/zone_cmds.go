/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/gookit/goutil/dump"
	"github.com/miekg/dns"
	"github.com/spf13/cobra"

	"github.com/johanix/keyops/keyops"
)

var zoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Add zones to or remove zones from keyed management",
}

var zoneManageCmd = &cobra.Command{
	Use:   "manage <zone>",
	Short: "Send ADDKEY for a zone to the key management queue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(SendZoneCommand("manage", args[0]))
	},
}

var zoneUnmanageCmd = &cobra.Command{
	Use:   "unmanage <zone>",
	Short: "Send DELKEY for a zone to the key management queue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(SendZoneCommand("unmanage", args[0]))
	},
}

func init() {
	rootCmd.AddCommand(zoneCmd)
	zoneCmd.AddCommand(zoneManageCmd, zoneUnmanageCmd)
}

// checkZoneName catches typos on the command line. keyopsd itself passes
// zone names through untouched.
func checkZoneName(zone string) error {
	if _, ok := dns.IsDomainName(zone); !ok || zone == "" {
		return fmt.Errorf("%q is not a valid domain name", zone)
	}
	return nil
}

// SendZoneCommand returns the exit code for the CLI: 0 if the broker
// accepted the command.
func SendZoneCommand(command, zone string) int {
	if err := checkZoneName(zone); err != nil {
		log.Printf("Error: %v", err)
		return 1
	}

	var zr keyops.ZoneResponse
	_, err := keyops.Globals.Api.RequestNG("/zone", keyops.ZonePost{
		Command: command,
		Zone:    zone,
	}, &zr)
	if err != nil {
		log.Printf("Error from keyopsd: %v", err)
		return 1
	}
	if keyops.Globals.Debug {
		dump.P(zr)
	}

	if zr.Error {
		fmt.Printf("Error: %s\n", zr.ErrorMsg)
		if zr.Code == 0 {
			return 1
		}
		return zr.Code
	}
	fmt.Println(zr.Msg)
	return 0
}
