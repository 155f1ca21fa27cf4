/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"github.com/johanix/keyops/keyops"
)

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Inspect the RPC flags on the keyopsd node",
}

var flagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List RPC flags with their value, age and last cluster directive",
	Run: func(cmd *cobra.Command, args []string) {
		var fr keyops.FlagsResponse
		_, err := keyops.Globals.Api.RequestNG("/flags", keyops.FlagsPost{Command: "list"}, &fr)
		if err != nil {
			log.Fatalf("Error from keyopsd: %v", err)
		}
		if fr.Error {
			log.Fatalf("Error: %s", fr.ErrorMsg)
		}
		if len(fr.Flags) == 0 {
			fmt.Printf("No RPC flags in %s\n", fr.RpcDir)
			return
		}
		fmt.Println(FormatFlags(fr.Flags, keyops.Globals.ShowHeaders))
	},
}

func init() {
	rootCmd.AddCommand(flagsCmd)
	flagsCmd.AddCommand(flagsListCmd)
}

// FormatFlags renders flags as a table. Values are quoted so that empty
// values and trailing spaces stay visible.
func FormatFlags(flags []keyops.FlagInfo, headers bool) string {
	var out []string
	if headers {
		out = append(out, "Flag|Value|Modified|Last directive")
	}
	for _, f := range flags {
		last := "-"
		if f.LastDirective != nil {
			last = fmt.Sprintf("%s @ %d", f.LastDirective.Verb, f.LastDirective.Timestamp)
		}
		value := strings.ReplaceAll(fmt.Sprintf("%q", f.Value), "|", "\\x7c")
		out = append(out, fmt.Sprintf("%s|%s|%s|%s", f.Name, value, f.Modified.Format(time.RFC3339), last))
	}
	return columnize.SimpleFormat(out)
}
