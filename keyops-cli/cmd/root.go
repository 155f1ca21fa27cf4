/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/johanix/keyops/keyops"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "keyops-cli",
	Short: "keyops-cli is a tool used to interact with keyopsd via API",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig, initApi)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is %s)", keyops.DefaultCliCfgFile))
	rootCmd.PersistentFlags().BoolVarP(&keyops.Globals.Debug, "debug", "d", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&keyops.Globals.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&keyops.Globals.ShowHeaders, "headers", "H", false, "Show column headers on output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	keyops.SetupCliLogging()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(keyops.DefaultCliCfgFile)
	}

	viper.SetEnvPrefix("KEYOPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if keyops.Globals.Verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else {
		log.Fatalf("Could not load config %s: Error: %v", viper.ConfigFileUsed(), err)
	}
}

func initApi() {
	keyops.Globals.BaseUri = viper.GetString("cli.baseurl")
	if err := keyops.Globals.Validate(); err != nil {
		log.Fatalf("Error: %v", err)
	}

	api, err := keyops.NewClient("keyops-cli", keyops.Globals.BaseUri,
		viper.GetString("cli.apikey"), "X-API-Key", viper.GetString("cli.rootca"),
		keyops.Globals.Verbose, keyops.Globals.Debug)
	if err != nil {
		log.Fatalf("Error setting up API client: %v", err)
	}
	keyops.Globals.Api = api
}
