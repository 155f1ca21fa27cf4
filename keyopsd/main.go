/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/johanix/keyops/keyops"
)

func main() {
	var conf keyops.Config

	keyops.Globals.App = keyops.AppDetails{
		Name:    appName,
		Version: appVersion,
		Date:    appDate,
	}

	err := conf.MainInit(keyops.DefaultCfgFile)
	if err != nil {
		log.Fatalf("Error initializing %s: %v", appName, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	err = keyops.MainStartThreads(gctx, &conf, g)
	if err != nil {
		log.Fatalf("Error starting %s threads: %v", appName, err)
	}

	keyops.MainLoop(gctx, cancel, &conf)

	err = g.Wait()
	if cerr := conf.Internal.Session.Close(); cerr != nil {
		log.Printf("Error closing broker session: %v", cerr)
	}
	if err != nil {
		log.Printf("Error: %s terminated: %v", appName, err)
		os.Exit(1)
	}
	fmt.Printf("%s: done\n", appName)
}
