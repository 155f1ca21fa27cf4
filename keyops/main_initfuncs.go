/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package keyops

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func (conf *Config) MainInit(defaultcfg string) error {
	Globals.App.ServerBootTime = time.Now()

	flag.StringVar(&conf.Internal.CfgFile, "config", defaultcfg, "config file path")
	flag.BoolVarP(&Globals.Debug, "debug", "d", false, "Debug mode")
	flag.BoolVarP(&Globals.Verbose, "verbose", "v", false, "Verbose mode")
	flag.Parse()

	flag.Usage = func() {
		flag.PrintDefaults()
	}

	if Globals.Debug {
		log.Printf("*** MainInit: 1 ***")
	}

	err := ParseConfig(conf)
	if err != nil {
		return fmt.Errorf("error parsing config %q: %v", conf.Internal.CfgFile, err)
	}

	err = SetupLogging(conf.Log.File)
	if err != nil {
		return fmt.Errorf("error setting up logging: %v", err)
	}
	fmt.Printf("Logging to file: %s\n", conf.Log.File)

	conf.Internal.Registry = prometheus.NewRegistry()
	if err := RegisterMetrics(conf.Internal.Registry); err != nil {
		return fmt.Errorf("error registering metrics: %v", err)
	}

	if Globals.Debug {
		log.Printf("*** MainInit: 2 ***")
	}

	// No broker, no service. The supervisor restarts us.
	session := MustDial(&conf.Broker, conf.KeyOps.Username, Globals.App.Name)
	conf.Internal.Session = session
	conf.Internal.KeyOps = NewKeyOps(conf, session)
	conf.Internal.APIStopCh = make(chan struct{}, 1)

	fmt.Printf("%s version %s starting.\n", Globals.App.Name, Globals.App.Version)
	return nil
}

// MainStartThreads drains the cluster backlog before anything else is
// started, then puts the cluster listener and the API server on g.
func MainStartThreads(ctx context.Context, conf *Config, g *errgroup.Group) error {
	ko := conf.Internal.KeyOps

	err := ko.StartConsumer(ctx, g)
	if err != nil {
		return fmt.Errorf("error starting cluster consumer: %v", err)
	}

	if conf.ApiServer.Address == "" {
		log.Printf("MainStartThreads: no apiserver.address configured, API not started")
		return nil
	}

	router, err := SetupAPIRouter(conf)
	if err != nil {
		return fmt.Errorf("error setting up API router: %v", err)
	}
	g.Go(func() error {
		return APIdispatcher(ctx, router, conf.ApiServer.Address)
	})
	return nil
}

// MainLoop blocks until the process is told to stop, or one of the workers
// gave up, and then cancels the workers.
func MainLoop(ctx context.Context, cancel context.CancelFunc, conf *Config) {
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(exit)

	select {
	case <-exit:
		log.Println("mainloop: Exit signal received. Cleaning up.")
	case <-conf.Internal.APIStopCh:
		log.Println("mainloop: Stop command received. Cleaning up.")
	case <-ctx.Done():
		log.Println("mainloop: a worker terminated. Cleaning up.")
	}
	cancel()

	fmt.Println("mainloop: leaving signal dispatcher")
}
