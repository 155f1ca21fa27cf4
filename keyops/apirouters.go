/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func WalkRoutes(router *mux.Router, address string) {
	log.Printf("Defined API endpoints for router on: %s\n", address)

	walker := func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		for m := range methods {
			log.Printf("%-6s %s\n", methods[m], path)
		}
		return nil
	}
	if err := router.Walk(walker); err != nil {
		log.Printf("Error walking API routes: %v", err)
	}
}

func SetupAPIRouter(conf *Config) (*mux.Router, error) {
	ko := conf.Internal.KeyOps
	if ko == nil {
		return nil, errors.New("keyops not initialised")
	}
	apikey := conf.ApiServer.ApiKey
	if apikey == "" {
		return nil, fmt.Errorf("apiserver.apikey is not set")
	}

	r := mux.NewRouter().StrictSlash(true)

	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if conf.Internal.Registry != nil {
		gatherer = conf.Internal.Registry
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	sr := r.PathPrefix("/api/v1").Headers("X-API-Key", apikey).Subrouter()

	sr.HandleFunc("/ping", APIping(conf)).Methods("POST")
	sr.HandleFunc("/command", APIcommand(conf)).Methods("POST")
	sr.HandleFunc("/config", APIconfig(conf)).Methods("POST")
	sr.HandleFunc("/zone", APIzone(ko)).Methods("POST")
	sr.HandleFunc("/cluster", APIcluster(ko)).Methods("POST")
	sr.HandleFunc("/flags", APIflags(ko)).Methods("POST")

	return r, nil
}

// APIdispatcher serves router on address until ctx is done.
func APIdispatcher(ctx context.Context, router *mux.Router, address string) error {
	if Globals.Verbose {
		WalkRoutes(router, address)
	}

	srv := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errch := make(chan error, 1)
	go func() {
		log.Printf("*** APIdispatcher: starting API server on %s", address)
		errch <- srv.ListenAndServe()
	}()

	select {
	case err := <-errch:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server on %s: %w", address, err)
	case <-ctx.Done():
		log.Printf("APIdispatcher: shutting down API server on %s", address)
		shutctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutctx)
	}
}
