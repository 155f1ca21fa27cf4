/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"fmt"
	"net/url"
	"time"
)

type AppDetails struct {
	Name             string
	Version          string
	Date             string
	ServerBootTime   time.Time
	ServerConfigTime time.Time
}

type GlobalStuff struct {
	Verbose     bool
	Debug       bool
	ShowHeaders bool // -H in the CLI list commands
	App         AppDetails
	Api         *ApiClient
	BaseUri     string
}

var Globals = GlobalStuff{
	Verbose: false,
	Debug:   false,
}

func (gs *GlobalStuff) Validate() error {
	if gs.BaseUri != "" {
		if _, err := url.ParseRequestURI(gs.BaseUri); err != nil {
			return fmt.Errorf("invalid base URI: %s", gs.BaseUri)
		}
	}
	return nil
}
