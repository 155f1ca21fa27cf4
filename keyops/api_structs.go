/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"net/http"
	"time"
)

type PingPost struct {
	Msg   string
	Pings int
}

type PingResponse struct {
	Time       time.Time
	BootTime   time.Time
	Daemon     string
	Version    string
	ServerHost string
	Msg        string
	Pings      int
	Pongs      int
}

type CommandPost struct {
	Command string // "stop"
}

type CommandResponse struct {
	Time     time.Time
	Status   string
	Msg      string
	Error    bool
	ErrorMsg string
}

type ZonePost struct {
	Command string // "manage" | "unmanage"
	Zone    string
}

type ZoneResponse struct {
	Time     time.Time
	Zone     string
	Status   string // PublishStatus
	Code     int    // 0 = success
	Msg      string
	Error    bool
	ErrorMsg string
}

type ClusterPost struct {
	Command string // "set" | "clear"
	Flag    string
	Value   string
}

type ClusterResponse struct {
	Time      time.Time
	Flag      string
	Clustered bool
	Delivered bool
	Msg       string
	Error     bool
	ErrorMsg  string
}

type FlagsPost struct {
	Command string // "list"
}

type FlagsResponse struct {
	Time     time.Time
	RpcDir   string
	Flags    []FlagInfo
	Error    bool
	ErrorMsg string
}

type ConfigPost struct {
	Command string // "status"
}

type ConfigResponse struct {
	Time          time.Time
	AppName       string
	ConfigTime    time.Time
	Exchange      string
	RoutingKey    string
	ClusterKey    string
	ClusterQueue  string
	RpcDir        string
	LegacyClear   bool
	ConsumerState string
	Error         bool
	ErrorMsg      string
}

type ApiClient struct {
	Name       string
	Client     *http.Client
	BaseUrl    string
	apiKey     string
	AuthMethod string
	Verbose    bool
	Debug      bool
}
