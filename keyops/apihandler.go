/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

func APIping(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var pp PingPost
		err := decoder.Decode(&pp)
		if err != nil {
			log.Println("APIping: error decoding ping post:", err)
		}

		host, _ := os.Hostname()
		response := PingResponse{
			Time:       time.Now(),
			BootTime:   Globals.App.ServerBootTime,
			Daemon:     Globals.App.Name,
			Version:    Globals.App.Version,
			ServerHost: host,
			Msg:        fmt.Sprintf("pong from %s @ %s", Globals.App.Name, host),
			Pings:      pp.Pings,
			Pongs:      pp.Pings + 1,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

func APIcommand(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var cp CommandPost
		err := decoder.Decode(&cp)
		if err != nil {
			log.Println("APIcommand: error decoding command post:", err)
		}

		log.Printf("API: received /command request (cmd: %s) from %s.\n", cp.Command, r.RemoteAddr)

		resp := CommandResponse{Time: time.Now()}
		defer func() {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}()

		switch cp.Command {
		case "stop":
			log.Printf("Daemon instructed to stop\n")
			select {
			case conf.Internal.APIStopCh <- struct{}{}:
			default:
			}
			resp.Status = "stopping"
			resp.Msg = "Daemon was happy, but now winding down"
		default:
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("Unknown command: %s", cp.Command)
		}
	}
}

func APIzone(ko *KeyOps) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var zp ZonePost
		err := decoder.Decode(&zp)
		if err != nil {
			log.Println("APIzone: error decoding zone post:", err)
		}

		log.Printf("API: received /zone request (cmd: %s zone: %s) from %s.\n", zp.Command, zp.Zone, r.RemoteAddr)

		resp := ZoneResponse{Time: time.Now(), Zone: zp.Zone}
		defer func() {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}()

		if zp.Zone == "" {
			resp.Error = true
			resp.ErrorMsg = "No zone specified"
			return
		}

		var status PublishStatus
		switch zp.Command {
		case "manage":
			status = ko.ManageZone(r.Context(), zp.Zone)
		case "unmanage":
			status = ko.UnmanageZone(r.Context(), zp.Zone)
		default:
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("Unknown zone command: %s", zp.Command)
			return
		}

		resp.Status = status.String()
		resp.Code = status.Code()
		if status != PublishOK {
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("%s of zone %s failed: %s", zp.Command, zp.Zone, status)
			return
		}
		resp.Msg = fmt.Sprintf("Zone %s: %s command accepted by broker", zp.Zone, zp.Command)
	}
}

func APIcluster(ko *KeyOps) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var cp ClusterPost
		err := decoder.Decode(&cp)
		if err != nil {
			log.Println("APIcluster: error decoding cluster post:", err)
		}

		log.Printf("API: received /cluster request (cmd: %s flag: %s) from %s.\n", cp.Command, cp.Flag, r.RemoteAddr)

		resp := ClusterResponse{
			Time:      time.Now(),
			Flag:      cp.Flag,
			Clustered: ko.Notifier.Enabled(),
		}
		defer func() {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}()

		if err := ValidFlagName(cp.Flag); err != nil {
			resp.Error = true
			resp.ErrorMsg = err.Error()
			return
		}

		switch cp.Command {
		case "set":
			value := cp.Value
			resp.Delivered = ko.ClusterUpdate(r.Context(), cp.Flag, &value)
		case "clear":
			resp.Delivered = ko.ClusterUpdate(r.Context(), cp.Flag, nil)
		default:
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("Unknown cluster command: %s", cp.Command)
			return
		}

		switch {
		case !resp.Delivered:
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("cluster update of flag %s not delivered", cp.Flag)
		case !resp.Clustered:
			resp.Msg = "No cluster configured, nothing sent"
		default:
			resp.Msg = fmt.Sprintf("Flag %s: %s sent to cluster", cp.Flag, cp.Command)
		}
	}
}

func APIflags(ko *KeyOps) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var fp FlagsPost
		err := decoder.Decode(&fp)
		if err != nil {
			log.Println("APIflags: error decoding flags post:", err)
		}

		resp := FlagsResponse{Time: time.Now(), RpcDir: ko.Reconciler.RpcDir}
		defer func() {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}()

		switch fp.Command {
		case "list":
			resp.Flags, err = ko.Reconciler.ListFlags()
			if err != nil {
				resp.Error = true
				resp.ErrorMsg = err.Error()
			}
		default:
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("Unknown flags command: %s", fp.Command)
		}
	}
}

func APIconfig(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var cp ConfigPost
		err := decoder.Decode(&cp)
		if err != nil {
			log.Println("APIconfig: error decoding config post:", err)
		}

		resp := ConfigResponse{Time: time.Now(), AppName: Globals.App.Name}
		defer func() {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}()

		switch cp.Command {
		case "status":
			resp.ConfigTime = Globals.App.ServerConfigTime
			resp.Exchange = conf.Broker.Exchange
			resp.RoutingKey = conf.KeyOps.RoutingKey
			resp.ClusterKey = conf.KeyOps.ClusterKey
			resp.ClusterQueue = conf.ClusterQueueName()
			resp.RpcDir = conf.KeyOps.RpcDir
			resp.LegacyClear = conf.KeyOps.LegacyClearCheck
			if ko := conf.Internal.KeyOps; ko != nil {
				resp.ConsumerState = ko.Consumer.State().String()
			}
		default:
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("Unknown config command: %s", cp.Command)
		}
	}
}
