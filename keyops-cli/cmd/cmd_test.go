package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/johanix/keyops/keyops"
)

func TestCheckZoneName(t *testing.T) {
	assert.NoError(t, checkZoneName("example.com"))
	assert.NoError(t, checkZoneName("example.com."))
	assert.Error(t, checkZoneName(""))
	assert.Error(t, checkZoneName("example..com"))
}

func TestFormatFlags(t *testing.T) {
	mod := time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC)
	flags := []keyops.FlagInfo{
		{Name: "sync_flag", Value: "1", Modified: mod,
			LastDirective: &keyops.AppliedDirective{Verb: "SET", Timestamp: 1700000000}},
		{Name: "pipe", Value: "a|b", Modified: mod},
	}

	out := FormatFlags(flags, true)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Flag"))
	assert.Contains(t, lines[1], "sync_flag")
	assert.Contains(t, lines[1], `"1"`)
	assert.Contains(t, lines[1], "SET @ 1700000000")
	assert.Contains(t, lines[2], `"a\x7cb"`)
	assert.True(t, strings.HasSuffix(lines[2], "-"))

	out = FormatFlags(flags[:1], false)
	assert.NotContains(t, out, "Flag")
}

func TestConfigStatusYaml(t *testing.T) {
	out, err := configStatusYaml(keyops.ConfigResponse{
		AppName:       "keyopsd",
		Exchange:      "dnssec",
		RoutingKey:    "key_ops",
		RpcDir:        "/var/opendnssec/rpc",
		ConsumerState: "inactive",
		ConfigTime:    time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var cs configStatus
	require.NoError(t, yaml.Unmarshal([]byte(out), &cs))
	assert.Equal(t, "dnssec", cs.Exchange)
	assert.Equal(t, "inactive", cs.ConsumerState)
	assert.Equal(t, "2024-11-04 12:00:00", cs.ConfigTime)
	assert.NotContains(t, out, "cluster_queue")

	out, err = configStatusYaml(keyops.ConfigResponse{AppName: "keyopsd"})
	require.NoError(t, err)
	assert.NotContains(t, out, "config_time")
}

func zoneServer(t *testing.T, resp keyops.ZoneResponse, got *keyops.ZonePost) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/zone", r.URL.Path)
		assert.Equal(t, "sesame", r.Header.Get("X-API-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	api, err := keyops.NewClient("keyops-cli", srv.URL+"/api/v1", "sesame", "X-API-Key", "", false, false)
	require.NoError(t, err)
	saved := keyops.Globals.Api
	keyops.Globals.Api = api
	t.Cleanup(func() { keyops.Globals.Api = saved })
}

func TestSendZoneCommand(t *testing.T) {
	var got keyops.ZonePost
	zoneServer(t, keyops.ZoneResponse{Zone: "example.com", Status: "ok", Msg: "accepted"}, &got)

	assert.Equal(t, 0, SendZoneCommand("manage", "example.com"))
	assert.Equal(t, "manage", got.Command)
	assert.Equal(t, "example.com", got.Zone)

	// bad names never reach the daemon
	got = keyops.ZonePost{}
	assert.Equal(t, 1, SendZoneCommand("manage", "bad..name"))
	assert.Equal(t, "", got.Zone)
}

func TestSendZoneCommandRejected(t *testing.T) {
	var got keyops.ZonePost
	zoneServer(t, keyops.ZoneResponse{Status: "rejected", Code: 1, Error: true, ErrorMsg: "rejected"}, &got)

	assert.Equal(t, 1, SendZoneCommand("unmanage", "example.com"))
	assert.Equal(t, "unmanage", got.Command)
}
