package keyops

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Unix(1700000000, 0)
}

func TestClusterUpdateDisabled(t *testing.T) {
	fc := newFakeChannel()
	cn := NewClusterNotifier(NewSession(fc, "keyopsd"), "dnssec", "")

	value := "1"
	assert.False(t, cn.Enabled())
	assert.True(t, cn.ClusterUpdate(context.Background(), "sync_flag", &value))
	assert.True(t, cn.ClusterUpdate(context.Background(), "sync_flag", nil))
	assert.Equal(t, int32(0), fc.calls.Load())

	// no broker at all is fine too when there is no cluster
	cn = NewClusterNotifier(nil, "dnssec", "")
	assert.True(t, cn.ClusterUpdate(context.Background(), "sync_flag", nil))
}

func TestClusterUpdateSetAndClear(t *testing.T) {
	fc := newFakeChannel()
	cn := NewClusterNotifier(NewSession(fc, "keyopsd"), "dnssec", "cluster.a")
	cn.Now = fixedNow

	value := "1"
	assert.True(t, cn.ClusterUpdate(context.Background(), "sync_flag", &value))
	assert.True(t, cn.ClusterUpdate(context.Background(), "sync_flag", nil))

	assert.Equal(t, []string{
		"SET 1700000000 sync_flag 1",
		"CLEAR 1700000000 sync_flag ",
	}, fc.bodies())
	require.Len(t, fc.published, 2)
	assert.Equal(t, "cluster.a", fc.published[0].Key)
	assert.Equal(t, "dnssec", fc.published[0].Exchange)
}

func TestClusterUpdateFailures(t *testing.T) {
	var buf bytes.Buffer

	fc := newFakeChannel()
	fc.nack = true
	cn := NewClusterNotifier(NewSession(fc, "keyopsd"), "dnssec", "cluster.a")
	cn.Logger = log.New(&buf, "", 0)
	cn.Now = fixedNow

	value := "1"
	assert.False(t, cn.ClusterUpdate(context.Background(), "sync_flag", &value))
	assert.Contains(t, buf.String(), "flag sync_flag during SET")

	fc = newFakeChannel()
	fc.publishErr = errors.New("connection reset")
	cn.Session = NewSession(fc, "keyopsd")
	assert.False(t, cn.ClusterUpdate(context.Background(), "sync_flag", nil))

	cn.Session = nil
	assert.False(t, cn.ClusterUpdate(context.Background(), "sync_flag", nil))
}

func TestClusterUpdateRefusesUnparsableFlag(t *testing.T) {
	var buf bytes.Buffer
	fc := newFakeChannel()
	cn := NewClusterNotifier(NewSession(fc, "keyopsd"), "dnssec", "cluster.a")
	cn.Logger = log.New(&buf, "", 0)
	cn.Now = fixedNow

	value := "1"
	assert.False(t, cn.ClusterUpdate(context.Background(), "sync flag", nil))
	assert.False(t, cn.ClusterUpdate(context.Background(), "a b", &value))
	assert.Equal(t, int32(0), fc.calls.Load())
	assert.Contains(t, buf.String(), "whitespace")
}
