package keyops

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestConsumerDisabled(t *testing.T) {
	fc := newFakeChannel()
	cc := NewClusterConsumer(NewSession(fc, "keyopsd"), "", NewReconciler(t.TempDir(), false))
	assert.Equal(t, ConsumerNotStarted, cc.State())

	g, ctx := errgroup.WithContext(context.Background())
	require.NoError(t, cc.Start(ctx, g))
	assert.Equal(t, ConsumerInactive, cc.State())
	assert.Equal(t, int32(0), fc.calls.Load())
	require.NoError(t, g.Wait())
}

func TestConsumerCatchUp(t *testing.T) {
	dir := t.TempDir()
	fc := newFakeChannel()
	fc.enqueue("cluster.a", "SET 1700000000 f 1")
	fc.enqueue("cluster.a", "this is not a directive")
	fc.enqueue("cluster.a", "SET 1700000100 f 2")
	fc.enqueue("cluster.b", "SET 1700000200 g 1")

	cc := NewClusterConsumer(NewSession(fc, "keyopsd"), "cluster.a", NewReconciler(dir, false))
	n, err := cc.CatchUp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// every message is acked, also the bad one
	assert.Equal(t, []uint64{1, 2, 3}, fc.ackedTags())

	value, mtime := readFlag(t, dir, "f")
	assert.Equal(t, "2", value)
	assert.Equal(t, int64(1700000100), mtime)
	assert.NoFileExists(t, filepath.Join(dir, "g"))
}

func TestConsumerCatchUpError(t *testing.T) {
	fc := newFakeChannel()
	fc.getErr = amqp.ErrClosed

	cc := NewClusterConsumer(NewSession(fc, "keyopsd"), "cluster.a", NewReconciler(t.TempDir(), false))
	g, ctx := errgroup.WithContext(context.Background())
	err := cc.Start(ctx, g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, amqp.ErrClosed))
	assert.Equal(t, ConsumerStopped, cc.State())
}

func TestConsumerListen(t *testing.T) {
	dir := t.TempDir()
	fc := newFakeChannel()
	fc.enqueue("cluster.a", "SET 1700000000 backlog 1")

	cc := NewClusterConsumer(NewSession(fc, "keyopsd"), "cluster.a", NewReconciler(dir, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	require.NoError(t, cc.Start(gctx, g))
	assert.Equal(t, ConsumerListening, cc.State())
	assert.FileExists(t, filepath.Join(dir, "backlog"))

	fc.deliver("SET 1700000100 live 1")
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "live"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	fc.deliver("CLEAR 1700000200 backlog ")
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "backlog"))
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, g.Wait())
	assert.Equal(t, ConsumerStopped, cc.State())
	assert.Equal(t, []string{DefaultConsumerTag}, fc.cancelled)
	assert.Len(t, fc.ackedTags(), 3)
}

func TestConsumerDeliveriesClosed(t *testing.T) {
	fc := newFakeChannel()
	cc := NewClusterConsumer(NewSession(fc, "keyopsd"), "cluster.a", NewReconciler(t.TempDir(), false))

	close(fc.deliveries)
	err := cc.Listen(context.Background())
	assert.Error(t, err)
	assert.Equal(t, ConsumerStopped, cc.State())
}

// Two nodes share one broker. A flag set on node A shows up in the RPC
// directory of node B.
func TestClusterSyncFlag(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()

	conf := func(dir string) *Config {
		return &Config{
			Broker: BrokerConf{Exchange: "dnssec", QueuePrefix: "b."},
			KeyOps: KeyOpsConf{RoutingKey: "key_ops", ClusterKey: "cluster.a", RpcDir: dir},
		}
	}

	// node A publishes into the queue of node B
	broker := newFakeChannel()
	broker.route = func(fc *fakeChannel, exchange, key string, msg amqp.Publishing) {
		if key == "cluster.a" {
			fc.deliver(string(msg.Body))
		}
	}
	nodeB := NewKeyOps(conf(dirB), NewSession(broker, "keyopsd-b"))
	assert.Equal(t, "b.cluster.a", nodeB.Consumer.Queue)

	nodeA := NewKeyOps(conf(dirA), NewSession(broker, "keyopsd-a"))
	nodeA.Notifier.Now = fixedNow

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	require.NoError(t, nodeB.StartConsumer(gctx, g))

	value := "1700000000"
	require.True(t, nodeA.ClusterUpdate(ctx, "sync_flag", &value))
	assert.Equal(t, []string{"SET 1700000000 sync_flag 1700000000"}, broker.bodies())

	path := filepath.Join(dirB, "sync_flag")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "1700000000"
	}, 2*time.Second, 10*time.Millisecond)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), fi.ModTime().Unix())

	cancel()
	require.NoError(t, g.Wait())
}
