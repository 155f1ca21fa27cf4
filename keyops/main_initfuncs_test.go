package keyops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestMainLoopStopCommand(t *testing.T) {
	conf := &Config{}
	conf.Internal.APIStopCh = make(chan struct{}, 1)
	conf.Internal.APIStopCh <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	MainLoop(ctx, cancel, conf)
	assert.Error(t, ctx.Err())
}

func TestMainStartThreads(t *testing.T) {
	fc := newFakeChannel()
	fc.enqueue("cluster.a", "SET 1700000000 f 1")

	conf := &Config{
		Broker:    BrokerConf{Exchange: "dnssec"},
		KeyOps:    KeyOpsConf{RoutingKey: "key_ops", ClusterKey: "cluster.a", RpcDir: t.TempDir()},
		ApiServer: ApiServerConf{Address: "127.0.0.1:0", ApiKey: "sesame"},
	}
	conf.Internal.KeyOps = NewKeyOps(conf, NewSession(fc, "keyopsd"))

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	require.NoError(t, MainStartThreads(gctx, conf, g))
	assert.Equal(t, ConsumerListening, conf.Internal.KeyOps.Consumer.State())
	assert.Equal(t, []uint64{1}, fc.ackedTags())

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, g.Wait())
	assert.Equal(t, ConsumerStopped, conf.Internal.KeyOps.Consumer.State())
}
