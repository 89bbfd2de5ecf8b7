package discovery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickble/poweredup/internal/adapter"
	"github.com/brickble/poweredup/internal/adaptertest"
	"github.com/brickble/poweredup/internal/discovery"
	"github.com/brickble/poweredup/internal/protocol"
)

type listenerHarness struct {
	fake *adaptertest.Adapter
	host *adapter.Host
	out  chan discovery.DiscoveredHub
	done chan error
}

func startListener(t *testing.T, ctx context.Context) *listenerHarness {
	t.Helper()

	h := &listenerHarness{
		fake: adaptertest.NewAdapter(),
		out:  make(chan discovery.DiscoveredHub, 16),
		done: make(chan error, 1),
	}
	h.host = adapter.NewHost(h.fake, nil)
	t.Cleanup(func() { _ = h.host.Stop(context.Background()) })

	events, err := h.host.StartScan(ctx)
	require.NoError(t, err)

	l := discovery.NewListener(h.host, events, h.out, nil)
	go func() { h.done <- l.Run(ctx) }()
	return h
}

func (h *listenerHarness) expectHub(t *testing.T) discovery.DiscoveredHub {
	t.Helper()
	select {
	case hub := <-h.out:
		return hub
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a discovery")
		return discovery.DiscoveredHub{}
	}
}

func (h *listenerHarness) expectNoHub(t *testing.T) {
	t.Helper()
	select {
	case hub := <-h.out:
		t.Fatalf("unexpected discovery: %s", hub)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestListenerIdentifiesHub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := startListener(t, ctx)

	h.fake.AddPeripheral(adaptertest.NewHubPeripheral("aa:bb:cc:dd:ee:01", "Technic Hub", 128))
	h.fake.EmitDiscovered("aa:bb:cc:dd:ee:01")

	hub := h.expectHub(t)
	assert.Equal(t, protocol.HubKindTechnicMediumHub, hub.Kind)
	assert.Equal(t, "aa:bb:cc:dd:ee:01", hub.Addr)
	assert.Equal(t, "Technic Hub", hub.Name)
}

func TestListenerIgnoresNonHubs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := startListener(t, ctx)

	h.fake.AddPeripheral(adaptertest.NewPeripheral("11:22:33:44:55:66", adapter.Properties{
		LocalName: "headphones",
		Services:  []string{"0000180f00001000800000805f9b34fb"},
	}))
	h.fake.EmitDiscovered("11:22:33:44:55:66")

	h.expectNoHub(t)
}

func TestListenerIgnoresNamelessPeripherals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := startListener(t, ctx)

	p := adaptertest.NewHubPeripheral("aa:bb:cc:dd:ee:02", "", 128)
	h.fake.AddPeripheral(p)
	h.fake.EmitDiscovered("aa:bb:cc:dd:ee:02")

	h.expectNoHub(t)
}

func TestListenerIgnoresConnectedPeripherals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := startListener(t, ctx)

	p := adaptertest.NewHubPeripheral("aa:bb:cc:dd:ee:03", "Technic Hub", 128)
	p.SetConnected(true)
	h.fake.AddPeripheral(p)
	h.fake.EmitDiscovered("aa:bb:cc:dd:ee:03")

	h.expectNoHub(t)
}

func TestListenerIgnoresVanishedPeripherals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := startListener(t, ctx)

	// Event for an address the adapter can no longer resolve.
	h.fake.EmitDiscovered("de:ad:be:ef:00:00")

	h.expectNoHub(t)
}

func TestListenerClosedEventSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := startListener(t, ctx)

	h.fake.CloseEvents()

	select {
	case err := <-h.done:
		assert.ErrorIs(t, err, discovery.ErrEventSourceClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not terminate on closed event source")
	}
}

func TestListenerShutdownClosesEventSource(t *testing.T) {
	// On shutdown the scan context ends and the scan goroutine closes the
	// event stream; whichever the select observes first, a clean shutdown
	// must never be reported as a dead event source.
	for i := 0; i < 50; i++ {
		fake := adaptertest.NewAdapter()
		host := adapter.NewHost(fake, nil)

		ctx, cancel := context.WithCancel(context.Background())
		events, err := host.StartScan(ctx)
		require.NoError(t, err)

		out := make(chan discovery.DiscoveredHub, 1)
		l := discovery.NewListener(host, events, out, nil)

		cancel()
		fake.CloseEvents()

		assert.NoError(t, l.Run(ctx))
		_ = host.Stop(context.Background())
	}
}

func TestListenerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := startListener(t, ctx)

	cancel()

	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not terminate on context cancel")
	}
}
