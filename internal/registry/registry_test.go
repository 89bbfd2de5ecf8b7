package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickble/poweredup/internal/adapter"
	"github.com/brickble/poweredup/internal/adaptertest"
	"github.com/brickble/poweredup/internal/discovery"
	"github.com/brickble/poweredup/internal/hub"
	"github.com/brickble/poweredup/internal/protocol"
	"github.com/brickble/poweredup/internal/registry"
)

const technicAddr = "aa:bb:cc:dd:ee:01"

func technicDiscovery() discovery.DiscoveredHub {
	return discovery.DiscoveredHub{
		Kind: protocol.HubKindTechnicMediumHub,
		Addr: technicAddr,
		Name: "Technic Hub",
	}
}

func startRegistry(t *testing.T, fake *adaptertest.Adapter) *registry.Registry {
	t.Helper()
	host := adapter.NewHost(fake, nil)
	t.Cleanup(func() { _ = host.Stop(context.Background()) })

	r := registry.New(host, 5*time.Second, nil)
	t.Cleanup(r.Stop)
	return r
}

func TestConnectToHub(t *testing.T) {
	fake := adaptertest.NewAdapter()
	p := adaptertest.NewHubPeripheral(technicAddr, "Technic Hub", 128)
	fake.AddPeripheral(p)
	r := startRegistry(t, fake)

	controller, err := r.ConnectToHub(context.Background(), technicDiscovery())
	require.NoError(t, err)

	assert.Equal(t, technicAddr, controller.Addr())
	assert.Equal(t, protocol.HubKindTechnicMediumHub, controller.Kind())
	assert.Equal(t, "Technic Hub", controller.Name())
	assert.True(t, p.IsConnected())
	assert.Equal(t, []string{protocol.CharacteristicLPF2All}, p.Subscribed())

	connected := r.Connected()
	assert.Equal(t, map[string]protocol.HubKind{technicAddr: protocol.HubKindTechnicMediumHub}, connected)
}

func TestConnectToHubReidentifiesUnknownKind(t *testing.T) {
	fake := adaptertest.NewAdapter()
	fake.AddPeripheral(adaptertest.NewHubPeripheral(technicAddr, "Technic Hub", 128))
	r := startRegistry(t, fake)

	controller, err := r.ConnectToHub(context.Background(), discovery.DiscoveredHub{
		Kind: protocol.HubKindUnknown,
		Addr: technicAddr,
	})
	require.NoError(t, err)

	assert.Equal(t, protocol.HubKindTechnicMediumHub, controller.Kind())
	assert.Equal(t, "Technic Hub", controller.Name())
}

func TestConnectToHubErrors(t *testing.T) {
	t.Run("peripheral not found", func(t *testing.T) {
		r := startRegistry(t, adaptertest.NewAdapter())

		_, err := r.ConnectToHub(context.Background(), technicDiscovery())
		var notFound *adapter.PeripheralNotFoundError
		assert.ErrorAs(t, err, &notFound)
		assert.Empty(t, r.Connected())
	})

	t.Run("connect failure", func(t *testing.T) {
		fake := adaptertest.NewAdapter()
		p := adaptertest.NewHubPeripheral(technicAddr, "Technic Hub", 128)
		p.FailConnect(assert.AnError)
		fake.AddPeripheral(p)
		r := startRegistry(t, fake)

		_, err := r.ConnectToHub(context.Background(), technicDiscovery())
		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, r.Connected())
	})

	t.Run("characteristic discovery failure", func(t *testing.T) {
		fake := adaptertest.NewAdapter()
		p := adaptertest.NewHubPeripheral(technicAddr, "Technic Hub", 128)
		p.FailDiscover(assert.AnError)
		fake.AddPeripheral(p)
		r := startRegistry(t, fake)

		_, err := r.ConnectToHub(context.Background(), technicDiscovery())
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, p.IsConnected())
	})

	t.Run("missing control characteristic", func(t *testing.T) {
		fake := adaptertest.NewAdapter()
		p := adaptertest.NewPeripheral(technicAddr, adapter.Properties{LocalName: "Technic Hub"})
		fake.AddPeripheral(p)
		r := startRegistry(t, fake)

		_, err := r.ConnectToHub(context.Background(), technicDiscovery())
		var missing *adapter.CharacteristicMissingError
		require.ErrorAs(t, err, &missing)
		assert.False(t, p.IsConnected())
	})

	t.Run("subscribe failure", func(t *testing.T) {
		fake := adaptertest.NewAdapter()
		p := adaptertest.NewHubPeripheral(technicAddr, "Technic Hub", 128)
		p.FailSubscribe(assert.AnError)
		fake.AddPeripheral(p)
		r := startRegistry(t, fake)

		_, err := r.ConnectToHub(context.Background(), technicDiscovery())
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, p.IsConnected())
	})

	t.Run("unsupported hub kind", func(t *testing.T) {
		fake := adaptertest.NewAdapter()
		p := adaptertest.NewHubPeripheral("aa:bb:cc:dd:ee:20", "Duplo Train", 32)
		fake.AddPeripheral(p)
		r := startRegistry(t, fake)

		_, err := r.ConnectToHub(context.Background(), discovery.DiscoveredHub{
			Kind: protocol.HubKindDuploTrainBase,
			Addr: "aa:bb:cc:dd:ee:20",
			Name: "Duplo Train",
		})
		var unsupported *registry.UnsupportedHubKindError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, protocol.HubKindDuploTrainBase, unsupported.Kind)
		assert.Empty(t, r.Connected())
		// The half-initialized link must not stay up.
		assert.False(t, p.IsConnected())
	})
}

func TestGetPort(t *testing.T) {
	fake := adaptertest.NewAdapter()
	fake.AddPeripheral(adaptertest.NewHubPeripheral(technicAddr, "Technic Hub", 128))
	r := startRegistry(t, fake)

	controller, err := r.ConnectToHub(context.Background(), technicDiscovery())
	require.NoError(t, err)

	t.Run("motor port", func(t *testing.T) {
		port, err := controller.Port(context.Background(), hub.PortA)
		require.NoError(t, err)
		assert.Equal(t, byte(0x00), port.PortID())

		motor, ok := port.Motor()
		require.True(t, ok)
		assert.Equal(t, technicAddr, motor.HubAddr())
	})

	t.Run("led port", func(t *testing.T) {
		port, err := controller.Port(context.Background(), hub.PortHubLED)
		require.NoError(t, err)
		assert.Equal(t, byte(0x32), port.PortID())

		_, ok := port.LED()
		assert.True(t, ok)
	})

	t.Run("nonexistent port", func(t *testing.T) {
		_, err := controller.Port(context.Background(), hub.PortAB)
		var unknownPort *registry.UnknownPortError
		require.ErrorAs(t, err, &unknownPort)
		assert.Equal(t, hub.PortAB, unknownPort.Port)
	})

	t.Run("unknown hub", func(t *testing.T) {
		_, err := r.GetPort(context.Background(), "de:ad:be:ef:00:00", hub.PortA)
		var unknownHub *registry.UnknownHubError
		require.ErrorAs(t, err, &unknownHub)
		assert.Equal(t, "de:ad:be:ef:00:00", unknownHub.Addr)
	})
}

func TestSendToHub(t *testing.T) {
	fake := adaptertest.NewAdapter()
	p := adaptertest.NewHubPeripheral(technicAddr, "Technic Hub", 128)
	fake.AddPeripheral(p)
	r := startRegistry(t, fake)

	controller, err := r.ConnectToHub(context.Background(), technicDiscovery())
	require.NoError(t, err)

	msg := protocol.SetRGB(0x32, 0xff, 0x00, 0x00)
	require.NoError(t, controller.Send(context.Background(), msg))

	writes := p.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, msg.Encode(), writes[0].Data)
}

func TestPortDeviceDrivesPeripheral(t *testing.T) {
	fake := adaptertest.NewAdapter()
	p := adaptertest.NewHubPeripheral(technicAddr, "Technic Hub", 128)
	fake.AddPeripheral(p)
	r := startRegistry(t, fake)

	controller, err := r.ConnectToHub(context.Background(), technicDiscovery())
	require.NoError(t, err)

	port, err := controller.Port(context.Background(), hub.PortB)
	require.NoError(t, err)
	motor, ok := port.Motor()
	require.True(t, ok)

	require.NoError(t, motor.StartSpeed(context.Background(), 50, 100))

	writes := p.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, protocol.StartSpeed(0x01, 50, 100).Encode(), writes[0].Data)
}

func TestDisconnect(t *testing.T) {
	fake := adaptertest.NewAdapter()
	p := adaptertest.NewHubPeripheral(technicAddr, "Technic Hub", 128)
	fake.AddPeripheral(p)
	r := startRegistry(t, fake)

	controller, err := r.ConnectToHub(context.Background(), technicDiscovery())
	require.NoError(t, err)

	require.NoError(t, controller.Disconnect(context.Background()))
	assert.False(t, p.IsConnected())
	assert.Empty(t, r.Connected())

	// Every operation against the departed address reports UnknownHub.
	var unknownHub *registry.UnknownHubError

	_, err = controller.Port(context.Background(), hub.PortA)
	assert.ErrorAs(t, err, &unknownHub)

	err = controller.Send(context.Background(), protocol.StartPower(0x00, 0))
	assert.ErrorAs(t, err, &unknownHub)

	err = controller.Disconnect(context.Background())
	assert.ErrorAs(t, err, &unknownHub)
}

func TestNotificationsDoNotDisturbConnection(t *testing.T) {
	fake := adaptertest.NewAdapter()
	p := adaptertest.NewHubPeripheral(technicAddr, "Technic Hub", 128)
	fake.AddPeripheral(p)
	r := startRegistry(t, fake)

	controller, err := r.ConnectToHub(context.Background(), technicDiscovery())
	require.NoError(t, err)

	// A well-formed attach notification and undecodable garbage; neither
	// may affect the connection.
	p.EmitNotification([]byte{0x05, 0x00, 0x04, 0x00, 0x00})
	p.EmitNotification([]byte{0xff})
	p.EmitNotification(nil)

	require.NoError(t, controller.Send(context.Background(), protocol.StartPower(0x00, 10)))
	assert.Len(t, r.Connected(), 1)
}

func TestRegistryStopped(t *testing.T) {
	fake := adaptertest.NewAdapter()
	fake.AddPeripheral(adaptertest.NewHubPeripheral(technicAddr, "Technic Hub", 128))
	host := adapter.NewHost(fake, nil)
	defer host.Stop(context.Background())

	r := registry.New(host, time.Second, nil)
	r.Stop()

	_, err := r.ConnectToHub(context.Background(), technicDiscovery())
	assert.ErrorIs(t, err, registry.ErrRegistryStopped)

	_, err = r.GetPort(context.Background(), technicAddr, hub.PortA)
	assert.ErrorIs(t, err, registry.ErrRegistryStopped)

	err = r.SendToHub(context.Background(), technicAddr, protocol.StartPower(0x00, 0))
	assert.ErrorIs(t, err, registry.ErrRegistryStopped)

	err = r.Disconnect(context.Background(), technicAddr)
	assert.ErrorIs(t, err, registry.ErrRegistryStopped)
}
