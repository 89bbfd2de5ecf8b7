// Package poweredup discovers, identifies, connects to, and controls LEGO
// Powered Up BLE hubs. The facade starts the discovery pipeline and the hub
// registry, and exposes wait-for-hub and connect-with-retry operations; all
// hardware access is serialized through per-process actors.
package poweredup

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brickble/poweredup/internal/adapter"
	"github.com/brickble/poweredup/internal/adapter/goble"
	"github.com/brickble/poweredup/internal/discovery"
	"github.com/brickble/poweredup/internal/hub"
	"github.com/brickble/poweredup/internal/protocol"
	"github.com/brickble/poweredup/internal/registry"
	"github.com/brickble/poweredup/internal/task"
)

// Re-exported domain types, so hosts only import this package.
type (
	DiscoveredHub  = discovery.DiscoveredHub
	HubFilter      = discovery.HubFilter
	HubController  = registry.HubController
	PortController = registry.PortController
	HubKind        = protocol.HubKind
	Port           = hub.Port
)

// Filter constructors.
var (
	FilterByName    = discovery.FilterByName
	FilterByAddress = discovery.FilterByAddress
)

// Hub kinds.
const (
	HubKindUnknown          = protocol.HubKindUnknown
	HubKindWeDo2SmartHub    = protocol.HubKindWeDo2SmartHub
	HubKindDuploTrainBase   = protocol.HubKindDuploTrainBase
	HubKindHub              = protocol.HubKindHub
	HubKindMario            = protocol.HubKindMario
	HubKindMoveHub          = protocol.HubKindMoveHub
	HubKindRemoteControl    = protocol.HubKindRemoteControl
	HubKindTechnicMediumHub = protocol.HubKindTechnicMediumHub
)

// Ports.
const (
	PortA                  = hub.PortA
	PortB                  = hub.PortB
	PortC                  = hub.PortC
	PortD                  = hub.PortD
	PortAB                 = hub.PortAB
	PortHubLED             = hub.PortHubLED
	PortCurrentSensor      = hub.PortCurrentSensor
	PortVoltageSensor      = hub.PortVoltageSensor
	PortAccelerometer      = hub.PortAccelerometer
	PortGyroSensor         = hub.PortGyroSensor
	PortTiltSensor         = hub.PortTiltSensor
	PortGestureSensor      = hub.PortGestureSensor
	PortTemperatureSensor1 = hub.PortTemperatureSensor1
	PortTemperatureSensor2 = hub.PortTemperatureSensor2
)

// PoweredUp is the host-facing entry point. It owns the adapter host, the
// discovery manager, and the hub registry.
type PoweredUp struct {
	cfg      *Config
	logger   *logrus.Logger
	host     *adapter.Host
	manager  *discovery.Manager
	registry *registry.Registry
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// Adapters lists the local BLE adapters.
func Adapters() ([]string, error) {
	return goble.ListAdapters()
}

// Init starts against the default adapter with default configuration.
func Init(logger *logrus.Logger) (*PoweredUp, error) {
	return WithAdapter(0, nil, logger)
}

// WithAdapter starts against the local adapter at index idx. A nil config
// uses the defaults.
func WithAdapter(idx int, cfg *Config, logger *logrus.Logger) (*PoweredUp, error) {
	if logger == nil {
		logger = logrus.New()
	}
	a, err := goble.Factory(idx, logger)
	if err != nil {
		return nil, err
	}
	return NewWithAdapter(a, cfg, logger)
}

// NewWithAdapter starts the connection-management pipeline over an already
// constructed adapter.
func NewWithAdapter(a adapter.Adapter, cfg *Config, logger *logrus.Logger) (*PoweredUp, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}

	host := adapter.NewHost(a, logger)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := host.StartScan(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	discoveries := make(chan discovery.DiscoveredHub, cfg.DiscoveryBuffer)
	listener := discovery.NewListener(host, events, discoveries, logger)
	task.Go(ctx, "discovery-listener", func(ctx context.Context) {
		if err := listener.Run(ctx); err != nil {
			// A dead hardware event source has no recovery path.
			logger.WithError(err).Fatal("Discovery listener terminated")
		}
	})

	pu := &PoweredUp{
		cfg:      cfg,
		logger:   logger,
		host:     host,
		manager:  discovery.NewManager(discoveries, logger),
		registry: registry.New(host, cfg.ConnectTimeout, logger),
		cancel:   cancel,
	}
	return pu, nil
}

// Stop shuts down scanning and both actors. Connected hubs are left for the
// caller to disconnect explicitly.
func (pu *PoweredUp) Stop() error {
	var err error
	pu.stopOnce.Do(func() {
		pu.cancel()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = pu.host.Stop(ctx)
		pu.manager.Stop()
		pu.registry.Stop()
	})
	return err
}

// CreateHub connects to a previously discovered hub, retrying failed
// attempts up to the configured bound with the configured delay between
// them. Each attempt is a fresh registry round trip.
func (pu *PoweredUp) CreateHub(ctx context.Context, discovered DiscoveredHub) (*HubController, error) {
	retries := pu.cfg.ConnectRetries
	for attempt := 1; attempt <= retries; attempt++ {
		pu.logger.WithFields(logrus.Fields{
			"address": discovered.Addr,
			"attempt": attempt,
			"retries": retries,
		}).Info("Connecting to hub")

		controller, err := pu.registry.ConnectToHub(ctx, discovered)
		if err == nil {
			return controller, nil
		}
		pu.logger.WithError(err).WithField("address", discovered.Addr).Warn("Hub connection attempt failed")

		if attempt < retries {
			select {
			case <-time.After(pu.cfg.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, &ConnectExhaustedError{Addr: discovered.Addr, Attempts: retries}
}

// WaitForHub blocks until the next hub is discovered.
func (pu *PoweredUp) WaitForHub(ctx context.Context) (DiscoveredHub, error) {
	return pu.waitForHub(ctx, nil, 0)
}

// WaitForHubFilter blocks until a hub matching the filter is discovered.
func (pu *PoweredUp) WaitForHubFilter(ctx context.Context, filter HubFilter) (DiscoveredHub, error) {
	return pu.waitForHub(ctx, filter, 0)
}

// WaitForHubFilterTimeout blocks until a matching hub is discovered or the
// timeout elapses, whichever comes first.
func (pu *PoweredUp) WaitForHubFilterTimeout(ctx context.Context, filter HubFilter, timeout time.Duration) (DiscoveredHub, error) {
	return pu.waitForHub(ctx, filter, timeout)
}

func (pu *PoweredUp) waitForHub(ctx context.Context, filter HubFilter, timeout time.Duration) (DiscoveredHub, error) {
	id, ch, err := pu.manager.Register(ctx, filter)
	if err != nil {
		return DiscoveredHub{}, err
	}

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case discovered := <-ch:
		return discovered, nil
	case <-timer:
		pu.retract(id)
		return DiscoveredHub{}, ErrTimeout
	case <-ctx.Done():
		pu.retract(id)
		return DiscoveredHub{}, ctx.Err()
	}
}

// retract removes an unfulfilled wait registration so it cannot silently
// consume a later, unrelated discovery.
func (pu *PoweredUp) retract(id uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pu.manager.Retract(ctx, id); err != nil {
		pu.logger.WithError(err).Debug("Failed to retract wait registration")
	}
}

// DiscoveredHubs returns the discovery log in first-seen order.
func (pu *PoweredUp) DiscoveredHubs(ctx context.Context) ([]DiscoveredHub, error) {
	return pu.manager.Discovered(ctx)
}

// ConnectedHubs returns a snapshot of connected hub addresses and kinds.
func (pu *PoweredUp) ConnectedHubs() map[string]HubKind {
	return pu.registry.Connected()
}

// Peripheral resolves the low-level peripheral handle at addr.
func (pu *PoweredUp) Peripheral(ctx context.Context, addr string) (adapter.Peripheral, error) {
	return pu.host.Peripheral(ctx, addr)
}
