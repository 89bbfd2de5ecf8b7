package discovery

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/brickble/poweredup/internal/adapter"
	"github.com/brickble/poweredup/internal/protocol"
)

// ErrEventSourceClosed reports that the adapter's event stream died. There
// is no recovery path for a dead hardware event source; the caller treats
// this as a process-level failure.
var ErrEventSourceClosed = errors.New("adapter event source closed")

// Listener consumes the adapter's bounded event stream, identifies hubs,
// and forwards discoveries to the manager.
type Listener struct {
	host   *adapter.Host
	events <-chan adapter.Event
	out    chan<- DiscoveredHub
	logger *logrus.Logger
}

// NewListener wires the event stream to the discovery channel feeding the
// manager.
func NewListener(host *adapter.Host, events <-chan adapter.Event, out chan<- DiscoveredHub, logger *logrus.Logger) *Listener {
	if logger == nil {
		logger = logrus.New()
	}
	return &Listener{host: host, events: events, out: out, logger: logger}
}

// Run processes events until the context ends. A closed event stream
// returns ErrEventSourceClosed.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("Starting hub discovery listener")
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-l.events:
			if !ok {
				// The scan goroutine also closes the stream when its
				// context ends; only a closure with a live context is a
				// dead hardware source.
				if ctx.Err() != nil {
					return nil
				}
				return ErrEventSourceClosed
			}
			if evt.Type != adapter.EventDeviceDiscovered {
				continue
			}
			l.handleDiscovered(ctx, evt.Addr)
		}
	}
}

func (l *Listener) handleDiscovered(ctx context.Context, addr string) {
	p, err := l.host.Peripheral(ctx, addr)
	if err != nil {
		l.logger.WithError(err).WithField("address", addr).Debug("Discovered peripheral vanished before lookup")
		return
	}

	props := p.Properties()
	if props.LocalName == "" || p.IsConnected() {
		return
	}

	kind, ok := protocol.Identify(props.Services, props.ManufacturerData)
	if !ok {
		l.logger.WithFields(logrus.Fields{
			"address": addr,
			"name":    props.LocalName,
		}).Debug("Peripheral does not look like a Powered Up hub")
		return
	}

	hub := DiscoveredHub{Kind: kind, Addr: addr, Name: props.LocalName}
	l.logger.WithFields(logrus.Fields{
		"address": addr,
		"name":    hub.Name,
		"kind":    kind.String(),
	}).Debug("Identified hub")

	select {
	case l.out <- hub:
	case <-ctx.Done():
	}
}
