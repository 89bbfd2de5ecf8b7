package registry

import (
	"errors"
	"fmt"

	"github.com/brickble/poweredup/internal/hub"
	"github.com/brickble/poweredup/internal/protocol"
)

// ErrRegistryStopped is observed by callers whose request raced the
// registry actor shutting down; they get this instead of hanging on a reply
// that will never arrive.
var ErrRegistryStopped = errors.New("hub registry stopped")

// UnknownHubError indicates no live hub connection exists at the address.
type UnknownHubError struct {
	Addr string
}

func (e *UnknownHubError) Error() string {
	return fmt.Sprintf("no hub found for address %s", e.Addr)
}

// UnknownPortError indicates the requested port does not exist in the hub's
// port map.
type UnknownPortError struct {
	Port hub.Port
	Addr string
}

func (e *UnknownPortError) Error() string {
	return fmt.Sprintf("port %s does not exist on hub %s", e.Port, e.Addr)
}

// UnsupportedHubKindError indicates a hub was identified but its kind has
// no implementation. Surfaced to the connect caller as a normal error.
type UnsupportedHubKindError struct {
	Kind protocol.HubKind
}

func (e *UnsupportedHubKindError) Error() string {
	return fmt.Sprintf("hub kind %s is not supported", e.Kind)
}
