package poweredup

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when a wait-for-hub timer fires before a matching
// hub is discovered. The pending registration is retracted on this path.
var ErrTimeout = errors.New("timeout reached")

// ConnectExhaustedError aggregates a run of failed connection attempts
// against one hub.
type ConnectExhaustedError struct {
	Addr     string
	Attempts int
}

func (e *ConnectExhaustedError) Error() string {
	return fmt.Sprintf("unable to connect to %s after %d tries", e.Addr, e.Attempts)
}
