// Package discovery bridges the adapter's low-level event stream into
// domain-level hub discoveries, and tracks them for waiting callers.
package discovery

import (
	"fmt"

	"github.com/brickble/poweredup/internal/protocol"
)

// DiscoveredHub is an identified, not-yet-connected hub seen during
// scanning. Immutable once created.
type DiscoveredHub struct {
	Kind protocol.HubKind
	Addr string
	Name string
}

func (d DiscoveredHub) String() string {
	return fmt.Sprintf("%s %q at %s", d.Kind, d.Name, d.Addr)
}

// HubFilter narrows which discovered hubs fulfill a wait registration. The
// variants are closed: by name or by address, both exact string matches.
type HubFilter interface {
	Matches(hub DiscoveredHub) bool
	String() string
}

type nameFilter struct {
	name string
}

func (f nameFilter) Matches(hub DiscoveredHub) bool { return hub.Name == f.name }
func (f nameFilter) String() string                 { return fmt.Sprintf("name=%q", f.name) }

type addrFilter struct {
	addr string
}

func (f addrFilter) Matches(hub DiscoveredHub) bool { return hub.Addr == f.addr }
func (f addrFilter) String() string                 { return fmt.Sprintf("addr=%s", f.addr) }

// FilterByName matches hubs whose advertised name equals name exactly.
func FilterByName(name string) HubFilter {
	return nameFilter{name: name}
}

// FilterByAddress matches hubs whose address string equals addr exactly.
func FilterByAddress(addr string) HubFilter {
	return addrFilter{addr: addr}
}
