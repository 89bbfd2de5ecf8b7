// Package protocol holds the wire-level constants and message framing for
// the LEGO Powered Up (LPF2) protocol family, plus the advertisement-based
// hub identification logic.
package protocol

import "strings"

// LEGO System A/S Bluetooth SIG company identifier used to key the
// manufacturer-specific data block in hub advertisements.
const LegoCompanyID uint16 = 919

// Service and characteristic UUIDs, normalized (lowercase, no dashes).
const (
	// ServiceWeDo2SmartHub is advertised by WeDo 2.0 smart hubs.
	ServiceWeDo2SmartHub = "000015231212efde1523785feabcd123"

	// ServiceLPF2Hub is advertised by every LPF2-family hub.
	ServiceLPF2Hub = "000016231212efde1623785feabcd123"

	// CharacteristicLPF2All carries all LPF2 control traffic. Every
	// connected hub must expose it.
	CharacteristicLPF2All = "000016241212efde1623785feabcd123"
)

// HubKind identifies a hub model. The universe of kinds is closed and known
// at build time.
type HubKind byte

const (
	HubKindUnknown HubKind = iota
	HubKindWeDo2SmartHub
	HubKindDuploTrainBase
	HubKindHub
	HubKindMario
	HubKindMoveHub
	HubKindRemoteControl
	HubKindTechnicMediumHub
)

func (k HubKind) String() string {
	switch k {
	case HubKindWeDo2SmartHub:
		return "Wedo2SmartHub"
	case HubKindDuploTrainBase:
		return "DuploTrainBase"
	case HubKindHub:
		return "Hub"
	case HubKindMario:
		return "Mario"
	case HubKindMoveHub:
		return "MoveHub"
	case HubKindRemoteControl:
		return "RemoteControl"
	case HubKindTechnicMediumHub:
		return "TechnicMediumHub"
	default:
		return "Unknown"
	}
}

// manufacturerKinds maps the device-type code at offset 1 of the vendor-919
// manufacturer payload to a hub kind. Closed table; unknown codes do not
// identify.
var manufacturerKinds = map[byte]HubKind{
	32:  HubKindDuploTrainBase,
	64:  HubKindMoveHub,
	65:  HubKindHub,
	66:  HubKindRemoteControl,
	67:  HubKindMario,
	128: HubKindTechnicMediumHub,
}

// NormalizeUUID converts a UUID string to the comparison format used
// throughout this package: lowercase, no dashes, no 0x prefix.
func NormalizeUUID(uuid string) string {
	uuid = strings.ToLower(strings.ReplaceAll(uuid, "-", ""))
	return strings.TrimPrefix(uuid, "0x")
}
