package protocol

// Identify classifies an advertising peripheral into a known hub kind from
// its advertised service UUIDs and vendor-keyed manufacturer data. It is
// pure: the same inputs always produce the same answer.
//
// WeDo 2.0 smart hubs are recognized by their dedicated service UUID alone.
// LPF2-family hubs all share one service UUID and are disambiguated by the
// device-type code at offset 1 of the LEGO manufacturer payload. Anything
// else is not a hub.
func Identify(services []string, manufacturer map[uint16][]byte) (HubKind, bool) {
	lpf2 := false
	for _, s := range services {
		switch NormalizeUUID(s) {
		case ServiceWeDo2SmartHub:
			return HubKindWeDo2SmartHub, true
		case ServiceLPF2Hub:
			lpf2 = true
		}
	}
	if !lpf2 {
		return HubKindUnknown, false
	}

	payload, ok := manufacturer[LegoCompanyID]
	if !ok || len(payload) < 2 {
		return HubKindUnknown, false
	}
	kind, ok := manufacturerKinds[payload[1]]
	if !ok {
		return HubKindUnknown, false
	}
	return kind, true
}
