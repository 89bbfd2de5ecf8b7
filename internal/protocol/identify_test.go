package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentify(t *testing.T) {
	tests := []struct {
		name         string
		services     []string
		manufacturer map[uint16][]byte
		expectedKind HubKind
		expectedOK   bool
	}{
		{
			name:         "WeDo2 service identifies regardless of manufacturer data",
			services:     []string{ServiceWeDo2SmartHub},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00, 0xff}},
			expectedKind: HubKindWeDo2SmartHub,
			expectedOK:   true,
		},
		{
			name:         "WeDo2 service identifies with no manufacturer data",
			services:     []string{ServiceWeDo2SmartHub},
			expectedKind: HubKindWeDo2SmartHub,
			expectedOK:   true,
		},
		{
			name:         "WeDo2 service wins over LPF2 service",
			services:     []string{ServiceWeDo2SmartHub, ServiceLPF2Hub},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00, 128}},
			expectedKind: HubKindWeDo2SmartHub,
			expectedOK:   true,
		},
		{
			name:         "LPF2 service with TechnicMediumHub code",
			services:     []string{ServiceLPF2Hub},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00, 128, 0x06, 0x00, 0x61, 0x00}},
			expectedKind: HubKindTechnicMediumHub,
			expectedOK:   true,
		},
		{
			name:         "LPF2 service with MoveHub code",
			services:     []string{ServiceLPF2Hub},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00, 64}},
			expectedKind: HubKindMoveHub,
			expectedOK:   true,
		},
		{
			name:         "LPF2 service with two-port hub code",
			services:     []string{ServiceLPF2Hub},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00, 65}},
			expectedKind: HubKindHub,
			expectedOK:   true,
		},
		{
			name:         "LPF2 service with remote control code",
			services:     []string{ServiceLPF2Hub},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00, 66}},
			expectedKind: HubKindRemoteControl,
			expectedOK:   true,
		},
		{
			name:         "LPF2 service with Mario code",
			services:     []string{ServiceLPF2Hub},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00, 67}},
			expectedKind: HubKindMario,
			expectedOK:   true,
		},
		{
			name:         "LPF2 service with Duplo train base code",
			services:     []string{ServiceLPF2Hub},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00, 32}},
			expectedKind: HubKindDuploTrainBase,
			expectedOK:   true,
		},
		{
			name:         "LPF2 service with unknown code",
			services:     []string{ServiceLPF2Hub},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00, 0x7f}},
			expectedKind: HubKindUnknown,
			expectedOK:   false,
		},
		{
			name:         "LPF2 service without vendor payload",
			services:     []string{ServiceLPF2Hub},
			manufacturer: map[uint16][]byte{0x004c: {0x02, 0x15}},
			expectedKind: HubKindUnknown,
			expectedOK:   false,
		},
		{
			name:         "LPF2 service with short vendor payload",
			services:     []string{ServiceLPF2Hub},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00}},
			expectedKind: HubKindUnknown,
			expectedOK:   false,
		},
		{
			name:         "unrelated services do not identify",
			services:     []string{"180d", "180f"},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00, 128}},
			expectedKind: HubKindUnknown,
			expectedOK:   false,
		},
		{
			name:         "no services do not identify",
			expectedKind: HubKindUnknown,
			expectedOK:   false,
		},
		{
			name:         "service UUIDs are normalized before comparison",
			services:     []string{"00001623-1212-EFDE-1623-785FEABCD123"},
			manufacturer: map[uint16][]byte{LegoCompanyID: {0x00, 128}},
			expectedKind: HubKindTechnicMediumHub,
			expectedOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := Identify(tt.services, tt.manufacturer)
			assert.Equal(t, tt.expectedOK, ok)
			assert.Equal(t, tt.expectedKind, kind)
		})
	}
}

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0x2902", "2902"},
		{"2902", "2902"},
		{"00001623-1212-efde-1623-785feabcd123", ServiceLPF2Hub},
		{"00001623-1212-EFDE-1623-785FEABCD123", ServiceLPF2Hub},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeUUID(tt.input), "input %q", tt.input)
	}
}
