package model

import "testing"

func TestKernelTypeChannel(t *testing.T) {
	tests := []struct {
		kind    KernelType
		channel Channel
		leap    bool
	}{
		{KernelSPK, ChannelPosition, true},
		{KernelFK, ChannelPosition, false},
		{KernelCK, ChannelRotation, false},
		{KernelPCK, ChannelRotation, true},
		{KernelLSK, ChannelNone, false},
		{KernelSCLK, ChannelNone, false},
		{KernelIK, ChannelNone, false},
		{KernelType("EK"), ChannelNone, false},
	}
	for _, tt := range tests {
		if got := tt.kind.Channel(); got != tt.channel {
			t.Fatalf("%s.Channel() = %s, want %s", tt.kind, got, tt.channel)
		}
		if got := tt.kind.NeedsLeapSeconds(); got != tt.leap {
			t.Fatalf("%s.NeedsLeapSeconds() = %v, want %v", tt.kind, got, tt.leap)
		}
	}
}

func TestParseChannel(t *testing.T) {
	for in, want := range map[string]Channel{
		"position": ChannelPosition,
		" POS ":    ChannelPosition,
		"rotation": ChannelRotation,
		"rot":      ChannelRotation,
		"none":     ChannelNone,
		"":         ChannelNone,
	} {
		if got := ParseChannel(in); got != want {
			t.Fatalf("ParseChannel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestArchitectureBinary(t *testing.T) {
	if !ArchDAF.Binary() || !ArchDAS.Binary() || ArchKPL.Binary() {
		t.Fatalf("unexpected Binary() results")
	}
	f := KernelFile{Type: KernelLSK, Channel: KernelLSK.Channel()}
	if f.BodyBearing() {
		t.Fatalf("LSK should not bear bodies")
	}
}
