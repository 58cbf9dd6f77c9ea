package model

import "strings"

// Architecture is the low-level encoding family of a kernel file.
type Architecture string

const (
	ArchDAF Architecture = "DAF" // binary, double precision array file
	ArchDAS Architecture = "DAS" // binary, direct access segregated
	ArchKPL Architecture = "KPL" // text kernel
)

// Binary reports whether the architecture is one of the binary families.
func (a Architecture) Binary() bool {
	return a == ArchDAF || a == ArchDAS
}

// KernelType identifies what a kernel holds and how it has to be loaded.
type KernelType string

const (
	KernelSPK  KernelType = "SPK"  // position series
	KernelCK   KernelType = "CK"   // rotation series
	KernelPCK  KernelType = "PCK"  // planetary constants / attitude table
	KernelFK   KernelType = "FK"   // frame definitions
	KernelLSK  KernelType = "LSK"  // leap seconds
	KernelSCLK KernelType = "SCLK" // spacecraft clock
	KernelIK   KernelType = "IK"   // instrument definitions
)

// Channel says which kind of geometric information a kernel contributes.
type Channel int

const (
	ChannelNone Channel = iota
	ChannelPosition
	ChannelRotation
)

func (c Channel) String() string {
	switch c {
	case ChannelPosition:
		return "position"
	case ChannelRotation:
		return "rotation"
	default:
		return "none"
	}
}

// ParseChannel maps "position"/"pos" and "rotation"/"rot" to a Channel.
// Anything else is ChannelNone.
func ParseChannel(s string) Channel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "position", "pos":
		return ChannelPosition
	case "rotation", "rot":
		return ChannelRotation
	default:
		return ChannelNone
	}
}

// Channel derives the data channel for the kernel type. Unknown types map to
// ChannelNone.
func (t KernelType) Channel() Channel {
	switch t {
	case KernelSPK, KernelFK:
		return ChannelPosition
	case KernelCK, KernelPCK:
		return ChannelRotation
	default:
		return ChannelNone
	}
}

// NeedsLeapSeconds reports whether loading the kernel type requires a
// resident leap-second kernel for time conversions.
func (t KernelType) NeedsLeapSeconds() bool {
	return t == KernelSPK || t == KernelPCK
}

// KernelFile is a classified kernel on disk. It is immutable once built.
type KernelFile struct {
	Path         string // canonical absolute path
	Architecture Architecture
	Type         KernelType
	Channel      Channel
}

// BodyBearing reports whether the file contributes entity coverage.
func (f KernelFile) BodyBearing() bool {
	return f.Channel != ChannelNone
}
