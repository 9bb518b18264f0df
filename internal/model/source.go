package model

import "strings"

// Source names where a snapshot came from.
type Source string

const (
	SourceLive   Source = "live"
	SourceMock   Source = "mock"
	SourceStatic Source = "static"
)

// ParseSource maps a requested source to a known one. Anything unknown is live.
func ParseSource(s string) Source {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceMock:
		return SourceMock
	case SourceStatic:
		return SourceStatic
	default:
		return SourceLive
	}
}

// Mode is a generation profile with its own template and sampling temperature.
type Mode string

const (
	ModeLow    Mode = "low"
	ModeChill  Mode = "chill"
	ModeFlow   Mode = "flow"
	ModeEvolve Mode = "evolve"
)

// AllModes lists the fixed set of mode keys.
var AllModes = []Mode{ModeLow, ModeChill, ModeFlow, ModeEvolve}

// ParseMode normalizes s and reports whether it is one of AllModes.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllModes {
		if m == known {
			return m, true
		}
	}
	return "", false
}
