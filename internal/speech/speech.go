// Package speech defines the synthesis provider contract shared by the
// live cloud provider and the offline development stand-in.
package speech

import (
	"context"
	"errors"
)

// Provider identifiers recorded alongside cached synthesis results.
const (
	ProviderAzure = "Azure"
	ProviderDev   = "Dev"
)

// Common errors for speech synthesis.
var (
	// ErrCredentialMissing means the provider's secret credential could
	// not be obtained; no remote call is attempted.
	ErrCredentialMissing = errors.New("synthesis credential is not available")

	// ErrUnsupportedAccent means the accent code has no voice mapping;
	// no remote call is attempted.
	ErrUnsupportedAccent = errors.New("no voice mapped for accent code")

	// ErrSynthesisFailed means the remote call completed but reported
	// cancellation or an error. The wrapping error carries the
	// provider's message verbatim.
	ErrSynthesisFailed = errors.New("speech synthesis failed")

	// ErrSynthesisTimeout means the bounded wait for synthesis was
	// exceeded.
	ErrSynthesisTimeout = errors.New("speech synthesis timed out")
)

// TimingToken records when a single word or punctuation unit is spoken
// in the synthesized audio.
type TimingToken struct {
	Token       string  `json:"token"`
	OffsetMsecs float64 `json:"audio_offset_msecs"`
}

// Provider converts plain text into synthesized speech audio.
type Provider interface {
	// ID returns the provider identifier used in cache keys.
	ID() string

	// Synthesize produces audio bytes for the given text in the given
	// language-accent code, along with per-token timing in utterance
	// order. Timing may legitimately be empty for providers without a
	// word-boundary side channel. The call is bounded by ctx; on
	// failure no audio is returned.
	Synthesize(ctx context.Context, text, accentCode string) ([]byte, []TimingToken, error)
}
