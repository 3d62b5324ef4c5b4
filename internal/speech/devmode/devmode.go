// Package devmode provides a deterministic offline stand-in for the
// live speech synthesis provider, so the regeneration pipeline stays
// fully testable without cloud credentials.
package devmode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/wangjess/oppia/internal/speech"
)

// DefaultLanguageCode is used when an accent code maps to a language
// with no pre-recorded sample.
const DefaultLanguageCode = "en"

// languageCodeToFixture maps language codes to pre-recorded audio
// sample file names shipped with the development fixtures.
var languageCodeToFixture = map[string]string{
	"ar": "arabic.mp3",
	"en": "english.mp3",
	"hi": "hindi.mp3",
	"pt": "portuguese.mp3",
}

// cannedTimings is the fixed timing sequence returned with every
// synthesized sample.
var cannedTimings = []speech.TimingToken{
	{Token: "This", OffsetMsecs: 0.0},
	{Token: "is", OffsetMsecs: 100.0},
	{Token: "a", OffsetMsecs: 200.0},
	{Token: "test", OffsetMsecs: 300.0},
	{Token: "text", OffsetMsecs: 400.0},
}

// Provider reads pre-recorded audio samples from a local fixtures
// directory keyed by language code.
type Provider struct {
	fixturesDir string
}

// New creates a dev-mode provider over the given fixtures directory.
func New(fixturesDir string) *Provider {
	return &Provider{fixturesDir: fixturesDir}
}

// ID returns the provider identifier.
func (p *Provider) ID() string {
	return speech.ProviderDev
}

// Synthesize ignores the text and returns the pre-recorded sample for
// the accent's language, falling back to the default language when
// unmapped, paired with a fixed timing sequence.
func (p *Provider) Synthesize(_ context.Context, _, accentCode string) ([]byte, []speech.TimingToken, error) {
	languageCode := languageCodeFromAccent(accentCode)
	fixture, ok := languageCodeToFixture[languageCode]
	if !ok {
		languageCode = DefaultLanguageCode
		fixture = languageCodeToFixture[languageCode]
	}

	data, err := os.ReadFile(filepath.Join(p.fixturesDir, fixture))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read sample for language %q: %v",
			speech.ErrSynthesisFailed, languageCode, err)
	}

	log.Debug("dev-mode synthesis served",
		"accent", accentCode,
		"language", languageCode,
		"bytes", len(data))

	timings := make([]speech.TimingToken, len(cannedTimings))
	copy(timings, cannedTimings)
	return data, timings, nil
}

// languageCodeFromAccent extracts the language part of a
// language-accent code, e.g. "en" from "en-US".
func languageCodeFromAccent(accentCode string) string {
	if i := strings.IndexByte(accentCode, '-'); i >= 0 {
		return accentCode[:i]
	}
	return accentCode
}
