// Package voiceover coordinates automatic voiceover regeneration:
// normalize lesson markup, consult the synthesis cache, synthesize on
// a miss, and keep the audio blob, cache record and timing offsets
// consistent.
package voiceover

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wangjess/oppia/internal/blobstore"
	"github.com/wangjess/oppia/internal/rtetext"
	"github.com/wangjess/oppia/internal/speech"
	"github.com/wangjess/oppia/internal/voiceovercache"
)

// MimetypeMP3 tags synthesized audio artifacts at commit time.
const MimetypeMP3 = "audio/mpeg"

// Regenerator is the top-level coordinator for voiceover regeneration.
type Regenerator struct {
	cache    *voiceovercache.Cache
	provider speech.Provider
	blobs    blobstore.Store

	// synthesisTimeout bounds each remote synthesis call. Zero means
	// the caller's context is the only bound.
	synthesisTimeout time.Duration
}

// New creates a regenerator over the given cache, synthesis provider
// and blob store.
func New(cache *voiceovercache.Cache, provider speech.Provider, blobs blobstore.Store, synthesisTimeout time.Duration) *Regenerator {
	return &Regenerator{
		cache:            cache,
		provider:         provider,
		blobs:            blobs,
		synthesisTimeout: synthesisTimeout,
	}
}

// Regenerate produces a voiceover for the given lesson markup and
// commits the audio under voiceoverFilename, returning the word-level
// timing sequence. Previously synthesized content is reused from the
// cache without calling the synthesis provider. On any synthesis
// failure no blob or cache state is written.
func (r *Regenerator) Regenerate(ctx context.Context, entityID, rawMarkup, accentCode, voiceoverFilename string) ([]speech.TimingToken, error) {
	text := rtetext.Normalize(rawMarkup)
	fingerprint := voiceovercache.FingerprintText(text)

	entry, found := r.cache.Lookup(accentCode, fingerprint, r.provider.ID())

	// A hit is genuine only when the stored plaintext matches exactly;
	// fingerprint equality alone is never sufficient.
	if found && entry.Plaintext == text {
		return r.reuseCached(entityID, entry, voiceoverFilename)
	}

	audio, timings, err := r.synthesize(ctx, text, accentCode)
	if err != nil {
		log.Error("voiceover synthesis failed",
			"entity", entityID,
			"accent", accentCode,
			"error", err)
		return nil, err
	}

	// The blob commit happens before, and independently of, the cache
	// mutation: a crash in between leaves an orphaned blob rather than
	// a cache entry pointing at a missing one.
	if err := r.blobs.Commit(blobstore.AudioKey(voiceoverFilename), audio, MimetypeMP3); err != nil {
		return nil, err
	}

	if found {
		// The slot holds different text with the same fingerprint.
		updated, err := r.cache.ReconcileOnCollision(entry, text, voiceoverFilename, timings)
		if err != nil {
			return nil, err
		}
		log.Warn("voiceover fingerprint collision",
			"entity", entityID,
			"fingerprint", fingerprint,
			"slotUpdated", updated)
	} else {
		if _, err := r.cache.StoreNew(accentCode, r.provider.ID(), text, voiceoverFilename, timings); err != nil {
			return nil, err
		}
	}

	log.Info("voiceover regenerated",
		"entity", entityID,
		"accent", accentCode,
		"filename", voiceoverFilename,
		"audioBytes", len(audio),
		"timings", len(timings))
	return timings, nil
}

// reuseCached re-commits the previously synthesized artifact under the
// requested filename; the same audio may be stored under multiple
// filenames across entities.
func (r *Regenerator) reuseCached(entityID string, entry *voiceovercache.Entry, voiceoverFilename string) ([]speech.TimingToken, error) {
	audio, err := r.blobs.Get(blobstore.AudioKey(entry.AudioFilename))
	if err != nil {
		return nil, err
	}
	if err := r.blobs.Commit(blobstore.AudioKey(voiceoverFilename), audio, MimetypeMP3); err != nil {
		return nil, err
	}

	log.Info("voiceover reused from cache",
		"entity", entityID,
		"accent", entry.AccentCode,
		"source", entry.AudioFilename,
		"filename", voiceoverFilename)
	return entry.Timings, nil
}

func (r *Regenerator) synthesize(ctx context.Context, text, accentCode string) ([]byte, []speech.TimingToken, error) {
	if r.synthesisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.synthesisTimeout)
		defer cancel()
	}
	return r.provider.Synthesize(ctx, text, accentCode)
}
