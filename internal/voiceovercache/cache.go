// Package voiceovercache is a content-addressed cache of synthesized
// voiceover results. Entries are keyed by language-accent code, a
// fingerprint of the normalized text, and the synthesis provider, and
// each key holds a single mutable slot.
package voiceovercache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/wangjess/oppia/internal/speech"
)

// FingerprintText computes the content fingerprint for normalized
// text: a SHA-256 digest over its UTF-8 bytes, rendered as lowercase
// hex. Equal texts always produce equal fingerprints; the converse
// does not hold, so fingerprint equality is an equality proxy only and
// hits are re-verified against the stored plaintext.
func FingerprintText(text string) string {
	digest := sha256.Sum256([]byte(text))
	return hex.EncodeToString(digest[:])
}

// Key builds the cache key for an accent code, fingerprint and
// provider identifier.
func Key(accentCode, fingerprint, provider string) string {
	return fmt.Sprintf("%s:%s:%s", accentCode, fingerprint, provider)
}

// Entry is the cached synthesis result for one cache key. The stored
// plaintext is kept for collision verification: a hit is genuine only
// when the candidate's normalized text matches it bit for bit.
type Entry struct {
	AccentCode    string                `json:"language_accent_code"`
	Provider      string                `json:"provider"`
	Fingerprint   string                `json:"hash_code"`
	Plaintext     string                `json:"plaintext"`
	AudioFilename string                `json:"voiceover_filename"`
	Timings       []speech.TimingToken `json:"audio_offset_list"`
}

// Stats holds cache lookup counters.
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache provides lookup, first-write, and collision reconciliation
// over a key-value record store.
type Cache struct {
	store RecordStore

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache backed by the given record store.
func New(store RecordStore) *Cache {
	return &Cache{store: store}
}

// Lookup returns the entry at (accentCode, fingerprint, provider), or
// false when the slot is absent.
func (c *Cache) Lookup(accentCode, fingerprint, provider string) (*Entry, bool) {
	key := Key(accentCode, fingerprint, provider)
	data, ok := c.store.Get(key)
	if !ok {
		c.misses.Add(1)
		log.Debug("voiceover cache miss", "key", key)
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupted record behaves like an absent slot; the next
		// store overwrites it.
		c.misses.Add(1)
		log.Warn("corrupted voiceover cache record", "key", key, "error", err)
		return nil, false
	}

	c.hits.Add(1)
	log.Debug("voiceover cache hit", "key", key)
	return &entry, true
}

// StoreNew inserts a fresh entry for text under (accentCode, provider).
// The fingerprint is computed from text. The caller is responsible for
// having verified that no entry exists at the key.
func (c *Cache) StoreNew(accentCode, provider, text, audioFilename string, timings []speech.TimingToken) (*Entry, error) {
	entry := &Entry{
		AccentCode:    accentCode,
		Provider:      provider,
		Fingerprint:   FingerprintText(text),
		Plaintext:     text,
		AudioFilename: audioFilename,
		Timings:       timings,
	}
	if err := c.put(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ReconcileOnCollision resolves a fingerprint collision: the slot's
// stored plaintext differs from the candidate's normalized text even
// though both share a fingerprint. When the candidate text is shorter
// it replaces the slot's plaintext, audio reference and timings;
// shorter strings are judged more likely to recur, so the slot keeps
// the more generic text to maximize future hit rate. Otherwise the
// entry is left untouched. Returns whether the slot was updated.
func (c *Cache) ReconcileOnCollision(existing *Entry, candidateText, candidateAudioFilename string, candidateTimings []speech.TimingToken) (bool, error) {
	if len(candidateText) >= len(existing.Plaintext) {
		return false, nil
	}

	updated := *existing
	updated.Plaintext = candidateText
	updated.AudioFilename = candidateAudioFilename
	updated.Timings = candidateTimings

	if err := c.put(&updated); err != nil {
		return false, err
	}
	*existing = updated

	log.Info("voiceover cache collision reconciled",
		"fingerprint", existing.Fingerprint,
		"accent", existing.AccentCode)
	return true, nil
}

// Stats returns the lookup counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.store.Len()
}

func (c *Cache) put(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	key := Key(entry.AccentCode, entry.Fingerprint, entry.Provider)
	if err := c.store.Put(key, data); err != nil {
		return fmt.Errorf("failed to store cache entry %q: %w", key, err)
	}
	return nil
}
