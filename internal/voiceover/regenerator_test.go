package voiceover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/wangjess/oppia/internal/blobstore"
	"github.com/wangjess/oppia/internal/rtetext"
	"github.com/wangjess/oppia/internal/speech"
	"github.com/wangjess/oppia/internal/voiceovercache"
)

// fakeProvider returns canned synthesis results and counts calls.
type fakeProvider struct {
	audio   []byte
	timings []speech.TimingToken
	err     error
	calls   int

	// block, when set, makes Synthesize wait for ctx cancellation.
	block bool
}

func (f *fakeProvider) ID() string { return "Fake" }

func (f *fakeProvider) Synthesize(ctx context.Context, text, accentCode string) ([]byte, []speech.TimingToken, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.audio, f.timings, nil
}

func newTestRegenerator(t *testing.T, provider speech.Provider) (*Regenerator, *voiceovercache.Cache, *blobstore.FileStore) {
	t.Helper()

	blobs, err := blobstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cache := voiceovercache.New(voiceovercache.NewMemoryStore())
	return New(cache, provider, blobs, 0), cache, blobs
}

func TestRegenerateMiss(t *testing.T) {
	provider := &fakeProvider{
		audio: []byte("mp3 audio"),
		timings: []speech.TimingToken{
			{Token: "Hello", OffsetMsecs: 0},
			{Token: "world", OffsetMsecs: 210},
		},
	}
	r, cache, blobs := newTestRegenerator(t, provider)

	timings, err := r.Regenerate(context.Background(), "exp1", "<p>Hello world</p>", "en-US", "clip-en.mp3")
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
	if len(timings) != 2 || timings[0].Token != "Hello" {
		t.Errorf("timings = %v, want the synthesized sequence", timings)
	}

	audio, err := blobs.Get(blobstore.AudioKey("clip-en.mp3"))
	if err != nil {
		t.Fatalf("blob missing after regeneration: %v", err)
	}
	if !bytes.Equal(audio, provider.audio) {
		t.Errorf("blob = %q, want %q", audio, provider.audio)
	}
	if mimetype, ok := blobs.Mimetype(blobstore.AudioKey("clip-en.mp3")); !ok || mimetype != MimetypeMP3 {
		t.Errorf("blob mimetype = %q, %v, want %q, true", mimetype, ok, MimetypeMP3)
	}

	text := rtetext.Normalize("<p>Hello world</p>")
	entry, found := cache.Lookup("en-US", voiceovercache.FingerprintText(text), provider.ID())
	if !found {
		t.Fatal("cache entry missing after regeneration")
	}
	if entry.Plaintext != text || entry.AudioFilename != "clip-en.mp3" {
		t.Errorf("entry = %+v, want plaintext %q and filename clip-en.mp3", entry, text)
	}
}

func TestRegenerateCacheHitSkipsSynthesis(t *testing.T) {
	provider := &fakeProvider{
		audio:   []byte("mp3 audio"),
		timings: []speech.TimingToken{{Token: "Hello", OffsetMsecs: 0}},
	}
	r, _, blobs := newTestRegenerator(t, provider)

	markup := "<p>Hello world</p>"
	if _, err := r.Regenerate(context.Background(), "exp1", markup, "en-US", "first.mp3"); err != nil {
		t.Fatalf("first Regenerate: %v", err)
	}

	timings, err := r.Regenerate(context.Background(), "exp2", markup, "en-US", "second.mp3")
	if err != nil {
		t.Fatalf("second Regenerate: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1: the hit must not synthesize", provider.calls)
	}
	if len(timings) != 1 || timings[0].Token != "Hello" {
		t.Errorf("timings = %v, want the cached sequence", timings)
	}

	// The cached audio is re-committed under the new filename.
	audio, err := blobs.Get(blobstore.AudioKey("second.mp3"))
	if err != nil {
		t.Fatalf("blob missing under the new filename: %v", err)
	}
	if !bytes.Equal(audio, provider.audio) {
		t.Errorf("blob = %q, want %q", audio, provider.audio)
	}
}

// seedCollision plants an entry whose plaintext differs from text but
// occupies text's slot, simulating a fingerprint collision.
func seedCollision(t *testing.T, store *voiceovercache.MemoryStore, accentCode, providerID, slotPlaintext, candidateText string) {
	t.Helper()

	entry := voiceovercache.Entry{
		AccentCode:    accentCode,
		Provider:      providerID,
		Fingerprint:   voiceovercache.FingerprintText(candidateText),
		Plaintext:     slotPlaintext,
		AudioFilename: "existing.mp3",
		Timings:       []speech.TimingToken{{Token: "old", OffsetMsecs: 5}},
	}
	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal seed entry: %v", err)
	}
	key := voiceovercache.Key(accentCode, entry.Fingerprint, providerID)
	if err := store.Put(key, data); err != nil {
		t.Fatalf("seed collision slot: %v", err)
	}
}

func TestRegenerateCollisionShorterCandidateWins(t *testing.T) {
	provider := &fakeProvider{
		audio:   []byte("new audio"),
		timings: []speech.TimingToken{{Token: "Hi", OffsetMsecs: 0}},
	}
	blobs, err := blobstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	store := voiceovercache.NewMemoryStore()
	cache := voiceovercache.New(store)
	r := New(cache, provider, blobs, 0)

	markup := "<p>Hi</p>"
	candidate := rtetext.Normalize(markup)
	seedCollision(t, store, "en-US", provider.ID(), "a much longer colliding plaintext", candidate)

	if _, err := r.Regenerate(context.Background(), "exp1", markup, "en-US", "new.mp3"); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1: a collision is not a hit", provider.calls)
	}

	entry, found := cache.Lookup("en-US", voiceovercache.FingerprintText(candidate), provider.ID())
	if !found {
		t.Fatal("slot missing after reconciliation")
	}
	if entry.Plaintext != candidate {
		t.Errorf("slot plaintext = %q, want the shorter candidate %q", entry.Plaintext, candidate)
	}
	if entry.AudioFilename != "new.mp3" {
		t.Errorf("slot filename = %q, want new.mp3", entry.AudioFilename)
	}
}

func TestRegenerateCollisionLongerCandidateLeavesSlot(t *testing.T) {
	provider := &fakeProvider{
		audio:   []byte("new audio"),
		timings: []speech.TimingToken{{Token: "Hello", OffsetMsecs: 0}},
	}
	blobs, err := blobstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	store := voiceovercache.NewMemoryStore()
	cache := voiceovercache.New(store)
	r := New(cache, provider, blobs, 0)

	markup := "<p>Hello colliding world</p>"
	candidate := rtetext.Normalize(markup)
	seedCollision(t, store, "en-US", provider.ID(), "short", candidate)

	timings, err := r.Regenerate(context.Background(), "exp1", markup, "en-US", "new.mp3")
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	// The caller still gets freshly synthesized audio and timing.
	if len(timings) != 1 || timings[0].Token != "Hello" {
		t.Errorf("timings = %v, want the synthesized sequence", timings)
	}
	if _, err := blobs.Get(blobstore.AudioKey("new.mp3")); err != nil {
		t.Errorf("blob missing under the new filename: %v", err)
	}

	entry, _ := cache.Lookup("en-US", voiceovercache.FingerprintText(candidate), provider.ID())
	if entry.Plaintext != "short" || entry.AudioFilename != "existing.mp3" {
		t.Errorf("slot = %+v, want it untouched", entry)
	}
}

func TestRegenerateSynthesisFailureWritesNothing(t *testing.T) {
	provider := &fakeProvider{err: speech.ErrSynthesisFailed}
	r, cache, blobs := newTestRegenerator(t, provider)

	_, err := r.Regenerate(context.Background(), "exp1", "<p>Hello</p>", "en-US", "clip.mp3")
	if !errors.Is(err, speech.ErrSynthesisFailed) {
		t.Fatalf("err = %v, want ErrSynthesisFailed", err)
	}

	if cache.Len() != 0 {
		t.Errorf("cache has %d entries after a failed synthesis, want 0", cache.Len())
	}
	if _, err := blobs.Get(blobstore.AudioKey("clip.mp3")); err == nil {
		t.Error("blob exists after a failed synthesis")
	}
}

func TestRegenerateSynthesisTimeout(t *testing.T) {
	provider := &fakeProvider{block: true}
	blobs, err := blobstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cache := voiceovercache.New(voiceovercache.NewMemoryStore())
	r := New(cache, provider, blobs, 50*time.Millisecond)

	_, err = r.Regenerate(context.Background(), "exp1", "<p>Hello</p>", "en-US", "clip.mp3")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if cache.Len() != 0 {
		t.Errorf("cache has %d entries after a timed-out synthesis, want 0", cache.Len())
	}
	if _, err := blobs.Get(blobstore.AudioKey("clip.mp3")); err == nil {
		t.Error("blob exists after a timed-out synthesis")
	}
}
