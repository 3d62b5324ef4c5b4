package blobstore

import (
	"bytes"
	"testing"
)

func TestAudioKey(t *testing.T) {
	if got, want := AudioKey("voiceover-en.mp3"), "audio/voiceover-en.mp3"; got != want {
		t.Errorf("AudioKey = %q, want %q", got, want)
	}
}

func TestFileStoreCommitAndGet(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key := AudioKey("clip.mp3")
	data := []byte("mp3 bytes")
	if err := fs.Commit(key, data, "audio/mpeg"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := fs.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get = %q, want %q", got, data)
	}

	mimetype, ok := fs.Mimetype(key)
	if !ok || mimetype != "audio/mpeg" {
		t.Errorf("Mimetype = %q, %v, want audio/mpeg, true", mimetype, ok)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key := AudioKey("clip.mp3")
	if err := fs.Commit(key, []byte("first"), "audio/mpeg"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := fs.Commit(key, []byte("second"), "audio/mpeg"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := fs.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Get = %q, want %q", got, "second")
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, err := fs.Get(AudioKey("absent.mp3")); err == nil {
		t.Error("Get on a missing key returned no error")
	}
}

func TestFileStoreReopenKeepsIndex(t *testing.T) {
	dir := t.TempDir()

	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	key := AudioKey("clip.mp3")
	if err := fs.Commit(key, []byte("audio"), "audio/mpeg"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	got, err := reopened.Get(key)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != "audio" {
		t.Errorf("Get = %q, want %q", got, "audio")
	}
	if mimetype, ok := reopened.Mimetype(key); !ok || mimetype != "audio/mpeg" {
		t.Errorf("Mimetype after reopen = %q, %v, want audio/mpeg, true", mimetype, ok)
	}
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	for _, key := range []string{"../outside", "audio/../../outside", "/etc/passwd"} {
		if err := fs.Commit(key, []byte("x"), "audio/mpeg"); err == nil {
			t.Errorf("Commit(%q) accepted a key escaping the root", key)
		}
		if _, err := fs.Get(key); err == nil {
			t.Errorf("Get(%q) accepted a key escaping the root", key)
		}
	}
}
