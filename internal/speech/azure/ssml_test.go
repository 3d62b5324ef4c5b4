package azure

import (
	"strings"
	"testing"
)

func TestIsMathematicalText(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"2 + 2", true},
		{"5 - 3", true},
		{"4*6", true},
		{"8 / 2", true},
		{"3×4", true},
		{"6÷2", true},
		{"plain prose about numbers", false},
		{"well-known hyphenated word", false}, // hyphen is not " - "
		{"https://example.com/path", false},   // no spaced slash
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := isMathematicalText(tt.text); got != tt.want {
				t.Errorf("isMathematicalText(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestVoiceCodeForAccent(t *testing.T) {
	voice, ok := voiceCodeForAccent("en-US")
	if !ok {
		t.Fatal("en-US should be mapped")
	}
	if !strings.HasPrefix(voice, "en-US-") {
		t.Errorf("voice %q does not carry the accent prefix", voice)
	}

	if _, ok := voiceCodeForAccent("xx-XX"); ok {
		t.Error("unmapped accent returned a voice")
	}
}

func TestConvertPlaintextToSSML(t *testing.T) {
	ssml := convertPlaintextToSSML("Hello world; 2 + 2; Goodbye", "en-US", "en-US-JennyNeural")

	if !strings.Contains(ssml, `xml:lang="en-US"`) {
		t.Error("SSML missing language attribute")
	}
	if !strings.Contains(ssml, `<voice name="en-US-JennyNeural">`) {
		t.Error("SSML missing voice element")
	}

	// The math segment gets a say-as block; prose segments get
	// paragraph blocks.
	if !strings.Contains(ssml, `<say-as interpret-as="math">`) {
		t.Error("SSML missing math block for arithmetic segment")
	}
	if strings.Count(ssml, "<p>") != 2 {
		t.Errorf("SSML paragraph blocks = %d, want 2", strings.Count(ssml, "<p>"))
	}
	for _, segment := range []string{"Hello world", "2 + 2", "Goodbye"} {
		if !strings.Contains(ssml, segment) {
			t.Errorf("SSML missing segment %q", segment)
		}
	}
}

func TestConvertPlaintextToSSML_AllProse(t *testing.T) {
	ssml := convertPlaintextToSSML("Just one block", "en-GB", "en-GB-SoniaNeural")

	if strings.Contains(ssml, "say-as") {
		t.Error("prose-only text produced a math block")
	}
	if strings.Count(ssml, "<p>") != 1 {
		t.Errorf("SSML paragraph blocks = %d, want 1", strings.Count(ssml, "<p>"))
	}
}
