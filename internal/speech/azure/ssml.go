package azure

import (
	"fmt"
	"strings"

	"github.com/wangjess/oppia/internal/rtetext"
)

// SSML template for speech synthesis. Placeholders are the language
// code, the voice code, and the speech content.
const ssmlTemplate = `
<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s">
    <voice name="%s">
        %s
    </voice>
</speak>
`

// Template block for math content within the SSML.
const mathBlockTemplate = `
    <say-as interpret-as="math">
        %s
    </say-as>
`

// Template block for prose content within the SSML.
const proseBlockTemplate = `
    <p>
        %s
    </p>
`

// Arithmetic operators used to classify a segment as mathematical.
var arithmeticExpressions = []string{"+", " - ", "*", " / ", "×", "÷"}

// voiceCodeByAccent maps supported language-accent codes to Azure
// neural voice identifiers.
var voiceCodeByAccent = map[string]string{
	"ar-EG": "ar-EG-SalmaNeural",
	"en-GB": "en-GB-SoniaNeural",
	"en-IN": "en-IN-NeerjaNeural",
	"en-US": "en-US-JennyNeural",
	"hi-IN": "hi-IN-SwaraNeural",
	"pt-BR": "pt-BR-FranciscaNeural",
}

// voiceCodeForAccent returns the Azure voice identifier for a
// language-accent code.
func voiceCodeForAccent(accentCode string) (string, bool) {
	voice, ok := voiceCodeByAccent[accentCode]
	return voice, ok
}

// isMathematicalText reports whether the segment contains any of the
// common arithmetic operators.
func isMathematicalText(text string) bool {
	for _, expr := range arithmeticExpressions {
		if strings.Contains(text, expr) {
			return true
		}
	}
	return false
}

// convertPlaintextToSSML wraps normalized text in an SSML envelope.
// The text is split on the content delimiter; each segment is wrapped
// in a math or prose block depending on its classification.
func convertPlaintextToSSML(plaintext, accentCode, voiceCode string) string {
	var content strings.Builder
	for _, segment := range strings.Split(plaintext, rtetext.ContentDelimiter) {
		if isMathematicalText(segment) {
			content.WriteString(fmt.Sprintf(mathBlockTemplate, segment))
		} else {
			content.WriteString(fmt.Sprintf(proseBlockTemplate, segment))
		}
	}
	return fmt.Sprintf(ssmlTemplate, accentCode, voiceCode, content.String())
}
