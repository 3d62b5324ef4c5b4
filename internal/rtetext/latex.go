package rtetext

import (
	"strings"
)

// latexMacros maps LaTeX commands with no arguments to their spoken
// plain-text rendering.
var latexMacros = map[string]string{
	"times":   "×",
	"div":     "÷",
	"cdot":    "·",
	"pm":      "±",
	"leq":     "≤",
	"geq":     "≥",
	"neq":     "≠",
	"approx":  "≈",
	"infty":   "∞",
	"degree":  "°",
	"alpha":   "α",
	"beta":    "β",
	"gamma":   "γ",
	"delta":   "δ",
	"epsilon": "ε",
	"theta":   "θ",
	"lambda":  "λ",
	"mu":      "μ",
	"pi":      "π",
	"sigma":   "σ",
	"phi":     "φ",
	"omega":   "ω",
}

// LatexToText renders a LaTeX-like expression as natural-language
// plain text: fractions become slash divisions, roots and known
// symbols become their unicode equivalents, grouping braces are
// dropped. Unknown commands degrade to their bare name rather than
// failing.
func LatexToText(expr string) string {
	var out strings.Builder
	rest := strings.ReplaceAll(expr, "$", "")

	for len(rest) > 0 {
		i := strings.IndexByte(rest, '\\')
		if i < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:i])
		rest = rest[i+1:]

		name, after := readMacroName(rest)
		if name == "" {
			// Escaped literal, e.g. \{ or \%.
			if after != "" {
				out.WriteString(after[:1])
				after = after[1:]
			}
			rest = after
			continue
		}

		switch name {
		case "frac":
			num, r1 := readGroup(after)
			den, r2 := readGroup(r1)
			out.WriteString(LatexToText(num))
			out.WriteString("/")
			out.WriteString(LatexToText(den))
			rest = r2
		case "sqrt":
			arg, r := readGroup(after)
			out.WriteString("√")
			out.WriteString(LatexToText(arg))
			rest = r
		default:
			if symbol, ok := latexMacros[name]; ok {
				out.WriteString(symbol)
			} else {
				out.WriteString(name)
			}
			rest = after
		}
	}

	return strings.Join(strings.Fields(stripBraces(out.String())), " ")
}

// readMacroName splits a backslash-stripped tail into the macro name
// and the remainder. An empty name means the backslash escaped a
// non-letter character.
func readMacroName(s string) (name, rest string) {
	end := 0
	for end < len(s) && isLatexLetter(s[end]) {
		end++
	}
	return s[:end], s[end:]
}

// readGroup reads one brace-delimited argument, tracking nesting. A
// missing opening brace yields the next single character, matching
// LaTeX's bare-argument rule.
func readGroup(s string) (group, rest string) {
	if s == "" {
		return "", ""
	}
	if s[0] != '{' {
		return s[:1], s[1:]
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[1:i], s[i+1:]
			}
		}
	}
	// Unbalanced braces; take everything after the opener.
	return s[1:], ""
}

func stripBraces(s string) string {
	s = strings.ReplaceAll(s, "{", "")
	return strings.ReplaceAll(s, "}", "")
}

func isLatexLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
