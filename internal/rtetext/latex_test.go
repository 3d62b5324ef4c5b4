package rtetext

import "testing"

func TestLatexToText(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"fraction", `\frac{x}{y}`, "x/y"},
		{"nested fraction", `\frac{1}{\frac{a}{b}}`, "1/a/b"},
		{"square root", `\sqrt{16}`, "√16"},
		{"multiplication", `2 \times 3`, "2 × 3"},
		{"division", `6 \div 2`, "6 ÷ 2"},
		{"inequality", `x \leq y`, "x ≤ y"},
		{"greek", `\pi r^{2}`, "π r^2"},
		{"subscript braces dropped", `x_{i} + x_{j}`, "x_i + x_j"},
		{"dollar signs removed", `$a + b$`, "a + b"},
		{"unknown macro keeps name", `\foo{x}`, "foox"},
		{"escaped literal", `50\%`, "50%"},
		{"plain passthrough", `a + b - c`, "a + b - c"},
		{"empty", "", ""},
		{"unbalanced braces", `\frac{x`, "x/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LatexToText(tt.expr)
			if got != tt.want {
				t.Errorf("LatexToText(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}
