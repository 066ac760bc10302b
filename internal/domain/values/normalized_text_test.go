package values_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/racunko/racunko-backend/internal/domain/values"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input yields empty output",
			input: "",
			want:  "",
		},
		{
			name:  "lowercases latin letters",
			input: "EPS SNABDEVANJE",
			want:  "epssnabdevanje",
		},
		{
			name:  "strips punctuation and whitespace",
			input: "  RN-2025/10-0042  ",
			want:  "rn2025100042",
		},
		{
			name:  "preserves cyrillic letters",
			input: "Телеком Србија",
			want:  "телекомсрбија",
		},
		{
			name:  "lowercases cyrillic",
			input: "ТЕЛЕКОМ ",
			want:  "телеком",
		},
		{
			name:  "mixed scripts survive",
			input: "ЈКП Infostan 2025",
			want:  "јкпinfostan2025",
		},
		{
			name:  "pure punctuation collapses to empty",
			input: "---///---",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, values.Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"EPS Snabdevanje d.o.o.", "Телеком Србија", "RN-42/2025", ""}
	for _, s := range inputs {
		once := values.Normalize(s)
		assert.Equal(t, once, values.Normalize(once), "normalize must be idempotent for %q", s)
	}
}

func TestNormalize_CyrillicCaseEquivalence(t *testing.T) {
	assert.Equal(t, values.Normalize("Телеком"), values.Normalize("ТЕЛЕКОМ "))
}

func TestTextMatches(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{
			name: "equal after noise removal",
			a:    "EPS-Snabdevanje",
			b:    "eps snabdevanje",
			want: true,
		},
		{
			name: "different merchants do not match",
			a:    "EPS Snabdevanje",
			b:    "JKP Infostan",
			want: false,
		},
		{
			name: "two empty strings never match",
			a:    "",
			b:    "",
			want: false,
		},
		{
			name: "punctuation-only inputs never match",
			a:    "---",
			b:    "///",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, values.TextMatches(tt.a, tt.b))
		})
	}
}
