package model

import (
	"strings"
	"testing"
)

func TestShortenName(t *testing.T) {
	long := "TestCell[0]." + strings.Repeat("dendrite_branch[12].", 5) + "tip[3]"

	tests := []struct {
		name      string
		input     string
		wantSame  bool
		wantHash  bool
	}{
		{
			name:     "Short Name Unchanged",
			input:    "soma",
			wantSame: true,
		},
		{
			name:     "Exactly Max Length Unchanged",
			input:    strings.Repeat("a", MaxNameLength),
			wantSame: true,
		},
		{
			name:     "Long Name Hashed",
			input:    long,
			wantHash: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShortenName(tt.input)

			if len(got) > MaxNameLength {
				t.Errorf("ShortenName() length = %d, want <= %d", len(got), MaxNameLength)
			}
			if tt.wantSame && got != tt.input {
				t.Errorf("ShortenName() = %q, want unchanged %q", got, tt.input)
			}
			if tt.wantHash {
				if !strings.Contains(got, "#") {
					t.Errorf("ShortenName() = %q, want hash suffix", got)
				}
				if !strings.HasPrefix(got, tt.input[:MaxNameLength-17]) {
					t.Errorf("ShortenName() = %q, want truncated prefix of input", got)
				}
			}
		})
	}
}

func TestShortenNameDeterministic(t *testing.T) {
	long := strings.Repeat("Granule[42].apical", 8)

	first := ShortenName(long)
	for i := 0; i < 10; i++ {
		if got := ShortenName(long); got != first {
			t.Fatalf("ShortenName() not deterministic: %q vs %q", got, first)
		}
	}
}

func TestShortenNameIdempotent(t *testing.T) {
	long := strings.Repeat("Purkinje[7].dend", 10)

	once := ShortenName(long)
	twice := ShortenName(once)
	if once != twice {
		t.Errorf("ShortenName() not idempotent on its own output: %q vs %q", once, twice)
	}
}

func TestDetailLevel(t *testing.T) {
	tests := []struct {
		cells int
		want  Granularity
	}{
		{1, GranularitySegment},
		{5, GranularitySegment},
		{6, GranularitySection},
		{25, GranularitySection},
		{26, GranularityCell},
		{100, GranularityCell},
		{101, GranularityGroup},
		{10000, GranularityGroup},
	}

	for _, tt := range tests {
		if got := DetailLevel(tt.cells); got != tt.want {
			t.Errorf("DetailLevel(%d) = %q, want %q", tt.cells, got, tt.want)
		}
	}
}

func TestGranularityValid(t *testing.T) {
	for _, g := range []Granularity{GranularityGroup, GranularityCell, GranularitySection, GranularitySegment} {
		if !g.Valid() {
			t.Errorf("Granularity(%q).Valid() = false, want true", g)
		}
	}
	if Granularity("Compartment").Valid() {
		t.Error("Granularity(\"Compartment\").Valid() = true, want false")
	}
}
