package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases", "Sakura Sushi", []string{"sakura", "sushi"}},
		{"drops short tokens", "a la carte I do", []string{"la", "carte", "do"}},
		{"any whitespace", "New\tYork\n  pizza", []string{"new", "york", "pizza"}},
		{"keeps punctuation", "chefs. Family-owned", []string{"chefs.", "family-owned"}},
		{"counts runes", "é 日本", []string{"日本"}},
		{"empty", "   ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.text)
			got := make([]string, 0, len(tokens))
			for i, tok := range tokens {
				if tok.Position != i {
					t.Errorf("token %q position = %d, want %d", tok.Term, tok.Position, i)
				}
				got = append(got, tok.Term)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTermsDeduplicates(t *testing.T) {
	got := Terms("Sushi sushi SUSHI bar")
	want := []string{"sushi", "bar"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
}

var sampleTexts = map[string]string{
	"short":  "Sakura Sushi Japanese New York",
	"medium": "Trattoria Bella Italian Los Angeles Family-owned Italian restaurant serving homemade pasta, wood-fired pizza and seasonal antipasti.",
	"long":   strings.Repeat("Authentic Japanese sushi and sashimi prepared by master chefs in a quiet dining room. ", 40),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := Tokenize(text)
			_ = tokens
		}
	})
}
