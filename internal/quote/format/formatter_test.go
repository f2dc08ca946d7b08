package format

import (
	"testing"
	"time"
)

func TestFormatQuoteNumberDefaultTemplate(t *testing.T) {
	createdAt := time.Date(2025, time.March, 7, 10, 30, 0, 0, time.UTC)

	got, err := FormatQuoteNumber(DefaultQuoteNumberTemplate, createdAt, 12)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if got != "Q-202503-0012" {
		t.Fatalf("expected Q-202503-0012, got %s", got)
	}
}

func TestFormatQuoteNumberTokens(t *testing.T) {
	createdAt := time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC)

	cases := []struct {
		template string
		seq      int64
		want     string
	}{
		{"Q-{YY}{MM}{DD}-{SEQ}", 7, "Q-241231-7"},
		{"{YYYY}/{SEQ6}", 42, "2024/000042"},
		{"OFFERT-{SEQ2}", 123, "OFFERT-123"},
	}
	for _, tc := range cases {
		got, err := FormatQuoteNumber(tc.template, createdAt, tc.seq)
		if err != nil {
			t.Fatalf("format %q: %v", tc.template, err)
		}
		if got != tc.want {
			t.Fatalf("template %q: expected %s, got %s", tc.template, tc.want, got)
		}
	}
}

func TestFormatQuoteNumberRejectsBadInput(t *testing.T) {
	createdAt := time.Now().UTC()

	if _, err := FormatQuoteNumber("", createdAt, 1); err == nil {
		t.Fatal("expected error for empty template")
	}
	if _, err := FormatQuoteNumber(DefaultQuoteNumberTemplate, createdAt, 0); err == nil {
		t.Fatal("expected error for zero sequence")
	}
	if _, err := FormatQuoteNumber("Q-{NOPE}", createdAt, 1); err == nil {
		t.Fatal("expected error for unresolved token")
	}
}
