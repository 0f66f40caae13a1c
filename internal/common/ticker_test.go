package common

import (
	"testing"
)

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		// Plain symbols
		{"NVDA", "NVDA", true},
		{"AAPL", "AAPL", true},
		{"MSFT", "MSFT", true},

		// Case normalization
		{"nvda", "NVDA", true},
		{"aApl", "AAPL", true},

		// Whitespace handling
		{"  NVDA  ", "NVDA", true},
		{"\tAAPL\n", "AAPL", true},

		// Allowed punctuation
		{"BRK.B", "BRK.B", true},
		{"BTC-USD", "BTC-USD", true},
		{"RDS_A", "RDS_A", true},
		{"0700", "0700", true},

		// Invalid input
		{"", "", false},
		{"   ", "", false},
		{"NV DA", "", false},
		{"NVDA!", "", false},
		{"nvda$", "", false},
		{"ticker/with/slash", "", false},
		{"WAYTOOLONGSYMBOL", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeTicker(tt.input)

			if ok != tt.wantOK {
				t.Errorf("NormalizeTicker(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("NormalizeTicker(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidTicker(t *testing.T) {
	if !IsValidTicker("nvda") {
		t.Error("IsValidTicker(\"nvda\") = false, want true")
	}
	if IsValidTicker("NV DA") {
		t.Error("IsValidTicker(\"NV DA\") = true, want false")
	}
	if IsValidTicker("") {
		t.Error("IsValidTicker(\"\") = true, want false")
	}
}
