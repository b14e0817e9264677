package validation

import (
	"strings"
	"testing"

	"github.com/xtxerr/roundrobin/internal/errors"
)

func TestValidateSeriesName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "cpu", false},
		{"with source", "router-01:cpu", false},
		{"with dots", "router-01:ifInOctets.Gi0_0", false},
		{"ip-like", "192.168.1.1:latency", false},
		{"numbers", "123", false},
		{"empty", "", true},
		{"hidden", ".cpu", true},
		{"slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"control char", "a\x00b", true},
		{"space", "a b", true},
		{"too long", strings.Repeat("a", 256), true},
		{"max length", strings.Repeat("a", 255), false},
		{"multibyte within limit", strings.Repeat("ä", 200), false},
		{"multibyte too long", strings.Repeat("ä", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSeriesName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSeriesName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrInvalidName) {
				t.Errorf("expected ErrInvalidName, got %v", err)
			}
		})
	}
}

func TestValidateName_Rules(t *testing.T) {
	rules := SeriesNameRules()
	rules.AllowColons = false

	if err := ValidateName("router:cpu", rules); err == nil {
		t.Error("expected colon to be rejected")
	}
	if err := ValidateName("router-cpu", rules); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseSeriesRef(t *testing.T) {
	tests := []struct {
		input   string
		want    SeriesRef
		wantErr bool
	}{
		{"router-01:cpu", SeriesRef{Source: "router-01", Metric: "cpu"}, false},
		{"cpu", SeriesRef{Metric: "cpu"}, false},
		{"a:b:c", SeriesRef{Source: "a", Metric: "b:c"}, false},
		{":cpu", SeriesRef{}, true},
		{"router:", SeriesRef{}, true},
		{"bad name", SeriesRef{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, err := ParseSeriesRef(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeriesRef(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if *ref != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, *ref)
			}
			if ref.String() != tt.input {
				t.Errorf("expected String()=%q, got %q", tt.input, ref.String())
			}
		})
	}
}
