package utils

import "testing"

func TestFormatting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		got    string
		expect string
	}{
		{name: "thousands", got: Thousands(1050), expect: "1,050"},
		{name: "small number", got: Thousands(999.6), expect: "1,000"},
		{name: "money", got: Money(50000), expect: "$50,000"},
		{name: "negative money", got: Money(-1250), expect: "-$1,250"},
		{name: "percent", got: Percent(0.15), expect: "15%"},
		{name: "percent rounds", got: Percent(0.124), expect: "12%"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, tt.got)
			}
		})
	}
}
