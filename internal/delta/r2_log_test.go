package delta

import "testing"

func TestParseDeltaTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		want   int64
		wantOK bool
	}{
		{
			name:   "nanosecond timestamp key",
			key:    "catalog/delta/host-1/1756100000000000000-3f2a.json",
			want:   1756100000000000000,
			wantOK: true,
		},
		{
			name:   "bare timestamp",
			key:    "1756100000-x.json",
			want:   1756100000,
			wantOK: true,
		},
		{
			name:   "non-numeric first segment",
			key:    "catalog/delta/host/abc-123.json",
			wantOK: false,
		},
		{
			name:   "no separator",
			key:    "catalog/delta/host/notatimestamp.json",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDeltaTimestamp(tt.key)
			if ok != tt.wantOK {
				t.Fatalf("parseDeltaTimestamp(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("parseDeltaTimestamp(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"catalog/delta", "catalog/delta"},
		{"/catalog/delta/", "catalog/delta"},
		{"  /catalog/delta ", "catalog/delta"},
		{"///", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizePrefix(tt.input); got != tt.want {
			t.Errorf("normalizePrefix(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNewR2LogValidation(t *testing.T) {
	if _, err := NewR2Log(nil, "catalog/delta", "host-1"); err == nil {
		t.Error("expected error for nil client")
	}
}
