package dashboard

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadHealthRules(t *testing.T) {
	path := writeRulesFile(t, "error_count_threshold: 10\nerror_window_minutes: 15\n")

	rules, err := LoadHealthRules(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules.ErrorCountThreshold != 10 {
		t.Errorf("threshold = %d, want 10", rules.ErrorCountThreshold)
	}
	if rules.ErrorWindowMinutes != 15 {
		t.Errorf("error window = %d, want 15", rules.ErrorWindowMinutes)
	}
	// Omitted fields keep their defaults.
	if rules.StatusWindowMinutes != 60 {
		t.Errorf("status window = %d, want default 60", rules.StatusWindowMinutes)
	}
}

func TestLoadHealthRulesRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative threshold", "error_count_threshold: -1\n"},
		{"zero error window", "error_window_minutes: 0\nerror_count_threshold: 5\nstatus_window_minutes: 60\n"},
		{"bad yaml", "error_count_threshold: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRulesFile(t, tt.content)
			if _, err := LoadHealthRules(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadHealthRulesZeroWindowRejected(t *testing.T) {
	// A file that zeroes a window must not slip through via defaults.
	rules := HealthRules{ErrorCountThreshold: 5, ErrorWindowMinutes: 30}
	if err := rules.Validate(); err == nil {
		t.Error("expected error for zero status window")
	}
}

func TestRuleHolderSwap(t *testing.T) {
	h := NewRuleHolder(DefaultHealthRules(), nil)

	if got := h.Current().ErrorCountThreshold; got != 5 {
		t.Fatalf("initial threshold = %d, want 5", got)
	}

	updated := DefaultHealthRules()
	updated.ErrorCountThreshold = 20
	h.set(updated)

	if got := h.Current().ErrorCountThreshold; got != 20 {
		t.Errorf("threshold after set = %d, want 20", got)
	}
}
