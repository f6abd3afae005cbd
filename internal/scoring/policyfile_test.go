package scoring

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPolicy_PartialOverride(t *testing.T) {
	doc := `
policy:
  emergency_threshold: 0.65
keywords:
  quick: [Flood, "carbon monoxide"]
`
	p, v, err := LoadPolicy(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.EmergencyThreshold != 0.65 {
		t.Errorf("expected threshold 0.65, got %v", p.EmergencyThreshold)
	}
	if p.BaseWeight != DefaultBaseWeight || p.Penalty != DefaultPenalty {
		t.Errorf("expected untouched fields to keep defaults, got %+v", p)
	}
	if v.Quick.Len() != 2 || !v.Quick.Contains("flood") {
		t.Errorf("expected quick vocabulary override, got %v", v.Quick.Words())
	}
	if v.Fusion.Len() != len(DefaultFusionKeywords) {
		t.Errorf("expected default fusion vocabulary, got %v", v.Fusion.Words())
	}
}

func TestLoadPolicy_Empty(t *testing.T) {
	p, v, err := LoadPolicy(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != DefaultPolicy() {
		t.Errorf("expected default policy, got %+v", p)
	}
	if v.Quick.Len() != len(DefaultQuickKeywords) {
		t.Errorf("expected default quick vocabulary, got %v", v.Quick.Words())
	}
}

func TestLoadPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "policy:\n  base_wieght: 0.5\n"},
		{"zero saturation", "policy:\n  keyword_saturation: 0\n"},
		{"zero ceiling", "policy:\n  density_ceiling_wps: 0\n"},
		{"negative penalty", "policy:\n  penalty: -0.05\n"},
		{"malformed", "policy: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := LoadPolicy(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("keywords:\n  fusion: [fire]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, v, err := LoadPolicyFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Fusion.Len() != 1 {
		t.Errorf("expected single fusion keyword, got %v", v.Fusion.Words())
	}

	if _, _, err := LoadPolicyFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
