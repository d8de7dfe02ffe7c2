package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flowgrid/flowgrid/pkg/errors"
	"github.com/flowgrid/flowgrid/pkg/refine"
)

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.toml")
	content := `
base_spacing = 150.0
node_spacing = 95.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadProfile(path)
	if err != nil {
		t.Fatalf("loadProfile() error: %v", err)
	}

	if cfg.BaseSpacing != 150.0 {
		t.Errorf("BaseSpacing = %v, want 150.0", cfg.BaseSpacing)
	}
	if cfg.NodeSpacing != 95.0 {
		t.Errorf("NodeSpacing = %v, want 95.0", cfg.NodeSpacing)
	}

	// Unset keys keep the tuned defaults.
	def := refine.DefaultConfig()
	if cfg.BranchSpacing != def.BranchSpacing {
		t.Errorf("BranchSpacing = %v, want default %v", cfg.BranchSpacing, def.BranchSpacing)
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	_, err := loadProfile(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("loadProfile() expected error for missing file")
	}
	if errors.GetCode(err) != errors.ErrCodeInvalidConfig {
		t.Errorf("GetCode() = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidConfig)
	}
}

func TestListDiagramFiles(t *testing.T) {
	dir := t.TempDir()

	valid := `{"name":"demo","elements":[{"id":"a","type":"task","bounds":{"x":0,"y":0,"width":100,"height":80}}],"connections":[]}`
	if err := os.WriteFile(filepath.Join(dir, "demo.json"), []byte(valid), 0o644); err != nil {
		t.Fatal(err)
	}
	// Not a diagram; should be skipped.
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{"foo":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := listDiagramFiles(dir)
	if err != nil {
		t.Fatalf("listDiagramFiles() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Name != "demo" {
		t.Errorf("Name = %q, want %q", entries[0].Name, "demo")
	}
	if entries[0].Elements != 1 {
		t.Errorf("Elements = %d, want 1", entries[0].Elements)
	}
}
