package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sample = `# sample detector config
verbosity_level 1
xtal_length 50.5
xtal_radius 34.5
pc_length 2.1
pc_radius 1.4
xtal_grid 0.5
impurity_z0 -0.318
impurity_gradient 0.025
xtal_HV 2500
max_iterations 30000
write_field 1
write_WP 1
drift_name drift.tab
field_name field.dat
wp_name wp.dat
xtal_temp 90
preamp_tau 30
time_steps_calc 8000
step_time_calc 1
step_time_out 10
charge_cloud_size 0.1
use_diffusion 1
some_future_key 42
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "det.cfg")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesAllKeys(t *testing.T) {
	path := writeConfig(t)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.XtalLength != 50.5 || cfg.XtalRadius != 34.5 {
		t.Errorf("geometry fields not parsed: %+v", cfg)
	}
	if cfg.PreampTau != 30 || cfg.TimeStepsCalc != 8000 {
		t.Errorf("signal fields not parsed: %+v", cfg)
	}
	if !cfg.UseDiffusion {
		t.Error("use_diffusion should be true")
	}
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	path := writeConfig(t)
	if _, err := Load(path, nil); err != nil {
		t.Fatalf("unknown key should only warn, not fail: %v", err)
	}
}

func TestLoadRejectsSameSignBiasAndImpurity(t *testing.T) {
	bad := "xtal_length 50\nxtal_radius 30\nxtal_HV 2500\nimpurity_z0 0.3\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cfg")
	os.WriteFile(path, []byte(bad), 0o644)
	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected ConfigError for same-sign bias and impurity")
	}
}
