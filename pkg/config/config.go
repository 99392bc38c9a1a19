// Package config reads the whitespace key/value configuration file
// described in spec.md §6. The scanner shape (bufio.Scanner, per-line
// dispatch) is grounded on pkg/netlist's line
// scanner in the teacher repo, simplified since this grammar has no line
// continuation.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gesim/pkg/errs"

	"github.com/sirupsen/logrus"
)

// Config mirrors the MJD_Siggen_Setup fields read from a config file.
type Config struct {
	Verbosity int

	XtalLength         float64
	XtalRadius         float64
	TopBulletRadius    float64
	BottomBulletRadius float64
	PCLength           float64
	PCRadius           float64
	BulletizePC        bool
	TaperLength        float64
	WrapAroundRadius   float64
	DitchDepth         float64
	DitchThickness     float64
	LiThickness        float64

	XtalGrid         float64
	ImpurityZ0       float64
	ImpurityGradient float64
	XtalHV           float64
	MaxIterations    int
	WriteField       int
	WriteWP          int

	DriftName string
	FieldName string
	WPName    string

	XtalTemp        float64
	PreampTau       float64
	TimeStepsCalc   int
	StepTimeCalc    float64
	StepTimeOut     float64
	ChargeCloudSize float64
	UseDiffusion    bool
}

// Load parses a configuration file at path, following the key/value/#comment
// grammar from spec.md §6. Unknown keys are logged at warn level and
// ignored, never fatal.
func Load(path string, log *logrus.Logger) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, "opening config file "+path, err)
	}
	defer f.Close()

	cfg := &Config{
		MaxIterations: 0,
		XtalGrid:      0.5,
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errs.New(errs.ConfigError, fmt.Sprintf("line %d: expected 'key value'", lineNo))
		}
		key, val := fields[0], fields[1]
		if err := cfg.set(key, val, log); err != nil {
			return nil, errs.Wrap(errs.ConfigError, fmt.Sprintf("line %d", lineNo), err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.IoError, "reading config file "+path, err)
	}

	if (cfg.XtalHV < 0 && cfg.ImpurityZ0 < 0) || (cfg.XtalHV > 0 && cfg.ImpurityZ0 > 0) {
		return nil, errs.New(errs.ConfigError, "bias and impurity_z0 must have opposite signs")
	}

	return cfg, nil
}

func (c *Config) set(key, val string, log *logrus.Logger) error {
	switch key {
	case "verbosity_level":
		return scanInt(val, &c.Verbosity)
	case "xtal_length":
		return scanFloat(val, &c.XtalLength)
	case "xtal_radius":
		return scanFloat(val, &c.XtalRadius)
	case "top_bullet_radius":
		return scanFloat(val, &c.TopBulletRadius)
	case "bottom_bullet_radius":
		return scanFloat(val, &c.BottomBulletRadius)
	case "pc_length":
		return scanFloat(val, &c.PCLength)
	case "pc_radius":
		return scanFloat(val, &c.PCRadius)
	case "bulletize_PC":
		return scanBool(val, &c.BulletizePC)
	case "taper_length":
		return scanFloat(val, &c.TaperLength)
	case "wrap_around_radius":
		return scanFloat(val, &c.WrapAroundRadius)
	case "ditch_depth":
		return scanFloat(val, &c.DitchDepth)
	case "ditch_thickness":
		return scanFloat(val, &c.DitchThickness)
	case "Li_thickness":
		return scanFloat(val, &c.LiThickness)
	case "xtal_grid":
		return scanFloat(val, &c.XtalGrid)
	case "impurity_z0":
		return scanFloat(val, &c.ImpurityZ0)
	case "impurity_gradient":
		return scanFloat(val, &c.ImpurityGradient)
	case "xtal_HV":
		return scanFloat(val, &c.XtalHV)
	case "max_iterations":
		return scanInt(val, &c.MaxIterations)
	case "write_field":
		return scanInt(val, &c.WriteField)
	case "write_WP":
		return scanInt(val, &c.WriteWP)
	case "drift_name":
		c.DriftName = val
	case "field_name":
		c.FieldName = val
	case "wp_name":
		c.WPName = val
	case "xtal_temp":
		return scanFloat(val, &c.XtalTemp)
	case "preamp_tau":
		return scanFloat(val, &c.PreampTau)
	case "time_steps_calc":
		return scanInt(val, &c.TimeStepsCalc)
	case "step_time_calc":
		return scanFloat(val, &c.StepTimeCalc)
	case "step_time_out":
		return scanFloat(val, &c.StepTimeOut)
	case "charge_cloud_size":
		return scanFloat(val, &c.ChargeCloudSize)
	case "use_diffusion":
		return scanBool(val, &c.UseDiffusion)
	default:
		if log != nil {
			log.Warnf("config: unknown key %q ignored", key)
		}
	}
	return nil
}

func scanFloat(s string, dst *float64) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid float %q: %v", s, err)
	}
	*dst = v
	return nil
}

func scanInt(s string, dst *int) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid int %q: %v", s, err)
	}
	*dst = v
	return nil
}

func scanBool(s string, dst *bool) error {
	switch s {
	case "0":
		*dst = false
	case "1":
		*dst = true
	default:
		return fmt.Errorf("invalid bool %q, expected 0 or 1", s)
	}
	return nil
}
