// Package config loads the report definition: canonical periods and routes,
// column naming, snapshot labels, static headlines and alert rules.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"freight-curve/decision/alert"
	"freight-curve/decision/curve"
	cerrors "freight-curve/pkg/errors"
)

// File is the YAML report definition.
type File struct {
	Periods     []string     `yaml:"periods"`
	Routes      []string     `yaml:"routes"`
	PriceSuffix string       `yaml:"price_suffix"`
	Snapshots   SnapshotPair `yaml:"snapshots"`
	Headlines   []string     `yaml:"headlines"`
	Alerts      []alert.Rule `yaml:"alerts"`
}

// SnapshotPair holds the default snapshot sources and labels.
type SnapshotPair struct {
	Base    SnapshotRef `yaml:"base"`
	Compare SnapshotRef `yaml:"compare"`
}

// SnapshotRef points at one snapshot file.
type SnapshotRef struct {
	Source   string `yaml:"source"`
	Label    string `yaml:"label"`
	Captured string `yaml:"captured"`
}

// CapturedLayout is the date format of SnapshotRef.Captured.
const CapturedLayout = "2006-01-02"

// Meta converts the reference to snapshot metadata. An empty Captured
// date leaves CapturedAt zero.
func (r SnapshotRef) Meta() (curve.SnapshotMeta, error) {
	meta := curve.SnapshotMeta{Label: r.Label, Source: r.Source}
	if r.Captured == "" {
		return meta, nil
	}
	t, err := time.Parse(CapturedLayout, r.Captured)
	if err != nil {
		return meta, cerrors.NewInvalidConfigError(fmt.Sprintf("captured date %q is not YYYY-MM-DD", r.Captured))
	}
	meta.CapturedAt = t
	return meta, nil
}

// Default returns the built-in report definition.
func Default() *File {
	cfg := curve.DefaultConfig()
	return &File{
		Periods:     cfg.Periods,
		Routes:      cfg.Routes,
		PriceSuffix: cfg.PriceSuffix,
		Snapshots: SnapshotPair{
			Base:    SnapshotRef{Source: "data/10_06_2025.csv", Label: "Oct", Captured: "2025-10-06"},
			Compare: SnapshotRef{Source: "data/11_06_2025.csv", Label: "Nov", Captured: "2025-11-06"},
		},
		Headlines: append([]string(nil), curve.DefaultStaticHeadlines...),
		Alerts:    alert.DefaultRules(),
	}
}

// Load reads a YAML definition over the defaults. An empty path returns the defaults.
// Keys absent from the file keep their default values.
func Load(path string) (*File, error) {
	f := Default()
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, cerrors.NewSourceNotFoundError(path, err)
	}
	if err != nil {
		return nil, cerrors.NewSourceUnreadableError(path, err)
	}
	return Parse(data, f)
}

// Parse decodes YAML onto base.
func Parse(data []byte, base *File) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(base); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := base.Curve().Validate(); err != nil {
		return nil, err
	}
	return base, nil
}

// Curve returns the loader configuration.
func (f *File) Curve() curve.Config {
	return curve.Config{
		Periods:     f.Periods,
		Routes:      f.Routes,
		PriceSuffix: f.PriceSuffix,
	}
}

// Marshal renders the effective definition as YAML.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
