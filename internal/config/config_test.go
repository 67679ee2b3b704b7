package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-curve/decision/alert"
	"freight-curve/decision/curve"
	cerrors "freight-curve/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, curve.DefaultConfig(), f.Curve())
	assert.Equal(t, "Oct", f.Snapshots.Base.Label)
	assert.Len(t, f.Alerts, 2)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.yaml")
	content := `periods: [DEC25, Q126]
routes: [TD3C]
snapshots:
  compare:
    source: s3://curves/12_06_2025.csv
    label: Dec
alerts:
  - id: td3c-ws
    name: TD3C WS swing
    type: rate_move
    route: TD3C
    severity: error
    threshold: 10
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"DEC25", "Q126"}, f.Periods)
	assert.Equal(t, []string{"TD3C"}, f.Routes)
	assert.Equal(t, curve.DefaultPriceSuffix, f.PriceSuffix)
	assert.Equal(t, "Oct", f.Snapshots.Base.Label)
	assert.Equal(t, "s3://curves/12_06_2025.csv", f.Snapshots.Compare.Source)
	require.Len(t, f.Alerts, 1)
	assert.Equal(t, alert.SeverityError, f.Alerts[0].Severity)
	assert.Equal(t, 10.0, f.Alerts[0].Threshold)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, cerrors.ErrSourceNotFound))

	_, err = Parse([]byte("routes: []\n"), Default())
	assert.True(t, errors.Is(err, cerrors.ErrInvalidConfig))

	_, err = Parse([]byte("unknown_key: 1\n"), Default())
	assert.Error(t, err)

	f, err := Parse([]byte(""), Default())
	require.NoError(t, err)
	assert.Len(t, f.Routes, 4)
}

func TestMarshalRoundTrip(t *testing.T) {
	out, err := Default().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "price_suffix: __1")

	f, err := Parse(out, &File{})
	require.NoError(t, err)
	assert.Equal(t, Default().Curve(), f.Curve())
}

func TestSnapshotRefMeta(t *testing.T) {
	meta, err := Default().Snapshots.Base.Meta()
	require.NoError(t, err)
	assert.Equal(t, "Oct", meta.Label)
	assert.Equal(t, "data/10_06_2025.csv", meta.Source)
	assert.Equal(t, time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC), meta.CapturedAt)

	meta, err = SnapshotRef{Label: "X"}.Meta()
	require.NoError(t, err)
	assert.True(t, meta.CapturedAt.IsZero())

	_, err = SnapshotRef{Captured: "06/10/2025"}.Meta()
	assert.True(t, errors.Is(err, cerrors.ErrInvalidConfig))
}
