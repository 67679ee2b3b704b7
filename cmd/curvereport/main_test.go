package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const octCSV = `,TD3C,TD3C__1,TD20,TD20__1,TC2,TC2__1,TC14,TC14__1
JUN25,100,500,120,1500,150,32,180,40
JUL25,98,490,118,1480,149,30,175,39
`

const novCSV = `,TD3C,TD3C__1,TD20,TD20__1,TC2,TC2__1,TC14,TC14__1
JUN25,110,520,120,1500,149,31.5,190,42
JUL25,97,488,119,1490,151,30.5,160,36
`

const denyConfig = `alerts:
  - id: tc14-move
    name: TC14 Move
    type: rate_move
    route: TC14
    severity: error
    threshold: 10
    enabled: true
`

func writeFixtures(t *testing.T) (dir, oct, nov string) {
	t.Helper()
	dir = t.TempDir()
	oct = filepath.Join(dir, "oct.csv")
	nov = filepath.Join(dir, "nov.csv")
	require.NoError(t, os.WriteFile(oct, []byte(octCSV), 0o644))
	require.NoError(t, os.WriteFile(nov, []byte(novCSV), 0o644))
	return dir, oct, nov
}

func testApp(exitCode *int) *cli.App {
	app := newApp()
	app.ExitErrHandler = func(_ *cli.Context, err error) {
		if ec, ok := err.(cli.ExitCoder); ok {
			*exitCode = ec.ExitCode()
		}
	}
	return app
}

func TestReportCommandJSON(t *testing.T) {
	dir, oct, nov := writeFixtures(t)
	out := filepath.Join(dir, "report.json")

	var code int
	err := testApp(&code).Run([]string{"curvereport", "--log-level", "error",
		"report", "--base", oct, "--base-label", "Oct", "--compare", nov, "--compare-label", "Nov",
		"--format", "json", "--out", out})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var rep map[string]any
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, "The most significant change occurred in TC14 for JUL25, with a WS change of -15.00.", rep["fact"])
	assert.Len(t, rep["rows"], 8)
}

func TestReportFailOnDeny(t *testing.T) {
	dir, oct, nov := writeFixtures(t)
	cfg := filepath.Join(dir, "curve.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(denyConfig), 0o644))

	var code int
	err := testApp(&code).Run([]string{"curvereport", "--log-level", "error", "--config", cfg,
		"report", "--base", oct, "--compare", nov, "--out", filepath.Join(dir, "r.txt"), "--fail-on-deny"})
	require.Error(t, err)
	assert.Equal(t, 2, code)

	code = 0
	err = testApp(&code).Run([]string{"curvereport", "--log-level", "error", "--config", cfg,
		"report", "--base", oct, "--compare", nov, "--out", filepath.Join(dir, "r.txt")})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestReportErrors(t *testing.T) {
	_, oct, _ := writeFixtures(t)

	var code int
	err := testApp(&code).Run([]string{"curvereport", "--log-level", "error",
		"report", "--base", oct, "--compare", "/missing/nov.csv"})
	assert.Error(t, err)

	err = testApp(&code).Run([]string{"curvereport", "--log-level", "error",
		"report", "--base-id", "5b0c1a8e-8a0b-4b0c-9b54-2a3f6a9d1c01"})
	assert.ErrorContains(t, err, "--store")

	err = testApp(&code).Run([]string{"curvereport", "report", "--format", "pdf"})
	assert.ErrorContains(t, err, "unknown output format")
}

func TestReportOutUnwritable(t *testing.T) {
	dir, oct, nov := writeFixtures(t)

	var code int
	err := testApp(&code).Run([]string{"curvereport", "--log-level", "error",
		"report", "--base", oct, "--compare", nov, "--out", filepath.Join(dir, "missing", "r.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create")
}
