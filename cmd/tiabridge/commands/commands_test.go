package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plantFixture = `
patterns: ["*.projx"]
projects:
  demo.projx:
    name: Demo
    devices:
      - name: PLC_1
        items:
          - name: CPU 1516
            software:
              kind: controller
              name: PLC_1
              program:
                blocks:
                  - {name: DB1, number: 1, type: Block}
                  - {name: Main, number: 1, type: OB}
                groups:
                  - name: Motors
                    blocks:
                      - {name: MotorFB, number: 10, type: Block}
  panel.projx:
    name: Panel
    devices:
      - name: Panel
        items:
          - name: HMI_1
            software: {kind: hmi, name: HMI_RT}
  locked.projx:
    open_error: {kind: locked}
  detached.projx:
    name: Detached
    devices:
      - name: PLC_1
        items_error: COM object disconnected
`

type run struct {
	code int
	out  string
	err  string
}

// workspace writes the fixture and one project file per name into a fresh
// directory and returns the fixture path and the directory.
func workspace(t *testing.T, fixture string, projects ...string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	fixturePath := filepath.Join(dir, "plant.yaml")
	require.NoError(t, os.WriteFile(fixturePath, []byte(fixture), 0o600))

	projectDir := filepath.Join(dir, "projects")
	require.NoError(t, os.Mkdir(projectDir, 0o755))
	for _, name := range projects {
		require.NoError(t, os.WriteFile(filepath.Join(projectDir, name), nil, 0o600))
	}
	return fixturePath, projectDir
}

func execute(t *testing.T, stdin string, args ...string) run {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), args, BuildInfo{Version: "1.2.3", Commit: "abc", BuildDate: "today"}, Streams{
		In:  strings.NewReader(stdin),
		Out: &out,
		Err: &errOut,
	})
	return run{code: code, out: out.String(), err: errOut.String()}
}

func TestListBlocks(t *testing.T) {
	fixture, dir := workspace(t, plantFixture, "demo.projx")

	r := execute(t, "", "--fixture", fixture, "list-blocks", dir)
	require.Equal(t, 0, r.code, r.err)

	db := strings.Index(r.out, "=== DB ===")
	fb := strings.Index(r.out, "=== FB ===")
	require.GreaterOrEqual(t, db, 0)
	require.Greater(t, fb, db)

	assert.Equal(t, "=== DB ===\nDB Name: DB1, Number: 1, Type: Block\n", r.out[db:fb])
	assert.Equal(t, "=== FB ===\nFB Name: MotorFB, Number: 10, Type: Block\n", r.out[fb:])
}

func TestListBlocksProjectFile(t *testing.T) {
	fixture, dir := workspace(t, plantFixture, "demo.projx")

	r := execute(t, "", "--fixture", fixture, "list-blocks", `"`+filepath.Join(dir, "demo.projx")+`"`)
	require.Equal(t, 0, r.code, r.err)
	assert.Contains(t, r.out, "DB Name: DB1")
}

func TestListBlocksJSON(t *testing.T) {
	fixture, dir := workspace(t, plantFixture, "demo.projx")

	r := execute(t, "", "--fixture", fixture, "list-blocks", "--output", "json", dir)
	require.Equal(t, 0, r.code, r.err)
	assert.NotContains(t, r.out, "===")

	type jsonListing struct {
		Category string `json:"category"`
		Units    []struct {
			Name   string `json:"name"`
			Number *int   `json:"number"`
			Type   string `json:"type"`
		} `json:"units"`
	}

	var listings []jsonListing
	dec := json.NewDecoder(strings.NewReader(r.out))
	for dec.More() {
		var l jsonListing
		require.NoError(t, dec.Decode(&l))
		listings = append(listings, l)
	}

	require.Len(t, listings, 2)
	assert.Equal(t, "data", listings[0].Category)
	require.Len(t, listings[0].Units, 1)
	assert.Equal(t, "DB1", listings[0].Units[0].Name)
	assert.Equal(t, "function", listings[1].Category)
	require.Len(t, listings[1].Units, 1)
	assert.Equal(t, "MotorFB", listings[1].Units[0].Name)
}

func TestExitCodes(t *testing.T) {
	fixture, dir := workspace(t, plantFixture, "demo.projx")
	_, emptyDir := workspace(t, plantFixture)
	_, panelDir := workspace(t, plantFixture, "panel.projx")
	_, lockedDir := workspace(t, plantFixture, "locked.projx")
	_, detachedDir := workspace(t, plantFixture, "detached.projx")

	brokenFixture, brokenDir := workspace(t, "start_error: no license available\n"+plantFixture, "demo.projx")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "missing project path", args: []string{"--fixture", fixture, "list-blocks"}, want: 1},
		{name: "extra arguments", args: []string{"--fixture", fixture, "list-blocks", dir, "more"}, want: 1},
		{name: "unknown command", args: []string{"frobnicate", dir}, want: 1},
		{name: "unknown flag", args: []string{"list-blocks", "--nope", dir}, want: 1},
		{name: "unknown output format", args: []string{"--fixture", fixture, "list-blocks", "--output", "xml", dir}, want: 1},
		{name: "unknown driver", args: []string{"--environment", "portal", "list-blocks", dir}, want: 99},
		{name: "no controller", args: []string{"--fixture", fixture, "list-blocks", panelDir}, want: 2},
		{name: "no project in directory", args: []string{"--fixture", fixture, "list-blocks", emptyDir}, want: 3},
		{name: "missing path", args: []string{"--fixture", fixture, "list-blocks", filepath.Join(dir, "nope.projx")}, want: 3},
		{name: "project locked", args: []string{"--fixture", fixture, "list-blocks", lockedDir}, want: 3},
		{name: "device items unreadable", args: []string{"--fixture", fixture, "list-blocks", detachedDir}, want: 3},
		{name: "environment fails to start", args: []string{"--fixture", brokenFixture, "list-blocks", brokenDir}, want: 99},
		{name: "missing fixture", args: []string{"--fixture", filepath.Join(dir, "none.yaml"), "list-blocks", dir}, want: 99},
		{name: "missing config", args: []string{"--config", filepath.Join(dir, "none.cue"), "list-blocks", dir}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := execute(t, "", tt.args...)
			assert.Equal(t, tt.want, r.code, r.err)
			if tt.want != 0 {
				assert.Contains(t, r.err, "Error:")
			}
		})
	}
}

func TestInteractive(t *testing.T) {
	fixture, dir := workspace(t, plantFixture, "demo.projx")

	r := execute(t, dir+"\n\n", "--fixture", fixture)
	require.Equal(t, 0, r.code, r.err)

	for _, want := range []string{
		`Enter the full project path (e.g. D:\plc\demo.ap17):`,
		"Project opened",
		"Name: Demo",
		"Controller program found: PLC_1",
		"=== DB listing ===",
		"DB Name: DB1, Number: 1, Type: Block",
		"=== FB listing ===",
		"FB Name: MotorFB, Number: 10, Type: Block",
		"Done. Press Enter to exit...",
	} {
		assert.Contains(t, r.out, want)
	}
}

func TestInteractiveEmptyPath(t *testing.T) {
	fixture, _ := workspace(t, plantFixture)

	r := execute(t, "\n", "--fixture", fixture)
	assert.Equal(t, 1, r.code)
	assert.NotContains(t, r.out, "Press Enter to exit")

	r = execute(t, "", "--fixture", fixture)
	assert.Equal(t, 1, r.code)
}

func TestInteractiveFailureWaits(t *testing.T) {
	fixture, _ := workspace(t, plantFixture)
	_, panelDir := workspace(t, plantFixture, "panel.projx")

	r := execute(t, panelDir+"\n\n", "--fixture", fixture)
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.out, "Project opened")
	assert.Contains(t, r.out, "no controller program found")
	assert.Contains(t, r.out, "Press Enter to exit...")
}

func TestRecordAndHistory(t *testing.T) {
	fixture, dir := workspace(t, plantFixture, "demo.projx")
	_, panelDir := workspace(t, plantFixture, "panel.projx")
	db := filepath.Join(t.TempDir(), "history.db")

	r := execute(t, "", "--fixture", fixture, "list-blocks", "--record", db, dir)
	require.Equal(t, 0, r.code, r.err)
	r = execute(t, "", "--fixture", fixture, "list-blocks", "--record", db, panelDir)
	require.Equal(t, 2, r.code, r.err)

	r = execute(t, "", "history", "--store", db, "--output", "json")
	require.Equal(t, 0, r.code, r.err)

	var inspections []struct {
		ID            string `json:"id"`
		ProjectPath   string `json:"project_path"`
		ProjectName   string `json:"project_name"`
		Controller    string `json:"controller"`
		Mode          string `json:"mode"`
		Status        string `json:"status"`
		ErrorClass    string `json:"error_class"`
		DataUnits     int    `json:"data_units"`
		FunctionUnits int    `json:"function_units"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.out), &inspections))
	require.Len(t, inspections, 2)

	byPath := map[string]int{}
	for i, insp := range inspections {
		byPath[insp.ProjectPath] = i
	}

	ok := inspections[byPath[dir]]
	assert.Equal(t, "completed", ok.Status)
	assert.Equal(t, "headless", ok.Mode)
	assert.Equal(t, "Demo", ok.ProjectName)
	assert.Equal(t, "PLC_1", ok.Controller)
	assert.Equal(t, 1, ok.DataUnits)
	assert.Equal(t, 1, ok.FunctionUnits)

	failed := inspections[byPath[panelDir]]
	assert.Equal(t, "failed", failed.Status)
	assert.Equal(t, "Panel", failed.ProjectName)
	assert.Equal(t, "no_controller", failed.ErrorClass)

	r = execute(t, "", "history", "--store", db)
	require.Equal(t, 0, r.code, r.err)
	assert.Contains(t, r.out, "Demo")
	assert.Contains(t, r.out, "completed")
	assert.Contains(t, r.out, ok.ID)
}

func TestHistoryUnits(t *testing.T) {
	fixture, dir := workspace(t, plantFixture, "demo.projx")
	db := filepath.Join(t.TempDir(), "history.db")

	r := execute(t, "", "--fixture", fixture, "list-blocks", "--record", db, dir)
	require.Equal(t, 0, r.code, r.err)

	r = execute(t, "", "history", "--store", db, "--output", "json")
	require.Equal(t, 0, r.code, r.err)
	var inspections []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.out), &inspections))
	require.Len(t, inspections, 1)

	r = execute(t, "", "history", "--store", db, "--output", "text", "--units", inspections[0].ID)
	require.Equal(t, 0, r.code, r.err)
	assert.Equal(t, "=== DB ===\nDB Name: DB1, Number: 1, Type: Block\n"+
		"=== FB ===\nFB Name: MotorFB, Number: 10, Type: Block\n", r.out)

	r = execute(t, "", "history", "--store", db, "--units", "no-such-inspection")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.err, "unknown inspection")
}

func TestHistoryRequiresStore(t *testing.T) {
	r := execute(t, "", "history")
	assert.Equal(t, 1, r.code)
}

func TestVersion(t *testing.T) {
	r := execute(t, "", "version")
	require.Equal(t, 0, r.code, r.err)
	assert.Contains(t, r.out, "tiabridge 1.2.3")
	assert.Contains(t, r.out, "commit: abc")
}

func TestMetricsTextfile(t *testing.T) {
	fixture, dir := workspace(t, plantFixture, "demo.projx")
	metrics := filepath.Join(t.TempDir(), "tiabridge.prom")

	r := execute(t, "", "--fixture", fixture, "--metrics-file", metrics, "list-blocks", dir)
	require.Equal(t, 0, r.code, r.err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `tiabridge_sessions_total{mode="headless",result="ok"} 1`)
	assert.Contains(t, string(data), "tiabridge_run_duration_seconds")
}
