package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSpec(t *testing.T) {
	spec, err := cronSpec(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "@every 1h0m0s", spec)

	spec, err = cronSpec(5 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "@every 5m0s", spec)

	_, err = cronSpec(0)
	assert.Error(t, err)
}

func TestRootCommandHasModes(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "watch", "schedule", "fetch", "mail"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

// 配置通过sync.Once只加载一次，整个端到端流程放在一个测试里
func TestRunCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "uber.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"pickup_dt,borough,pickups,temp,pcp01,pcp06,pcp24\n"+
			"2023-01-05 09:00,A,5,40,0,0,0\n"+
			"2023-01-05 09:00,A,5,40,0,0,0\n"+
			",B,2,40,0,0,0\n"), 0644))

	cfg := map[string]interface{}{
		"input_path":  input,
		"output_path": filepath.Join(dir, "out", "dashboard.csv"),
		"chart_path":  filepath.Join(dir, "out", "charts.html"),
		"log_name":    filepath.Join(dir, "app.log"),
		"delimiter":   ",",
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), data, 0644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"run", "--config", dir})
	require.NoError(t, cmd.Execute())

	out, err := os.ReadFile(filepath.Join(dir, "out", "dashboard.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2023-01-05 09:00:00,A,5,40,0,0,0,Thurs,Jan,Morning", lines[1])
	assert.FileExists(t, filepath.Join(dir, "out", "charts.html"))

	logData, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "剩余 1 行")
}
