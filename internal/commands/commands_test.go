package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nconklindev/sift/internal/converter"
)

const dataCSV = "id,value\n1,10\n1,10\n2,\n3,20\n"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCmd(viper.New(), BuildInfo{Version: "1.2.3", Commit: "abc", Date: "today"})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	want := "sift 1.2.3\ncommit: abc\nbuilt: today\n"

	for _, args := range [][]string{{"version"}, {"--version"}} {
		out, err := run(t, args...)
		require.NoError(t, err)
		assert.Equal(t, want, out)
	}
}

func TestClean(t *testing.T) {
	input := writeFile(t, "data.csv", dataCSV)
	output := filepath.Join(t.TempDir(), "out", "clean.xlsx")

	out, err := run(t, "clean", input, "--dedupe", "--fill", "--format", "xlsx", "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "-> "+output)
	assert.Contains(t, out, "3 rows, 2 columns")

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	tbl, err := converter.Parse("clean.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "10"}, {"2", "15"}, {"3", "20"}}, tbl.Head(5))
}

func TestClean_DefaultOutputName(t *testing.T) {
	input := writeFile(t, "data.csv", dataCSV)
	dir := t.TempDir()
	t.Setenv("SIFT_OUTPUT_DIR", dir)

	_, err := run(t, "clean", input, "--columns", "value,id")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "value,id\n10,1\n10,1\n,2\n20,3\n", string(data))
}

func TestClean_Quiet(t *testing.T) {
	input := writeFile(t, "data.csv", dataCSV)
	output := filepath.Join(t.TempDir(), "clean.csv")

	for _, tt := range []struct {
		name   string
		quiet  bool
		logged bool
	}{
		{"verbose", false, true},
		{"quiet", true, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			cmd := NewRootCmd(viper.New(), BuildInfo{})
			cmd.SetOut(&out)
			cmd.SetErr(&errOut)
			args := []string{"clean", input, "--dedupe", "--output", output}
			if tt.quiet {
				args = append(args, "--quiet")
			}
			cmd.SetArgs(args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.logged, strings.Contains(errOut.String(), "Removed 1 duplicate row(s)"), errOut.String())
			assert.Contains(t, out.String(), "-> "+output)
		})
	}
}

func TestClean_Errors(t *testing.T) {
	input := writeFile(t, "data.csv", dataCSV)

	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"clean", filepath.Join(t.TempDir(), "nope.csv")}},
		{"unsupported file", []string{"clean", writeFile(t, "notes.txt", "hello")}},
		{"unknown column", []string{"clean", input, "--columns", "nope"}},
		{"unknown format", []string{"clean", input, "--format", "pdf"}},
		{"no arguments", []string{"clean"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("SIFT_SERVER_MAX_UPLOAD_MB", "0")

	_, err := run(t, "serve")
	assert.ErrorContains(t, err, "invalid config")
}
