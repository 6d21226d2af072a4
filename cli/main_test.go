package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/imgmeta/core"
	"github.com/ankit-chaubey/imgmeta/core/fixture"
)

func testCommand(t *testing.T, configPath string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", configPath, "")
	cmd.Flags().Bool("json", false, "")
	cmd.Flags().Bool("verbose", false, "")
	cmd.Flags().Bool("extended", false, "")
	cmd.Flags().Int64("max-inflate", core.DefaultMaxInflateBytes, "")
	return cmd
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(testCommand(t, ""))
	require.NoError(t, err)
	require.False(t, cfg.Output.JSON)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, core.DefaultOptions(), cfg.options())
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surgery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"output:\n  verbose: true\n"+
			"extract:\n  extended: true\n  max_inflate_bytes: 2048\n"+
			"log:\n  level: debug\n"), 0o644))
	t.Setenv("SURGERY_OUTPUT_JSON", "true")
	t.Setenv("SURGERY_LOG_LEVEL", "warn")

	cmd := testCommand(t, path)
	require.NoError(t, cmd.Flags().Set("extended", "false"))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	require.True(t, cfg.Output.JSON)
	require.True(t, cfg.Output.Verbose)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, core.Options{MaxInflateBytes: 2048, Extended: false}, cfg.options())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(testCommand(t, filepath.Join(t.TempDir(), "absent.yaml")))
	require.Error(t, err)
}

func TestViewCommand(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(png, fixture.PNG(fixture.IHDR(4, 2), fixture.TEXt("Title", []byte("x")), fixture.IEND()), 0o644))
	txt := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain"), 0o644))

	var stdout, stderr bytes.Buffer
	surgery.SetOut(&stdout)
	surgery.SetErr(&stderr)
	t.Cleanup(func() {
		surgery.SetOut(nil)
		surgery.SetErr(nil)
		surgery.SetArgs(nil)
	})

	surgery.SetArgs([]string{"view", "--json", png, txt})
	require.NoError(t, surgery.Execute())

	var out struct {
		File   string `json:"file"`
		Format string `json:"format"`
		Fields []struct {
			Label string `json:"label"`
			Value string `json:"value"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Equal(t, png, out.File)
	require.Equal(t, "png", out.Format)
	require.Len(t, out.Fields, 3)
	require.Equal(t, "4 x 2 px", out.Fields[1].Value)

	stdout.Reset()
	surgery.SetArgs([]string{"view", "--json=false", txt})
	require.Error(t, surgery.Execute())
	require.Contains(t, stderr.String(), "not a recognized image")
}

func TestViewCommandForcedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.bin")
	require.NoError(t, os.WriteFile(path, fixture.JPEG(fixture.SOF0(8, 6), fixture.EOI()), 0o644))

	var stdout, stderr bytes.Buffer
	surgery.SetOut(&stdout)
	surgery.SetErr(&stderr)
	t.Cleanup(func() {
		surgery.SetOut(nil)
		surgery.SetErr(nil)
		surgery.SetArgs(nil)
		require.NoError(t, viewCmd.Flags().Set("format", ""))
	})

	surgery.SetArgs([]string{"view", "--json=false", "--format", "jpg", path})
	require.NoError(t, surgery.Execute())
	require.Contains(t, stdout.String(), "8 x 6 px")

	surgery.SetArgs([]string{"view", "--json=false", "--format", "png", path})
	require.Error(t, surgery.Execute())
	require.Contains(t, stderr.String(), "not a recognized image")

	surgery.SetArgs([]string{"view", "--json=false", "--format", "bmp", path})
	err := surgery.Execute()
	require.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestFormatsCommand(t *testing.T) {
	var stdout bytes.Buffer
	surgery.SetOut(&stdout)
	t.Cleanup(func() {
		surgery.SetOut(nil)
		surgery.SetArgs(nil)
	})
	surgery.SetArgs([]string{"formats", "--json=false"})
	require.NoError(t, surgery.Execute())
	require.Contains(t, stdout.String(), "Portable network graphics")
	require.Contains(t, stdout.String(), ".jpeg")
}
