package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AlhasanIQ/mcp-clarify/config"
)

// isolateConfig points config and state paths into a temp dir.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	t.Setenv(config.EnvConfigPath, cfgPath)
	t.Setenv(config.EnvTelegramPendingStorePath, "")
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	return cfgPath
}

func testIO() (IO, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return IO{In: strings.NewReader(""), Out: &out, ErrOut: &errOut}, &out, &errOut
}
