package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script named name in dir.
func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	content := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0755))
}

// dirCmdBuilder returns a CmdBuilder that runs commands from dir.
func dirCmdBuilder(dir string) CmdBuilder {
	return func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
		cmd := exec.CommandContext(ctx, name, arg...)
		cmd.Dir = dir
		return cmd, func() {}
	}
}
