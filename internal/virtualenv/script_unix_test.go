//go:build !windows

package virtualenv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unityrunner/internal/proc"
)

func TestDetectScriptFindsHintedEditor(t *testing.T) {
	hint := t.TempDir()
	root := filepath.Join(hint, "2022.3.7f1")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Editor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Editor", "Unity"), []byte("#!/bin/sh\n"), 0o755))

	p := NewProbe(Options{RootHint: hint})
	cl, err := p.CommandLine()
	require.NoError(t, err)

	var env []string
	for k, v := range cl.Env {
		env = append(env, k+"="+v)
	}
	stdout := proc.NewLineWriter(p.Stdout)
	stderr := proc.NewLineWriter(p.Stderr)
	res, err := proc.CmdRunner{}.Run(context.Background(), cl.Executable, cl.Args, proc.RunOptions{
		Env: env, Stdout: stdout, Stderr: stderr,
	})
	require.NoError(t, err)
	stdout.Flush()
	stderr.Flush()
	p.ProcessFinished(res.ExitCode)

	var found []Result
	for _, r := range p.Environments() {
		if strings.HasPrefix(r.Path, hint) {
			found = append(found, r)
		}
	}
	require.Len(t, found, 1)
	assert.Equal(t, filepath.Join(root, "Editor", "Unity"), found[0].Path)
	assert.Equal(t, "2022.3.7", found[0].Version.String())
}
