package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedCmd_DryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[users]]
id = "w001"
name = "R. Mehta"
role = "warden"
password = "warden123"

[[users]]
id = "S101"
name = "Asha Rao"
role = "student"
password = "student123"
room = "B-204"
`), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--file", path, "--dry-run"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Asha Rao")
	assert.Contains(t, out.String(), "2 users valid, nothing written")
}

func TestSeedCmd_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - id: S101
    name: Asha Rao
    role: student
    password: abc
`), 0o600))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--file", path, "--dry-run"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password must be at least")
}

func TestSeedCmd_RequiresFile(t *testing.T) {
	t.Setenv("SEED_FILE", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--dry-run"})

	assert.Error(t, cmd.Execute())
}
