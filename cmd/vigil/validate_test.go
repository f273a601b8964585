package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateSampleDefinitions(t *testing.T) {
	out, err := runRoot(t, "validate", "../../configs/monitors.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "monitors:      5")
	assert.Contains(t, out, "maintenance:   2")
	assert.Contains(t, out, "notifications: 2")
}

func TestValidateRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitors:\n  - id: a\n    name: A\n    type: push\n    intervl: 60\n    push: {}\n"), 0o600))

	_, err := runRoot(t, "validate", path)
	assert.Error(t, err)
}
