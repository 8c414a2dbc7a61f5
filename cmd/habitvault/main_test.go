package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "remind", "watch"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestWatchCommand_RequiresUser(t *testing.T) {
	root := newRootCommand()
	var stderr bytes.Buffer
	root.SetErr(&stderr)
	root.SetArgs([]string{"watch"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user is required")
	assert.Contains(t, stderr.String(), "--user is required")
}

func TestRemindCommand_NeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	root := newRootCommand()
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"remind", "--config", t.TempDir() + "/none.yaml"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
