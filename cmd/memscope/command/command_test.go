package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp(t *testing.T) {
	app := App()
	assert.Equal(t, "memscope", app.Name)

	names := make([]string, 0, len(app.Commands))
	for _, c := range app.Commands {
		names = append(names, c.Name)
		require.NotNil(t, c.Action, c.Name)
	}
	assert.Equal(t, []string{"oom-summary", "oom-tasks", "page-owner", "meminfo", "slab"}, names)

	pageOwner := app.Command("page-owner")
	require.NotNil(t, pageOwner)
	for _, flag := range pageOwner.Flags {
		assert.NotEqual(t, "P", flag.GetName(), "page-owner has no pages unit")
	}
}

func TestCommandFlagNamesUnique(t *testing.T) {
	for _, c := range App().Commands {
		t.Run(c.Name, func(t *testing.T) {
			seen := make(map[string]bool)
			for _, flag := range c.Flags {
				for _, name := range strings.Split(flag.GetName(), ",") {
					name = strings.TrimSpace(name)
					assert.False(t, seen[name], "flag %q defined twice", name)
					seen[name] = true
				}
			}
		})
	}
}
