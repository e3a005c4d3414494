package command

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r)
	assert.Len(t, r.Commands(), len(BuiltinCommands()))
}

func TestResolve_CanonicalName(t *testing.T) {
	r := DefaultRegistry()

	cmd, ok := r.Resolve("status")
	assert.True(t, ok)
	assert.Equal(t, "status", cmd.Name)
	assert.Equal(t, HandlerStatus, cmd.Handler)
}

func TestResolve_Alias(t *testing.T) {
	r := DefaultRegistry()

	cmd, ok := r.Resolve("sim")
	assert.True(t, ok)
	assert.Equal(t, "simulate", cmd.Name)
}

func TestResolve_NotFound(t *testing.T) {
	r := DefaultRegistry()

	_, ok := r.Resolve("teleport")
	assert.False(t, ok)
}

func TestResolve_AllHandlers(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		input   string
		handler string
	}{
		{"status", HandlerStatus},
		{"st", HandlerStatus},
		{"set", HandlerSet},
		{"clear", HandlerClear},
		{"clearall", HandlerClearAll},
		{"immunity", HandlerImmunity},
		{"immune", HandlerImmunity},
		{"toggle", HandlerToggle},
		{"reload", HandlerReload},
		{"preset", HandlerPreset},
		{"spawn", HandlerSpawn},
		{"stats", HandlerStats},
		{"sync", HandlerSync},
		{"simulate", HandlerSimulate},
		{"join", HandlerJoin},
		{"leave", HandlerLeave},
		{"move", HandlerMove},
		{"tp", HandlerMove},
		{"report", HandlerReport},
		{"help", HandlerHelp},
		{"?", HandlerHelp},
	}

	for _, tt := range tests {
		cmd, ok := r.Resolve(tt.input)
		require.True(t, ok, "input %q not found", tt.input)
		assert.Equal(t, tt.handler, cmd.Handler, "input %q wrong handler", tt.input)
	}
}

func TestNewRegistry_DuplicateName(t *testing.T) {
	cmds := []Command{
		{Name: "test", Handler: "a"},
		{Name: "test", Handler: "b"},
	}
	_, err := NewRegistry(cmds)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate command name")
}

func TestNewRegistry_DuplicateAlias(t *testing.T) {
	cmds := []Command{
		{Name: "test1", Aliases: []string{"t"}, Handler: "a"},
		{Name: "test2", Aliases: []string{"t"}, Handler: "b"},
	}
	_, err := NewRegistry(cmds)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate alias")
}

func TestCommandsByCategory(t *testing.T) {
	r := DefaultRegistry()
	cats := r.CommandsByCategory()

	assert.Contains(t, cats, CategoryPlayer)
	assert.Contains(t, cats, CategoryGuards)
	assert.Contains(t, cats, CategorySystem)
	assert.Contains(t, cats, CategoryHost)
	assert.Len(t, cats[CategoryPlayer], 5)
	assert.Len(t, cats[CategoryHost], 4)
}

func TestValidate(t *testing.T) {
	r := DefaultRegistry()
	set, _ := r.Resolve("set")

	err := Validate(set, []string{"alice", "wanted"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsage))
	assert.Contains(t, err.Error(), "law set <player> wanted|peace <n>")

	assert.NoError(t, Validate(set, []string{"alice", "wanted", "3"}))
}

func TestHelpText_ListsEveryCommand(t *testing.T) {
	r := DefaultRegistry()
	text := r.HelpText()
	lines := strings.Split(strings.TrimSpace(text), "\n")
	assert.Len(t, lines, len(BuiltinCommands()))
	assert.True(t, strings.HasPrefix(lines[0], "law clear "))
}

func TestPropertyAllAliasesResolveToCanonical(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := DefaultRegistry()
		cmds := r.Commands()
		idx := rapid.IntRange(0, len(cmds)-1).Draw(t, "cmd_idx")
		cmd := cmds[idx]

		resolved, ok := r.Resolve(cmd.Name)
		if !ok {
			t.Fatalf("canonical name %q did not resolve", cmd.Name)
		}
		if resolved.Name != cmd.Name {
			t.Fatalf("canonical name %q resolved to %q", cmd.Name, resolved.Name)
		}

		for _, alias := range cmd.Aliases {
			aliasResolved, ok := r.Resolve(alias)
			if !ok {
				t.Fatalf("alias %q did not resolve", alias)
			}
			if aliasResolved.Name != cmd.Name {
				t.Fatalf("alias %q resolved to %q, expected %q", alias, aliasResolved.Name, cmd.Name)
			}
		}
	})
}
