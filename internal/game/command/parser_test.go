package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParse_Empty(t *testing.T) {
	result := Parse("")
	assert.Equal(t, "", result.Command)
	assert.Nil(t, result.Args)
}

func TestParse_SingleWord(t *testing.T) {
	result := Parse("toggle")
	assert.Equal(t, "toggle", result.Command)
	assert.Nil(t, result.Args)
	assert.Equal(t, "", result.RawArgs)
}

func TestParse_Lowercase(t *testing.T) {
	result := Parse("STATS")
	assert.Equal(t, "stats", result.Command)
}

func TestParse_WithArgs(t *testing.T) {
	result := Parse("set alice wanted 3")
	assert.Equal(t, "set", result.Command)
	assert.Equal(t, []string{"alice", "wanted", "3"}, result.Args)
	assert.Equal(t, "alice wanted 3", result.RawArgs)
}

func TestParse_ExtraWhitespace(t *testing.T) {
	result := Parse("  spawn   patrol   2  ")
	assert.Equal(t, "spawn", result.Command)
	assert.Equal(t, []string{"patrol", "2"}, result.Args)
	assert.Equal(t, "patrol   2", result.RawArgs)
}

func TestParse_StripsRoot(t *testing.T) {
	for _, line := range []string{"law clear bob", "/law clear bob", "LAW clear bob"} {
		result := Parse(line)
		assert.Equal(t, "clear", result.Command, line)
		assert.Equal(t, []string{"bob"}, result.Args, line)
	}
}

func TestParse_RootOnly(t *testing.T) {
	assert.Equal(t, "", Parse("law").Command)
	assert.Equal(t, "", Parse("/law   ").Command)
}

func TestParse_RootPrefixOfWordIsNotStripped(t *testing.T) {
	assert.Equal(t, "lawful", Parse("lawful good").Command)
}

func TestPropertyParseAlwaysLowercasesCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[A-Za-z]{1,20}`).Draw(t, "word")
		result := Parse(word)
		for _, c := range result.Command {
			if c >= 'A' && c <= 'Z' {
				t.Fatalf("command %q contains uppercase char in Parse result %q", word, result.Command)
			}
		}
	})
}

func TestPropertyParseNonEmptyInputHasCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[a-z]{1,10}`).Draw(t, "word")
		if word == Root {
			t.Skip("root word alone is an empty command")
		}
		result := Parse(word)
		if result.Command == "" {
			t.Fatalf("non-empty input %q produced empty command", word)
		}
	})
}
