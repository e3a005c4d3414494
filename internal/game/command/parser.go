package command

import "strings"

// Root is the top-level command word; "/law" is accepted too.
const Root = "law"

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word after the root, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command.
	RawArgs string
}

// Parse splits a text line into a command and arguments. A leading "law" or
// "/law" root word is dropped.
//
// Postcondition: Returns a ParseResult. If line is empty, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if word, rest, _ := strings.Cut(line, " "); strings.EqualFold(strings.TrimPrefix(word, "/"), Root) {
		line = strings.TrimSpace(rest)
	}
	if line == "" {
		return ParseResult{}
	}

	spaceIdx := strings.IndexByte(line, ' ')
	if spaceIdx < 0 {
		return ParseResult{
			Command: strings.ToLower(line),
		}
	}

	cmd := strings.ToLower(line[:spaceIdx])
	rest := strings.TrimSpace(line[spaceIdx+1:])

	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}

	return ParseResult{
		Command: cmd,
		Args:    args,
		RawArgs: rest,
	}
}
