package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandTagger pipes sentences through an external tagger process. Each
// sentence is written as one line of space separated tokens; the process
// must answer with one line per sentence of space separated
// word<Separator>tag tokens. The process is started once per Tag call and
// the caller's context bounds its lifetime.
type CommandTagger struct {
	Command   string
	Args      []string
	Separator string
}

// NewCommandTagger creates a tagger running command with args. An empty
// separator defaults to "/".
func NewCommandTagger(command string, args []string, separator string) *CommandTagger {
	if separator == "" {
		separator = "/"
	}
	return &CommandTagger{Command: command, Args: args, Separator: separator}
}

// Tag runs the external tagger over all sentences.
func (c *CommandTagger) Tag(ctx context.Context, sentences [][]string) ([][]string, error) {
	if len(sentences) == 0 {
		return nil, nil
	}

	var input bytes.Buffer
	for _, words := range sentences {
		input.WriteString(strings.Join(words, " "))
		input.WriteByte('\n')
	}

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Stdin = &input
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run tagger %s: %w (stderr: %s)", c.Command, err, strings.TrimSpace(stderr.String()))
	}

	return c.parse(&stdout, sentences)
}

func (c *CommandTagger) parse(output *bytes.Buffer, sentences [][]string) ([][]string, error) {
	tags := make([][]string, 0, len(sentences))
	scanner := bufio.NewScanner(output)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if len(tags) == len(sentences) {
			if strings.TrimSpace(scanner.Text()) == "" {
				continue
			}
			return nil, fmt.Errorf("tagger %s produced more than %d lines", c.Command, len(sentences))
		}
		i := len(tags)
		fields := strings.Fields(scanner.Text())
		if len(fields) != len(sentences[i]) {
			return nil, fmt.Errorf("tagger %s: sentence %d has %d tokens, got %d tagged tokens",
				c.Command, i, len(sentences[i]), len(fields))
		}
		line := make([]string, len(fields))
		for j, field := range fields {
			k := strings.LastIndex(field, c.Separator)
			if k <= 0 || k+len(c.Separator) >= len(field) {
				return nil, fmt.Errorf("tagger %s: malformed token %q in sentence %d", c.Command, field, i)
			}
			line[j] = field[k+len(c.Separator):]
		}
		tags = append(tags, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tagger output: %w", err)
	}
	if len(tags) != len(sentences) {
		return nil, fmt.Errorf("tagger %s produced %d lines for %d sentences", c.Command, len(tags), len(sentences))
	}
	return tags, nil
}
