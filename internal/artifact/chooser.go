package artifact

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoChoice is returned by a Chooser when the user declined to pick a file.
var ErrNoChoice = errors.New("no file chosen")

// Chooser asks somebody which local file stands for uri.
// candidates may be empty; the answer may then be any path.
type Chooser interface {
	Choose(ctx context.Context, uri, uriBase string, candidates []string) (string, error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, uri, uriBase string, candidates []string) (string, error)

func (f ChooserFunc) Choose(ctx context.Context, uri, uriBase string, candidates []string) (string, error) {
	return f(ctx, uri, uriBase, candidates)
}

// PromptChooser asks on a line-oriented terminal: it lists the candidates and
// reads either a number or a path.
type PromptChooser struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func (p *PromptChooser) Choose(ctx context.Context, uri, uriBase string, candidates []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	fmt.Fprintf(p.Out, "cannot find %s", uri)
	if uriBase != "" {
		fmt.Fprintf(p.Out, " (base %s)", uriBase)
	}
	fmt.Fprintln(p.Out)
	for i, c := range candidates {
		fmt.Fprintf(p.Out, "  [%d] %s\n", i+1, c)
	}
	fmt.Fprint(p.Out, "choose a number or enter a path (empty to skip): ")

	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoChoice
		}
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ErrNoChoice
	}
	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(candidates) {
			return "", fmt.Errorf("choice %d out of range", n)
		}
		return candidates[n-1], nil
	}
	return line, nil
}
