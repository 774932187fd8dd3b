package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/quilr/qonboard/onboard"
)

// ErrNoInput is returned by Confirm when input closes before an answer.
var ErrNoInput = errors.New("no answer: input closed")

// Confirm renders the step preview and blocks until the operator answers
// y or n. Other answers re-prompt.
func (t *Terminal) Confirm(ctx context.Context, p onboard.Prompt) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	title := t.st.stepTitle.Render(fmt.Sprintf("STEP %d/%d — %s", p.Step, p.Total, p.Title))
	if p.Env != "" {
		title += " " + t.st.stepEnv.Render("("+p.Env+")")
	}

	t.println("")
	t.println(title)
	t.println(t.st.stepPanel.Render(t.highlight(p.Preview, p.Syntax)))

	for {
		fmt.Fprint(t.out, "  "+t.st.prompt.Render("Proceed?")+" [y/n]: ")

		line, err := t.readLine(ctx)
		if err != nil {
			t.println("")
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		t.println("  Please enter y or n.")
	}
}

type readResult struct {
	line string
	err  error
}

// readLine reads one line, returning early if ctx is cancelled. At most one
// goroutine reads t.in: a read interrupted by cancellation is kept pending
// and its line is handed to the next caller. Callers hold t.mu.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	ch := t.pending
	t.pending = nil
	if ch == nil {
		ch = make(chan readResult, 1)
		go func() {
			line, err := t.in.ReadString('\n')
			ch <- readResult{line: line, err: err}
		}()
	}

	select {
	case <-ctx.Done():
		t.pending = ch
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, io.EOF) && strings.TrimSpace(r.line) != "" {
				return r.line, nil
			}
			if errors.Is(r.err, io.EOF) {
				return "", ErrNoInput
			}
			return "", fmt.Errorf("read answer: %w", r.err)
		}
		return r.line, nil
	}
}

// Ask prints question and returns the trimmed answer.
func (t *Terminal) Ask(ctx context.Context, question string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprint(t.out, question+": ")
	line, err := t.readLine(ctx)
	if errors.Is(err, ErrNoInput) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
