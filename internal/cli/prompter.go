package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Veraticus/tally/internal/recurrence"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// Prompter asks the user short questions on a terminal. Reads honor context
// cancellation so an interrupt never leaves the command hanging.
type Prompter struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex
}

// NewPrompter creates a prompter reading from r and writing to w.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{reader: bufio.NewReader(r), writer: w}
}

// readLine reads one line, returning early when ctx is done.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	ch := make(chan result, 1)

	go func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		value, err := p.reader.ReadString('\n')
		ch <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-ch:
		if res.err != nil && !(errors.Is(res.err, io.EOF) && res.value != "") {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprint(p.writer, FormatPrompt(question+" [y/N]"))
	answer, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ChooseScope asks which members of a family an edit or delete touches.
// An empty answer picks the single entry.
func (p *Prompter) ChooseScope(ctx context.Context, action string) (recurrence.Scope, error) {
	for {
		fmt.Fprint(p.writer, FormatPrompt(
			fmt.Sprintf("%s [s]ingle, [f]orward or [a]ll entries of the series?", action)))
		answer, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}
		switch strings.ToLower(answer) {
		case "", "s", "single":
			return recurrence.ScopeSingle, nil
		case "f", "forward":
			return recurrence.ScopeForward, nil
		case "a", "all":
			return recurrence.ScopeAll, nil
		}
		fmt.Fprintln(p.writer, FormatWarning("Please answer s, f or a."))
	}
}
