package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

const quitKey = "q"

// Terminal prompts on a line-oriented terminal.
type Terminal struct {
	in       *bufio.Reader
	out      io.Writer
	question *color.Color
	warn     *color.Color
	lines    chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// NewTerminal reads answers from in and writes prompts to out. Colour is
// enabled only when out is a terminal.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	question := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)
	if ShouldColorize(out) {
		question.EnableColor()
		warn.EnableColor()
	} else {
		question.DisableColor()
		warn.DisableColor()
	}
	return &Terminal{
		in:       bufio.NewReader(in),
		out:      out,
		question: question,
		warn:     warn,
	}
}

// ShouldColorize reports whether w is a terminal.
func ShouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Choose shows a numbered menu and waits for a valid number. End of input is
// treated as a cancel.
func (t *Terminal) Choose(ctx context.Context, question string, options []string, cancellable bool) (Response, error) {
	if len(options) == 0 {
		return Response{}, errors.New("prompt: no options to choose from")
	}
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, t.question.Sprint(question))
	fmt.Fprintln(t.out, renderOptions(options))

	hint := fmt.Sprintf("Enter the number of your choice (1-%d)", len(options))
	if cancellable {
		hint += ", or 'q' to quit"
	}
	for {
		fmt.Fprintf(t.out, "%s: ", hint)
		line, err := t.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Response{Status: Cancelled}, nil
			}
			return Response{}, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		if cancellable && answer == quitKey {
			return Response{Status: Cancelled}, nil
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(options) {
			fmt.Fprintln(t.out, t.warn.Sprintf("Invalid choice %q.", strings.TrimSpace(line)))
			continue
		}
		return SelectedOption(options, n-1), nil
	}
}

// Confirm asks a yes/no question. A blank answer means no; 'q' cancels.
func (t *Terminal) Confirm(ctx context.Context, question string) (Response, error) {
	for {
		fmt.Fprintf(t.out, "%s [y/N/q]: ", t.question.Sprint(question))
		line, err := t.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Response{Status: Cancelled}, nil
			}
			return Response{}, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return Response{Status: Selected}, nil
		case "", "n", "no":
			return Response{Status: Declined}, nil
		case quitKey, "quit":
			return Response{Status: Cancelled}, nil
		default:
			fmt.Fprintln(t.out, t.warn.Sprint("Please answer y, n, or q."))
		}
	}
}

// readLine returns the next input line, giving up when ctx is done. A read
// abandoned by a cancelled context is delivered to the next call.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	if t.lines == nil {
		t.lines = make(chan lineResult, 1)
		go t.pump()
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-t.lines:
		if !ok {
			return "", io.EOF
		}
		return res.text, res.err
	}
}

func (t *Terminal) pump() {
	defer close(t.lines)
	for {
		line, err := t.in.ReadString('\n')
		if err != nil {
			if line != "" && errors.Is(err, io.EOF) {
				t.lines <- lineResult{text: line}
			}
			t.lines <- lineResult{err: err}
			return
		}
		t.lines <- lineResult{text: line}
	}
}

func renderOptions(options []string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Option"})
	for i, option := range options {
		tw.AppendRow(table.Row{i + 1, option})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
