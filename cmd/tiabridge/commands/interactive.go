package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/piwi3910/tiabridge/pkg/blocks"
	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/project"
)

// Prompter reads lines of interactive input.
type Prompter interface {
	// ReadLine shows prompt and returns the line entered, without its line
	// terminator. It returns io.EOF when input ends.
	ReadLine(prompt string) (string, error)
	Close() error
}

// readlinePrompter prompts on a terminal with line editing.
type readlinePrompter struct {
	rl *readline.Instance
}

func newReadlinePrompter(out io.Writer) (*readlinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdout:          out,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt: %w", err)
	}
	return &readlinePrompter{rl: rl}, nil
}

func (p *readlinePrompter) ReadLine(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func (p *readlinePrompter) Close() error {
	return p.rl.Close()
}

// linePrompter reads lines from a plain reader, for piped input.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter returns a Prompter reading lines from in and writing
// prompts to out.
func NewLinePrompter(in io.Reader, out io.Writer) Prompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

func (p *linePrompter) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		if _, err := io.WriteString(p.out, prompt); err != nil {
			return "", err
		}
	}
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *linePrompter) Close() error { return nil }

// prompter returns the configured prompter, or one suited to the input stream.
func (a *app) prompter() (Prompter, error) {
	if a.streams.Prompter != nil {
		return a.streams.Prompter, nil
	}
	if f, ok := a.streams.In.(*os.File); ok && f == os.Stdin && readline.DefaultIsTerminal() {
		return newReadlinePrompter(a.streams.Out)
	}
	return NewLinePrompter(a.streams.In, a.streams.Out), nil
}

// runInteractive asks for a project path, inspects the project with the
// environment's user interface and waits for Enter before returning. The
// session stays open while the results are on screen.
func runInteractive(ctx context.Context, a *app) error {
	p, err := a.prompter()
	if err != nil {
		return engine.NewUnhandledError("failed to start interactive prompt", err)
	}
	defer func() { _ = p.Close() }()

	out := a.streams.Out
	format, err := blocks.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out, "tiabridge: engineering project inspection")
	_, _ = fmt.Fprintln(out, `Enter the full project path (e.g. D:\plc\demo.ap17):`)

	rawPath, err := p.ReadLine("> ")
	if err != nil && !errors.Is(err, io.EOF) {
		return engine.NewUnhandledError("failed to read project path", err)
	}
	if strings.TrimSpace(rawPath) == "" {
		a.logger.Error("no project path given")
		return engine.NewInvalidArgumentError("no project path given", nil).
			WithCode(engine.ErrCodeValidation)
	}

	rec := a.startRecording(ctx, rawPath, engine.ModeInteractive)
	result, err := a.inspect(ctx, engine.ModeInteractive, rawPath, inspectHooks{
		opened: func(proj *project.Project) {
			_, _ = fmt.Fprintln(out, "Project opened")
			_, _ = fmt.Fprintf(out, "  Name: %s\n", proj.Name)
			_, _ = fmt.Fprintf(out, "  Path: %s\n", proj.CanonicalPath)
		},
		controller: func(c *engine.ControllerProgram) {
			_, _ = fmt.Fprintf(out, "Controller program found: %s\n", c.Name)
		},
		listed: func(result *inspection) error {
			for _, l := range result.Listings {
				if format != blocks.FormatJSON {
					_, _ = fmt.Fprintf(out, "\n=== %s listing ===\n", l.Service.Category().Label())
				}
				if err := l.Service.Print(out, l.Units, format); err != nil {
					return engine.NewUnhandledError("failed to print listing", err)
				}
			}
			waitForEnter(p, "\nDone. Press Enter to exit...")
			return nil
		},
	})
	rec.finish(ctx, result, err)

	if err != nil {
		_, _ = fmt.Fprintf(out, "\nError: %v\n", err)
		waitForEnter(p, "Press Enter to exit...")
		return err
	}
	return nil
}

// waitForEnter blocks until a line is entered or input ends.
func waitForEnter(p Prompter, prompt string) {
	_, _ = p.ReadLine(prompt + "\n")
}
