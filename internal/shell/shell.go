// Package shell is a line oriented front end for one document. Input lines
// and autosave ticks are posted onto an event.Loop and executed there, so
// commands, view updates and saves never interleave.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"taskcoach/internal/command"
	"taskcoach/internal/core"
	"taskcoach/internal/event"
	"taskcoach/internal/view"
	"taskcoach/pkg/domain"
)

// Shell executes commands against a document and renders its task list.
type Shell struct {
	doc       *core.Document
	history   *command.History
	clipboard *command.Clipboard
	logger    core.Logger
	out       io.Writer
	prompt    string
	autosave  time.Duration

	tasks      *view.List
	categories *view.Filter
	status     *view.Filter
	search     *view.Filter
	sorter     *view.Sorter
	matchAll   bool
	hideDone   bool

	// numbers maps the numbers of the last listing to items.
	numbers []domain.ID
	quit    bool
}

// Option customises a Shell.
type Option func(*Shell)

// WithOutput sets where results are written.
func WithOutput(w io.Writer) Option { return func(s *Shell) { s.out = w } }

// WithPrompt sets the prompt printed before each line is read.
func WithPrompt(prompt string) Option { return func(s *Shell) { s.prompt = prompt } }

// WithAutosave saves a changed document every interval.
func WithAutosave(interval time.Duration) Option { return func(s *Shell) { s.autosave = interval } }

// WithClipboard shares a clipboard with other shells.
func WithClipboard(c *command.Clipboard) Option {
	return func(s *Shell) {
		if c != nil {
			s.clipboard = c
		}
	}
}

// New returns a shell over doc with the tasks shown as a tree sorted by
// subject.
func New(doc *core.Document, opts ...Option) *Shell {
	s := &Shell{
		doc:       doc,
		history:   command.NewHistory(doc),
		clipboard: command.NewClipboard(),
		logger:    doc.Logger(),
		out:       io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tasks = view.NewList(doc, domain.TaskListID)
	s.categories = view.NewFilter(doc, s.tasks, view.Category{}, view.WithTreeMode())
	s.status = view.NewFilter(doc, s.categories, view.Status{}, view.WithTreeMode())
	s.search = view.NewFilter(doc, s.status, view.NewSearch(""), view.WithTreeMode())
	s.sorter = view.NewSorter(doc, s.search, view.WithTreeMode())
	return s
}

// SetOutput redirects what later commands print.
func (s *Shell) SetOutput(w io.Writer) { s.out = w }

// History returns the undo history of the shell.
func (s *Shell) History() *command.History { return s.history }

// Close releases the views.
func (s *Shell) Close() {
	s.sorter.Close()
	s.search.Close()
	s.status.Close()
	s.categories.Close()
}

// Run reads lines from in until quit, end of input or ctx is done. Lines are
// executed on the calling goroutine.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loop := event.NewLoop(0)
	go s.read(ctx, loop, in)
	if s.autosave > 0 {
		go s.tick(ctx, loop)
	}
	s.printPrompt()
	return loop.Run(ctx)
}

func (s *Shell) read(ctx context.Context, loop *event.Loop, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		err := loop.Post(func() {
			if s.Execute(ctx, line) {
				loop.Close()
				return
			}
			s.printPrompt()
		})
		if err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error("read input", "error", err)
	}
	_ = loop.Post(loop.Close)
}

func (s *Shell) tick(ctx context.Context, loop *event.Loop) {
	ticker := time.NewTicker(s.autosave)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := loop.Post(func() { s.autosaveNow(ctx) }); errors.Is(err, event.ErrLoopClosed) {
				return
			}
		}
	}
}

func (s *Shell) autosaveNow(ctx context.Context) {
	if s.quit || !s.doc.Dirty() {
		return
	}
	if err := s.doc.Save(ctx); err != nil {
		s.logger.Error("autosave failed", "error", err)
		return
	}
	s.logger.Debug("autosaved")
}

func (s *Shell) printPrompt() {
	if s.prompt != "" {
		fmt.Fprint(s.out, s.prompt)
	}
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

// Execute runs one input line and reports whether the shell should stop.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	if s.quit {
		return true
	}
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	if verb == "" {
		return false
	}
	h, ok := handlers[verb]
	if !ok {
		s.printf("unknown command %q, try help", verb)
		return false
	}
	if err := h.run(ctx, s, rest); err != nil {
		if errors.Is(err, errQuit) {
			s.quit = true
			return true
		}
		s.logger.Debug("command failed", "line", line, "error", err)
		s.printf("error: %v", err)
	}
	return false
}

// do executes cmd and reports what happened.
func (s *Shell) do(ctx context.Context, cmd command.Command) error {
	applied, err := s.history.Do(ctx, cmd)
	if err != nil {
		return err
	}
	if !applied {
		s.printf("not applicable: %s", cmd.Name())
		return nil
	}
	s.printf("%s", cmd.Name())
	return nil
}
