package command

import (
	"context"
	"fmt"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// depthRecorder is implemented by metrics recorders that track the size of
// the undo history.
type depthRecorder interface {
	HistoryDepth(undo, redo int)
}

// History is the linear undo stack of one document. Commands before the
// cursor can be undone, commands after it redone. History is not safe for
// concurrent use; drive it from a single goroutine such as an event.Loop.
type History struct {
	doc      *core.Document
	logger   core.Logger
	commands []Command
	cursor   int
}

// NewHistory returns an empty history for doc.
func NewHistory(doc *core.Document) *History {
	return &History{doc: doc, logger: doc.Logger()}
}

// Do executes cmd in one transaction and records it. When CanDo fails the
// command is neither executed nor recorded and applied is false. An error
// leaves both document and history unchanged.
func (h *History) Do(ctx context.Context, cmd Command) (applied bool, err error) {
	_, err = h.doc.Run(ctx, "command.do", func(tx *core.Transaction) error {
		if !cmd.CanDo(tx) {
			return nil
		}
		applied = true
		return cmd.Do(tx)
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	if !applied {
		h.logger.Debug("command not applicable", "command", cmd.Name())
		return false, nil
	}
	h.commands = append(h.commands[:h.cursor], cmd)
	h.cursor++
	h.changed(cmd)
	return true, nil
}

// Undo reverts the command before the cursor. It is a no-op on an empty
// history.
func (h *History) Undo(ctx context.Context) error {
	if h.cursor == 0 {
		h.logger.Debug("undo with empty history")
		return nil
	}
	cmd := h.commands[h.cursor-1]
	if _, err := h.doc.Run(ctx, "command.undo", cmd.Undo); err != nil {
		return fmt.Errorf("undo %s: %w", cmd.Name(), err)
	}
	h.cursor--
	h.changed(cmd)
	return nil
}

// Redo re-applies the command after the cursor. It is a no-op at the head.
func (h *History) Redo(ctx context.Context) error {
	if h.cursor == len(h.commands) {
		h.logger.Debug("redo at head of history")
		return nil
	}
	cmd := h.commands[h.cursor]
	if _, err := h.doc.Run(ctx, "command.redo", cmd.Redo); err != nil {
		return fmt.Errorf("redo %s: %w", cmd.Name(), err)
	}
	h.cursor++
	h.changed(cmd)
	return nil
}

// HasHistory reports whether there is a command to undo.
func (h *History) HasHistory() bool { return h.cursor > 0 }

// HasFuture reports whether there is a command to redo.
func (h *History) HasFuture() bool { return h.cursor < len(h.commands) }

// UndoName returns the name of the command Undo would revert.
func (h *History) UndoName() string {
	if !h.HasHistory() {
		return ""
	}
	return h.commands[h.cursor-1].Name()
}

// RedoName returns the name of the command Redo would re-apply.
func (h *History) RedoName() string {
	if !h.HasFuture() {
		return ""
	}
	return h.commands[h.cursor].Name()
}

// Len returns the number of recorded commands.
func (h *History) Len() int { return len(h.commands) }

// Clear forgets all commands, for example after the document is reloaded.
func (h *History) Clear() {
	h.commands = nil
	h.cursor = 0
	h.changed(nil)
}

func (h *History) changed(cmd Command) {
	if rec, ok := h.doc.Metrics().(depthRecorder); ok {
		rec.HistoryDepth(h.cursor, len(h.commands)-h.cursor)
	}
	name := ""
	if cmd != nil {
		name = cmd.Name()
	}
	ev := domain.NewEvent()
	ev.AddSource(domain.HistoryID, domain.EventHistory, domain.Value[string]{New: name})
	h.doc.Bus().Publish(ev)
}
