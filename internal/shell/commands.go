package shell

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"taskcoach/internal/command"
	"taskcoach/internal/core"
	"taskcoach/internal/view"
	"taskcoach/pkg/domain"
)

var errQuit = errors.New("quit")

type handler struct {
	usage   string
	summary string
	run     func(ctx context.Context, s *Shell, args string) error
}

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"add":    {"add SUBJECT", "create a task", cmdAdd},
		"sub":    {"sub N SUBJECT", "create a subtask of task N", cmdSub},
		"edit":   {"edit N SUBJECT", "change the subject", cmdEdit},
		"desc":   {"desc N TEXT", "change the description", cmdDesc},
		"done":   {"done N...", "mark tasks completed", refsCommand(command.NewMarkCompleted)},
		"reopen": {"reopen N...", "mark tasks active again", refsCommand(command.NewMarkActive)},
		"prio":   {"prio N +|-|max|min|VALUE", "change the priority", cmdPriority},
		"due":    {"due N DATE|none", "set or clear the due date", cmdDue},
		"recur":  {"recur N daily|weekly|monthly|yearly|none [EVERY]", "make a task repeat", cmdRecur},
		"delete": {"delete N...", "delete tasks and their subtasks", cmdDelete},
		"cut":    {"cut N...", "move tasks to the clipboard", cmdCut},
		"copy":   {"copy N...", "copy tasks to the clipboard", cmdCopy},
		"paste":  {"paste [N]", "paste, below task N when given", cmdPaste},
		"move":   {"move N TARGET|root", "move task N below TARGET", cmdMove},
		"track":  {"track N...", "start tracking effort", cmdTrack},
		"stop":   {"stop N...", "stop tracking effort", refsCommand(command.NewStopEffort)},
		"cat":    {"cat [NAME]", "create a category, or list categories", cmdCategory},
		"tag":    {"tag N... CATEGORY", "toggle a category of tasks", cmdTag},
		"filter": {"filter CATEGORY|any|all|completed", "toggle a filter", cmdFilter},
		"search": {"search [TEXT]", "show matching tasks only", cmdSearch},
		"sort":   {"sort KEY [desc]", "change the sort order", cmdSort},
		"undo":   {"undo", "undo the last command", cmdUndo},
		"redo":   {"redo", "redo the last undone command", cmdRedo},
		"list":   {"list", "show the tasks", cmdList},
		"save":   {"save", "save the document", cmdSave},
		"help":   {"help", "show this help", cmdHelp},
		"quit":   {"quit[!]", "leave, quit! discards unsaved changes", cmdQuit},
		"quit!":  {"", "", cmdForceQuit},
	}
}

func cmdAdd(ctx context.Context, s *Shell, args string) error {
	if args == "" {
		return errors.New("subject required")
	}
	return s.do(ctx, command.NewTask(args))
}

func cmdSub(ctx context.Context, s *Shell, args string) error {
	parent, subject, err := s.refAndText(args)
	if err != nil {
		return err
	}
	return s.do(ctx, command.NewSubTask([]domain.ID{parent}, subject))
}

func cmdEdit(ctx context.Context, s *Shell, args string) error {
	id, subject, err := s.refAndText(args)
	if err != nil {
		return err
	}
	return s.do(ctx, command.NewEditSubject([]domain.ID{id}, subject))
}

func cmdDesc(ctx context.Context, s *Shell, args string) error {
	id, text, err := s.refAndText(args)
	if err != nil {
		return err
	}
	return s.do(ctx, command.NewEditDescription([]domain.ID{id}, text))
}

func refsCommand(build func([]domain.ID) command.Command) func(context.Context, *Shell, string) error {
	return func(ctx context.Context, s *Shell, args string) error {
		ids, err := s.refs(strings.Fields(args))
		if err != nil {
			return err
		}
		return s.do(ctx, build(ids))
	}
}

func cmdPriority(ctx context.Context, s *Shell, args string) error {
	id, value, err := s.refAndText(args)
	if err != nil {
		return err
	}
	items := []domain.ID{id}
	switch value {
	case "+":
		return s.do(ctx, command.NewIncreasePriority(items))
	case "-":
		return s.do(ctx, command.NewDecreasePriority(items))
	case "max":
		return s.do(ctx, command.NewMaxPriority(items))
	case "min":
		return s.do(ctx, command.NewMinPriority(items))
	}
	p, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("priority %q: want +, -, max, min or a number", value)
	}
	return s.do(ctx, command.NewEditPriority(items, p))
}

func cmdDue(ctx context.Context, s *Shell, args string) error {
	id, value, err := s.refAndText(args)
	if err != nil {
		return err
	}
	due, err := parseDate(value, s.doc.Now())
	if err != nil {
		return err
	}
	return s.do(ctx, command.NewEditDue([]domain.ID{id}, due, false))
}

func cmdRecur(ctx context.Context, s *Shell, args string) error {
	id, value, err := s.refAndText(args)
	if err != nil {
		return err
	}
	unit, every, _ := strings.Cut(value, " ")
	var rec domain.Recurrence
	switch u := domain.RecurrenceUnit(unit); u {
	case domain.RecurDaily, domain.RecurWeekly, domain.RecurMonthly, domain.RecurYearly:
		rec.Unit = u
	case "none":
	default:
		return fmt.Errorf("recurrence %q: want daily, weekly, monthly, yearly or none", unit)
	}
	if every = strings.TrimSpace(every); every != "" {
		if rec.Amount, err = strconv.Atoi(every); err != nil || rec.Amount < 1 {
			return fmt.Errorf("recurrence interval %q: want a positive number", every)
		}
	}
	return s.do(ctx, command.NewEditRecurrence([]domain.ID{id}, rec))
}

func cmdDelete(ctx context.Context, s *Shell, args string) error {
	ids, err := s.refs(strings.Fields(args))
	if err != nil {
		return err
	}
	return s.do(ctx, command.NewDelete(ids))
}

func cmdCut(ctx context.Context, s *Shell, args string) error {
	ids, err := s.refs(strings.Fields(args))
	if err != nil {
		return err
	}
	return s.do(ctx, command.NewCut(s.clipboard, ids))
}

func cmdCopy(ctx context.Context, s *Shell, args string) error {
	ids, err := s.refs(strings.Fields(args))
	if err != nil {
		return err
	}
	return s.do(ctx, command.NewCopy(s.clipboard, ids))
}

func cmdPaste(ctx context.Context, s *Shell, args string) error {
	if args == "" {
		return s.do(ctx, command.NewPaste(s.clipboard))
	}
	target, err := s.ref(args)
	if err != nil {
		return err
	}
	return s.do(ctx, command.NewPasteAsSubItem(s.clipboard, target))
}

func cmdMove(ctx context.Context, s *Shell, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return errors.New("usage: move N TARGET|root")
	}
	id, err := s.ref(fields[0])
	if err != nil {
		return err
	}
	var target domain.ID
	if fields[1] != "root" {
		if target, err = s.ref(fields[1]); err != nil {
			return err
		}
	}
	return s.do(ctx, command.NewDragAndDrop([]domain.ID{id}, target))
}

func cmdTrack(ctx context.Context, s *Shell, args string) error {
	ids, err := s.refs(strings.Fields(args))
	if err != nil {
		return err
	}
	return s.do(ctx, command.NewStartEffort(ids))
}

func cmdCategory(ctx context.Context, s *Shell, args string) error {
	if args != "" {
		return s.do(ctx, command.NewCategory(args))
	}
	return s.doc.View(func(v core.View) error {
		for _, id := range v.Live(domain.CategoryListID) {
			cat, err := v.Category(id)
			if err != nil {
				return err
			}
			mark := ""
			if cat.Filtered() {
				mark = " [filtered]"
			}
			indent := strings.Repeat("  ", len(v.Ancestors(id)))
			s.printf("%s%s (%d)%s", indent, cat.Subject(), len(v.Categorizables(id, true)), mark)
		}
		return nil
	})
}

func cmdTag(ctx context.Context, s *Shell, args string) error {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return errors.New("usage: tag N... CATEGORY")
	}
	ids, err := s.refs(fields[:len(fields)-1])
	if err != nil {
		return err
	}
	cat, err := s.category(fields[len(fields)-1])
	if err != nil {
		return err
	}
	return s.do(ctx, command.NewToggleCategory(ids, cat))
}

func cmdFilter(ctx context.Context, s *Shell, args string) error {
	switch args {
	case "":
		return errors.New("usage: filter CATEGORY|any|all|completed")
	case "any", "all":
		s.matchAll = args == "all"
		s.categories.SetPredicate(view.Category{MatchAll: s.matchAll})
		s.printf("categories match %s", args)
		return nil
	case "completed":
		s.hideDone = !s.hideDone
		var hide []domain.TaskStatus
		if s.hideDone {
			hide = []domain.TaskStatus{domain.StatusCompleted}
		}
		s.status.SetPredicate(view.Status{Hide: hide})
		s.printf("completed tasks hidden: %t", s.hideDone)
		return nil
	}
	id, err := s.category(args)
	if err != nil {
		return err
	}
	var filtered bool
	err = s.doc.View(func(v core.View) error {
		cat, err := v.Category(id)
		if err == nil {
			filtered = cat.Filtered()
		}
		return err
	})
	if err != nil {
		return err
	}
	return s.do(ctx, command.NewEditCategoryFiltered([]domain.ID{id}, !filtered))
}

func cmdSearch(_ context.Context, s *Shell, args string) error {
	s.search.SetPredicate(view.NewSearch(args, view.SearchDescription(), view.Tolerance(1)))
	s.printf("%d tasks match", s.search.Len())
	return nil
}

func cmdSort(_ context.Context, s *Shell, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 2 || (len(fields) == 2 && fields[1] != "desc") {
		return errors.New("usage: sort KEY [desc]")
	}
	s.sorter.SortBy(view.SortKey(fields[0]))
	s.sorter.SetAscending(len(fields) == 1)
	s.printf("sorted by %s", s.sorter.Key())
	return nil
}

func cmdUndo(ctx context.Context, s *Shell, _ string) error {
	name := s.history.UndoName()
	if name == "" {
		s.printf("nothing to undo")
		return nil
	}
	if err := s.history.Undo(ctx); err != nil {
		return err
	}
	s.printf("undo: %s", name)
	return nil
}

func cmdRedo(ctx context.Context, s *Shell, _ string) error {
	name := s.history.RedoName()
	if name == "" {
		s.printf("nothing to redo")
		return nil
	}
	if err := s.history.Redo(ctx); err != nil {
		return err
	}
	s.printf("redo: %s", name)
	return nil
}

func cmdList(_ context.Context, s *Shell, _ string) error {
	s.numbers = s.sorter.Items()
	visible := make(map[domain.ID]bool, len(s.numbers))
	for _, id := range s.numbers {
		visible[id] = true
	}
	return s.doc.View(func(v core.View) error {
		for i, id := range s.numbers {
			t, err := v.Task(id)
			if err != nil {
				return err
			}
			depth := 0
			for _, anc := range v.Ancestors(id) {
				if visible[anc] {
					depth++
				}
			}
			var extra []string
			if due := t.Due(); !due.IsZero() {
				extra = append(extra, "due "+due.Format(time.DateOnly))
			}
			if p := t.Priority(); p != 0 {
				extra = append(extra, "prio "+strconv.Itoa(p))
			}
			if v.Tracking(id) {
				extra = append(extra, "tracking")
			}
			suffix := ""
			if len(extra) > 0 {
				suffix = "  (" + strings.Join(extra, ", ") + ")"
			}
			indent := ""
			if depth > 0 {
				indent = strings.Repeat("  ", depth-1) + "└ "
			}
			s.printf("%3d  %-9s %s%s%s", i+1, v.Status(id), indent, t.Subject(), suffix)
		}
		return nil
	})
}

func cmdSave(ctx context.Context, s *Shell, _ string) error {
	if err := s.doc.Save(ctx); err != nil {
		return err
	}
	s.printf("saved")
	return nil
}

func cmdHelp(_ context.Context, s *Shell, _ string) error {
	verbs := make([]string, 0, len(handlers))
	for verb, h := range handlers {
		if h.usage != "" {
			verbs = append(verbs, verb)
		}
	}
	slices.Sort(verbs)
	for _, verb := range verbs {
		h := handlers[verb]
		s.printf("  %-36s %s", h.usage, h.summary)
	}
	s.printf("sort keys: subject, due, plannedStart, priority, status, timeSpent, ...")
	return nil
}

func cmdQuit(_ context.Context, s *Shell, _ string) error {
	if s.doc.Dirty() {
		if s.autosave > 0 {
			s.autosaveNow(context.Background())
		}
		if s.doc.Dirty() {
			s.printf("unsaved changes, save first or use quit!")
			return nil
		}
	}
	return errQuit
}

func cmdForceQuit(context.Context, *Shell, string) error { return errQuit }

// ref resolves a number of the last listing. Before the first listing the
// numbers refer to the current order.
func (s *Shell) ref(arg string) (domain.ID, error) {
	numbers := s.numbers
	if numbers == nil {
		numbers = s.sorter.Items()
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(numbers) {
		return "", fmt.Errorf("no task %q", arg)
	}
	return numbers[n-1], nil
}

func (s *Shell) refs(args []string) ([]domain.ID, error) {
	if len(args) == 0 {
		return nil, errors.New("task number required")
	}
	ids := make([]domain.ID, 0, len(args))
	for _, arg := range args {
		id, err := s.ref(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Shell) refAndText(args string) (domain.ID, string, error) {
	num, text, _ := strings.Cut(args, " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", errors.New("task number and text required")
	}
	id, err := s.ref(num)
	return id, text, err
}

// category finds a live category by subject, ignoring case.
func (s *Shell) category(name string) (domain.ID, error) {
	var found domain.ID
	err := s.doc.View(func(v core.View) error {
		for _, id := range v.Live(domain.CategoryListID) {
			if cat, err := v.Category(id); err == nil && strings.EqualFold(cat.Subject(), name) {
				found = id
				return nil
			}
		}
		return fmt.Errorf("no category %q", name)
	})
	return found, err
}

// parseDate accepts a date, a date and time, today, tomorrow, +Nd or none.
func parseDate(value string, now time.Time) (time.Time, error) {
	switch value {
	case "none":
		return time.Time{}, nil
	case "today":
		return endOfDay(now), nil
	case "tomorrow":
		return endOfDay(now.AddDate(0, 0, 1)), nil
	}
	if rest, ok := strings.CutPrefix(value, "+"); ok {
		days, _ := strings.CutSuffix(rest, "d")
		n, err := strconv.Atoi(days)
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q: %w", value, err)
		}
		return endOfDay(now.AddDate(0, 0, n)), nil
	}
	for _, layout := range []string{time.DateOnly + " 15:04", time.DateOnly + "T15:04", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, value, now.Location()); err == nil {
			if layout == time.DateOnly {
				t = endOfDay(t)
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD[ HH:MM], today, tomorrow, +Nd or none", value)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 0, 0, t.Location())
}
