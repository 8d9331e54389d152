package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"taskcoach/internal/core"
	"taskcoach/internal/infra/persistence/memory"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestShell(t *testing.T, opts ...Option) (*Shell, *bytes.Buffer, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	doc := core.NewDocument(core.WithClock(func() time.Time { return testNow }), core.WithSnapshotStore(store))
	var out bytes.Buffer
	sh := New(doc, append([]Option{WithOutput(&out)}, opts...)...)
	t.Cleanup(sh.Close)
	return sh, &out, store
}

// exec runs lines and returns what the last one printed.
func exec(t *testing.T, sh *Shell, out *bytes.Buffer, lines ...string) string {
	t.Helper()
	for _, line := range lines {
		out.Reset()
		if sh.Execute(context.Background(), line) {
			t.Fatalf("%q stopped the shell", line)
		}
	}
	return out.String()
}

func listed(t *testing.T, sh *Shell, out *bytes.Buffer) []string {
	t.Helper()
	text := strings.TrimRight(exec(t, sh, out, "list"), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestAddListUndoRedo(t *testing.T) {
	sh, out, _ := newTestShell(t)
	exec(t, sh, out, "add Write report", "add Buy milk", "sub 2 Read draft")
	lines := listed(t, sh, out)
	if len(lines) != 3 {
		t.Fatalf("expected three tasks, got %q", lines)
	}
	if !strings.Contains(lines[0], "Buy milk") || !strings.Contains(lines[1], "Write report") || !strings.Contains(lines[2], "└ Read draft") {
		t.Fatalf("unexpected listing %q", lines)
	}

	if got := exec(t, sh, out, "undo"); !strings.Contains(got, "undo: New subtask") {
		t.Fatalf("undo printed %q", got)
	}
	if n := len(listed(t, sh, out)); n != 2 {
		t.Fatalf("expected two tasks after undo, got %d", n)
	}
	exec(t, sh, out, "redo")
	if n := len(listed(t, sh, out)); n != 3 {
		t.Fatalf("expected three tasks after redo, got %d", n)
	}
	if got := exec(t, sh, out, "redo"); !strings.Contains(got, "nothing to redo") {
		t.Fatalf("redo at head printed %q", got)
	}
}

func TestEditDoneAndPriority(t *testing.T) {
	sh, out, _ := newTestShell(t)
	exec(t, sh, out, "add Plan trip", "list", "edit 1 Plan holiday", "prio 1 max", "due 1 2024-06-20", "done 1")
	lines := listed(t, sh, out)
	if len(lines) != 1 {
		t.Fatalf("unexpected listing %q", lines)
	}
	for _, want := range []string{"completed", "Plan holiday", "due 2024-06-20", "prio"} {
		if !strings.Contains(lines[0], want) {
			t.Fatalf("listing %q lacks %q", lines[0], want)
		}
	}
	if got := exec(t, sh, out, "done 1"); !strings.Contains(got, "not applicable") {
		t.Fatalf("completing twice printed %q", got)
	}
}

func TestRecurringTaskComesBack(t *testing.T) {
	sh, out, _ := newTestShell(t)
	exec(t, sh, out, "add Water plants", "list", "due 1 2024-06-20", "recur 1 weekly", "done 1")
	lines := listed(t, sh, out)
	if len(lines) != 1 || strings.Contains(lines[0], "completed") || !strings.Contains(lines[0], "due 2024-06-27") {
		t.Fatalf("expected the task open and due a week later, got %q", lines)
	}
	if got := exec(t, sh, out, "recur 1 fortnightly"); !strings.Contains(got, "error") {
		t.Fatalf("expected an unknown unit to be refused, got %q", got)
	}
	exec(t, sh, out, "recur 1 none", "done 1")
	if lines := listed(t, sh, out); !strings.Contains(lines[0], "completed") {
		t.Fatalf("expected the task completed once it no longer recurs, got %q", lines)
	}
}

func TestCategoriesAndFilters(t *testing.T) {
	sh, out, _ := newTestShell(t)
	exec(t, sh, out, "add Call plumber", "add Write report", "cat Home", "list", "tag 1 home")
	if got := exec(t, sh, out, "cat"); !strings.Contains(got, "Home (1)") {
		t.Fatalf("category listing %q", got)
	}
	exec(t, sh, out, "filter Home")
	lines := listed(t, sh, out)
	if len(lines) != 1 || !strings.Contains(lines[0], "Call plumber") {
		t.Fatalf("filtered listing %q", lines)
	}
	exec(t, sh, out, "undo")
	if n := len(listed(t, sh, out)); n != 2 {
		t.Fatalf("expected filter undone, got %d tasks", n)
	}

	exec(t, sh, out, "done 2", "filter completed")
	lines = listed(t, sh, out)
	if len(lines) != 1 || !strings.Contains(lines[0], "Call plumber") {
		t.Fatalf("listing without completed %q", lines)
	}
}

func TestSearchAndSort(t *testing.T) {
	sh, out, _ := newTestShell(t)
	exec(t, sh, out, "add alpha", "add beta", "add gamma")
	if got := exec(t, sh, out, "search bta"); !strings.Contains(got, "1 tasks match") {
		t.Fatalf("tolerant search printed %q", got)
	}
	exec(t, sh, out, "search")
	exec(t, sh, out, "sort subject desc")
	lines := listed(t, sh, out)
	if len(lines) != 3 || !strings.Contains(lines[0], "gamma") {
		t.Fatalf("descending listing %q", lines)
	}
	if got := exec(t, sh, out, "sort subject up"); !strings.Contains(got, "usage") {
		t.Fatalf("bad sort printed %q", got)
	}
}

func TestClipboardAndMove(t *testing.T) {
	sh, out, _ := newTestShell(t)
	exec(t, sh, out, "add Project", "add Task", "list", "move 2 1")
	lines := listed(t, sh, out)
	if len(lines) != 2 || !strings.Contains(lines[1], "└ Task") {
		t.Fatalf("after move %q", lines)
	}
	exec(t, sh, out, "cut 2")
	if n := len(listed(t, sh, out)); n != 1 {
		t.Fatalf("expected one task after cut, got %d", n)
	}
	exec(t, sh, out, "paste")
	lines = listed(t, sh, out)
	if len(lines) != 2 || strings.Contains(lines[1], "└ Task") {
		t.Fatalf("paste should put the task at the root, got %q", lines)
	}
	if got := exec(t, sh, out, "move 1 1"); !strings.Contains(got, "not applicable") {
		t.Fatalf("move onto itself printed %q", got)
	}
}

func TestErrorsAreReported(t *testing.T) {
	sh, out, _ := newTestShell(t)
	cases := map[string]string{
		"frobnicate":    "unknown command",
		"add":           "subject required",
		"edit 7 x":      "no task",
		"prio 1 lots":   "no task",
		"tag 1 Nowhere": "no task",
		"due":           "required",
	}
	for line, want := range cases {
		if got := exec(t, sh, out, line); !strings.Contains(got, want) {
			t.Errorf("%q printed %q, want %q", line, got, want)
		}
	}
	exec(t, sh, out, "add x")
	if got := exec(t, sh, out, "due 1 someday"); !strings.Contains(got, "want YYYY-MM-DD") {
		t.Errorf("bad date printed %q", got)
	}
}

func TestQuitGuardsUnsavedChanges(t *testing.T) {
	sh, out, store := newTestShell(t)
	exec(t, sh, out, "add Something")
	if got := exec(t, sh, out, "quit"); !strings.Contains(got, "unsaved changes") {
		t.Fatalf("quit printed %q", got)
	}
	exec(t, sh, out, "save")
	if store.Saves() != 1 {
		t.Fatalf("expected one save, got %d", store.Saves())
	}
	if !sh.Execute(context.Background(), "quit") {
		t.Fatalf("quit after save should stop the shell")
	}
	if !sh.Execute(context.Background(), "list") {
		t.Fatalf("a stopped shell stays stopped")
	}
}

func TestRunReadsUntilEndOfInput(t *testing.T) {
	sh, out, store := newTestShell(t, WithPrompt("> "))
	in := strings.NewReader("add One\nadd Two\nsave\nlist\nquit\nadd Three\n")
	if err := sh.Run(t.Context(), in); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "One") || !strings.Contains(text, "Two") || strings.Contains(text, "Three") {
		t.Fatalf("unexpected output %q", text)
	}
	if !strings.HasPrefix(text, "> ") {
		t.Fatalf("expected a prompt, got %q", text)
	}
	if store.Saves() != 1 {
		t.Fatalf("expected one save, got %d", store.Saves())
	}
}

func TestAutosaveOnQuit(t *testing.T) {
	sh, out, store := newTestShell(t, WithAutosave(time.Hour))
	exec(t, sh, out, "add Something")
	if !sh.Execute(context.Background(), "quit") {
		t.Fatalf("quit with autosave should save and stop")
	}
	if store.Saves() != 1 {
		t.Fatalf("expected autosave on quit, got %d saves", store.Saves())
	}
}

func TestParseDate(t *testing.T) {
	cases := map[string]time.Time{
		"none":             {},
		"today":            time.Date(2024, 6, 10, 23, 59, 0, 0, time.UTC),
		"tomorrow":         time.Date(2024, 6, 11, 23, 59, 0, 0, time.UTC),
		"+3d":              time.Date(2024, 6, 13, 23, 59, 0, 0, time.UTC),
		"2024-07-01":       time.Date(2024, 7, 1, 23, 59, 0, 0, time.UTC),
		"2024-07-01 09:30": time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := parseDate(in, testNow)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("%q = %v, want %v", in, got, want)
		}
	}
	if _, err := parseDate("+xd", testNow); err == nil {
		t.Errorf("expected error for +xd")
	}
}
