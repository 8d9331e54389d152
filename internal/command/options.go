package command

import (
	"time"

	"taskcoach/pkg/domain"
)

// ItemOption sets an initial attribute of the objects a New command creates.
type ItemOption func(*itemSpec)

type itemSpec struct {
	description   string
	plannedStart  time.Time
	due           time.Time
	reminder      time.Time
	priority      int
	categories    []domain.ID
	prerequisites []domain.ID
}

func specOf(opts []ItemOption) itemSpec {
	var spec itemSpec
	for _, opt := range opts {
		if opt != nil {
			opt(&spec)
		}
	}
	return spec
}

// WithDescription sets the description.
func WithDescription(description string) ItemOption {
	return func(s *itemSpec) { s.description = description }
}

// WithPlannedStart sets the planned start of a task.
func WithPlannedStart(t time.Time) ItemOption {
	return func(s *itemSpec) { s.plannedStart = t }
}

// WithDue sets the due date of a task.
func WithDue(t time.Time) ItemOption {
	return func(s *itemSpec) { s.due = t }
}

// WithReminder sets the reminder of a task.
func WithReminder(t time.Time) ItemOption {
	return func(s *itemSpec) { s.reminder = t }
}

// WithPriority sets the priority of a task.
func WithPriority(p int) ItemOption {
	return func(s *itemSpec) { s.priority = p }
}

// WithCategories puts the new items into categories.
func WithCategories(categories ...domain.ID) ItemOption {
	return func(s *itemSpec) { s.categories = append(s.categories, categories...) }
}

// WithPrerequisites makes new tasks wait for prerequisites.
func WithPrerequisites(prerequisites ...domain.ID) ItemOption {
	return func(s *itemSpec) { s.prerequisites = append(s.prerequisites, prerequisites...) }
}
