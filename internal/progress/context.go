// Package progress holds the task/progress context of a questionnaire session
// and the guard and action registries that maintain it.
//
// A Context is a value. Actions receive one and return a modified copy; the
// input is never mutated, so snapshots holding older contexts stay valid.
package progress

import (
	"slices"

	"github.com/comalice/formchart/internal/answers"
)

// Status is a task's completion state. It only ever moves forward.
type Status string

const (
	CannotStart Status = "cannotStart"
	Incomplete  Status = "incomplete"
	Complete    Status = "complete"
)

func (s Status) rank() int {
	switch s {
	case Incomplete:
		return 1
	case Complete:
		return 2
	default:
		return 0
	}
}

// Task is one top-level phase of the questionnaire.
type Task struct {
	ID     string `json:"id" yaml:"id"`
	Status Status `json:"status" yaml:"status"`
	// Progress is the trail of visited page ids, in visitation order.
	Progress []string `json:"progress" yaml:"progress"`
	// Answers maps page id to the payload recorded for it.
	Answers answers.Store `json:"answers" yaml:"answers"`
}

func (t Task) clone() Task {
	out := t
	out.Progress = slices.Clone(t.Progress)
	if t.Answers != nil {
		out.Answers = make(answers.Store, len(t.Answers))
		for id, s := range t.Answers {
			out.Answers[id] = s.Clone()
		}
	}
	return out
}

// Context is the ordered list of tasks.
type Context struct {
	Tasks []Task `json:"tasks" yaml:"tasks"`
}

// NewContext creates a context for the given tasks in declared order. The
// first task is incomplete (current); the rest cannot start yet.
func NewContext(taskIDs ...string) Context {
	tasks := make([]Task, len(taskIDs))
	for i, id := range taskIDs {
		status := CannotStart
		if i == 0 {
			status = Incomplete
		}
		tasks[i] = Task{ID: id, Status: status, Progress: []string{}, Answers: answers.Store{}}
	}
	return Context{Tasks: tasks}
}

// Clone deep-copies the task list, progress trails and answer maps.
func (c Context) Clone() Context {
	tasks := make([]Task, len(c.Tasks))
	for i, t := range c.Tasks {
		tasks[i] = t.clone()
	}
	return Context{Tasks: tasks}
}

// Task returns the task with the given id.
func (c Context) Task(id string) (Task, bool) {
	i := c.index(id)
	if i < 0 {
		return Task{}, false
	}
	return c.Tasks[i], true
}

func (c Context) index(id string) int {
	return slices.IndexFunc(c.Tasks, func(t Task) bool { return t.ID == id })
}

// CurrentTask returns the first incomplete task, if any.
func (c Context) CurrentTask() (Task, bool) {
	for _, t := range c.Tasks {
		if t.Status == Incomplete {
			return t, true
		}
	}
	return Task{}, false
}

// AllComplete reports whether every task is complete.
func (c Context) AllComplete() bool {
	for _, t := range c.Tasks {
		if t.Status != Complete {
			return false
		}
	}
	return len(c.Tasks) > 0
}

// Answers merges every task's answers in task order into one store.
func (c Context) Answers() answers.Store {
	merged := answers.Store{}
	for _, t := range c.Tasks {
		merged = merged.Merge(t.Answers)
	}
	return merged
}

// WithStatus returns a copy with task id raised to status. Lower statuses are
// ignored, so a complete task never regresses.
func (c Context) WithStatus(id string, status Status) Context {
	i := c.index(id)
	if i < 0 || status.rank() <= c.Tasks[i].Status.rank() {
		return c
	}
	out := c.Clone()
	out.Tasks[i].Status = status
	return out
}

// taskFor returns the index of the task owning a state path: the first path
// segment naming a task.
func (c Context) taskFor(path string) int {
	for _, seg := range splitPath(path) {
		if i := c.index(seg); i >= 0 {
			return i
		}
	}
	return -1
}
