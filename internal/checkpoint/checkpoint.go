// Package checkpoint holds the ordered learning path of a session and the
// progress status of each milestone on it.
package checkpoint

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPlan is returned when a plan has no items.
	ErrInvalidPlan = errors.New("invalid plan: no checkpoints")

	// ErrOutOfRange is returned for an index outside the path.
	ErrOutOfRange = errors.New("checkpoint index out of range")

	// ErrNotCurrent is returned when advancing from a checkpoint that is
	// not the current one.
	ErrNotCurrent = errors.New("checkpoint is not current")
)

// Status is a checkpoint's position in the progress lifecycle. It only
// ever moves locked → current → completed.
type Status string

const (
	StatusLocked    Status = "locked"
	StatusCurrent   Status = "current"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusLocked, StatusCurrent, StatusCompleted:
		return true
	}
	return false
}

// Item is one planned milestone before it becomes a checkpoint.
type Item struct {
	Title     string `json:"title"`
	Objective string `json:"objective"`
}

// Checkpoint is one milestone in the learning sequence.
type Checkpoint struct {
	// ID equals the checkpoint's position when the path was planned.
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Objective string `json:"objective"`
	Status    Status `json:"status"`
}

// Path is the ordered, fixed-length sequence of checkpoints. The zero value
// is an empty, unplanned path.
type Path struct {
	items []Checkpoint
}

// Plan replaces the path with one checkpoint per item. The first becomes
// current and the rest locked.
func (p *Path) Plan(items []Item) error {
	if len(items) == 0 {
		return ErrInvalidPlan
	}

	cps := make([]Checkpoint, len(items))
	for i, it := range items {
		status := StatusLocked
		if i == 0 {
			status = StatusCurrent
		}
		cps[i] = Checkpoint{
			ID:        i,
			Title:     it.Title,
			Objective: it.Objective,
			Status:    status,
		}
	}
	p.items = cps
	return nil
}

// Advance completes the checkpoint at from, which must be current. If a
// next checkpoint exists it becomes current and its index is returned with
// ok=true; otherwise ok is false and the path is done.
func (p *Path) Advance(from int) (next int, ok bool, err error) {
	if from < 0 || from >= len(p.items) {
		return 0, false, fmt.Errorf("%w: %d of %d", ErrOutOfRange, from, len(p.items))
	}
	if p.items[from].Status != StatusCurrent {
		return 0, false, fmt.Errorf("%w: %d is %s", ErrNotCurrent, from, p.items[from].Status)
	}

	p.items[from].Status = StatusCompleted
	if from+1 == len(p.items) {
		return 0, false, nil
	}
	p.items[from+1].Status = StatusCurrent
	return from + 1, true, nil
}

// Reset empties the path.
func (p *Path) Reset() {
	p.items = nil
}

// Len returns the number of checkpoints.
func (p *Path) Len() int {
	return len(p.items)
}

// At returns the checkpoint at index i.
func (p *Path) At(i int) (Checkpoint, error) {
	if i < 0 || i >= len(p.items) {
		return Checkpoint{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(p.items))
	}
	return p.items[i], nil
}

// Current returns the index of the current checkpoint. ok is false when the
// path is empty or every checkpoint is completed.
func (p *Path) Current() (int, bool) {
	for i, c := range p.items {
		if c.Status == StatusCurrent {
			return i, true
		}
	}
	return 0, false
}

// Checkpoints returns a copy of the path.
func (p *Path) Checkpoints() []Checkpoint {
	if p.items == nil {
		return nil
	}
	out := make([]Checkpoint, len(p.items))
	copy(out, p.items)
	return out
}

// Completed returns how many checkpoints are completed.
func (p *Path) Completed() int {
	n := 0
	for _, c := range p.items {
		if c.Status == StatusCompleted {
			n++
		}
	}
	return n
}

// Done reports whether a planned path has every checkpoint completed.
func (p *Path) Done() bool {
	return len(p.items) > 0 && p.Completed() == len(p.items)
}

// Validate checks the status invariant: completed checkpoints form a
// prefix, followed by exactly one current checkpoint and then only locked
// ones; or everything is completed.
func (p *Path) Validate() error {
	return ValidateStatuses(p.items)
}

// ValidateStatuses applies the Path invariant to a checkpoint slice, such
// as one taken from a snapshot.
func ValidateStatuses(cps []Checkpoint) error {
	current := -1
	for i, c := range cps {
		if c.ID != i {
			return fmt.Errorf("checkpoint %d has id %d", i, c.ID)
		}
		switch c.Status {
		case StatusCompleted:
			if current >= 0 {
				return fmt.Errorf("checkpoint %d completed after current %d", i, current)
			}
		case StatusCurrent:
			if current >= 0 {
				return fmt.Errorf("checkpoints %d and %d are both current", current, i)
			}
			current = i
		case StatusLocked:
			if current < 0 {
				return fmt.Errorf("checkpoint %d locked before any current checkpoint", i)
			}
		default:
			return fmt.Errorf("checkpoint %d has unknown status %q", i, c.Status)
		}
	}
	return nil
}
