// Package models defines client-side data models persisted in the local
// SQLite store and mirrored into event snapshots.
package models

import "time"

// StackStatus is the lifecycle state of a stack.
type StackStatus string

const (
	StackStatusDraft StackStatus = "draft"
	StackStatusOpen  StackStatus = "open"
	// StackStatusActive is informational; IsActive is the authoritative flag
	// and the two may disagree transiently after remote replay.
	StackStatusActive StackStatus = "active"
	StackStatusDone   StackStatus = "done"
)

// Stack is the top-level organizational entity. Among all non-deleted,
// non-draft stacks at most one may have IsActive set; the reconciler repairs
// violations.
type Stack struct {
	ID        string
	Title     string
	Status    StackStatus
	IsActive  bool
	SortOrder int
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Eligible reports whether the stack participates in the single-active
// invariant: soft-deleted stacks and drafts are excluded.
func (s *Stack) Eligible() bool {
	return !s.Deleted && s.Status != StackStatusDraft
}
