package models

import "time"

// Task is a single to-do item belonging to a stack.
type Task struct {
	ID        string
	StackID   string
	Title     string
	Done      bool
	SortOrder int
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
