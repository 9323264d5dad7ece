package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Task is a to-do item owned by exactly one account.
type Task struct {
	ID          int64
	Title       string
	Memo        string
	AuthorID    uuid.UUID
	Important   bool
	IsCompleted bool
	RowVersion  int64
	CreatedTime time.Time
	UpdatedTime time.Time

	// Author is populated by reads that join the owning account.
	Author *Account
}

func (t *Task) GetID() string { return strconv.FormatInt(t.ID, 10) }
func (t *Task) GetRowVersion() int64 { return t.RowVersion }
func (t *Task) SetRowVersion(v int64) { t.RowVersion = v }
