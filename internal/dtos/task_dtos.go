package dtos

import (
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-models"
)

// TaskRequest is the body of create and full update (PUT).
type TaskRequest struct {
	Title       string `json:"title" validate:"required,max=221"`
	Memo        string `json:"memo" validate:"required"`
	Important   *bool  `json:"important,omitempty"`
	IsCompleted *bool  `json:"is_completed,omitempty"`
}

// TaskPatchRequest is the body of a partial update (PATCH). Absent fields
// keep their stored value.
type TaskPatchRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=221"`
	Memo        *string `json:"memo,omitempty" validate:"omitempty,min=1"`
	Important   *bool   `json:"important,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}

type TaskAuthor struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Phone    string    `json:"phone"`
}

type TaskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Memo        string     `json:"memo"`
	Important   bool       `json:"important"`
	IsCompleted bool       `json:"is_completed"`
	Author      TaskAuthor `json:"author"`
	CreatedTime time.Time  `json:"created_time"`
	UpdatedTime time.Time  `json:"updated_time"`
}

func NewTaskResponse(t *models.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Memo:        t.Memo,
		Important:   t.Important,
		IsCompleted: t.IsCompleted,
		Author:      TaskAuthor{ID: t.AuthorID},
		CreatedTime: t.CreatedTime,
		UpdatedTime: t.UpdatedTime,
	}
	if t.Author != nil {
		resp.Author.Username = t.Author.UsernameOrEmpty()
		resp.Author.Phone = t.Author.Phone
	}
	return resp
}

func NewTaskResponses(tasks []*models.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, NewTaskResponse(t))
	}
	return out
}
