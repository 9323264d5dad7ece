//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
	Author      struct {
		Phone string `json:"phone"`
	} `json:"author"`
}

type page struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []task  `json:"results"`
}

func TestTodoFlow(t *testing.T) {
	c := newClient()
	alice := c.verifiedSession(t)
	bob := c.verifiedSession(t)

	var created task
	c.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/todo/create/", alice.Access,
		map[string]any{"title": "file taxes", "memo": "before april"}, &created)
	assert.Equal(t, alice.Phone, created.Author.Phone)

	detail := fmt.Sprintf("/api/v1/todo/detail/%d/", created.ID)
	resp, raw := c.do(t, http.MethodGet, detail, bob.Access, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, string(raw))

	var current page
	c.expect(t, http.StatusOK, http.MethodGet, "/api/v1/todo/current/list/", alice.Access, nil, &current)
	require.Equal(t, 1, current.Count)
	assert.Nil(t, current.Next)

	var done task
	c.expect(t, http.StatusOK, http.MethodPost, fmt.Sprintf("/api/v1/todo/to_complete/%d/", created.ID),
		alice.Access, nil, &done)
	assert.True(t, done.IsCompleted)

	var completed page
	c.expect(t, http.StatusOK, http.MethodGet, "/api/v1/todo/completed/list/", alice.Access, nil, &completed)
	assert.Equal(t, 1, completed.Count)
	c.expect(t, http.StatusOK, http.MethodGet, "/api/v1/todo/current/list/", alice.Access, nil, &current)
	assert.Zero(t, current.Count)

	c.expect(t, http.StatusOK, http.MethodDelete, fmt.Sprintf("/api/v1/todo/delete/%d/", created.ID),
		alice.Access, nil, nil)
	resp, raw = c.do(t, http.MethodGet, detail, alice.Access, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, string(raw))
}
