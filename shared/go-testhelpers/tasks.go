package testhelpers

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/poofware/todo-service/shared/go-models"
	repos "github.com/poofware/todo-service/shared/go-repositories"
	"github.com/poofware/todo-service/shared/go-utils"
)

// FakeTaskRepository is an in-memory repositories.TaskRepository. When
// Accounts is set, reads populate the author summary from it.
type FakeTaskRepository struct {
	mu     sync.Mutex
	tasks  map[int64]*models.Task
	nextID int64

	Accounts *FakeAccountRepository
}

func NewFakeTaskRepository(accounts *FakeAccountRepository) *FakeTaskRepository {
	return &FakeTaskRepository{tasks: map[int64]*models.Task{}, Accounts: accounts}
}

func (r *FakeTaskRepository) Create(ctx context.Context, t *models.Task) error {
	r.mu.Lock()
	r.nextID++
	t.ID = r.nextID
	t.RowVersion = 1
	now := time.Now().Add(time.Duration(r.nextID) * time.Millisecond)
	t.CreatedTime, t.UpdatedTime = now, now
	c := *t
	c.Author = nil
	r.tasks[t.ID] = &c
	r.mu.Unlock()

	t.Author = r.author(ctx, t.AuthorID)
	return nil
}

func (r *FakeTaskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return nil, nil
	}
	c := *t
	r.mu.Unlock()

	c.Author = r.author(ctx, c.AuthorID)
	return &c, nil
}

func (r *FakeTaskRepository) ListByAuthor(
	ctx context.Context,
	authorID uuid.UUID,
	completed bool,
	limit, offset int,
) ([]*models.Task, int, error) {
	r.mu.Lock()
	var matched []*models.Task
	for _, t := range r.tasks {
		if t.AuthorID == authorID && t.IsCompleted == completed {
			c := *t
			matched = append(matched, &c)
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedTime.Equal(matched[j].CreatedTime) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedTime.After(matched[j].CreatedTime)
	})
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := matched[offset:end]
	for _, t := range page {
		t.Author = r.author(ctx, t.AuthorID)
	}
	return page, total, nil
}

func (r *FakeTaskRepository) UpdateIfVersion(ctx context.Context, t *models.Task, expected int64) (pgconn.CommandTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tasks[t.ID]
	if !ok || cur.RowVersion != expected {
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	cur.Title = t.Title
	cur.Memo = t.Memo
	cur.Important = t.Important
	cur.IsCompleted = t.IsCompleted
	cur.RowVersion++
	cur.UpdatedTime = time.Now()
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (r *FakeTaskRepository) UpdateWithRetry(ctx context.Context, id int64, mutate func(*models.Task) error) error {
	getByID := func(ctx context.Context, sid string) (*models.Task, error) {
		n, err := strconv.ParseInt(sid, 10, 64)
		if err != nil {
			return nil, err
		}
		return r.GetByID(ctx, n)
	}
	return repos.WithRetry(
		ctx,
		repos.DefaultMaxRetries,
		strconv.FormatInt(id, 10),
		getByID,
		r.UpdateIfVersion,
		mutate,
		utils.ErrTaskNotFound,
	)
}

func (r *FakeTaskRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return utils.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *FakeTaskRepository) author(ctx context.Context, id uuid.UUID) *models.Account {
	if r.Accounts == nil {
		return &models.Account{ID: id}
	}
	a, _ := r.Accounts.GetByID(ctx, id)
	if a == nil {
		return &models.Account{ID: id}
	}
	return &models.Account{ID: a.ID, Phone: a.Phone, Username: a.Username}
}
