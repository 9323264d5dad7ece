package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-repositories"
	"github.com/poofware/todo-service/shared/go-utils"
	"github.com/sirupsen/logrus"
)

// TaskChanges carries the fields of a create or update. Nil fields are left
// untouched by a partial update.
type TaskChanges struct {
	Title       *string
	Memo        *string
	Important   *bool
	IsCompleted *bool
}

// TaskService is the owner-scoped task API. Tasks of another account are
// reported as utils.ErrNotTaskOwner.
type TaskService interface {
	List(ctx context.Context, owner uuid.UUID, completed bool, page utils.PageRequest) ([]*models.Task, int, error)
	Create(ctx context.Context, owner uuid.UUID, changes TaskChanges) (*models.Task, error)
	Get(ctx context.Context, owner uuid.UUID, id int64) (*models.Task, error)
	Update(ctx context.Context, owner uuid.UUID, id int64, changes TaskChanges) (*models.Task, error)
	Delete(ctx context.Context, owner uuid.UUID, id int64) error
	Complete(ctx context.Context, owner uuid.UUID, id int64) (*models.Task, error)
}

type taskService struct {
	repo repositories.TaskRepository
}

func NewTaskService(repo repositories.TaskRepository) TaskService {
	return &taskService{repo: repo}
}

func (s *taskService) List(
	ctx context.Context,
	owner uuid.UUID,
	completed bool,
	page utils.PageRequest,
) ([]*models.Task, int, error) {
	tasks, total, err := s.repo.ListByAuthor(ctx, owner, completed, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	if page.Page > 1 && len(tasks) == 0 {
		return nil, total, utils.ErrInvalidPage
	}
	return tasks, total, nil
}

func (s *taskService) Create(ctx context.Context, owner uuid.UUID, changes TaskChanges) (*models.Task, error) {
	t := &models.Task{AuthorID: owner}
	applyTaskChanges(t, changes)

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	utils.Logger.WithFields(logrus.Fields{"task_id": t.ID, "account_id": owner}).Debug("Task created")
	return s.repo.GetByID(ctx, t.ID)
}

func (s *taskService) Get(ctx context.Context, owner uuid.UUID, id int64) (*models.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(t, owner); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *taskService) Update(ctx context.Context, owner uuid.UUID, id int64, changes TaskChanges) (*models.Task, error) {
	err := s.repo.UpdateWithRetry(ctx, id, func(t *models.Task) error {
		if err := checkOwner(t, owner); err != nil {
			return err
		}
		applyTaskChanges(t, changes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *taskService) Delete(ctx context.Context, owner uuid.UUID, id int64) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *taskService) Complete(ctx context.Context, owner uuid.UUID, id int64) (*models.Task, error) {
	return s.Update(ctx, owner, id, TaskChanges{IsCompleted: utils.Ptr(true)})
}

func checkOwner(t *models.Task, owner uuid.UUID) error {
	if t == nil {
		return utils.ErrTaskNotFound
	}
	if t.AuthorID != owner {
		return utils.ErrNotTaskOwner
	}
	return nil
}

func applyTaskChanges(t *models.Task, c TaskChanges) {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Memo != nil {
		t.Memo = *c.Memo
	}
	if c.Important != nil {
		t.Important = *c.Important
	}
	if c.IsCompleted != nil {
		t.IsCompleted = *c.IsCompleted
	}
}
