package repositories

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-utils"
)

type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	// ListByAuthor returns one page of the author's tasks filtered by
	// completion, newest first, plus the total matching count.
	ListByAuthor(ctx context.Context, authorID uuid.UUID, completed bool, limit, offset int) ([]*models.Task, int, error)
	UpdateIfVersion(ctx context.Context, t *models.Task, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id int64, mutate func(*models.Task) error) error
	Delete(ctx context.Context, id int64) error
}

type taskRepository struct {
	db DB
}

func NewTaskRepository(db DB) TaskRepository {
	return &taskRepository{db: db}
}

const selectTask = `
    SELECT t.id, t.title, t.memo, t.author_id, t.important, t.is_completed, t.row_version,
           t.created_time, t.updated_time,
           a.id, a.phone, a.username
    FROM tasks t
    JOIN accounts a ON a.id = t.author_id
`

func (r *taskRepository) Create(ctx context.Context, t *models.Task) error {
	q := `
        INSERT INTO tasks (title, memo, author_id, important, is_completed, row_version, created_time, updated_time)
        VALUES ($1, $2, $3, $4, $5, 1, NOW(), NOW())
        RETURNING id, row_version, created_time, updated_time
    `
	return r.db.QueryRow(ctx, q, t.Title, t.Memo, t.AuthorID, t.Important, t.IsCompleted).
		Scan(&t.ID, &t.RowVersion, &t.CreatedTime, &t.UpdatedTime)
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, selectTask+" WHERE t.id = $1", id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *taskRepository) ListByAuthor(
	ctx context.Context,
	authorID uuid.UUID,
	completed bool,
	limit, offset int,
) ([]*models.Task, int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE author_id = $1 AND is_completed = $2`,
		authorID, completed,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx,
		selectTask+` WHERE t.author_id = $1 AND t.is_completed = $2
        ORDER BY t.created_time DESC, t.id DESC
        LIMIT $3 OFFSET $4`,
		authorID, completed, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *taskRepository) UpdateIfVersion(ctx context.Context, t *models.Task, expected int64) (pgconn.CommandTag, error) {
	q := `
        UPDATE tasks
        SET title = $2,
            memo = $3,
            important = $4,
            is_completed = $5,
            row_version = row_version + 1,
            updated_time = NOW()
        WHERE id = $1 AND row_version = $6
    `
	return r.db.Exec(ctx, q, t.ID, t.Title, t.Memo, t.Important, t.IsCompleted, expected)
}

func (r *taskRepository) UpdateWithRetry(ctx context.Context, id int64, mutate func(*models.Task) error) error {
	getByID := func(ctx context.Context, sid string) (*models.Task, error) {
		n, err := strconv.ParseInt(sid, 10, 64)
		if err != nil {
			return nil, err
		}
		return r.GetByID(ctx, n)
	}
	return WithRetry(
		ctx,
		DefaultMaxRetries,
		strconv.FormatInt(id, 10),
		getByID,
		r.UpdateIfVersion,
		mutate,
		utils.ErrTaskNotFound,
	)
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrTaskNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var (
		t      models.Task
		author models.Account
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Memo,
		&t.AuthorID,
		&t.Important,
		&t.IsCompleted,
		&t.RowVersion,
		&t.CreatedTime,
		&t.UpdatedTime,
		&author.ID,
		&author.Phone,
		&author.Username,
	)
	if err != nil {
		return nil, err
	}
	t.Author = &author
	return &t, nil
}
