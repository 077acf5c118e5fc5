package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/taskdeck/taskdeck-go/internal/model"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrInvalidUserRef = errors.New("task references a missing user")
)

// TaskRepository handles task persistence operations.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// BeginTx starts a new database transaction.
func (r *TaskRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

// Create inserts a new task and sets the generated ID on the task struct.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	query := `INSERT INTO tasks (user_id, title, description, completed) VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, task.UserID, task.Title, task.Description, task.Completed)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrInvalidUserRef
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	task.ID = id
	return nil
}

// ListByUser retrieves all tasks owned by a user in natural insertion order.
func (r *TaskRepository) ListByUser(ctx context.Context, userID int64) ([]model.Task, error) {
	query := `SELECT id, user_id, title, COALESCE(description, ''), completed, created_at, updated_at
		FROM tasks WHERE user_id = ?`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// GetByID retrieves a task by its ID regardless of owner. Ownership checks
// belong to the service layer, which needs to tell a missing task apart from
// one owned by somebody else.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, getTaskQuery, id))
}

// GetByIDForUpdate retrieves a task inside tx with a row lock, so a
// read-modify-write sequence cannot lose a concurrent update.
func (r *TaskRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Task, error) {
	return scanTask(tx.QueryRowContext(ctx, getTaskQuery+` FOR UPDATE`, id))
}

const getTaskQuery = `SELECT id, user_id, title, COALESCE(description, ''), completed, created_at, updated_at
	FROM tasks WHERE id = ?`

func scanTask(row *sql.Row) (*model.Task, error) {
	task := &model.Task{}
	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description, &task.Completed,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// SaveTx persists the mutable task fields inside the provided transaction.
func (r *TaskRepository) SaveTx(ctx context.Context, tx *sql.Tx, task *model.Task) error {
	query := `UPDATE tasks SET title = ?, description = ?, completed = ? WHERE id = ?`

	_, err := tx.ExecContext(ctx, query, task.Title, task.Description, task.Completed, task.ID)
	return err
}

// isForeignKeyError reports whether err is a MySQL foreign key violation (code 1452).
func isForeignKeyError(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1452
}

// Delete removes a task by ID.
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrTaskNotFound
	}

	return nil
}
