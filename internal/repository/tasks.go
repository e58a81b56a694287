package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/task-tracker/backend/internal/domain"
)

func (r *Repository) CreateTask(task *domain.Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO tasks (title, description, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, is_completed, created_at, version
	`

	args := []any{task.Title, task.Description, task.CreatedBy}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&task.ID, &task.IsCompleted, &task.CreatedAt, &task.Version); err != nil {
		return err
	}

	for i := range task.Assignees {
		query := `
			INSERT INTO task_assignees (task_id, user_id)
			VALUES ($1, $2)
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, query, task.ID, task.Assignees[i].UserID).Scan(&task.Assignees[i].ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetTaskByID(id int64) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			t.title,
			t.description,
			t.created_by,
			t.is_completed,
			t.completed_at,
			t.created_at,
			t.version,
			ta.id,
			ta.user_id,
			ta.is_done,
			ta.done_at
		FROM tasks t
		LEFT JOIN task_assignees ta ON ta.task_id = t.id
		WHERE t.id = $1
		ORDER BY ta.id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	task := &domain.Task{
		ID:        id,
		Assignees: make([]domain.Assignment, 0),
	}
	found := false

	for rows.Next() {
		var row struct {
			assignmentID sql.NullInt64
			userID       sql.NullInt64
			isDone       sql.NullBool
			doneAt       sql.NullTime
		}

		dst := []any{
			&task.Title,
			&task.Description,
			&task.CreatedBy,
			&task.IsCompleted,
			&task.CompletedAt,
			&task.CreatedAt,
			&task.Version,
			&row.assignmentID,
			&row.userID,
			&row.isDone,
			&row.doneAt,
		}

		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		found = true

		if !row.assignmentID.Valid {
			// 任务没有任何分配记录，业务上不应该出现，但代码上还是要兼容
			continue
		}

		assignment := domain.Assignment{
			ID:     row.assignmentID.Int64,
			UserID: row.userID.Int64,
			IsDone: row.isDone.Bool,
		}
		if row.doneAt.Valid {
			doneAt := row.doneAt.Time
			assignment.DoneAt = &doneAt
		}

		task.Assignees = append(task.Assignees, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !found {
		return nil, domain.ErrNotFound
	}

	return task, nil
}

// QueryTasks 按查询条件列出任务（连同所有分配记录），按创建时间倒序排列
func (r *Repository) QueryTasks(q domain.TaskQuery) ([]*domain.Task, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	conditions := []string{}
	args := []any{}

	if q.AssignedToAny != nil {
		args = append(args, q.AssignedToAny)
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM task_assignees v WHERE v.task_id = t.id AND v.user_id = ANY($%d))", len(args)))
	}
	if q.IsCompleted != nil {
		args = append(args, *q.IsCompleted)
		conditions = append(conditions, fmt.Sprintf("t.is_completed = $%d", len(args)))
	}
	if q.CreatedFrom != nil {
		args = append(args, *q.CreatedFrom)
		conditions = append(conditions, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if q.CreatedTo != nil {
		args = append(args, *q.CreatedTo)
		conditions = append(conditions, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT
			t.id,
			t.title,
			t.description,
			t.created_by,
			t.is_completed,
			t.completed_at,
			t.created_at,
			t.version,
			ta.id,
			ta.user_id,
			ta.is_done,
			ta.done_at
		FROM tasks t
		LEFT JOIN task_assignees ta ON ta.task_id = t.id
		%s
		ORDER BY t.created_at DESC, t.id DESC, ta.id
	`, where)

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasksMap := make(map[int64]*domain.Task)
	tasks := make([]*domain.Task, 0)

	for rows.Next() {
		var row struct {
			taskID       int64
			title        string
			description  string
			createdBy    int64
			isCompleted  bool
			completedAt  sql.NullTime
			createdAt    time.Time
			version      int32
			assignmentID sql.NullInt64
			userID       sql.NullInt64
			isDone       sql.NullBool
			doneAt       sql.NullTime
		}

		dst := []any{
			&row.taskID,
			&row.title,
			&row.description,
			&row.createdBy,
			&row.isCompleted,
			&row.completedAt,
			&row.createdAt,
			&row.version,
			&row.assignmentID,
			&row.userID,
			&row.isDone,
			&row.doneAt,
		}

		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		task, exists := tasksMap[row.taskID]
		if !exists {
			task = &domain.Task{
				ID:          row.taskID,
				Title:       row.title,
				Description: row.description,
				CreatedBy:   row.createdBy,
				IsCompleted: row.isCompleted,
				CreatedAt:   row.createdAt,
				Version:     row.version,
				Assignees:   make([]domain.Assignment, 0),
			}
			if row.completedAt.Valid {
				completedAt := row.completedAt.Time
				task.CompletedAt = &completedAt
			}
			tasksMap[row.taskID] = task
			tasks = append(tasks, task)
		}

		if !row.assignmentID.Valid {
			continue
		}

		assignment := domain.Assignment{
			ID:     row.assignmentID.Int64,
			UserID: row.userID.Int64,
			IsDone: row.isDone.Bool,
		}
		if row.doneAt.Valid {
			doneAt := row.doneAt.Time
			assignment.DoneAt = &doneAt
		}

		task.Assignees = append(task.Assignees, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

// UpdateAssignment 只更新指定的分配记录和任务上的聚合字段，
// 聚合字段的写入带 version 检查，保证并发修改不同分配记录时互不覆盖
func (r *Repository) UpdateAssignment(task *domain.Task, assignment *domain.Assignment) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE task_assignees
		SET is_done = $1, done_at = $2
		WHERE id = $3
	`
	if _, err := tx.ExecContext(ctx, query, assignment.IsDone, assignment.DoneAt, assignment.ID); err != nil {
		return err
	}

	if err := r.updateTaskCompletion(ctx, tx, task); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) AppendAssignment(task *domain.Task, assignment *domain.Assignment) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO task_assignees (task_id, user_id)
		VALUES ($1, $2)
		RETURNING id
	`
	if err := tx.QueryRowContext(ctx, query, task.ID, assignment.UserID).Scan(&assignment.ID); err != nil {
		return err
	}

	if err := r.updateTaskCompletion(ctx, tx, task); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteTask(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) updateTaskCompletion(ctx context.Context, tx *sql.Tx, task *domain.Task) error {
	query := `
		UPDATE tasks
		SET
			is_completed = $1,
			completed_at = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	args := []any{task.IsCompleted, task.CompletedAt, task.ID, task.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&task.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrVersionConflict
		}
		return err
	}

	return nil
}
