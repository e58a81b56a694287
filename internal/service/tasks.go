package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/task-tracker/backend/internal/domain"
)

// CreateTask 创建任务。管理员可以通过 assigneeIDs 指定多个执行人，
// 此时列表按原样生效，管理员显式把任务只分配给别人时自己不会被强制加入；
// 其余情况（普通用户或管理员没有指定执行人）任务只会分配给创建者自己，
// 普通用户传入的 assigneeIDs 会被忽略
func (s *Service) CreateTask(actor domain.Principal, title string, description string, assigneeIDs []int64) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: 标题不能为空", domain.ErrValidation)
	}

	assignees := make([]domain.Assignment, 0)

	if CanAssignOthers(actor) && len(assigneeIDs) > 0 {
		seen := make(map[int64]bool)
		for _, id := range assigneeIDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			if _, err := s.users.GetUserByID(id); err != nil {
				return nil, fmt.Errorf("执行人 %d: %w", id, err)
			}

			assignees = append(assignees, domain.Assignment{UserID: id})
		}
	} else {
		assignees = append(assignees, domain.Assignment{UserID: actor.ID})
	}

	task := &domain.Task{
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatedBy:   actor.ID,
		Assignees:   assignees,
	}

	if err := s.tasks.CreateTask(task); err != nil {
		return nil, err
	}

	return task, nil
}

// ListTasks 按筛选条件列出当前用户可见的任务。
// 普通用户只能看到分配给自己的任务，管理员可以看到全部任务
func (s *Service) ListTasks(actor domain.Principal, filter domain.TaskFilter) ([]*domain.TaskView, error) {
	if !filter.Valid() {
		return nil, fmt.Errorf("%w: 无效的筛选条件 %q", domain.ErrValidation, filter)
	}

	q := domain.TaskQuery{}

	if !CanSeeAllTasks(actor) {
		q.AssignedToAny = []int64{actor.ID}
	}

	switch filter {
	case domain.TaskFilterPending:
		completed := false
		q.IsCompleted = &completed
	case domain.TaskFilterCompleted:
		completed := true
		q.IsCompleted = &completed
	case domain.TaskFilterToday:
		now := time.Now()
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end := start.Add(24*time.Hour - time.Nanosecond)
		q.CreatedFrom = &start
		q.CreatedTo = &end
	}

	tasks, err := s.tasks.QueryTasks(q)
	if err != nil {
		return nil, err
	}

	return s.buildTaskViews(actor, tasks), nil
}

// ListTasksByUsername 列出分配给指定用户名的用户的全部任务，
// 会暴露其他用户的任务，因此只允许管理员调用
func (s *Service) ListTasksByUsername(actor domain.Principal, username string) ([]*domain.TaskView, error) {
	if !CanSeeAllTasks(actor) {
		return nil, domain.ErrForbidden
	}

	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.QueryTasks(domain.TaskQuery{AssignedToAny: []int64{user.ID}})
	if err != nil {
		return nil, err
	}

	return s.buildTaskViews(actor, tasks), nil
}

// ListTasksByLastNamePrefix 列出分配给姓氏匹配指定前缀（大小写不敏感）的用户的任务，
// 同样只允许管理员调用
func (s *Service) ListTasksByLastNamePrefix(actor domain.Principal, prefix string) ([]*domain.TaskView, error) {
	if !CanSeeAllTasks(actor) {
		return nil, domain.ErrForbidden
	}

	users, err := s.users.GetUsersByLastNamePrefix(prefix)
	if err != nil {
		return nil, err
	}

	if len(users) == 0 {
		return []*domain.TaskView{}, nil
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	tasks, err := s.tasks.QueryTasks(domain.TaskQuery{AssignedToAny: ids})
	if err != nil {
		return nil, err
	}

	return s.buildTaskViews(actor, tasks), nil
}

// ToggleAssignment 翻转当前用户在任务中的完成状态，并同步重算任务的完成状态。
// 重算必须发生在持久化之前，分配状态和聚合字段之间不允许出现窗口
func (s *Service) ToggleAssignment(actor domain.Principal, taskID int64) (*domain.Task, error) {
	task, err := s.tasks.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}

	assignment := task.AssignmentOf(actor.ID)
	if assignment == nil {
		return nil, fmt.Errorf("%w: 该任务没有分配给你", domain.ErrForbidden)
	}

	assignment.IsDone = !assignment.IsDone
	if assignment.IsDone {
		now := time.Now()
		assignment.DoneAt = &now
	} else {
		assignment.DoneAt = nil
	}

	task.CheckCompletion()

	if err := s.tasks.UpdateAssignment(task, assignment); err != nil {
		return nil, err
	}

	return task, nil
}

// AddAssignee 向任务追加执行人，只有管理员可以调用。
// 新执行人必然是未完成状态，因此追加后任务一定回到未完成
func (s *Service) AddAssignee(actor domain.Principal, taskID int64, userID int64) (*domain.Task, error) {
	if !CanAddAssignee(actor) {
		return nil, domain.ErrForbidden
	}

	task, err := s.tasks.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByID(userID); err != nil {
		return nil, fmt.Errorf("执行人 %d: %w", userID, err)
	}

	if task.AssignmentOf(userID) != nil {
		return nil, fmt.Errorf("%w: 该用户已经被分配了这个任务", domain.ErrConflict)
	}

	task.Assignees = append(task.Assignees, domain.Assignment{UserID: userID})
	task.CheckCompletion()

	assignment := &task.Assignees[len(task.Assignees)-1]
	if err := s.tasks.AppendAssignment(task, assignment); err != nil {
		return nil, err
	}

	return task, nil
}

// DeleteTask 删除任务，只有任务创建者和管理员可以调用
func (s *Service) DeleteTask(actor domain.Principal, taskID int64) error {
	task, err := s.tasks.GetTaskByID(taskID)
	if err != nil {
		return err
	}

	if !CanDeleteTask(actor, task) {
		return fmt.Errorf("%w: 只有任务创建者和管理员可以删除任务", domain.ErrForbidden)
	}

	return s.tasks.DeleteTask(task.ID)
}

func (s *Service) buildTaskViews(actor domain.Principal, tasks []*domain.Task) []*domain.TaskView {
	views := make([]*domain.TaskView, 0, len(tasks))
	for _, task := range tasks {
		view := &domain.TaskView{
			Task:            task,
			ProgressPercent: task.Progress(),
		}

		if a := task.AssignmentOf(actor.ID); a != nil {
			view.ViewerDone = a.IsDone
			view.ViewerAssignmentID = &a.ID
		}

		views = append(views, view)
	}
	return views
}
