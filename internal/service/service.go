package service

import (
	"github.com/sysu-ecnc-dev/task-tracker/backend/internal/domain"
)

// TaskRepository 是任务聚合的持久化接口，repository 包提供基于 Postgres 的实现。
// 所有写操作都要求是原子的：一次调用内的多表修改要么全部生效要么全部回滚
type TaskRepository interface {
	CreateTask(task *domain.Task) error
	GetTaskByID(id int64) (*domain.Task, error)
	QueryTasks(q domain.TaskQuery) ([]*domain.Task, error)
	// UpdateAssignment 只更新指定的分配记录以及任务上的聚合字段，
	// 通过任务的 version 做乐观锁检查，避免覆盖其他分配记录的并发修改
	UpdateAssignment(task *domain.Task, assignment *domain.Assignment) error
	AppendAssignment(task *domain.Task, assignment *domain.Assignment) error
	DeleteTask(id int64) error
}

// UserDirectory 是用户目录的只读接口
type UserDirectory interface {
	GetUserByID(id int64) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	GetUsersByLastNamePrefix(prefix string) ([]*domain.User, error)
}

type Service struct {
	tasks TaskRepository
	users UserDirectory
}

func NewService(tasks TaskRepository, users UserDirectory) *Service {
	return &Service{
		tasks: tasks,
		users: users,
	}
}
