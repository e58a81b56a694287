package service

import (
	"testing"

	"github.com/sysu-ecnc-dev/task-tracker/backend/internal/domain"
)

func TestAuthz(t *testing.T) {
	adminP := domain.Principal{ID: 1, Role: domain.RoleAdmin}
	normalP := domain.Principal{ID: 2, Role: domain.RoleNormal}

	t.Run("only admin can assign others", func(t *testing.T) {
		if !CanAssignOthers(adminP) {
			t.Fatal("管理员应该可以给别人分配任务")
		}
		if CanAssignOthers(normalP) {
			t.Fatal("普通用户不应该可以给别人分配任务")
		}
	})

	t.Run("only admin can add assignee", func(t *testing.T) {
		if !CanAddAssignee(adminP) {
			t.Fatal("管理员应该可以追加执行人")
		}
		if CanAddAssignee(normalP) {
			t.Fatal("普通用户不应该可以追加执行人")
		}
	})

	t.Run("only admin can see all tasks", func(t *testing.T) {
		if !CanSeeAllTasks(adminP) {
			t.Fatal("管理员应该可以看到全部任务")
		}
		if CanSeeAllTasks(normalP) {
			t.Fatal("普通用户不应该可以看到全部任务")
		}
	})

	t.Run("creator or admin can delete task", func(t *testing.T) {
		task := &domain.Task{ID: 1, CreatedBy: normalP.ID}

		if !CanDeleteTask(normalP, task) {
			t.Fatal("创建者应该可以删除自己的任务")
		}
		if !CanDeleteTask(adminP, task) {
			t.Fatal("管理员应该可以删除任何任务")
		}

		other := domain.Principal{ID: 3, Role: domain.RoleNormal}
		if CanDeleteTask(other, task) {
			t.Fatal("其他普通用户不应该可以删除任务")
		}
	})
}
