package domain

import (
	"testing"
	"time"
)

func TestCheckCompletion(t *testing.T) {
	t.Run("empty assignees never completed", func(t *testing.T) {
		task := &Task{}
		task.CheckCompletion()
		if task.IsCompleted {
			t.Fatal("没有执行人的任务不应该是完成状态")
		}
		if task.CompletedAt != nil {
			t.Fatal("没有执行人的任务不应该有完成时间")
		}
	})

	t.Run("all done sets completed and completedAt", func(t *testing.T) {
		task := &Task{
			Assignees: []Assignment{
				{UserID: 1, IsDone: true},
				{UserID: 2, IsDone: true},
			},
		}
		task.CheckCompletion()
		if !task.IsCompleted {
			t.Fatal("所有执行人都完成后任务应该是完成状态")
		}
		if task.CompletedAt == nil {
			t.Fatal("完成状态的任务应该有完成时间")
		}
	})

	t.Run("partial done clears completed", func(t *testing.T) {
		completedAt := time.Now().Add(-time.Hour)
		task := &Task{
			IsCompleted: true,
			CompletedAt: &completedAt,
			Assignees: []Assignment{
				{UserID: 1, IsDone: true},
				{UserID: 2, IsDone: false},
			},
		}
		task.CheckCompletion()
		if task.IsCompleted {
			t.Fatal("有执行人未完成时任务不应该是完成状态")
		}
		if task.CompletedAt != nil {
			t.Fatal("退回未完成时应该清除完成时间")
		}
	})

	t.Run("already completed keeps original completedAt", func(t *testing.T) {
		completedAt := time.Now().Add(-time.Hour)
		task := &Task{
			IsCompleted: true,
			CompletedAt: &completedAt,
			Assignees: []Assignment{
				{UserID: 1, IsDone: true},
			},
		}
		task.CheckCompletion()
		if !task.IsCompleted {
			t.Fatal("任务应该保持完成状态")
		}
		if task.CompletedAt == nil || !task.CompletedAt.Equal(completedAt) {
			t.Fatal("已经是完成状态时不应该刷新完成时间")
		}
	})
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		done     int
		total    int
		expected int
	}{
		{"no assignees", 0, 0, 0},
		{"none done", 0, 3, 0},
		{"one third", 1, 3, 33},
		{"two thirds", 2, 3, 67},
		{"half", 1, 2, 50},
		{"all done", 3, 3, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{}
			for i := 0; i < tt.total; i++ {
				task.Assignees = append(task.Assignees, Assignment{
					UserID: int64(i + 1),
					IsDone: i < tt.done,
				})
			}
			if got := task.Progress(); got != tt.expected {
				t.Fatalf("Progress() = %d, 期望 %d", got, tt.expected)
			}
		})
	}
}

func TestAssignmentOf(t *testing.T) {
	task := &Task{
		Assignees: []Assignment{
			{ID: 10, UserID: 1},
			{ID: 11, UserID: 2},
		},
	}

	a := task.AssignmentOf(2)
	if a == nil || a.ID != 11 {
		t.Fatalf("AssignmentOf(2) = %v, 期望 ID 为 11 的分配记录", a)
	}

	if task.AssignmentOf(3) != nil {
		t.Fatal("不存在的用户应该返回 nil")
	}

	// 返回的应该是指向原始切片元素的指针，修改后能反映到任务上
	a.IsDone = true
	if !task.Assignees[1].IsDone {
		t.Fatal("通过 AssignmentOf 的修改应该作用在任务的分配记录上")
	}
}
