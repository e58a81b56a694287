package domain

import (
	"math"
	"time"
)

// Assignment 表示任务中某个用户的分配记录，一个 (task, user) 对只允许存在一条
type Assignment struct {
	ID     int64      `json:"id"`
	UserID int64      `json:"userID"`
	IsDone bool       `json:"isDone"`
	DoneAt *time.Time `json:"doneAt"`
}

type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	CreatedBy   int64        `json:"createdBy"`
	Assignees   []Assignment `json:"assignees"`
	// IsCompleted 和 CompletedAt 是根据 Assignees 推导出来的聚合字段，
	// 只能通过 CheckCompletion 更新，不允许单独赋值
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	Version     int32      `json:"-"`
}

// CheckCompletion 在每次 Assignees 变动后重新计算任务的完成状态：
// 当且仅当分配列表非空且所有人都完成时任务才算完成，空列表永远视为未完成
func (t *Task) CheckCompletion() {
	allDone := len(t.Assignees) > 0
	for _, a := range t.Assignees {
		if !a.IsDone {
			allDone = false
			break
		}
	}

	if allDone && !t.IsCompleted {
		t.IsCompleted = true
		now := time.Now()
		t.CompletedAt = &now
	} else if !allDone {
		t.IsCompleted = false
		t.CompletedAt = nil
	}
}

// AssignmentOf 返回指定用户在该任务中的分配记录，不存在时返回 nil
func (t *Task) AssignmentOf(userID int64) *Assignment {
	for i := range t.Assignees {
		if t.Assignees[i].UserID == userID {
			return &t.Assignees[i]
		}
	}
	return nil
}

// Progress 返回已完成人数占总人数的百分比（四舍五入），没有分配记录时为 0
func (t *Task) Progress() int {
	if len(t.Assignees) == 0 {
		return 0
	}

	done := 0
	for _, a := range t.Assignees {
		if a.IsDone {
			done++
		}
	}

	return int(math.Round(float64(done) / float64(len(t.Assignees)) * 100))
}

// TaskView 是任务列表中返回给调用方的视图，附带了针对当前用户的字段
type TaskView struct {
	*Task
	ProgressPercent    int    `json:"progressPercent"`
	ViewerDone         bool   `json:"viewerDone"`
	ViewerAssignmentID *int64 `json:"viewerAssignmentID"`
}

type TaskFilter string

const (
	TaskFilterAll       TaskFilter = "all"
	TaskFilterPending   TaskFilter = "pending"
	TaskFilterCompleted TaskFilter = "completed"
	TaskFilterToday     TaskFilter = "today"
)

func (f TaskFilter) Valid() bool {
	switch f {
	case TaskFilterAll, TaskFilterPending, TaskFilterCompleted, TaskFilterToday:
		return true
	default:
		return false
	}
}

// TaskQuery 是任务查询条件，各字段为 nil 时表示不限制
type TaskQuery struct {
	AssignedToAny []int64
	IsCompleted   *bool
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}
