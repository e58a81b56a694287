package service

import (
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sysu-ecnc-dev/task-tracker/backend/internal/domain"
)

// fakeTaskRepository 是 TaskRepository 的内存实现，
// 读写都使用深拷贝来模拟真实存储的行为，并保留 version 检查
type fakeTaskRepository struct {
	nextTaskID       int64
	nextAssignmentID int64
	seq              int
	tasks            map[int64]*domain.Task
}

func newFakeTaskRepository() *fakeTaskRepository {
	return &fakeTaskRepository{
		tasks: make(map[int64]*domain.Task),
	}
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneTask(task *domain.Task) *domain.Task {
	c := *task
	c.CompletedAt = cloneTimePtr(task.CompletedAt)
	c.Assignees = make([]domain.Assignment, len(task.Assignees))
	for i, a := range task.Assignees {
		c.Assignees[i] = a
		c.Assignees[i].DoneAt = cloneTimePtr(a.DoneAt)
	}
	return &c
}

func (f *fakeTaskRepository) CreateTask(task *domain.Task) error {
	f.nextTaskID++
	task.ID = f.nextTaskID
	task.Version = 1
	// 每个任务的创建时间依次递增，保证排序测试是确定的
	f.seq++
	task.CreatedAt = time.Now().Add(time.Duration(f.seq) * time.Millisecond)

	for i := range task.Assignees {
		f.nextAssignmentID++
		task.Assignees[i].ID = f.nextAssignmentID
	}

	f.tasks[task.ID] = cloneTask(task)
	return nil
}

func (f *fakeTaskRepository) GetTaskByID(id int64) (*domain.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTask(task), nil
}

func (f *fakeTaskRepository) QueryTasks(q domain.TaskQuery) ([]*domain.Task, error) {
	result := make([]*domain.Task, 0)

	for _, task := range f.tasks {
		if q.AssignedToAny != nil {
			matched := false
			for _, id := range q.AssignedToAny {
				if task.AssignmentOf(id) != nil {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if q.IsCompleted != nil && task.IsCompleted != *q.IsCompleted {
			continue
		}
		if q.CreatedFrom != nil && task.CreatedAt.Before(*q.CreatedFrom) {
			continue
		}
		if q.CreatedTo != nil && task.CreatedAt.After(*q.CreatedTo) {
			continue
		}

		result = append(result, cloneTask(task))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

func (f *fakeTaskRepository) UpdateAssignment(task *domain.Task, assignment *domain.Assignment) error {
	stored, ok := f.tasks[task.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != task.Version {
		return domain.ErrVersionConflict
	}

	for i := range stored.Assignees {
		if stored.Assignees[i].ID == assignment.ID {
			stored.Assignees[i].IsDone = assignment.IsDone
			stored.Assignees[i].DoneAt = cloneTimePtr(assignment.DoneAt)
		}
	}

	stored.IsCompleted = task.IsCompleted
	stored.CompletedAt = cloneTimePtr(task.CompletedAt)
	stored.Version++
	task.Version = stored.Version
	return nil
}

func (f *fakeTaskRepository) AppendAssignment(task *domain.Task, assignment *domain.Assignment) error {
	stored, ok := f.tasks[task.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != task.Version {
		return domain.ErrVersionConflict
	}

	f.nextAssignmentID++
	assignment.ID = f.nextAssignmentID
	stored.Assignees = append(stored.Assignees, domain.Assignment{
		ID:     assignment.ID,
		UserID: assignment.UserID,
		IsDone: assignment.IsDone,
		DoneAt: cloneTimePtr(assignment.DoneAt),
	})

	stored.IsCompleted = task.IsCompleted
	stored.CompletedAt = cloneTimePtr(task.CompletedAt)
	stored.Version++
	task.Version = stored.Version
	return nil
}

func (f *fakeTaskRepository) DeleteTask(id int64) error {
	delete(f.tasks, id)
	return nil
}

type fakeUserDirectory struct {
	users map[int64]*domain.User
}

func newFakeUserDirectory(users ...*domain.User) *fakeUserDirectory {
	f := &fakeUserDirectory{users: make(map[int64]*domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserDirectory) GetUserByID(id int64) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserDirectory) GetUserByUsername(username string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserDirectory) GetUsersByLastNamePrefix(prefix string) ([]*domain.User, error) {
	result := make([]*domain.User, 0)
	for _, u := range f.users {
		if strings.HasPrefix(strings.ToLower(u.LastName), strings.ToLower(prefix)) {
			result = append(result, u)
		}
	}
	return result, nil
}

var (
	adminUser = &domain.User{ID: 1, Username: "wangwei", FullName: "Wang Wei", LastName: "Wang", Role: domain.RoleAdmin}
	userA     = &domain.User{ID: 2, Username: "lifang", FullName: "Li Fang", LastName: "Li", Role: domain.RoleNormal}
	userB     = &domain.User{ID: 3, Username: "liming", FullName: "Li Ming", LastName: "Li", Role: domain.RoleNormal}
	userC     = &domain.User{ID: 4, Username: "chenlei", FullName: "Chen Lei", LastName: "Chen", Role: domain.RoleNormal}

	admin      = domain.Principal{ID: 1, Role: domain.RoleAdmin}
	principalA = domain.Principal{ID: 2, Role: domain.RoleNormal}
	principalB = domain.Principal{ID: 3, Role: domain.RoleNormal}
	principalC = domain.Principal{ID: 4, Role: domain.RoleNormal}
)

func newTestService() (*Service, *fakeTaskRepository) {
	repo := newFakeTaskRepository()
	dir := newFakeUserDirectory(adminUser, userA, userB, userC)
	return NewService(repo, dir), repo
}

// checkInvariant 校验完成状态的聚合不变式：
// 任务完成当且仅当分配列表非空且所有人都完成
func checkInvariant(t *testing.T, task *domain.Task) {
	t.Helper()

	allDone := len(task.Assignees) > 0
	for _, a := range task.Assignees {
		if !a.IsDone {
			allDone = false
			break
		}
	}

	if task.IsCompleted != allDone {
		t.Fatalf("完成状态不变式被破坏: isCompleted=%v, allDone=%v", task.IsCompleted, allDone)
	}
	if task.IsCompleted && task.CompletedAt == nil {
		t.Fatal("完成状态的任务必须有完成时间")
	}
	if !task.IsCompleted && task.CompletedAt != nil {
		t.Fatal("未完成的任务不应该有完成时间")
	}
}

func TestCreateTask(t *testing.T) {
	t.Run("empty title returns validation error", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.CreateTask(principalA, "   ", "", nil)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("期望 ErrValidation, 得到 %v", err)
		}
	})

	t.Run("normal user ignores requested assignees", func(t *testing.T) {
		svc, _ := newTestService()
		task, err := svc.CreateTask(principalA, "整理资料", "", []int64{3, 4})
		if err != nil {
			t.Fatalf("创建任务失败: %v", err)
		}
		if len(task.Assignees) != 1 || task.Assignees[0].UserID != principalA.ID {
			t.Fatalf("普通用户创建的任务应该只分配给自己, 得到 %+v", task.Assignees)
		}
		checkInvariant(t, task)
	})

	t.Run("admin assigns to multiple users", func(t *testing.T) {
		svc, _ := newTestService()
		task, err := svc.CreateTask(admin, "检查线路", "三楼机房", []int64{2, 3})
		if err != nil {
			t.Fatalf("创建任务失败: %v", err)
		}
		if len(task.Assignees) != 2 {
			t.Fatalf("期望 2 个执行人, 得到 %d", len(task.Assignees))
		}
		if task.Assignees[0].UserID != 2 || task.Assignees[1].UserID != 3 {
			t.Fatalf("执行人列表顺序错误: %+v", task.Assignees)
		}
		if task.CreatedBy != admin.ID {
			t.Fatalf("创建者应该是管理员, 得到 %d", task.CreatedBy)
		}
		if task.IsCompleted {
			t.Fatal("新建任务不应该是完成状态")
		}
		checkInvariant(t, task)
	})

	t.Run("admin deduplicates requested assignees", func(t *testing.T) {
		svc, _ := newTestService()
		task, err := svc.CreateTask(admin, "盘点库存", "", []int64{2, 2, 3})
		if err != nil {
			t.Fatalf("创建任务失败: %v", err)
		}
		if len(task.Assignees) != 2 {
			t.Fatalf("重复的执行人应该被去重, 得到 %d 个", len(task.Assignees))
		}
	})

	t.Run("admin without assignees gets self-assignment", func(t *testing.T) {
		svc, _ := newTestService()
		task, err := svc.CreateTask(admin, "审核周报", "", nil)
		if err != nil {
			t.Fatalf("创建任务失败: %v", err)
		}
		if len(task.Assignees) != 1 || task.Assignees[0].UserID != admin.ID {
			t.Fatalf("没有指定执行人时应该分配给创建者自己, 得到 %+v", task.Assignees)
		}
	})

	t.Run("admin assigning unknown user returns not found", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.CreateTask(admin, "部署服务", "", []int64{999})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("期望 ErrNotFound, 得到 %v", err)
		}
	})
}

func TestToggleAssignment(t *testing.T) {
	t.Run("toggle sets done and doneAt", func(t *testing.T) {
		svc, repo := newTestService()
		task, _ := svc.CreateTask(principalA, "整理资料", "", nil)

		toggled, err := svc.ToggleAssignment(principalA, task.ID)
		if err != nil {
			t.Fatalf("切换状态失败: %v", err)
		}

		a := toggled.AssignmentOf(principalA.ID)
		if !a.IsDone || a.DoneAt == nil {
			t.Fatalf("切换后应该是完成状态且有完成时间, 得到 %+v", a)
		}
		checkInvariant(t, toggled)

		// 持久化的状态应该和返回值一致
		stored, _ := repo.GetTaskByID(task.ID)
		checkInvariant(t, stored)
		if !stored.IsCompleted {
			t.Fatal("唯一执行人完成后任务应该是完成状态")
		}
	})

	t.Run("double toggle restores original state", func(t *testing.T) {
		svc, repo := newTestService()
		task, _ := svc.CreateTask(principalA, "整理资料", "", nil)

		if _, err := svc.ToggleAssignment(principalA, task.ID); err != nil {
			t.Fatalf("第一次切换失败: %v", err)
		}
		toggled, err := svc.ToggleAssignment(principalA, task.ID)
		if err != nil {
			t.Fatalf("第二次切换失败: %v", err)
		}

		a := toggled.AssignmentOf(principalA.ID)
		if a.IsDone || a.DoneAt != nil {
			t.Fatalf("切换两次后应该回到未完成状态, 得到 %+v", a)
		}
		if toggled.IsCompleted || toggled.CompletedAt != nil {
			t.Fatal("切换两次后任务应该回到未完成状态")
		}

		stored, _ := repo.GetTaskByID(task.ID)
		checkInvariant(t, stored)
	})

	t.Run("non-assignee is forbidden", func(t *testing.T) {
		svc, _ := newTestService()
		task, _ := svc.CreateTask(principalA, "整理资料", "", nil)

		_, err := svc.ToggleAssignment(principalB, task.ID)
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("期望 ErrForbidden, 得到 %v", err)
		}
	})

	t.Run("missing task returns not found", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.ToggleAssignment(principalA, 999)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("期望 ErrNotFound, 得到 %v", err)
		}
	})
}

// 完整走一遍多人任务的完成流程：
// 管理员创建分配给 A 和 B 的任务，A 完成后任务未完成，B 完成后任务完成，
// 管理员再追加执行人 C，任务回到未完成
func TestCompletionScenario(t *testing.T) {
	svc, repo := newTestService()

	task, err := svc.CreateTask(admin, "T1", "", []int64{userA.ID, userB.ID})
	if err != nil {
		t.Fatalf("创建任务失败: %v", err)
	}
	for _, a := range task.Assignees {
		if a.IsDone {
			t.Fatal("新任务的执行人都应该是未完成状态")
		}
	}
	if task.IsCompleted {
		t.Fatal("新任务不应该是完成状态")
	}

	afterA, err := svc.ToggleAssignment(principalA, task.ID)
	if err != nil {
		t.Fatalf("A 切换状态失败: %v", err)
	}
	if afterA.IsCompleted {
		t.Fatal("只有 A 完成时任务不应该是完成状态")
	}
	checkInvariant(t, afterA)

	afterB, err := svc.ToggleAssignment(principalB, task.ID)
	if err != nil {
		t.Fatalf("B 切换状态失败: %v", err)
	}
	if !afterB.IsCompleted || afterB.CompletedAt == nil {
		t.Fatal("所有执行人都完成后任务应该是完成状态且有完成时间")
	}
	checkInvariant(t, afterB)

	afterC, err := svc.AddAssignee(admin, task.ID, userC.ID)
	if err != nil {
		t.Fatalf("追加执行人失败: %v", err)
	}
	if afterC.IsCompleted || afterC.CompletedAt != nil {
		t.Fatal("追加了未完成的执行人后任务应该回到未完成状态")
	}
	if len(afterC.Assignees) != 3 {
		t.Fatalf("期望 3 个执行人, 得到 %d", len(afterC.Assignees))
	}
	checkInvariant(t, afterC)

	stored, _ := repo.GetTaskByID(task.ID)
	checkInvariant(t, stored)
}

func TestAddAssignee(t *testing.T) {
	t.Run("non-admin is forbidden", func(t *testing.T) {
		svc, _ := newTestService()
		task, _ := svc.CreateTask(principalA, "整理资料", "", nil)

		_, err := svc.AddAssignee(principalA, task.ID, userB.ID)
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("期望 ErrForbidden, 得到 %v", err)
		}
	})

	t.Run("duplicate assignee returns conflict and keeps count", func(t *testing.T) {
		svc, repo := newTestService()
		task, _ := svc.CreateTask(admin, "检查线路", "", []int64{userA.ID, userB.ID})

		_, err := svc.AddAssignee(admin, task.ID, userA.ID)
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("期望 ErrConflict, 得到 %v", err)
		}

		stored, _ := repo.GetTaskByID(task.ID)
		if len(stored.Assignees) != 2 {
			t.Fatalf("冲突后执行人数量不应该变化, 得到 %d", len(stored.Assignees))
		}
	})

	t.Run("missing task returns not found", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.AddAssignee(admin, 999, userA.ID)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("期望 ErrNotFound, 得到 %v", err)
		}
	})

	t.Run("missing user returns not found", func(t *testing.T) {
		svc, _ := newTestService()
		task, _ := svc.CreateTask(admin, "检查线路", "", []int64{userA.ID})

		_, err := svc.AddAssignee(admin, task.ID, 999)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("期望 ErrNotFound, 得到 %v", err)
		}
	})
}

func TestDeleteTask(t *testing.T) {
	t.Run("non-creator non-admin is forbidden", func(t *testing.T) {
		svc, repo := newTestService()
		task, _ := svc.CreateTask(admin, "检查线路", "", []int64{userA.ID, userB.ID})

		err := svc.DeleteTask(principalA, task.ID)
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("期望 ErrForbidden, 得到 %v", err)
		}

		if _, err := repo.GetTaskByID(task.ID); err != nil {
			t.Fatal("删除失败后任务应该仍然存在")
		}
	})

	t.Run("creator can delete", func(t *testing.T) {
		svc, repo := newTestService()
		task, _ := svc.CreateTask(principalA, "整理资料", "", nil)

		if err := svc.DeleteTask(principalA, task.ID); err != nil {
			t.Fatalf("创建者删除任务失败: %v", err)
		}
		if _, err := repo.GetTaskByID(task.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatal("删除后任务不应该存在")
		}
	})

	t.Run("admin can delete others' tasks", func(t *testing.T) {
		svc, repo := newTestService()
		task, _ := svc.CreateTask(principalA, "整理资料", "", nil)

		if err := svc.DeleteTask(admin, task.ID); err != nil {
			t.Fatalf("管理员删除任务失败: %v", err)
		}
		if _, err := repo.GetTaskByID(task.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatal("删除后任务不应该存在")
		}
	})

	t.Run("missing task returns not found", func(t *testing.T) {
		svc, _ := newTestService()
		if err := svc.DeleteTask(admin, 999); !errors.Is(err, domain.ErrNotFound) {
			t.Fatal("期望 ErrNotFound")
		}
	})
}

func TestListTasks(t *testing.T) {
	setup := func(t *testing.T) (*Service, *fakeTaskRepository, [3]*domain.Task) {
		t.Helper()
		svc, repo := newTestService()

		t1, err := svc.CreateTask(admin, "T1", "", []int64{userA.ID, userB.ID})
		if err != nil {
			t.Fatalf("创建 T1 失败: %v", err)
		}
		t2, err := svc.CreateTask(principalA, "T2", "", nil)
		if err != nil {
			t.Fatalf("创建 T2 失败: %v", err)
		}
		t3, err := svc.CreateTask(principalB, "T3", "", nil)
		if err != nil {
			t.Fatalf("创建 T3 失败: %v", err)
		}

		return svc, repo, [3]*domain.Task{t1, t2, t3}
	}

	t.Run("invalid filter returns validation error", func(t *testing.T) {
		svc, _, _ := setup(t)
		_, err := svc.ListTasks(principalA, "yesterday")
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("期望 ErrValidation, 得到 %v", err)
		}
	})

	t.Run("normal user only sees assigned tasks", func(t *testing.T) {
		svc, _, tasks := setup(t)

		views, err := svc.ListTasks(principalA, domain.TaskFilterAll)
		if err != nil {
			t.Fatalf("获取任务列表失败: %v", err)
		}
		if len(views) != 2 {
			t.Fatalf("A 应该只能看到 2 个任务, 得到 %d", len(views))
		}
		for _, v := range views {
			if v.AssignmentOf(principalA.ID) == nil {
				t.Fatalf("A 看到了没有分配给自己的任务 %d", v.ID)
			}
			if v.ID == tasks[2].ID {
				t.Fatal("A 不应该看到 T3")
			}
		}
	})

	t.Run("admin sees all tasks in descending order", func(t *testing.T) {
		svc, _, tasks := setup(t)

		views, err := svc.ListTasks(admin, domain.TaskFilterAll)
		if err != nil {
			t.Fatalf("获取任务列表失败: %v", err)
		}
		if len(views) != 3 {
			t.Fatalf("管理员应该能看到全部 3 个任务, 得到 %d", len(views))
		}
		// 按创建时间倒序：T3, T2, T1
		expected := []int64{tasks[2].ID, tasks[1].ID, tasks[0].ID}
		for i, v := range views {
			if v.ID != expected[i] {
				t.Fatalf("第 %d 个任务应该是 %d, 得到 %d", i, expected[i], v.ID)
			}
		}
	})

	t.Run("pending and completed filters", func(t *testing.T) {
		svc, _, tasks := setup(t)

		// A 完成自己的 T2
		if _, err := svc.ToggleAssignment(principalA, tasks[1].ID); err != nil {
			t.Fatalf("切换状态失败: %v", err)
		}

		pending, err := svc.ListTasks(principalA, domain.TaskFilterPending)
		if err != nil {
			t.Fatalf("获取未完成任务失败: %v", err)
		}
		if len(pending) != 1 || pending[0].ID != tasks[0].ID {
			t.Fatalf("未完成列表应该只有 T1, 得到 %+v", pending)
		}

		completed, err := svc.ListTasks(principalA, domain.TaskFilterCompleted)
		if err != nil {
			t.Fatalf("获取已完成任务失败: %v", err)
		}
		if len(completed) != 1 || completed[0].ID != tasks[1].ID {
			t.Fatalf("已完成列表应该只有 T2, 得到 %+v", completed)
		}
	})

	t.Run("today filter excludes old tasks", func(t *testing.T) {
		svc, repo, tasks := setup(t)

		// 把 T2 的创建时间改到昨天
		repo.tasks[tasks[1].ID].CreatedAt = time.Now().AddDate(0, 0, -1)

		views, err := svc.ListTasks(principalA, domain.TaskFilterToday)
		if err != nil {
			t.Fatalf("获取今日任务失败: %v", err)
		}
		if len(views) != 1 || views[0].ID != tasks[0].ID {
			t.Fatalf("今日列表应该只有 T1, 得到 %d 个", len(views))
		}
	})

	t.Run("view carries viewer fields and progress", func(t *testing.T) {
		svc, _, tasks := setup(t)

		// A 完成自己在 T1 中的部分
		if _, err := svc.ToggleAssignment(principalA, tasks[0].ID); err != nil {
			t.Fatalf("切换状态失败: %v", err)
		}

		views, err := svc.ListTasks(principalA, domain.TaskFilterAll)
		if err != nil {
			t.Fatalf("获取任务列表失败: %v", err)
		}

		var t1View *domain.TaskView
		for _, v := range views {
			if v.ID == tasks[0].ID {
				t1View = v
			}
		}
		if t1View == nil {
			t.Fatal("列表中应该包含 T1")
		}

		if t1View.ProgressPercent != 50 {
			t.Fatalf("两人完成一人时进度应该是 50, 得到 %d", t1View.ProgressPercent)
		}
		if !t1View.ViewerDone {
			t.Fatal("A 已经完成了自己的部分, viewerDone 应该为 true")
		}
		if t1View.ViewerAssignmentID == nil {
			t.Fatal("A 是执行人, viewerAssignmentID 不应该为空")
		}

		// B 视角：自己未完成
		viewsB, err := svc.ListTasks(principalB, domain.TaskFilterAll)
		if err != nil {
			t.Fatalf("获取任务列表失败: %v", err)
		}
		for _, v := range viewsB {
			if v.ID == tasks[0].ID && v.ViewerDone {
				t.Fatal("B 还没完成自己的部分, viewerDone 应该为 false")
			}
		}
	})

	t.Run("admin view of unassigned task has no viewer fields", func(t *testing.T) {
		svc, _, tasks := setup(t)

		views, err := svc.ListTasks(admin, domain.TaskFilterAll)
		if err != nil {
			t.Fatalf("获取任务列表失败: %v", err)
		}
		for _, v := range views {
			if v.ID == tasks[1].ID {
				if v.ViewerDone || v.ViewerAssignmentID != nil {
					t.Fatal("管理员不是 T2 的执行人, viewer 字段应该为零值")
				}
			}
		}
	})
}

func TestListTasksByUsername(t *testing.T) {
	t.Run("non-admin is forbidden", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.ListTasksByUsername(principalA, "liming")
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("期望 ErrForbidden, 得到 %v", err)
		}
	})

	t.Run("returns tasks assigned to the user", func(t *testing.T) {
		svc, _ := newTestService()
		t1, _ := svc.CreateTask(admin, "T1", "", []int64{userA.ID, userB.ID})
		if _, err := svc.CreateTask(principalB, "T2", "", nil); err != nil {
			t.Fatalf("创建任务失败: %v", err)
		}

		views, err := svc.ListTasksByUsername(admin, "lifang")
		if err != nil {
			t.Fatalf("按用户名查询任务失败: %v", err)
		}
		if len(views) != 1 || views[0].ID != t1.ID {
			t.Fatalf("lifang 应该只有 T1, 得到 %d 个", len(views))
		}
	})

	t.Run("unknown username returns not found", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.ListTasksByUsername(admin, "nobody")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("期望 ErrNotFound, 得到 %v", err)
		}
	})
}

func TestListTasksByLastNamePrefix(t *testing.T) {
	t.Run("non-admin is forbidden", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.ListTasksByLastNamePrefix(principalA, "Li")
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("期望 ErrForbidden, 得到 %v", err)
		}
	})

	t.Run("matches case-insensitively and merges tasks", func(t *testing.T) {
		svc, _ := newTestService()
		t1, _ := svc.CreateTask(admin, "T1", "", []int64{userA.ID})
		t2, _ := svc.CreateTask(admin, "T2", "", []int64{userB.ID})
		if _, err := svc.CreateTask(admin, "T3", "", []int64{userC.ID}); err != nil {
			t.Fatalf("创建任务失败: %v", err)
		}

		// userA 和 userB 的姓氏都是 Li
		views, err := svc.ListTasksByLastNamePrefix(admin, "li")
		if err != nil {
			t.Fatalf("按姓氏查询任务失败: %v", err)
		}
		if len(views) != 2 {
			t.Fatalf("期望 2 个任务, 得到 %d", len(views))
		}
		got := map[int64]bool{}
		for _, v := range views {
			got[v.ID] = true
		}
		if !got[t1.ID] || !got[t2.ID] {
			t.Fatalf("结果应该包含 T1 和 T2, 得到 %v", got)
		}
	})

	t.Run("no matching users returns empty list", func(t *testing.T) {
		svc, _ := newTestService()
		views, err := svc.ListTasksByLastNamePrefix(admin, "Zhao")
		if err != nil {
			t.Fatalf("按姓氏查询任务失败: %v", err)
		}
		if len(views) != 0 {
			t.Fatalf("期望空列表, 得到 %d 个", len(views))
		}
	})
}

// 模拟两个执行人并发切换状态：第二个写入基于过期的 version，应该失败并可重试
func TestConcurrentToggleConflict(t *testing.T) {
	svc, repo := newTestService()
	task, _ := svc.CreateTask(admin, "T1", "", []int64{userA.ID, userB.ID})

	// A 读取任务后，B 先完成了写入
	taskForA, _ := repo.GetTaskByID(task.ID)
	if _, err := svc.ToggleAssignment(principalB, task.ID); err != nil {
		t.Fatalf("B 切换状态失败: %v", err)
	}

	// 直接用 A 读到的旧版本写入，模拟并发竞争
	a := taskForA.AssignmentOf(principalA.ID)
	a.IsDone = true
	taskForA.CheckCompletion()
	if err := repo.UpdateAssignment(taskForA, a); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("期望 ErrVersionConflict, 得到 %v", err)
	}

	// A 重试：重新读取后切换，B 的修改不能被覆盖
	after, err := svc.ToggleAssignment(principalA, task.ID)
	if err != nil {
		t.Fatalf("A 重试失败: %v", err)
	}
	if b := after.AssignmentOf(principalB.ID); !b.IsDone {
		t.Fatal("A 的写入不应该覆盖 B 的完成状态")
	}
	if !after.IsCompleted {
		t.Fatal("两人都完成后任务应该是完成状态")
	}
	checkInvariant(t, after)
}
