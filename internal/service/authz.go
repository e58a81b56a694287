package service

import "github.com/sysu-ecnc-dev/task-tracker/backend/internal/domain"

// 所有和角色、归属相关的判断都集中在这里，避免在各个操作里散落 if role == admin

// CanAssignOthers 判断创建任务时能否指定其他人为执行人
func CanAssignOthers(p domain.Principal) bool {
	return p.IsAdmin()
}

// CanAddAssignee 判断能否向已有任务追加执行人
func CanAddAssignee(p domain.Principal) bool {
	return p.IsAdmin()
}

// CanDeleteTask 判断能否删除任务：只有任务创建者和管理员可以
func CanDeleteTask(p domain.Principal, t *domain.Task) bool {
	return p.ID == t.CreatedBy || p.IsAdmin()
}

// CanSeeAllTasks 判断能否看到系统内的全部任务（而不只是分配给自己的）
func CanSeeAllTasks(p domain.Principal) bool {
	return p.IsAdmin()
}
