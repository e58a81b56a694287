package seed

import (
	"log/slog"

	"github.com/sysu-ecnc-dev/task-tracker/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-tracker/backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type demoUser struct {
	Username string
	FullName string
	Email    string
	Role     domain.Role
}

var demoUsers = []demoUser{
	{Username: "wangwei01", FullName: "王伟", Email: "wangwei01@test.local", Role: domain.RoleAdmin},
	{Username: "lifang02", FullName: "李芳", Email: "lifang02@test.local", Role: domain.RoleNormal},
	{Username: "zhangmin03", FullName: "张敏", Email: "zhangmin03@test.local", Role: domain.RoleNormal},
	{Username: "liujing04", FullName: "刘静", Email: "liujing04@test.local", Role: domain.RoleNormal},
	{Username: "chenlei05", FullName: "陈磊", Email: "chenlei05@test.local", Role: domain.RoleNormal},
}

type demoTask struct {
	Title       string
	Description string
	CreatedBy   string   // username
	Assignees   []string // usernames
}

var demoTasks = []demoTask{
	{
		Title:       "整理前台值班表",
		Description: "把本学期的值班表汇总到共享文档",
		CreatedBy:   "wangwei01",
		Assignees:   []string{"wangwei01", "lifang02", "zhangmin03"},
	},
	{
		Title:       "检查机房线路",
		Description: "重点检查三楼机房的网线标签",
		CreatedBy:   "wangwei01",
		Assignees:   []string{"liujing04", "chenlei05"},
	},
	{
		Title:       "更新培训资料",
		Description: "",
		CreatedBy:   "lifang02",
		Assignees:   []string{"lifang02"},
	},
}

// SeedDemoData 插入一组固定的演示用户和任务，密码统一使用传入的密码
func SeedDemoData(r *repository.Repository, password string) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("无法生成密码哈希", "error", err)
		return
	}

	usersByName := make(map[string]*domain.User)

	for _, du := range demoUsers {
		user := &domain.User{
			Username:     du.Username,
			PasswordHash: string(passwordHash),
			FullName:     du.FullName,
			LastName:     domain.LastNameOf(du.FullName),
			Email:        du.Email,
			Role:         du.Role,
		}

		if err := r.CreateUser(user); err != nil {
			// 用户可能已经存在，尝试直接读取
			existing, getErr := r.GetUserByUsername(du.Username)
			if getErr != nil {
				slog.Error("插入演示用户失败", "username", du.Username, "error", err)
				continue
			}
			user = existing
		}

		usersByName[du.Username] = user
	}

	insertedTasks := 0
	for _, dt := range demoTasks {
		creator, ok := usersByName[dt.CreatedBy]
		if !ok {
			slog.Error("演示任务的创建者不存在", "username", dt.CreatedBy)
			continue
		}

		task := &domain.Task{
			Title:       dt.Title,
			Description: dt.Description,
			CreatedBy:   creator.ID,
			Assignees:   make([]domain.Assignment, 0, len(dt.Assignees)),
		}

		for _, username := range dt.Assignees {
			assignee, ok := usersByName[username]
			if !ok {
				continue
			}
			task.Assignees = append(task.Assignees, domain.Assignment{UserID: assignee.ID})
		}

		if err := r.CreateTask(task); err != nil {
			slog.Error("插入演示任务失败", "title", dt.Title, "error", err)
			continue
		}

		insertedTasks++
	}

	slog.Info("插入演示数据完成", "users", len(usersByName), "tasks", insertedTasks)
}
