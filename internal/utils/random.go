package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/task-tracker/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		LastName:     domain.LastNameOf(fullName),
		Email:        username + "@" + emailDomainName,
		Role:         domain.RoleNormal,
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

var taskTitlePrefixes = []string{
	"整理", "检查", "更新", "归档", "盘点", "审核", "调试", "部署",
}
var taskTitleObjects = []string{
	"前台值班表", "设备台账", "周报材料", "会议纪要", "机房线路", "值班手册", "培训资料", "库存清单",
}

// GenerateRandomTask 随机生成一个任务，执行人从传入的用户中随机挑选若干个，
// 创建者固定是第一个执行人
func GenerateRandomTask(users []*domain.User) *domain.Task {
	n := rand.Intn(3) + 1
	if n > len(users) {
		n = len(users)
	}

	picked := rand.Perm(len(users))[:n]

	task := &domain.Task{
		Title:       taskTitlePrefixes[rand.Intn(len(taskTitlePrefixes))] + taskTitleObjects[rand.Intn(len(taskTitleObjects))],
		Description: "测试数据 " + GenerateRandomID(6, 4),
		CreatedBy:   users[picked[0]].ID,
		Assignees:   make([]domain.Assignment, 0, n),
	}

	for _, idx := range picked {
		task.Assignees = append(task.Assignees, domain.Assignment{UserID: users[idx].ID})
	}

	return task
}
