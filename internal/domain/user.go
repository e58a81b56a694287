package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleNormal Role = "normal"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

// Principal 是每次请求经过认证后得到的主体信息，核心操作只依赖它做鉴权
type Principal struct {
	ID   int64
	Role Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// LastNameOf 从姓名中取出姓氏（姓名的第一个空格分隔段），在创建用户时计算并固化
func LastNameOf(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
