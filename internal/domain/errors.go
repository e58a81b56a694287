package domain

import "errors"

// 核心操作只会返回这四类业务错误之一（或基础设施错误），由 handler 统一翻译成响应
var (
	ErrValidation = errors.New("输入不合法")
	ErrNotFound   = errors.New("资源不存在")
	ErrForbidden  = errors.New("没有权限执行该操作")
	ErrConflict   = errors.New("资源冲突")
)

// ErrVersionConflict 表示乐观锁版本检查失败，属于可重试的瞬时错误，不在业务错误分类中
var ErrVersionConflict = errors.New("版本冲突，请重试")
