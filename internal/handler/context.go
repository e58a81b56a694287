package handler

type ContextKey string

var (
	PrincipalCtxKey ContextKey = "principal"
	MyInfoCtx       ContextKey = "myInfo"
)
