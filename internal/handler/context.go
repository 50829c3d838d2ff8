package handler

type ContextKey string

var (
	RoleCtxKey      ContextKey = "role"
	SubCtxKey       ContextKey = "sub"
	MeCtx           ContextKey = "me"
	EmployeeInfoCtx ContextKey = "employeeInfo"
	OperatorCtx     ContextKey = "operator"
	CarCtx          ContextKey = "car"
)
