package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyParentContext = "PARENT_CONTEXT"
	KeyParentID      = "parent_id"
	KeyChildID       = "child_id"
)
