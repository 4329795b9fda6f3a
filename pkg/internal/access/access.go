// Package access 决定用户能否读写某个工作区.
//
// 判定顺序：
//  1. 系统管理员放行
//  2. 工作区所有者放行
//  3. 未绑定课程且非所有者拒绝
//  4. 查询外部课程权限，无读权限拒绝
//  5. 有管理权限则读写均放行
//  6. 按所有者在课程中的角色：学生的工作区读需要批改权限、写需要管理权限；
//     教师或模板的工作区读写分别需要普通读写权限
//
// 外部查询失败一律拒绝.
package access

import (
	"context"

	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/log"
)

// Level 访问级别.
type Level int

const (
	Read Level = iota
	Write
)

func (l Level) String() string {
	if l == Write {
		return "write"
	}

	return "read"
}

// Subject 请求方身份.
type Subject struct {
	UserID        string
	IsSystemAdmin bool
}

// CourseRole 用户在课程中的角色.
type CourseRole string

const (
	RoleLearner  CourseRole = "learner"
	RoleStaff    CourseRole = "staff"
	RoleTemplate CourseRole = "template"
	RoleNone     CourseRole = ""
)

// Permissions 外部课程权限服务的返回.
type Permissions struct {
	CanRead   bool       `json:"can_read"`
	CanWrite  bool       `json:"can_write"`
	CanGrade  bool       `json:"can_grade"`
	CanManage bool       `json:"can_manage"`
	Role      CourseRole `json:"role"`
}

// PermissionResolver 查询 (user, course) 的权限与角色.
type PermissionResolver interface {
	Lookup(ctx context.Context, userID, courseID string) (Permissions, error)
}

// Gate 访问控制.
type Gate struct {
	resolver PermissionResolver
}

// NewGate 创建 Gate.
func NewGate(resolver PermissionResolver) *Gate {
	return &Gate{resolver: resolver}
}

// Decision 判定结果与原因，原因用于日志与错误详情.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// Decide 按顺序判定，返回原因.
func (g *Gate) Decide(ctx context.Context, sub Subject, ws *model.Workspace, level Level) Decision {
	if sub.IsSystemAdmin {
		return allow("system_admin")
	}

	if sub.UserID != "" && ws.OwnerID == sub.UserID {
		return allow("owner")
	}

	courseID := model.Deref(ws.CourseID)
	if courseID == "" || sub.UserID == "" {
		return deny("no_course_binding")
	}

	if g.resolver == nil {
		return deny("no_resolver")
	}

	l := log.Logger()

	perms, err := g.resolver.Lookup(ctx, sub.UserID, courseID)
	if err != nil {
		l.Warn().Err(err).
			Str("user", sub.UserID).
			Str("course_id", courseID).
			Str("workspace_id", ws.ID).
			Msg("permission lookup failed, denying")

		return deny("resolver_error")
	}

	if !perms.CanRead {
		return deny("no_course_access")
	}

	if perms.CanManage {
		return allow("course_manager")
	}

	owner, err := g.resolver.Lookup(ctx, ws.OwnerID, courseID)
	if err != nil {
		l.Warn().Err(err).
			Str("owner", ws.OwnerID).
			Str("course_id", courseID).
			Str("workspace_id", ws.ID).
			Msg("owner role lookup failed, denying")

		return deny("resolver_error")
	}

	switch owner.Role {
	case RoleStaff, RoleTemplate:
		if level == Write {
			return decide(perms.CanWrite, "staff_workspace_write")
		}

		return decide(perms.CanRead, "staff_workspace_read")
	default:
		// 未知角色按学生处理
		if level == Write {
			return decide(perms.CanManage, "learner_workspace_write")
		}

		return decide(perms.CanGrade, "learner_workspace_read")
	}
}

func decide(ok bool, reason string) Decision {
	if ok {
		return allow(reason)
	}

	return deny(reason)
}

// Resolve 是否允许.
func (g *Gate) Resolve(ctx context.Context, sub Subject, ws *model.Workspace, level Level) bool {
	return g.Decide(ctx, sub, ws, level).Allowed
}

// Require 不允许时返回 PermissionDenied.
func (g *Gate) Require(ctx context.Context, sub Subject, ws *model.Workspace, level Level) error {
	d := g.Decide(ctx, sub, ws, level)
	if d.Allowed {
		return nil
	}

	log.Logger().Debug().
		Str("user", sub.UserID).
		Str("workspace_id", ws.ID).
		Str("level", level.String()).
		Str("reason", d.Reason).
		Msg("access denied")

	return errs.PermissionDenied("%s access to workspace denied", level).
		With("workspace_id", ws.ID).
		With("reason", d.Reason)
}
