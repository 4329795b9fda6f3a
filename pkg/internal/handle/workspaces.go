package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/access"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/types"
	"github.com/yeisme/codespace/pkg/internal/workspace"
	"github.com/yeisme/codespace/pkg/middleware"
)

// ProvisionWorkspace 创建工作区.
//
//	@Summary		创建工作区
//	@Description	创建空工作区并分配独立的 bucket；owner_id 缺省为调用方，只有系统管理员可以替他人创建
//	@Tags			工作区
//	@Accept			json
//	@Produce		json
//	@Param			req	body		workspace.ProvisionRequest	true	"创建参数"
//	@Success		201	{object}	model.Workspace
//	@Failure		400	{object}	errs.Response
//	@Failure		403	{object}	errs.Response
//	@Failure		503	{object}	errs.Response
//	@Router			/api/v1/workspaces [post]
func ProvisionWorkspace(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	sub := middleware.GetSubject(c)

	var req workspace.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.Validation("invalid request body").Wrap(err))
		return
	}

	if req.OwnerID == "" {
		req.OwnerID = sub.UserID
	}

	if !validate(c, &req) {
		return
	}

	if req.OwnerID != sub.UserID && !sub.IsSystemAdmin {
		writeError(c, errs.PermissionDenied("cannot provision a workspace for another user").With("owner_id", req.OwnerID))
		return
	}

	ws, err := svc.Workspaces.Provision(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ws)
}

// ListWorkspaces 列出工作区.
//
//	@Summary		工作区列表
//	@Description	按 owner、课程、作业、内容块与状态过滤。非管理员未指定 owner 与 course_id 时只列出自己的工作区，结果只包含有读权限的条目
//	@Tags			工作区
//	@Produce		json
//	@Param			owner				query		string	false	"所有者"
//	@Param			course_id			query		string	false	"课程"
//	@Param			assignment_id		query		string	false	"作业"
//	@Param			block_id			query		string	false	"内容块"
//	@Param			status				query		string	false	"状态"
//	@Param			include_deleted		query		bool	false	"包含已删除"
//	@Param			include_snapshots	query		bool	false	"包含快照"
//	@Success		200					{object}	types.ListWorkspacesResponse
//	@Failure		400					{object}	errs.Response
//	@Router			/api/v1/workspaces [get]
func ListWorkspaces(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	var f workspace.Filter
	if !bindQuery(c, &f) {
		return
	}

	sub := middleware.GetSubject(c)
	if !sub.IsSystemAdmin && f.OwnerID == "" && f.CourseID == "" {
		f.OwnerID = sub.UserID
	}

	list, err := svc.Workspaces.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}

	visible := make([]model.Workspace, 0, len(list))

	for i := range list {
		if svc.Gate.Resolve(c.Request.Context(), sub, &list[i], access.Read) {
			visible = append(visible, list[i])
		}
	}

	c.JSON(http.StatusOK, types.ListWorkspacesResponse{Workspaces: visible, Total: len(visible)})
}

// GetWorkspace 获取工作区.
//
//	@Summary		获取工作区
//	@Tags			工作区
//	@Produce		json
//	@Param			id	path		string	true	"工作区 id"
//	@Success		200	{object}	model.Workspace
//	@Failure		403	{object}	errs.Response
//	@Failure		404	{object}	errs.Response
//	@Router			/api/v1/workspaces/{id} [get]
func GetWorkspace(c *gin.Context) {
	_, ws, ok := authorize(c, access.Read)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ws)
}

// RetireWorkspace 软删除工作区.
//
//	@Summary		删除工作区
//	@Description	清空并删除 bucket 后把记录标记为 deleted；快照返回 IMMUTABLE_RESOURCE，仍被克隆引用的模板同样拒绝
//	@Tags			工作区
//	@Produce		json
//	@Param			id	path		string	true	"工作区 id"
//	@Success		200	{object}	types.RetireResponse
//	@Failure		403	{object}	errs.Response
//	@Failure		404	{object}	errs.Response
//	@Failure		409	{object}	errs.Response
//	@Router			/api/v1/workspaces/{id} [delete]
func RetireWorkspace(c *gin.Context) {
	svc, ws, ok := authorize(c, access.Write)
	if !ok {
		return
	}

	if err := svc.Workspaces.Retire(c.Request.Context(), ws.ID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.RetireResponse{ID: ws.ID, Status: string(model.StatusDeleted)})
}

// PurgeWorkspace 物理删除已删除或失败的工作区记录，仅管理员.
//
//	@Summary		物理删除工作区记录
//	@Tags			工作区
//	@Param			id	path	string	true	"工作区 id"
//	@Success		204
//	@Failure		404	{object}	errs.Response
//	@Failure		409	{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/purge [delete]
func PurgeWorkspace(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	ws, err := svc.Registry.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	if err := svc.Workspaces.HardDelete(ctx, ws.ID); err != nil {
		writeError(c, err)
		return
	}

	svc.Versions.Forget(ctx, ws)

	c.Status(http.StatusNoContent)
}

// CloneWorkspace 由模板克隆工作区.
//
//	@Summary		克隆模板
//	@Description	逐对象拷贝模板内容，单个对象失败记录在 manifest 中，不回滚
//	@Tags			工作区
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string					true	"模板 id"
//	@Param			req	body		workspace.CloneOverrides	false	"覆盖字段"
//	@Success		201	{object}	types.CopyResponse
//	@Failure		400	{object}	errs.Response
//	@Failure		403	{object}	errs.Response
//	@Failure		409	{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/clone [post]
func CloneWorkspace(c *gin.Context) {
	svc, ok := services(c)
	if !ok {
		return
	}

	sub := middleware.GetSubject(c)

	var o workspace.CloneOverrides
	if c.Request.ContentLength != 0 && !bindJSON(c, &o) {
		return
	}

	if o.OwnerID != "" && o.OwnerID != sub.UserID && !sub.IsSystemAdmin {
		writeError(c, errs.PermissionDenied("cannot clone for another user").With("owner_id", o.OwnerID))
		return
	}

	ws, manifest, err := svc.Workspaces.Clone(c.Request.Context(), c.Param("id"), sub, o)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, types.CopyResponse{Workspace: ws, Manifest: manifest})
}

// SnapshotWorkspace 为提交创建不可变快照.
//
//	@Summary		创建提交快照
//	@Description	先落盘协同会话，再拷贝当前内容到新的只读工作区
//	@Tags			工作区
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string					true	"工作区 id"
//	@Param			req	body		types.SnapshotRequest	true	"提交信息"
//	@Success		201	{object}	types.CopyResponse
//	@Failure		400	{object}	errs.Response
//	@Failure		403	{object}	errs.Response
//	@Failure		409	{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/snapshots [post]
func SnapshotWorkspace(c *gin.Context) {
	svc, ws, ok := authorize(c, access.Write)
	if !ok {
		return
	}

	var req types.SnapshotRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, manifest, err := svc.Workspaces.Snapshot(c.Request.Context(), ws.ID, req.SubmissionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, types.CopyResponse{Workspace: snap, Manifest: manifest})
}
