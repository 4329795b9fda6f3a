package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/collab"
	"github.com/yeisme/codespace/pkg/internal/model"
	"github.com/yeisme/codespace/pkg/internal/service"
	"github.com/yeisme/codespace/pkg/internal/types"
)

// containerWorkspace 容器接口已由 ContainerAuth 校验凭证，这里只加载工作区.
func containerWorkspace(c *gin.Context) (*service.Services, *model.Workspace, bool) {
	svc, ok := services(c)
	if !ok {
		return nil, nil, false
	}

	ws, err := svc.Workspaces.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, nil, false
	}

	return svc, ws, true
}

// ContainerFiles 容器拉取文件列表.
//
//	@Summary		容器文件列表
//	@Tags			容器
//	@Produce		json
//	@Param			id	path		string	true	"工作区 id"
//	@Success		200	{object}	types.ContainerFilesResponse
//	@Failure		401	{object}	errs.Response
//	@Failure		403	{object}	errs.Response
//	@Router			/api/v1/container/workspaces/{id}/files [get]
func ContainerFiles(c *gin.Context) {
	svc, ws, ok := containerWorkspace(c)
	if !ok {
		return
	}

	keys, err := svc.Gateway.List(c.Request.Context(), ws)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ContainerFilesResponse{Files: keys})
}

// ContainerFlush 容器运行前把协同会话落盘.
//
//	@Summary		落盘协同会话
//	@Tags			容器
//	@Produce		json
//	@Param			id	path		string	true	"工作区 id"
//	@Success		200	{object}	container.FlushResult
//	@Failure		401	{object}	errs.Response
//	@Failure		403	{object}	errs.Response
//	@Router			/api/v1/container/workspaces/{id}/flush [post]
func ContainerFlush(c *gin.Context) {
	svc, ws, ok := containerWorkspace(c)
	if !ok {
		return
	}

	res, err := svc.Gateway.Flush(c.Request.Context(), ws)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// ContainerContent 一次拉取全部文件内容，优先使用会话中的内容.
//
//	@Summary		批量文件内容
//	@Tags			容器
//	@Produce		json
//	@Param			id	path		string	true	"工作区 id"
//	@Success		200	{object}	types.ContainerContentResponse
//	@Failure		401	{object}	errs.Response
//	@Failure		403	{object}	errs.Response
//	@Router			/api/v1/container/workspaces/{id}/content [get]
func ContainerContent(c *gin.Context) {
	svc, ws, ok := containerWorkspace(c)
	if !ok {
		return
	}

	files, err := svc.Gateway.BulkContent(c.Request.Context(), ws)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ContainerContentResponse{Files: files})
}

// ContainerOTContent 读取协同会话中的内容，没有会话时返回 404.
//
//	@Summary		会话内容
//	@Tags			容器
//	@Produce		json
//	@Param			id		path		string	true	"工作区 id"
//	@Param			path	query		string	true	"文件路径"
//	@Success		200		{object}	filetype.Encoded
//	@Failure		404		{object}	errs.Response
//	@Router			/api/v1/container/workspaces/{id}/ot-content [get]
func ContainerOTContent(c *gin.Context) {
	svc, ws, ok := containerWorkspace(c)
	if !ok {
		return
	}

	p, ok := queryPath(c)
	if !ok {
		return
	}

	fc, err := svc.Gateway.OTContent(c.Request.Context(), ws, p)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, fc)
}

// ContainerSync 容器回写文件.
//
//	@Summary		容器回写
//	@Description	容器产生的文件写回工作区，新文件广播 created 事件
//	@Tags			容器
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string						true	"工作区 id"
//	@Param			req	body		types.ContainerSyncRequest	true	"文件内容"
//	@Success		200	{object}	collab.WriteResult
//	@Failure		400	{object}	errs.Response
//	@Failure		409	{object}	errs.Response
//	@Router			/api/v1/container/workspaces/{id}/sync [post]
func ContainerSync(c *gin.Context) {
	svc, ws, ok := containerWorkspace(c)
	if !ok {
		return
	}

	var req types.ContainerSyncRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := svc.Gateway.SyncFromContainer(c.Request.Context(), ws, req.Path, req.Content, req.Binary())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// ContainerSetMode 切换同步模式.
//
//	@Summary		切换同步模式
//	@Description	切换到 direct 前会先落盘全部会话
//	@Tags			容器
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string					true	"工作区 id"
//	@Param			req	body		types.SetModeRequest	true	"模式"
//	@Success		200	{object}	types.SetModeResponse
//	@Failure		400	{object}	errs.Response
//	@Router			/api/v1/container/workspaces/{id}/mode [put]
func ContainerSetMode(c *gin.Context) {
	svc, ws, ok := containerWorkspace(c)
	if !ok {
		return
	}

	var req types.SetModeRequest
	if !bindJSON(c, &req) {
		return
	}

	mode := collab.Mode(req.Mode)
	if !mode.Valid() {
		writeError(c, errs.Validation("unknown mode").With("mode", req.Mode))
		return
	}

	prev, err := svc.Gateway.SetMode(c.Request.Context(), ws, mode)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.SetModeResponse{Mode: string(mode), Previous: string(prev)})
}
