package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/internal/access"
	"github.com/yeisme/codespace/pkg/internal/types"
)

// ListFileVersions 文件的历史版本.
//
//	@Summary		历史版本列表
//	@Description	快照工作区读取其来源工作区的版本历史，结果最新在前
//	@Tags			版本
//	@Produce		json
//	@Param			id		path		string	true	"工作区 id"
//	@Param			path	query		string	true	"文件路径"
//	@Success		200		{object}	types.ListVersionsResponse
//	@Failure		400		{object}	errs.Response
//	@Failure		403		{object}	errs.Response
//	@Failure		404		{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/versions [get]
func ListFileVersions(c *gin.Context) {
	svc, ws, ok := authorize(c, access.Read)
	if !ok {
		return
	}

	p, ok := queryPath(c)
	if !ok {
		return
	}

	list, err := svc.Versions.ListVersions(c.Request.Context(), ws, p)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ListVersionsResponse{Path: p, Versions: list, Total: len(list)})
}

// GetFileVersion 某个历史版本的内容.
//
//	@Summary		历史版本内容
//	@Description	版本内容不可变，响应可被缓存
//	@Tags			版本
//	@Produce		json
//	@Param			id			path		string	true	"工作区 id"
//	@Param			version_id	path		string	true	"版本 id"
//	@Param			path		query		string	true	"文件路径"
//	@Success		200			{object}	versions.VersionContent
//	@Failure		403			{object}	errs.Response
//	@Failure		404			{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/versions/{version_id} [get]
func GetFileVersion(c *gin.Context) {
	svc, ws, ok := authorize(c, access.Read)
	if !ok {
		return
	}

	p, ok := queryPath(c)
	if !ok {
		return
	}

	vc, err := svc.Versions.GetVersionContent(c.Request.Context(), ws, p, c.Param("version_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, vc)
}

// GetSnapshotSource 快照对应的活跃工作区.
//
//	@Summary		快照来源
//	@Tags			版本
//	@Produce		json
//	@Param			id	path		string	true	"快照 id"
//	@Success		200	{object}	types.SourceResponse
//	@Failure		403	{object}	errs.Response
//	@Failure		404	{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/source [get]
func GetSnapshotSource(c *gin.Context) {
	svc, ws, ok := authorize(c, access.Read)
	if !ok {
		return
	}

	src, err := svc.Versions.ResolveSourceWorkspace(c.Request.Context(), ws.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.SourceResponse{SnapshotID: ws.ID, Source: src})
}
