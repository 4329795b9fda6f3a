package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/codespace/pkg/errs"
	"github.com/yeisme/codespace/pkg/internal/access"
	"github.com/yeisme/codespace/pkg/internal/broadcast"
	"github.com/yeisme/codespace/pkg/internal/collab"
	"github.com/yeisme/codespace/pkg/internal/filetype"
	"github.com/yeisme/codespace/pkg/internal/tree"
	"github.com/yeisme/codespace/pkg/internal/types"
)

// GetTree 工作区目录树.
//
//	@Summary		目录树
//	@Description	列出工作区中的全部文件，保留路径不出现在结果中，目录在前并按名称排序
//	@Tags			文件
//	@Produce		json
//	@Param			id	path		string	true	"工作区 id"
//	@Success		200	{object}	types.TreeResponse
//	@Failure		403	{object}	errs.Response
//	@Failure		404	{object}	errs.Response
//	@Failure		503	{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/tree [get]
func GetTree(c *gin.Context) {
	svc, ws, ok := authorize(c, access.Read)
	if !ok {
		return
	}

	keys, err := svc.Objects.ListKeys(c.Request.Context(), ws.Bucket())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.TreeResponse{
		WorkspaceID: ws.ID,
		Mode:        string(svc.Bridge.Mode(c.Request.Context(), ws)),
		Tree:        tree.BuildSorted(keys, svc.Reserved),
	})
}

// ReadFile 读取文件，存在协同会话时返回会话中的内容.
//
//	@Summary		读取文件
//	@Tags			文件
//	@Produce		json
//	@Param			id		path		string	true	"工作区 id"
//	@Param			path	query		string	true	"文件路径"
//	@Success		200		{object}	types.FileContentResponse
//	@Failure		400		{object}	errs.Response
//	@Failure		403		{object}	errs.Response
//	@Failure		404		{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/files/content [get]
func ReadFile(c *gin.Context) {
	svc, ws, ok := authorize(c, access.Read)
	if !ok {
		return
	}

	p, ok := queryPath(c)
	if !ok {
		return
	}

	content, err := svc.Bridge.ReadAuthoritative(c.Request.Context(), ws, p)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.FileContentResponse{
		Encoded: filetype.Encode(content.Path, content.Data),
		Hash:    collab.Hash(content.Data),
	})
}

// WriteFile 写文件，按工作区的同步模式直接落盘或写入协同会话.
//
//	@Summary		写文件
//	@Description	direct 模式直接写入对象存储；buffered 模式写入协同会话，由自动保存落盘。携带 base_hash 时检测与当前内容的分歧
//	@Tags			文件
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string					true	"工作区 id"
//	@Param			req	body		types.WriteFileRequest	true	"写入内容"
//	@Success		200	{object}	collab.WriteResult
//	@Failure		400	{object}	errs.Response
//	@Failure		403	{object}	errs.Response
//	@Failure		409	{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/files/content [put]
func WriteFile(c *gin.Context) {
	svc, ws, ok := authorize(c, access.Write)
	if !ok {
		return
	}

	var req types.WriteFileRequest
	if !bindJSON(c, &req) {
		return
	}

	data, err := filetype.Decode(req.Content, req.Encoding == filetype.EncodingBase64)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := svc.Bridge.Write(c.Request.Context(), ws, req.Path, data, broadcast.SourceHuman, collab.WriteOptions{BaseHash: req.BaseHash})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// CreateFile 新建文件，总是直接落盘.
//
//	@Summary		新建文件
//	@Tags			文件
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string					true	"工作区 id"
//	@Param			req	body		types.CreateFileRequest	true	"文件"
//	@Success		201	{object}	collab.WriteResult
//	@Failure		400	{object}	errs.Response
//	@Failure		403	{object}	errs.Response
//	@Failure		409	{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/files [post]
func CreateFile(c *gin.Context) {
	svc, ws, ok := authorize(c, access.Write)
	if !ok {
		return
	}

	var req types.CreateFileRequest
	if !bindJSON(c, &req) {
		return
	}

	data, err := filetype.Decode(req.Content, req.Encoding == filetype.EncodingBase64)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := svc.Bridge.Create(c.Request.Context(), ws, req.Path, data)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// DeleteFile 删除文件并结束其协同会话.
//
//	@Summary		删除文件
//	@Tags			文件
//	@Produce		json
//	@Param			id		path		string	true	"工作区 id"
//	@Param			path	query		string	true	"文件路径"
//	@Success		200		{object}	types.DeleteFileResponse
//	@Failure		403		{object}	errs.Response
//	@Failure		404		{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/files [delete]
func DeleteFile(c *gin.Context) {
	svc, ws, ok := authorize(c, access.Write)
	if !ok {
		return
	}

	p, ok := queryPath(c)
	if !ok {
		return
	}

	if err := svc.Bridge.Delete(c.Request.Context(), ws, p); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.DeleteFileResponse{Path: p, Deleted: true})
}

// RenameFile 重命名文件，目标已存在时返回冲突.
//
//	@Summary		重命名文件
//	@Tags			文件
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string					true	"工作区 id"
//	@Param			req	body		types.RenameFileRequest	true	"新旧路径"
//	@Success		200	{object}	types.RenameFileResponse
//	@Failure		403	{object}	errs.Response
//	@Failure		404	{object}	errs.Response
//	@Failure		409	{object}	errs.Response
//	@Router			/api/v1/workspaces/{id}/files/rename [post]
func RenameFile(c *gin.Context) {
	svc, ws, ok := authorize(c, access.Write)
	if !ok {
		return
	}

	var req types.RenameFileRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.OldPath == req.NewPath {
		writeError(c, errs.Validation("old_path and new_path are identical").With("path", req.OldPath))
		return
	}

	if err := svc.Bridge.Rename(c.Request.Context(), ws, req.OldPath, req.NewPath); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.RenameFileResponse{OldPath: req.OldPath, NewPath: req.NewPath})
}
