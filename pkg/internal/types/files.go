package types

import (
	"github.com/yeisme/codespace/pkg/internal/filetype"
	"github.com/yeisme/codespace/pkg/internal/tree"
)

// TreeResponse 工作区目录树.
type TreeResponse struct {
	WorkspaceID string           `json:"workspace_id"`
	Mode        string           `json:"mode"`
	Tree        []*tree.FileNode `json:"tree"`
}

// FileContentResponse 文件内容，hash 可作为下次写入的 base_hash.
type FileContentResponse struct {
	filetype.Encoded
	Hash string `json:"hash"`
}

// WriteFileRequest 写文件请求，二进制内容使用 base64 并设置 encoding.
type WriteFileRequest struct {
	Path     string `json:"path"                rule:"wspath"`
	Content  string `json:"content"`
	Encoding string `json:"encoding,omitempty"  rule:"omitempty,oneof=base64"`
	BaseHash string `json:"base_hash,omitempty" rule:"omitempty,hexadecimal,max=16"`
}

// CreateFileRequest 新建文件请求，路径已存在时返回 CONFLICT.
type CreateFileRequest struct {
	Path     string `json:"path"               rule:"wspath"`
	Content  string `json:"content"`
	Encoding string `json:"encoding,omitempty" rule:"omitempty,oneof=base64"`
}

// RenameFileRequest 重命名请求.
type RenameFileRequest struct {
	OldPath string `json:"old_path" rule:"wspath"`
	NewPath string `json:"new_path" rule:"wspath"`
}

// DeleteFileResponse 删除结果.
type DeleteFileResponse struct {
	Path    string `json:"path"`
	Deleted bool   `json:"deleted"`
}

// RenameFileResponse 重命名结果.
type RenameFileResponse struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}
