package types

import "github.com/yeisme/codespace/pkg/internal/filetype"

// ContainerFilesResponse 容器可见的文件列表.
type ContainerFilesResponse struct {
	Files []string `json:"files"`
}

// ContainerContentResponse 全量文件内容.
type ContainerContentResponse struct {
	Files []filetype.Encoded `json:"files"`
}

// ContainerSyncRequest 容器写回单个文件.
type ContainerSyncRequest struct {
	Path     string `json:"path"               rule:"wspath"`
	Content  string `json:"content"`
	Encoding string `json:"encoding,omitempty" rule:"omitempty,oneof=base64"`
	// IsBinary 旧字段，等价于 encoding=base64
	IsBinary bool `json:"is_binary,omitempty"`
}

// Binary 内容是否为 base64 编码.
func (r ContainerSyncRequest) Binary() bool {
	return r.IsBinary || r.Encoding == filetype.EncodingBase64
}

// SetModeRequest 设置持久化模式.
type SetModeRequest struct {
	Mode string `json:"mode" rule:"required,oneof=direct buffered"`
}

// SetModeResponse 设置结果.
type SetModeResponse struct {
	Mode     string `json:"mode"`
	Previous string `json:"previous"`
}
