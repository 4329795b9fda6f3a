package types

import "github.com/yeisme/codespace/pkg/internal/storage/objstore"

// ListVersionsResponse 文件历史版本，最新在前.
type ListVersionsResponse struct {
	Path     string                 `json:"path"`
	Versions []objstore.VersionInfo `json:"versions"`
	Total    int                    `json:"total"`
}
