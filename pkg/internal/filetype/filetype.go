// Package filetype 集中处理文件分类：文本或二进制，以及同步用的保留路径.
package filetype

import (
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind 文件类别.
type Kind int

const (
	Text Kind = iota
	Binary
)

func (k Kind) String() string {
	if k == Binary {
		return "binary"
	}

	return "text"
}

// 按扩展名判定为二进制的文件.
var binaryExt = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {}, ".webp": {}, ".tiff": {},
	".pdf": {}, ".zip": {}, ".gz": {}, ".tgz": {}, ".tar": {}, ".7z": {}, ".rar": {}, ".bz2": {}, ".xz": {},
	".jar": {}, ".war": {}, ".class": {}, ".o": {}, ".so": {}, ".a": {}, ".dll": {}, ".exe": {}, ".bin": {},
	".pyc": {}, ".wasm": {}, ".db": {}, ".sqlite": {},
	".mp3": {}, ".wav": {}, ".ogg": {}, ".mp4": {}, ".mov": {}, ".avi": {}, ".webm": {},
	".ttf": {}, ".otf": {}, ".woff": {}, ".woff2": {},
	".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
}

// Classify 按扩展名判定类别，大小写不敏感.
func Classify(p string) Kind {
	if _, ok := binaryExt[strings.ToLower(path.Ext(p))]; ok {
		return Binary
	}

	return Text
}

// IsBinary Classify 的简写.
func IsBinary(p string) bool {
	return Classify(p) == Binary
}

// ContentType 推断写入对象存储时使用的 content-type.
// 二进制文件按内容探测，文本文件优先使用扩展名映射.
func ContentType(p string, content []byte) string {
	if Classify(p) == Binary {
		return mimetype.Detect(content).String()
	}

	if ct := mime.TypeByExtension(path.Ext(p)); strings.HasPrefix(ct, "text/") {
		return ct
	}

	return "text/plain; charset=utf-8"
}

// Reserved 同步协议使用的保留 key，对所有列表与目录树接口不可见.
type Reserved struct {
	Prefix string
	Suffix string
}

// DefaultReserved 默认保留规则.
var DefaultReserved = Reserved{Prefix: ".sync/", Suffix: ".partial"}

// Match key 是否为保留 key.
func (r Reserved) Match(key string) bool {
	if r.Prefix != "" && strings.HasPrefix(key, r.Prefix) {
		return true
	}

	return r.Suffix != "" && strings.HasSuffix(key, r.Suffix)
}

// Filter 返回去除保留 key 后的新切片.
func (r Reserved) Filter(keys []string) []string {
	out := make([]string, 0, len(keys))

	for _, k := range keys {
		if !r.Match(k) {
			out = append(out, k)
		}
	}

	return out
}

// CleanPath 规范化工作区内路径，拒绝空路径、绝对路径与越界路径.
func CleanPath(p string) (string, bool) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", false
	}

	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", false
	}

	return c, true
}
