package filetype

import (
	"encoding/base64"

	"github.com/yeisme/codespace/pkg/errs"
)

// EncodingBase64 二进制内容的编码标记.
const EncodingBase64 = "base64"

// Encoded 对外传输的文件内容，二进制以 base64 编码.
type Encoded struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding,omitempty"`
}

// Encode 按文件类别编码内容.
func Encode(path string, data []byte) Encoded {
	if IsBinary(path) {
		return Encoded{Path: path, Content: base64.StdEncoding.EncodeToString(data), Encoding: EncodingBase64}
	}

	return Encoded{Path: path, Content: string(data)}
}

// Decode 解码传入的内容.
func Decode(content string, isBinary bool) ([]byte, error) {
	if !isBinary {
		return []byte(content), nil
	}

	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, errs.Validation("content is not valid base64").Wrap(err)
	}

	return data, nil
}
