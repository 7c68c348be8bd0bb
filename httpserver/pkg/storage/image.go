package storage

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// 允许的头像格式：扩展名 -> 嗅探到的 MIME
var allowedImages = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// ReadImage 读取上传的图片并校验大小、扩展名和真实内容类型
// 返回文件内容和小写扩展名
func ReadImage(r io.Reader, filename string, maxBytes int64) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	want, ok := allowedImages[ext]
	if !ok {
		return nil, "", ErrUnsupportedFileType
	}

	// 多读一个字节用于判断是否超限
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("读取文件失败: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", ErrFileTooLarge
	}

	if !mimetype.Detect(data).Is(want) {
		return nil, "", ErrUnsupportedFileType
	}
	return data, ext, nil
}

// AvatarKey 头像对象 key：avatars/<user_id>-<unix nanos><ext>
func AvatarKey(userID uint64, ext string, now time.Time) string {
	return fmt.Sprintf("avatars/%d-%d%s", userID, now.UnixNano(), ext)
}

// NewImageReader 便于把校验后的内容交给 ObjectStore.Put
func NewImageReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}
