// Package storage 头像等对象的存储，对外只暴露 URL
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	log "chat-group/pkg/logger"
)

var (
	ErrInvalidKey          = errors.New("非法的对象 key")
	ErrFileTooLarge        = errors.New("文件过大")
	ErrUnsupportedFileType = errors.New("不支持的文件类型")
)

// ObjectStore 对象存储
type ObjectStore interface {
	// Put 写入对象，返回可公开访问的 URL
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// ============================================================================
// 本地磁盘实现，由 gin 静态路由对外提供
// ============================================================================

type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore 创建本地存储，目录不存在时自动创建
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &LocalStore{
		dir:       dir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}, nil
}

// Dir 存储根目录
func (s *LocalStore) Dir() string {
	return s.dir
}

// URLPrefix 对外访问前缀
func (s *LocalStore) URLPrefix() string {
	return s.urlPrefix
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	// 先写临时文件再 rename，避免读到半个文件
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("保存文件失败: %w", err)
	}

	log.Debug("对象已写入", zap.String("key", key), zap.String("path", dst))
	return s.urlPrefix + "/" + key, nil
}

// Delete 删除对象，不存在视为成功
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	dst, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}

// resolve key 只允许相对路径，且不能跳出根目录
func (s *LocalStore) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}
