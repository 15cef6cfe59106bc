package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voicemail/backend/internal/domain"
	"voicemail/backend/internal/storage"
)

// Store 文件系统对象存储实现，用于本地开发和自托管部署。
// 对象写入 basePath 下，公开地址为 baseURL + "/" + key
type Store struct {
	basePath string // 存储根目录
	baseURL  string // 对外暴露的 URL 前缀
}

// NewStore 创建文件系统存储实例并确保根目录存在
func NewStore(basePath, baseURL string) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path must not be empty")
	}

	normalized := filepath.Clean(basePath)
	if err := os.MkdirAll(normalized, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{
		basePath: normalized,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put 将数据写入 key 对应的文件并返回公开访问地址
func (s *Store) Put(ctx context.Context, key string, data []byte, opts storage.PutOptions) (*domain.StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validKey(key) {
		return nil, storage.ErrInvalidKey
	}

	target := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write object: %w", err)
	}

	return &domain.StoredObject{
		Key:         key,
		URL:         s.baseURL + "/" + key,
		ContentType: opts.ContentType,
	}, nil
}

// Health 检查存储根目录是否可用
func (s *Store) Health() error {
	info, err := os.Stat(s.basePath)
	if err != nil {
		return fmt.Errorf("base directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("base path %s is not a directory", s.basePath)
	}
	return nil
}

// BasePath 返回存储根目录，路由在 filesystem 模式下用它挂载静态服务
func (s *Store) BasePath() string {
	return s.basePath
}

// validKey 拒绝空键、绝对路径和包含路径穿越的键
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
