package memory

import (
	"context"
	"strings"
	"sync"

	"voicemail/backend/internal/domain"
	"voicemail/backend/internal/storage"
)

// Store 内存对象存储实现，用于测试和开发环境。
// 对象的公开地址使用 memory:// 伪协议
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
}

type object struct {
	data        []byte
	contentType string
}

// NewStore 创建内存存储实例
func NewStore() *Store {
	return &Store{
		objects: make(map[string]object),
	}
}

// Put 保存对象的副本
func (s *Store) Put(ctx context.Context, key string, data []byte, opts storage.PutOptions) (*domain.StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return nil, storage.ErrInvalidKey
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[key] = object{data: buf, contentType: opts.ContentType}
	s.mu.Unlock()

	return &domain.StoredObject{
		Key:         key,
		URL:         "memory://" + key,
		ContentType: opts.ContentType,
	}, nil
}

// Health 内存存储总是可用
func (s *Store) Health() error {
	return nil
}

// Object 返回已保存对象的内容和 Content-Type，供测试断言
func (s *Store) Object(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return obj.data, obj.contentType, true
}

// Len 返回已保存对象数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
