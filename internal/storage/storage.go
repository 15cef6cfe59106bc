package storage

import (
	"context"
	"errors"

	"voicemail/backend/internal/domain"
)

var (
	// ErrNotConfigured 存储后端缺少必需凭证
	ErrNotConfigured = errors.New("object store is not configured")
	// ErrInvalidKey 存储键非法（空、绝对路径或包含路径穿越）
	ErrInvalidKey = errors.New("invalid object key")
)

// Access 对象的访问级别
type Access string

// AccessPublic 公开可读，留言音频需要通过链接直接访问
const AccessPublic Access = "public"

// PutOptions 定义单次上传的行为选项
type PutOptions struct {
	ContentType     string // 存储对象的 Content-Type
	Access          Access // 访问级别
	AddRandomSuffix bool   // 后端自动重命名开关，留言键由调用方构造，始终关闭
}

// ObjectStore 定义对象存储后端的写入操作。
// 上传一旦发出既不重试也不取消，失败由调用方决定如何上报
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (*domain.StoredObject, error)
	Health() error
}
