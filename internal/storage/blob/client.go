package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voicemail/backend/internal/domain"
	"voicemail/backend/internal/storage"
)

// DefaultEndpoint Vercel Blob 官方 API 端点
const DefaultEndpoint = "https://blob.vercel-storage.com"

const apiVersion = "7"

// 错误响应体的读取上限，避免异常后端把诊断信息撑爆
const maxResponseBody = 64 * 1024

// Client 基于 HTTP 的 Vercel Blob 存储客户端
type Client struct {
	endpoint string
	token    string
	httpc    *http.Client
}

// NewClient 创建 Blob 存储客户端。endpoint 为空时使用官方端点
func NewClient(endpoint, token string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

// putResponse Blob API 上传成功后返回的元数据
type putResponse struct {
	URL         string `json:"url"`
	DownloadURL string `json:"downloadUrl"`
	Pathname    string `json:"pathname"`
	ContentType string `json:"contentType"`
}

// Put 将数据上传到 key 指定的路径并返回公开访问地址。
// AddRandomSuffix 关闭时显式禁用后端重命名，调用方的键是权威键
func (c *Client) Put(ctx context.Context, key string, data []byte, opts storage.PutOptions) (*domain.StoredObject, error) {
	if c.token == "" {
		return nil, storage.ErrNotConfigured
	}
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return nil, storage.ErrInvalidKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint+"/"+key, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("blob put: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("x-api-version", apiVersion)
	if opts.ContentType != "" {
		req.Header.Set("x-content-type", opts.ContentType)
	}
	if !opts.AddRandomSuffix {
		req.Header.Set("x-add-random-suffix", "0")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blob put: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("blob put: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("blob put: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var pr putResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("blob put: decode response: %w", err)
	}

	url := pr.URL
	if url == "" {
		url = c.endpoint + "/" + key
	}

	return &domain.StoredObject{
		Key:         key,
		URL:         url,
		ContentType: opts.ContentType,
	}, nil
}

// Health 报告客户端是否具备写入条件
func (c *Client) Health() error {
	if c.token == "" {
		return storage.ErrNotConfigured
	}
	return nil
}
