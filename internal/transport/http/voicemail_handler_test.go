package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voicemail/backend/internal/config"
	"voicemail/backend/internal/domain"
	"voicemail/backend/internal/monitoring"
	"voicemail/backend/internal/notify"
	"voicemail/backend/internal/service"
	"voicemail/backend/internal/storage"
	"voicemail/backend/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubMailer 记录最后一封邮件，可注入发送错误
type stubMailer struct {
	err  error
	last *notify.Email
}

func (m *stubMailer) Send(ctx context.Context, email *notify.Email) error {
	m.last = email
	return m.err
}

// failStore 总是拒绝上传
type failStore struct{}

func (failStore) Put(ctx context.Context, key string, data []byte, opts storage.PutOptions) (*domain.StoredObject, error) {
	return nil, errors.New("backend exploded")
}

func (failStore) Health() error { return nil }

func testCfg() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Upload: config.UploadConfig{
			MaxFileSize:   25 * 1024 * 1024,
			MaxNameLen:    120,
			MaxMessageLen: 3000,
			KeyPrefix:     "voicemails",
		},
		Blob: config.BlobConfig{Backend: "memory"},
		Email: config.EmailConfig{
			Provider:      "resend",
			APIKey:        "re_test",
			From:          "sender@example.com",
			To:            "operator@example.com",
			SubjectPrefix: "New Voicemail",
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
		Log:  config.LogConfig{Level: "info"},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, store storage.ObjectStore, mailer notify.Mailer) *gin.Engine {
	t.Helper()
	log := zap.NewNop()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	svc := service.NewVoicemailService(store, mailer, cfg, log, metrics)
	health := monitoring.NewHealthChecker(store, log)

	return NewRouter(RouterDependencies{
		Config:  cfg,
		Service: svc,
		Metrics: metrics,
		Health:  health,
		Logger:  log,
	})
}

// buildMultipart 构造 multipart 请求体
func buildMultipart(t *testing.T, fields map[string]string, fileField, fileName, fileMIME string, fileContent []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, fileName))
		if fileMIME != "" {
			hdr.Set("Content-Type", fileMIME)
		}
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(fileContent)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

type submitResponse struct {
	OK         bool     `json:"ok"`
	URL        string   `json:"url"`
	Filename   string   `json:"filename"`
	EmailOK    bool     `json:"emailOk"`
	EmailError string   `json:"emailError"`
	Where      string   `json:"where"`
	Error      string   `json:"error"`
	HasResend  *bool    `json:"hasResend"`
	HasBlob    *bool    `json:"hasBlob"`
	Fields     []string `json:"fields"`
	FileKeys   []string `json:"fileKeys"`
}

func doRequest(t *testing.T, router *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, submitResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return rec, resp
}

func TestSubmit_MethodGate(t *testing.T) {
	router := newTestRouter(t, testCfg(), memory.NewStore(), &stubMailer{})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/v1/voicemails", nil)
		rec, resp := doRequest(t, router, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.False(t, resp.OK)
		assert.Equal(t, "method", resp.Where)
	}
}

func TestSubmit_EnvCheck(t *testing.T) {
	t.Run("缺失存储凭证", func(t *testing.T) {
		cfg := testCfg()
		cfg.Blob = config.BlobConfig{Backend: "vercel", Token: ""}
		router := newTestRouter(t, cfg, memory.NewStore(), &stubMailer{})

		body, contentType := buildMultipart(t, map[string]string{"name": "Jane"}, "audio", "v.webm", "audio/webm", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/v1/voicemails", body)
		req.Header.Set("Content-Type", contentType)

		rec, resp := doRequest(t, router, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.False(t, resp.OK)
		assert.Equal(t, "env-check", resp.Where)
		require.NotNil(t, resp.HasResend)
		require.NotNil(t, resp.HasBlob)
		assert.True(t, *resp.HasResend)
		assert.False(t, *resp.HasBlob)
		// 凭证取值绝不出现在响应里
		assert.NotContains(t, rec.Body.String(), "re_test")
	})

	t.Run("缺失邮件凭证", func(t *testing.T) {
		cfg := testCfg()
		cfg.Email.APIKey = ""
		router := newTestRouter(t, cfg, memory.NewStore(), &stubMailer{})

		req := httptest.NewRequest(http.MethodPost, "/v1/voicemails", strings.NewReader("ignored"))
		req.Header.Set("Content-Type", "text/plain")

		rec, resp := doRequest(t, router, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "env-check", resp.Where)
		assert.False(t, *resp.HasResend)
		assert.True(t, *resp.HasBlob)
	})
}

func TestSubmit_HappyPath(t *testing.T) {
	store := memory.NewStore()
	mailer := &stubMailer{}
	router := newTestRouter(t, testCfg(), store, mailer)

	audio := bytes.Repeat([]byte("a"), 1024)
	body, contentType := buildMultipart(t, map[string]string{"name": "Jane"}, "audio", "recording.webm", "audio/webm", audio)
	req := httptest.NewRequest(http.MethodPost, "/v1/voicemails", body)
	req.Header.Set("Content-Type", contentType)

	rec, resp := doRequest(t, router, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.OK)
	assert.True(t, strings.HasPrefix(resp.URL, "memory://voicemails/voicemail-"))
	assert.True(t, strings.HasSuffix(resp.Filename, ".webm"))
	assert.True(t, resp.EmailOK)
	assert.Empty(t, resp.EmailError)

	// 音频原样落入存储
	stored, storedType, ok := store.Object(resp.Filename)
	require.True(t, ok)
	assert.Equal(t, audio, stored)
	assert.Equal(t, "audio/webm", storedType)

	// 通知邮件已发送并引用存储地址
	require.NotNil(t, mailer.last)
	assert.Equal(t, "New Voicemail from Jane", mailer.last.Subject)
	assert.Contains(t, mailer.last.HTML, resp.URL)
}

func TestSubmit_NoAudioField(t *testing.T) {
	router := newTestRouter(t, testCfg(), memory.NewStore(), &stubMailer{})

	body, contentType := buildMultipart(t, map[string]string{"name": "Jane"}, "", "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/voicemails", body)
	req.Header.Set("Content-Type", contentType)

	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.OK)
	assert.Equal(t, "no-audio", resp.Where)
	// 诊断输出列出收到的字段名
	assert.Equal(t, []string{"name"}, resp.Fields)
	assert.Empty(t, resp.FileKeys)
}

func TestSubmit_MalformedMultipart(t *testing.T) {
	router := newTestRouter(t, testCfg(), memory.NewStore(), &stubMailer{})

	req := httptest.NewRequest(http.MethodPost, "/v1/voicemails", strings.NewReader("this is not multipart"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=broken")

	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "form.parse", resp.Where)
	assert.NotEmpty(t, resp.Error)
}

func TestSubmit_BodyLimit(t *testing.T) {
	cfg := testCfg()
	router := newTestRouter(t, cfg, memory.NewStore(), &stubMailer{})

	req := httptest.NewRequest(http.MethodPost, "/v1/voicemails", strings.NewReader("small"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.ContentLength = cfg.Upload.MaxBodyBytes() + 1

	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, resp.OK)
	assert.Equal(t, "body-limit", resp.Where)
}

func TestSubmit_AudioExceedsFileCap(t *testing.T) {
	cfg := testCfg()
	cfg.Upload.MaxFileSize = 1024
	store := memory.NewStore()
	router := newTestRouter(t, cfg, store, &stubMailer{})

	// 请求体在表单开销余量内通过，但文件本身超过上限
	audio := bytes.Repeat([]byte("a"), 2048)
	body, contentType := buildMultipart(t, nil, "audio", "v.webm", "audio/webm", audio)
	req := httptest.NewRequest(http.MethodPost, "/v1/voicemails", body)
	req.Header.Set("Content-Type", contentType)

	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.OK)
	assert.Equal(t, "audio-too-large", resp.Where)
	// 超限的文件不能落入存储
	assert.Equal(t, 0, store.Len())
}

func TestSubmit_EmailFailureIsNonFatal(t *testing.T) {
	store := memory.NewStore()
	mailer := &stubMailer{err: errors.New("provider rejected the message")}
	router := newTestRouter(t, testCfg(), store, mailer)

	body, contentType := buildMultipart(t, nil, "audio", "v.webm", "audio/webm", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/v1/voicemails", body)
	req.Header.Set("Content-Type", contentType)

	rec, resp := doRequest(t, router, req)

	// 音频已持久化，请求仍然成功
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.OK)
	assert.False(t, resp.EmailOK)
	assert.Contains(t, resp.EmailError, "provider rejected the message")
	assert.Equal(t, 1, store.Len())
}

func TestSubmit_StorageFailureIsFatal(t *testing.T) {
	router := newTestRouter(t, testCfg(), failStore{}, &stubMailer{})

	body, contentType := buildMultipart(t, nil, "audio", "v.webm", "audio/webm", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/v1/voicemails", body)
	req.Header.Set("Content-Type", contentType)

	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.OK)
	assert.Equal(t, "blob.put", resp.Where)
	assert.Contains(t, resp.Error, "backend exploded")
}

func TestSubmit_FieldTruncation(t *testing.T) {
	store := memory.NewStore()
	mailer := &stubMailer{}
	router := newTestRouter(t, testCfg(), store, mailer)

	longName := strings.Repeat("n", 150)
	longMessage := strings.Repeat("m", 3100)
	body, contentType := buildMultipart(t,
		map[string]string{"name": longName, "message": longMessage},
		"audio", "v.webm", "audio/webm", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/v1/voicemails", body)
	req.Header.Set("Content-Type", contentType)

	rec, _ := doRequest(t, router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// 截断后的值进入邮件，原始超长值不出现
	require.NotNil(t, mailer.last)
	assert.Contains(t, mailer.last.Subject, strings.Repeat("n", 120))
	assert.NotContains(t, mailer.last.Subject, strings.Repeat("n", 121))
	assert.Contains(t, mailer.last.HTML, strings.Repeat("m", 3000))
	assert.NotContains(t, mailer.last.HTML, strings.Repeat("m", 3001))
}

func TestSubmit_DefaultMIME(t *testing.T) {
	store := memory.NewStore()
	router := newTestRouter(t, testCfg(), store, &stubMailer{})

	// 文件部分不声明 Content-Type
	body, contentType := buildMultipart(t, nil, "audio", "v.bin", "", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/v1/voicemails", body)
	req.Header.Set("Content-Type", contentType)

	rec, resp := doRequest(t, router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasSuffix(resp.Filename, ".webm"))

	_, storedType, ok := store.Object(resp.Filename)
	require.True(t, ok)
	assert.Equal(t, "audio/webm", storedType)
}

func TestSubmit_CompatRoute(t *testing.T) {
	router := newTestRouter(t, testCfg(), memory.NewStore(), &stubMailer{})

	body, contentType := buildMultipart(t, nil, "audio", "v.webm", "audio/webm", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/voicemail", body)
	req.Header.Set("Content-Type", contentType)

	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.OK)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, testCfg(), memory.NewStore(), &stubMailer{})

	for _, path := range []string{"/health", "/live", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
