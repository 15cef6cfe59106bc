package service

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"voicemail/backend/internal/config"
	"voicemail/backend/internal/domain"
	"voicemail/backend/internal/monitoring"
	"voicemail/backend/internal/notify"
	"voicemail/backend/internal/storage"
)

// 客户端未声明 MIME 类型时的默认值
const defaultAudioMIME = "audio/webm"

// StageError 带阶段标记的致命错误，传输层用它组装诊断响应
type StageError struct {
	Where  string // 失败阶段标记
	Status int    // 建议的 HTTP 状态码
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Where, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// VoicemailService 编排留言提交的上传与通知两个阶段
type VoicemailService struct {
	store   storage.ObjectStore
	mailer  notify.Mailer
	cfg     *config.Config
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewVoicemailService 创建留言服务
func NewVoicemailService(store storage.ObjectStore, mailer notify.Mailer, cfg *config.Config, logger *zap.Logger, metrics *monitoring.Metrics) *VoicemailService {
	return &VoicemailService{
		store:   store,
		mailer:  mailer,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Submit 处理一次留言提交：先上传音频，再发送通知邮件。
// 上传失败对整个请求致命；邮件失败只记录并通过 Receipt 上报，
// 音频此时已持久化，请求仍然成功
func (s *VoicemailService) Submit(ctx context.Context, sub *domain.Submission) (*domain.Receipt, *StageError) {
	mime := sub.MIMEType
	if mime == "" {
		mime = defaultAudioMIME
	}

	ext := domain.PickExt(mime)
	key := domain.BuildKey(s.cfg.Upload.KeyPrefix, ext)

	stored, err := s.store.Put(ctx, key, sub.AudioBytes, storage.PutOptions{
		ContentType:     mime,
		Access:          storage.AccessPublic,
		AddRandomSuffix: false,
	})
	if err != nil {
		s.logger.Error("blob upload failed",
			zap.String("key", key),
			zap.Int("size", len(sub.AudioBytes)),
			zap.Error(err),
		)
		s.metrics.RecordSubmission("upload_failed")
		return nil, &StageError{Where: "blob.put", Status: http.StatusInternalServerError, Err: err}
	}
	s.metrics.RecordUploadSize(len(sub.AudioBytes))

	receipt := &domain.Receipt{
		URL:     stored.URL,
		Key:     key,
		EmailOK: true,
	}

	subject, body := notify.BuildNotification(sub.Name, sub.Message, stored.URL, key, mime, s.cfg.Email.SubjectPrefix)
	email := &notify.Email{
		From:    s.cfg.Email.From,
		To:      s.cfg.Email.To,
		Subject: subject,
		HTML:    body,
	}
	if err := s.mailer.Send(ctx, email); err != nil {
		// 音频已持久化，邮件失败不使整个请求失败
		receipt.EmailOK = false
		receipt.EmailError = err.Error()
		s.logger.Error("notification send failed",
			zap.String("key", key),
			zap.Error(err),
		)
		s.metrics.RecordEmailFailure()
	}

	outcome := "ok"
	if !receipt.EmailOK {
		outcome = "email_failed"
	}
	s.metrics.RecordSubmission(outcome)

	s.logger.Info("voicemail stored",
		zap.String("key", key),
		zap.String("mime", mime),
		zap.Int("size", len(sub.AudioBytes)),
		zap.Bool("email_ok", receipt.EmailOK),
	)

	return receipt, nil
}
