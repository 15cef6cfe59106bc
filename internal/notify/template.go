package notify

import (
	"fmt"
	"html"
	"strings"
)

// BuildNotification 组装通知邮件的主题和 HTML 正文。
// 所有用户提供的文本都经过 HTML 转义（& < > " '），
// 防止提交内容向邮件正文注入标记
func BuildNotification(name, message, url, key, mime, subjectPrefix string) (subject, body string) {
	subject = subjectPrefix
	if name != "" {
		subject += " from " + name
	}

	displayName := name
	if displayName == "" {
		displayName = "(none)"
	}
	displayMessage := message
	if displayMessage == "" {
		displayMessage = "(none)"
	}

	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,Helvetica,sans-serif; line-height:1.4;">`)
	b.WriteString(`<h2 style="margin:0 0 10px;">New voicemail received 🎙</h2>`)
	fmt.Fprintf(&b, `<p style="margin:0 0 8px;"><strong>Name:</strong> %s</p>`, html.EscapeString(displayName))
	fmt.Fprintf(&b, `<p style="margin:0 0 8px;"><strong>Message:</strong><br>%s</p>`, html.EscapeString(displayMessage))
	fmt.Fprintf(&b, `<p style="margin:12px 0 8px;"><strong>Audio link:</strong><br><a href="%s">%s</a></p>`, url, url)
	fmt.Fprintf(&b, `<p style="margin:0; color:#666; font-size:12px;">File: %s • %s</p>`, html.EscapeString(key), html.EscapeString(mime))
	b.WriteString(`</div>`)

	return subject, b.String()
}
