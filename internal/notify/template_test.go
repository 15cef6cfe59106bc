package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSubjectPrefix = "New Voicemail"

func TestBuildNotification_Escaping(t *testing.T) {
	name := `<script>alert("x")</script>`
	message := `Tom & Jerry's "quotes" <b>`

	_, body := BuildNotification(name, message, "https://blob.example/v.webm", "voicemails/v.webm", "audio/webm", testSubjectPrefix)

	// 用户输入中的标记字符必须全部转义
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "<b>")
	assert.Contains(t, body, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;")
	assert.Contains(t, body, "Tom &amp; Jerry&#39;s &#34;quotes&#34; &lt;b&gt;")
}

func TestBuildNotification_Subject(t *testing.T) {
	t.Run("有姓名时主题包含姓名", func(t *testing.T) {
		subject, _ := BuildNotification("Jane", "", "u", "k", "audio/webm", testSubjectPrefix)
		assert.Equal(t, testSubjectPrefix+" from Jane", subject)
	})

	t.Run("无姓名时主题只有前缀", func(t *testing.T) {
		subject, _ := BuildNotification("", "", "u", "k", "audio/webm", testSubjectPrefix)
		assert.Equal(t, testSubjectPrefix, subject)
	})
}

func TestBuildNotification_Body(t *testing.T) {
	url := "https://blob.example/voicemails/v.webm"
	_, body := BuildNotification("", "", url, "voicemails/v.webm", "audio/webm", testSubjectPrefix)

	// 空姓名和空附言显示占位文本
	assert.Equal(t, 2, strings.Count(body, "(none)"))
	// 音频链接出现在 href 和可见文本中
	assert.Contains(t, body, `<a href="`+url+`">`+url+`</a>`)
	assert.Contains(t, body, "voicemails/v.webm")
	assert.Contains(t, body, "audio/webm")
}
