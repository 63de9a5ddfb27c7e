package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectIntent(t *testing.T) {
	t.Run("联系方式类提问被拦截", func(t *testing.T) {
		assert.True(t, DetectIntent("What is Ravi's phone number?"))
		assert.True(t, DetectIntent("give me his EMAIL ADDRESS please"))
		assert.True(t, DetectIntent("tell me her aadhaar"))
		assert.True(t, DetectIntent("what's my friend's SSN"))
	})

	t.Run("普通提问不拦截", func(t *testing.T) {
		assert.False(t, DetectIntent("What is the capital of France?"))
		assert.False(t, DetectIntent("summarize the meeting notes"))
		assert.False(t, DetectIntent(""))
	})

	t.Run("仅包含PII本身不算意图", func(t *testing.T) {
		// 提问里带了自己的邮箱，但没有索取他人信息的意图
		assert.False(t, DetectIntent("my mail is bob@example.com, register me"))
	})
}

func TestRedact(t *testing.T) {
	t.Run("三类PII分别替换为对应占位符", func(t *testing.T) {
		assert.Equal(t, "contact [REDACTED_EMAIL] now", Redact("contact bob@example.com now"))
		assert.Equal(t, "call [REDACTED_PHONE] now", Redact("call 9876543210 now"))
		assert.Equal(t, "id is [REDACTED_ID]", Redact("id is 123456789012"))
		assert.Equal(t, "pan [REDACTED_ID] ok", Redact("pan ABCDE1234F ok"))
	})

	t.Run("带国家码的号码整体替换", func(t *testing.T) {
		assert.Equal(t, "call [REDACTED_PHONE]", Redact("call +91 9876543210"))
	})

	t.Run("同一文本多处命中全部替换", func(t *testing.T) {
		got := Redact("a@b.com and c@d.org called 9876543210")
		assert.Equal(t, "[REDACTED_EMAIL] and [REDACTED_EMAIL] called [REDACTED_PHONE]", got)
	})

	t.Run("脱敏是幂等的", func(t *testing.T) {
		inputs := []string{
			"bob@example.com",
			"9876543210",
			"123456789012",
			"mixed: a@b.com, 9876543210, ABCDE1234F",
			"already [REDACTED_EMAIL] clean",
		}
		for _, in := range inputs {
			once := Redact(in)
			assert.Equal(t, once, Redact(once), "input: %s", in)
		}
	})

	t.Run("空文本与无PII文本原样返回", func(t *testing.T) {
		assert.Equal(t, "", Redact(""))
		assert.Equal(t, "hello world", Redact("hello world"))
	})

	t.Run("短数字序列不误伤", func(t *testing.T) {
		assert.Equal(t, "order 12345 total 999", Redact("order 12345 total 999"))
	})
}

func TestContainsSensitiveOutput(t *testing.T) {
	assert.True(t, ContainsSensitiveOutput("reach him at bob@example.com"))
	assert.True(t, ContainsSensitiveOutput("number: 9876543210"))
	assert.True(t, ContainsSensitiveOutput("aadhaar 123456789012"))
	assert.False(t, ContainsSensitiveOutput("Paris is the capital of France"))
	assert.False(t, ContainsSensitiveOutput(""))
	// 已脱敏文本不再命中
	assert.False(t, ContainsSensitiveOutput(Redact("bob@example.com")))
}

func TestContainsRedactionMarker(t *testing.T) {
	assert.True(t, ContainsRedactionMarker("his mail is [REDACTED_EMAIL]"))
	assert.True(t, ContainsRedactionMarker("[REDACTED_PHONE]"))
	assert.True(t, ContainsRedactionMarker("id [REDACTED_ID] end"))
	assert.False(t, ContainsRedactionMarker("plain text"))
	assert.False(t, ContainsRedactionMarker(""))
}
