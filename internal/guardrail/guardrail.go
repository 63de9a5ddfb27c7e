// Package guardrail 提供纯文本层面的 PII 检测与脱敏逻辑。
// 所有函数无状态、无副作用，且永不返回错误：空输入原样返回或返回 false。
package guardrail

import (
	"regexp"
	"strings"
)

// PatternTableVersion 标识当前模式表的版本。
// 意图检测与脱敏共用同一张表，避免两份定义各自漂移。
const PatternTableVersion = "v1"

// pattern 描述一条 PII 匹配规则及其占位符。
type pattern struct {
	name        string
	re          *regexp.Regexp
	placeholder string
}

// patternTable 是按固定顺序迭代的规则表。
// 顺序即优先级：email -> phone -> national id，重叠匹配按此顺序消解。
// 占位符不含数字与 '@'，因此脱敏结果不会被任何规则再次命中（幂等）。
var patternTable = []pattern{
	{
		name:        "email",
		re:          regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
		placeholder: "[REDACTED_EMAIL]",
	},
	{
		name:        "phone",
		re:          regexp.MustCompile(`(?:\+\d{1,3}[ \-]?)?\b\d{10}\b`),
		placeholder: "[REDACTED_PHONE]",
	},
	{
		name:        "national_id",
		re:          regexp.MustCompile(`\b(?:\d{12}|[A-Z]{5}\d{4}[A-Z])\b`),
		placeholder: "[REDACTED_ID]",
	},
}

// intentPhrases 是意图检测使用的关键词/短语集合（不区分大小写）。
// 命中任意一条即认为提问在索取联系方式或身份信息。
var intentPhrases = []string{
	"phone number",
	"mobile number",
	"contact number",
	"telephone number",
	"email address",
	"email id",
	"home address",
	"residential address",
	"aadhaar",
	"national id",
	"social security",
	"ssn",
	"passport number",
	"pan number",
	"credit card number",
}

// DetectIntent 判断文本是否表达了获取联系方式/身份信息的意图。
// 用于在任何模型调用之前快速失败。
func DetectIntent(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range intentPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Redact 将所有命中规则表的子串替换为对应占位符。
// 按规则表的固定顺序迭代，结果确定；对已脱敏文本再次调用是 no-op。
func Redact(text string) string {
	if text == "" {
		return text
	}
	for _, p := range patternTable {
		text = p.re.ReplaceAllString(text, p.placeholder)
	}
	return text
}

// ContainsSensitiveOutput 判断原始（未脱敏）文本中是否存在高置信度的 PII 命中。
// 与 DetectIntent 不同：意图检测针对提问，本函数针对答案。
func ContainsSensitiveOutput(text string) bool {
	if text == "" {
		return false
	}
	for _, p := range patternTable {
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}

// ContainsRedactionMarker 判断文本中是否残留脱敏占位符。
// 记忆回写前用它做门禁：仍带占位符说明仅靠脱敏无法彻底清洗，禁止入库。
func ContainsRedactionMarker(text string) bool {
	for _, p := range patternTable {
		if strings.Contains(text, p.placeholder) {
			return true
		}
	}
	return false
}
