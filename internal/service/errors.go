package service

import "errors"

// ErrEmptyIngestion 表示一次入库批次没有产生任何文档（对整批是致命错误）。
var ErrEmptyIngestion = errors.New("ingestion produced no documents")

// 守卫规则触发时返回的固定拒绝文案。拦截是设计内的终态，不是错误。
const (
	// RefusalIntent 在提问意图命中 PII 时返回。
	RefusalIntent = "I can't help with requests for personal contact or identity information."
	// RefusalOutput 在答案包含高置信度 PII 时返回。
	RefusalOutput = "The answer was withheld because it contained personal information."
)
