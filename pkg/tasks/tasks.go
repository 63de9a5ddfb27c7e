// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// IngestionTask represents the data structure for an async ingestion job.
// SourceMD5 既是去重标识，也是 MinIO 中的对象前缀。
type IngestionTask struct {
	SourceMD5  string `json:"source_md5"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
}
