package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"second-brain-go/internal/config"
	"second-brain-go/pkg/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES 模拟 Elasticsearch 的最小接口面：索引存在性检查、
// max(seq) 聚合查询和单文档写入。
type fakeES struct {
	maxSeq  *float64
	indexed []string // 收到的 DocumentID，按写入顺序
	bodies  []map[string]interface{}
}

func (f *fakeES) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodHead:
			// 索引已存在
			w.WriteHeader(http.StatusOK)
		case strings.HasSuffix(r.URL.Path, "/_search"):
			resp := map[string]interface{}{
				"aggregations": map[string]interface{}{
					"max_seq": map[string]interface{}{"value": f.maxSeq},
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		case strings.Contains(r.URL.Path, "/_doc/"):
			parts := strings.SplitN(r.URL.Path, "/_doc/", 2)
			f.indexed = append(f.indexed, parts[1])
			body, _ := io.ReadAll(r.Body)
			var doc map[string]interface{}
			_ = json.Unmarshal(body, &doc)
			f.bodies = append(f.bodies, doc)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})
}

func newLoadedIndex(t *testing.T, fake *fakeES) *Index {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	idx, err := NewIndex(config.ElasticsearchConfig{
		Addresses: srv.URL,
		IndexName: "brain_chunks",
	}, 2)
	require.NoError(t, err)
	require.NoError(t, idx.Load())
	return idx
}

func record(source, chunkID string) vectorindex.Record {
	return vectorindex.Record{
		Text:     "chunk text",
		Vector:   []float32{1, 0},
		Metadata: map[string]string{"source": source, "chunk_id": chunkID},
	}
}

func TestIndex_LoadRestoresSeqAcrossRestarts(t *testing.T) {
	// 上一个进程已写到 seq=7
	prev := 7.0
	fake := &fakeES{maxSeq: &prev}
	idx := newLoadedIndex(t, fake)

	require.NoError(t, idx.Append(context.Background(), []vectorindex.Record{record("a.txt", "0")}))

	// 重启后的第一条写入从 8 继续，不会复用旧的 RecordID
	require.Len(t, fake.indexed, 1)
	assert.Equal(t, "a.txt_0_8", fake.indexed[0])
	require.Len(t, fake.bodies, 1)
	assert.Equal(t, float64(8), fake.bodies[0]["seq"])
}

func TestIndex_LoadEmptyIndexStartsAtZero(t *testing.T) {
	// 空索引时聚合值为 null
	fake := &fakeES{maxSeq: nil}
	idx := newLoadedIndex(t, fake)

	require.NoError(t, idx.Append(context.Background(), []vectorindex.Record{
		record("a.txt", "0"),
		record("a.txt", "1"),
	}))

	require.Len(t, fake.indexed, 2)
	assert.Equal(t, "a.txt_0_1", fake.indexed[0])
	assert.Equal(t, "a.txt_1_2", fake.indexed[1])
}

func TestIndex_ReingestedChunkGetsFreshRecordID(t *testing.T) {
	prev := 3.0
	fake := &fakeES{maxSeq: &prev}
	idx := newLoadedIndex(t, fake)

	// 同一 source/chunk 先后两次入库，RecordID 必须不同（只追加，不覆盖）
	require.NoError(t, idx.Append(context.Background(), []vectorindex.Record{record("a.txt", "0")}))
	require.NoError(t, idx.Append(context.Background(), []vectorindex.Record{record("a.txt", "0")}))

	require.Len(t, fake.indexed, 2)
	assert.NotEqual(t, fake.indexed[0], fake.indexed[1])
}
