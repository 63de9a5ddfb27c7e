package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"second-brain-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultPage = `<html><body>
<div class="result">
  <a class="result__title">Paris - Wikipedia</a>
  <div class="result__snippet">Paris is the capital and largest city of France.</div>
</div>
<div class="result">
  <a class="result__title">France travel guide</a>
  <div class="result__snippet">Plan your trip to Paris.</div>
</div>
</body></html>`

func newSearchClient(endpoint string, maxLines int) Client {
	return NewClient(config.WebSearchConfig{
		Endpoint:  endpoint,
		UserAgent: "test-agent",
		MaxLines:  maxLines,
	})
}

func TestSearch_ExtractsResultLines(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostFormValue("q")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(resultPage))
	}))
	defer srv.Close()

	c := newSearchClient(srv.URL, 30)
	text, err := c.Search(context.Background(), "capital of France")
	require.NoError(t, err)

	assert.Equal(t, "capital of France", gotQuery)
	assert.Equal(t, "test-agent", gotUA)
	assert.Contains(t, text, "Paris - Wikipedia")
	assert.Contains(t, text, "Paris is the capital and largest city of France.")
	assert.False(t, IsLowInformation(text))
}

func TestSearch_MaxLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultPage))
	}))
	defer srv.Close()

	c := newSearchClient(srv.URL, 1)
	text, err := c.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "Paris - Wikipedia", text)
}

func TestSearch_NetworkFailureIsBestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 立刻关掉，让请求失败

	c := newSearchClient(srv.URL, 30)
	text, err := c.Search(context.Background(), "anything")
	// 网络失败降级为空结果而不是错误
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.True(t, IsLowInformation(text))
}

func TestSearch_Non200IsBestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newSearchClient(srv.URL, 30)
	text, err := c.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestIsLowInformation(t *testing.T) {
	t.Run("空文本无信息量", func(t *testing.T) {
		assert.True(t, IsLowInformation(""))
		assert.True(t, IsLowInformation("   \n "))
	})

	t.Run("页面骨架无信息量", func(t *testing.T) {
		assert.True(t, IsLowInformation("<html><body>stub</body>"))
		assert.True(t, IsLowInformation("DuckDuckGo homepage"))
		assert.True(t, IsLowInformation("please use the search input above"))
	})

	t.Run("正常结果文本有信息量", func(t *testing.T) {
		assert.False(t, IsLowInformation("Paris is the capital of France."))
	})
}
