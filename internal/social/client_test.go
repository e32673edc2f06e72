// internal/social/client_test.go
package social

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const bonk = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

const page1 = `{
  "tweets": [
    {"id": "1", "text": "new gem ` + bonk + `", "likeCount": 120, "retweetCount": 3,
     "createdAt": "Tue Dec 10 07:00:30 +0000 2024", "author": {"userName": "alpha", "followers": 900}},
    {"id": "2", "text": "low engagement ` + bonk + `", "likeCount": 1, "retweetCount": 1,
     "author": {"userName": "nobody"}},
    {"id": "3", "text": "check the chart", "likeCount": 0, "retweetCount": 40,
     "entities": {"urls": [{"expanded_url": "https://pump.fun/coin/` + bonk + `"}]},
     "author": {"userName": "beta"}}
  ],
  "has_next_page": true,
  "next_cursor": "abc"
}`

const page2 = `{
  "tweets": [
    {"id": "1", "text": "duplicate", "likeCount": 500, "retweetCount": 500, "author": {"userName": "alpha"}},
    {"id": "4", "text": "no mint", "likeCount": 50, "retweetCount": 0, "author": {"userName": "gamma"}}
  ],
  "has_next_page": true,
  "next_cursor": "def"
}`

func TestSearchFiltersDedupesAndExtracts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "Top", r.URL.Query().Get("queryType"))
		if r.URL.Query().Get("cursor") == "abc" {
			_, _ = io.WriteString(w, page2)
			return
		}
		_, _ = io.WriteString(w, page1)
	}))
	defer srv.Close()

	c := NewClient(&Config{SearchURL: srv.URL, APIKey: "key", HTTPClient: srv.Client(), Logger: zap.NewNop()})
	posts, err := c.Search(context.Background(), "solana CA", 50, 10)

	require.NoError(t, err)
	assert.Equal(t, int32(maxPages), calls.Load())
	require.Len(t, posts, 3)
	assert.Equal(t, "1", posts[0].ID)
	assert.Equal(t, "alpha", posts[0].Author)
	assert.Equal(t, []string{bonk}, posts[0].Mints)
	assert.Equal(t, 2024, posts[0].CreatedAt.Year())
	assert.Equal(t, "3", posts[1].ID)
	assert.Equal(t, []string{bonk}, posts[1].Mints, "mints are read from expanded urls too")
	assert.Equal(t, "4", posts[2].ID)
	assert.Empty(t, posts[2].Mints)

	again, err := c.Search(context.Background(), "solana CA", 50, 10)
	require.NoError(t, err)
	assert.Empty(t, again, "tweets are returned only once")
}

func TestSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "bad key")
	}))
	defer srv.Close()

	c := NewClient(&Config{SearchURL: srv.URL, HTTPClient: srv.Client(), Logger: zap.NewNop()})
	posts, err := c.Search(context.Background(), "q", 0, 0)

	assert.Empty(t, posts)
	assert.ErrorContains(t, err, "401")
}
