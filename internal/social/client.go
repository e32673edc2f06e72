// internal/social/client.go
package social

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/blockchain/solbc"
	"github.com/digitaltitann/soltrader/internal/domain"
)

const (
	DefaultSearchURL = "https://api.twitterapi.io/twitter/tweet/advanced_search"
	maxPages         = 2
	maxSeenTweets    = 10_000
)

// Config configures the search client.
type Config struct {
	SearchURL  string
	APIKey     string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client searches X through twitterapi.io. A tweet is returned at most
// once over the client's lifetime.
type Client struct {
	searchURL string
	apiKey    string
	http      *http.Client
	logger    *zap.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewClient(cfg *Config) *Client {
	c := &Client{
		searchURL: cfg.SearchURL,
		apiKey:    cfg.APIKey,
		http:      cfg.HTTPClient,
		logger:    cfg.Logger.Named("social"),
		seen:      make(map[string]struct{}),
	}
	if c.searchURL == "" {
		c.searchURL = DefaultSearchURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	return c
}

// Search returns unseen tweets matching query whose likes or retweets
// reach the thresholds. On an upstream failure the posts collected so far
// are returned together with the error.
func (c *Client) Search(ctx context.Context, query string, minLikes, minRetweets int) ([]domain.Post, error) {
	var posts []domain.Post
	cursor := ""

	for page := 0; page < maxPages; page++ {
		body, err := c.fetchPage(ctx, query, cursor)
		if err != nil {
			c.logger.Warn("Search request failed", zap.String("query", query), zap.Error(err))
			return posts, err
		}

		tweets := gjson.GetBytes(body, "tweets").Array()
		if len(tweets) == 0 {
			break
		}
		for _, tweet := range tweets {
			if post, ok := c.accept(tweet, minLikes, minRetweets); ok {
				posts = append(posts, post)
			}
		}

		next := gjson.GetBytes(body, "next_cursor").String()
		if !gjson.GetBytes(body, "has_next_page").Bool() || next == "" {
			break
		}
		cursor = next
	}

	mints := 0
	for _, p := range posts {
		mints += len(p.Mints)
	}
	c.logger.Info("🔎 X search finished",
		zap.String("query", query),
		zap.Int("tweets", len(posts)),
		zap.Int("mints", mints))
	return posts, nil
}

func (c *Client) accept(tweet gjson.Result, minLikes, minRetweets int) (domain.Post, bool) {
	id := tweet.Get("id").String()
	if id == "" || !c.markSeen(id) {
		return domain.Post{}, false
	}

	likes := int(tweet.Get("likeCount").Int())
	retweets := int(tweet.Get("retweetCount").Int())
	if likes < minLikes && retweets < minRetweets {
		return domain.Post{}, false
	}

	text := tweet.Get("text").String()
	sources := []string{text}
	tweet.Get("entities.urls.#.expanded_url").ForEach(func(_, u gjson.Result) bool {
		sources = append(sources, u.String())
		return true
	})

	author := tweet.Get("author.userName").String()
	if author == "" {
		author = "unknown"
	}

	return domain.Post{
		ID:        id,
		Author:    author,
		Followers: int(tweet.Get("author.followers").Int()),
		Text:      text,
		Likes:     likes,
		Retweets:  retweets,
		Replies:   int(tweet.Get("replyCount").Int()),
		CreatedAt: parseCreatedAt(tweet.Get("createdAt").String()),
		URL:       tweet.Get("url").String(),
		Mints:     solbc.ExtractMints(sources...),
	}, true
}

// markSeen records id and reports whether it was new.
func (c *Client) markSeen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[id]; ok {
		return false
	}
	if len(c.seen) >= maxSeenTweets {
		c.seen = make(map[string]struct{})
	}
	c.seen[id] = struct{}{}
	return true
}

func (c *Client) fetchPage(ctx context.Context, query, cursor string) ([]byte, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("queryType", "Top")
	params.Set("cursor", cursor)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitterapi.io %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("twitterapi.io: invalid JSON")
	}
	return body, nil
}

func parseCreatedAt(s string) time.Time {
	for _, layout := range []string{time.RubyDate, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
