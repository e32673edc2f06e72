// internal/tools/search.go
package tools

import (
	"context"

	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/domain"
)

func (g *Gateway) search(ctx context.Context, in *SearchInput) Result {
	minLikes, minRetweets := g.limits.MinLikes, g.limits.MinRetweets
	if in.MinLikes != nil {
		minLikes = *in.MinLikes
	}
	if in.MinRetweets != nil {
		minRetweets = *in.MinRetweets
	}

	posts, err := g.social.Search(ctx, in.Query, minLikes, minRetweets)
	if posts == nil {
		posts = []domain.Post{}
	}
	data := map[string]interface{}{
		"query":  in.Query,
		"count":  len(posts),
		"tweets": posts,
	}
	if err != nil {
		// Search failures degrade to whatever was fetched.
		g.logger.Warn("Social search failed", zap.String("query", in.Query), zap.Error(err))
		data["warning"] = "search failed: " + err.Error()
	}
	return ok(data)
}
