// Package metadata exposes the TMDB search, details and credits lookups as
// cache-aside operations over two cache regions.
package metadata

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Sternrassler/tmdb-film-client/pkg/cache"
	"github.com/Sternrassler/tmdb-film-client/pkg/logging"
	"github.com/rs/zerolog"
)

// Upstream paths.
const (
	searchPath      = "/search/movie"
	moviePathFormat = "/movie/%d"
	creditsFormat   = "/movie/%d/credits"
)

// Getter fetches a raw upstream body. *client.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, path string, query map[string]string) (string, error)
}

// Fetcher serves TMDB responses from cache or fetches and caches them.
// Searches live in one region, movie details and credits in another.
type Fetcher struct {
	getter   Getter
	searches cache.Cache
	movies   cache.Cache
	logger   zerolog.Logger
}

// NewFetcher creates a Fetcher. It panics on nil dependencies.
func NewFetcher(getter Getter, searches, movies cache.Cache) *Fetcher {
	if getter == nil || searches == nil || movies == nil {
		panic("metadata fetcher dependencies cannot be nil")
	}
	return &Fetcher{
		getter:   getter,
		searches: searches,
		movies:   movies,
		logger:   logging.NewLogger(logging.ComponentMetadata),
	}
}

// Search returns the raw /search/movie body for title.
// Cache key format: {title}|{language}|{page}
func (f *Fetcher) Search(ctx context.Context, title, language string, page int) (string, error) {
	pageStr := strconv.Itoa(page)
	key := cache.CacheKey{Params: []string{title, language, pageStr}}

	return f.searches.GetOrFetch(ctx, key.String(), func(ctx context.Context) (string, error) {
		f.logger.Debug().Str("title", title).Str("language", language).Int("page", page).Msg("Searching TMDB")
		return f.getter.Get(ctx, searchPath, map[string]string{
			"query":    title,
			"language": language,
			"page":     pageStr,
		})
	})
}

// Details returns the raw /movie/{id} body.
// Cache key format: {movieId}|{language}|details
func (f *Fetcher) Details(ctx context.Context, movieID int, language string) (string, error) {
	return f.movie(ctx, movieID, language, "details", fmt.Sprintf(moviePathFormat, movieID))
}

// Credits returns the raw /movie/{id}/credits body.
// Cache key format: {movieId}|{language}|credits
func (f *Fetcher) Credits(ctx context.Context, movieID int, language string) (string, error) {
	return f.movie(ctx, movieID, language, "credits", fmt.Sprintf(creditsFormat, movieID))
}

func (f *Fetcher) movie(ctx context.Context, movieID int, language, suffix, path string) (string, error) {
	key := cache.CacheKey{
		Params: []string{strconv.Itoa(movieID), language},
		Suffix: suffix,
	}

	return f.movies.GetOrFetch(ctx, key.String(), func(ctx context.Context) (string, error) {
		f.logger.Debug().Int("movie_id", movieID).Str("language", language).Str("path", path).Msg("Fetching movie " + suffix)
		return f.getter.Get(ctx, path, map[string]string{"language": language})
	})
}
