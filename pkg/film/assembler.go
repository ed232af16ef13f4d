package film

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/tmdb-film-client/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MetadataSource provides raw TMDB details and credits bodies.
// *metadata.Fetcher satisfies it.
type MetadataSource interface {
	Details(ctx context.Context, movieID int, language string) (string, error)
	Credits(ctx context.Context, movieID int, language string) (string, error)
}

// Assembler builds Films from TMDB metadata.
type Assembler struct {
	source MetadataSource
	logger zerolog.Logger
}

// NewAssembler creates an Assembler reading from source.
func NewAssembler(source MetadataSource) *Assembler {
	if source == nil {
		panic("metadata source cannot be nil")
	}
	return &Assembler{
		source: source,
		logger: logging.NewLogger(logging.ComponentAssembler),
	}
}

// Assemble fetches details and credits for movieID concurrently and builds
// the Film. Fetch failures yield ErrUpstreamUnavailable; bodies without the
// expected shape yield ErrMalformedUpstreamData.
func (a *Assembler) Assemble(ctx context.Context, movieID int, language, medium string) (*Film, error) {
	var detailsBody, creditsBody string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := a.source.Details(gctx, movieID, language)
		if err != nil {
			return fmt.Errorf("details: %w", err)
		}
		detailsBody = body
		return nil
	})
	g.Go(func() error {
		body, err := a.source.Credits(gctx, movieID, language)
		if err != nil {
			return fmt.Errorf("credits: %w", err)
		}
		creditsBody = body
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Warn().Err(err).Int("movie_id", movieID).Msg("Failed to fetch movie metadata")
		return nil, unavailable(movieID, err)
	}

	details, err := decodeObject(detailsBody)
	if err != nil {
		return nil, malformed(movieID, "details: %w", err)
	}
	credits, err := decodeObject(creditsBody)
	if err != nil {
		return nil, malformed(movieID, "credits: %w", err)
	}

	title, ok := getString(details, "title")
	if !ok {
		return nil, malformed(movieID, "details: missing title")
	}

	crew, err := getObjects(credits, "crew")
	if err != nil {
		return nil, malformed(movieID, "credits: %w", err)
	}
	cast, err := getObjects(credits, "cast")
	if err != nil {
		return nil, malformed(movieID, "credits: %w", err)
	}

	releaseDate := optionalString(details, "release_date")
	film := &Film{
		ExternalID:  movieID,
		PosterPath:  optionalString(details, "poster_path"),
		Language:    language,
		Medium:      medium,
		Title:       title,
		Description: optionalString(details, "overview"),
		ReleaseDate: releaseDate,
		Year:        deriveYear(releaseDate),
		Rating:      0.0,
		Note:        DefaultNote,
		Director:    findDirector(crew),
		Cast:        actingCast(cast),
	}

	a.logger.Debug().
		Int("movie_id", movieID).
		Str("title", film.Title).
		Int("cast", len(film.Cast)).
		Msg("Assembled film")

	return film, nil
}

// findDirector returns the first crew member whose job is exactly "Director".
func findDirector(crew []map[string]any) Person {
	for _, member := range crew {
		if job, _ := getString(member, "job"); job == "Director" {
			return ParseName(optionalString(member, "name"))
		}
	}
	return UnknownPerson
}

// actingCast keeps acting credits in upstream order, up to MaxCast.
func actingCast(cast []map[string]any) []Person {
	people := make([]Person, 0, MaxCast)
	for _, member := range cast {
		if len(people) == MaxCast {
			break
		}
		department, _ := getString(member, "known_for_department")
		if !strings.EqualFold(department, "Acting") {
			continue
		}
		people = append(people, ParseName(optionalString(member, "name")))
	}
	return people
}
