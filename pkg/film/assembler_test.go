package film

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/tmdb-film-client/internal/testutil"
	"github.com/Sternrassler/tmdb-film-client/pkg/cache"
	"github.com/Sternrassler/tmdb-film-client/pkg/client"
	"github.com/Sternrassler/tmdb-film-client/pkg/metadata"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	details      string
	credits      string
	detailsErr   error
	creditsErr   error
	detailsCalls atomic.Int32
	creditsCalls atomic.Int32
}

func (s *fakeSource) Details(_ context.Context, _ int, _ string) (string, error) {
	s.detailsCalls.Add(1)
	return s.details, s.detailsErr
}

func (s *fakeSource) Credits(_ context.Context, _ int, _ string) (string, error) {
	s.creditsCalls.Add(1)
	return s.credits, s.creditsErr
}

func TestAssemble_Matrix(t *testing.T) {
	src := &fakeSource{details: testutil.MatrixDetails, credits: testutil.MatrixCredits}
	a := NewAssembler(src)

	film, err := a.Assemble(context.Background(), 603, "en-US", "Blu-ray")
	require.NoError(t, err)

	assert.Equal(t, 603, film.ExternalID)
	assert.Equal(t, "The Matrix", film.Title)
	assert.Equal(t, "/f89U3ADr1oiB1s9GkdPOEpXUk5H.jpg", film.PosterPath)
	assert.Equal(t, "en-US", film.Language)
	assert.Equal(t, "Blu-ray", film.Medium)
	assert.Equal(t, "1999-03-30", film.ReleaseDate)
	assert.Equal(t, "1999", film.Year)
	assert.Contains(t, film.Description, "computer hacker")
	assert.Equal(t, 0.0, film.Rating)
	assert.Equal(t, "No opinion yet", film.Note)
	assert.Equal(t, Person{FirstName: "Lana", LastName: "Wachowski"}, film.Director)
	assert.Equal(t, []Person{
		{FirstName: "Keanu", LastName: "Reeves"},
		{FirstName: "Laurence", LastName: "Fishburne"},
		{FirstName: "Carrie-Anne", LastName: "Moss"},
	}, film.Cast)

	assert.EqualValues(t, 1, src.detailsCalls.Load())
	assert.EqualValues(t, 1, src.creditsCalls.Load())
}

func TestAssemble_Year(t *testing.T) {
	tests := []struct {
		releaseDate string
		expected    string
	}{
		{"1999-03-31", "1999"},
		{"", "Unknown"},
		{"2024", "Unknown"},
		{"soon-ish", "Unknown"},
		{"99-01-01", "Unknown"},
		{"2001-", "2001"},
	}

	for _, tt := range tests {
		t.Run(tt.releaseDate, func(t *testing.T) {
			src := &fakeSource{
				details: fmt.Sprintf(`{"title":"X","release_date":%q}`, tt.releaseDate),
				credits: `{}`,
			}
			film, err := NewAssembler(src).Assemble(context.Background(), 1, "en", "DVD")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, film.Year)
		})
	}
}

func TestAssemble_OptionalFieldsDefaultEmpty(t *testing.T) {
	src := &fakeSource{
		details: `{"title":"Untitled","poster_path":null,"overview":42}`,
		credits: `{"crew":null,"cast":null}`,
	}

	film, err := NewAssembler(src).Assemble(context.Background(), 7, "en", "DVD")
	require.NoError(t, err)

	assert.Empty(t, film.PosterPath)
	assert.Empty(t, film.Description)
	assert.Empty(t, film.ReleaseDate)
	assert.Equal(t, "Unknown", film.Year)
	assert.Equal(t, UnknownPerson, film.Director)
	assert.Empty(t, film.Cast)
	assert.NotNil(t, film.Cast)
}

func TestAssemble_Director(t *testing.T) {
	tests := []struct {
		name     string
		crew     string
		expected Person
	}{
		{
			name:     "no director",
			crew:     `[{"name":"Hans Zimmer","job":"Original Music Composer"}]`,
			expected: UnknownPerson,
		},
		{
			name:     "empty crew",
			crew:     `[]`,
			expected: UnknownPerson,
		},
		{
			name:     "case sensitive job",
			crew:     `[{"name":"Someone Else","job":"director"},{"name":"Ridley Scott","job":"Director"}]`,
			expected: Person{FirstName: "Ridley", LastName: "Scott"},
		},
		{
			name:     "first director wins",
			crew:     `[{"name":"Joel Coen","job":"Director"},{"name":"Ethan Coen","job":"Director"}]`,
			expected: Person{FirstName: "Joel", LastName: "Coen"},
		},
		{
			name:     "director without name",
			crew:     `[{"job":"Director"}]`,
			expected: UnknownPerson,
		},
		{
			name:     "mononym director",
			crew:     `[{"name":"McG","job":"Director"}]`,
			expected: Person{LastName: "McG"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{details: `{"title":"X"}`, credits: `{"crew":` + tt.crew + `}`}
			film, err := NewAssembler(src).Assemble(context.Background(), 1, "en", "DVD")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, film.Director)
		})
	}
}

func TestAssemble_CastFilteredAndCapped(t *testing.T) {
	var entries []string
	for i := 1; i <= 15; i++ {
		dept := "Acting"
		switch i {
		case 2:
			dept = "Directing"
		case 3:
			dept = "ACTING"
		case 4:
			dept = "acting"
		}
		entries = append(entries, fmt.Sprintf(`{"name":"Actor Number%d","known_for_department":%q}`, i, dept))
	}
	entries = append(entries, `{"name":"No Department"}`)
	credits := `{"cast":[` + strings.Join(entries, ",") + `]}`

	src := &fakeSource{details: `{"title":"Ensemble"}`, credits: credits}
	film, err := NewAssembler(src).Assemble(context.Background(), 1, "en", "DVD")
	require.NoError(t, err)

	require.Len(t, film.Cast, MaxCast)
	assert.Equal(t, "Number1", film.Cast[0].LastName)
	assert.Equal(t, "Number3", film.Cast[1].LastName)
	assert.Equal(t, "Number4", film.Cast[2].LastName)
	assert.Equal(t, "Number11", film.Cast[9].LastName)
}

func TestAssemble_UpstreamUnavailable(t *testing.T) {
	fetchErr := &client.FetchError{Path: "/movie/1/credits", StatusCode: 503, Class: client.ErrorClassServer, Err: errors.New("unexpected status")}

	tests := []struct {
		name string
		src  *fakeSource
	}{
		{"details fail", &fakeSource{detailsErr: fetchErr, credits: `{}`}},
		{"credits fail", &fakeSource{details: `{"title":"X"}`, creditsErr: fetchErr}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			film, err := NewAssembler(tt.src).Assemble(context.Background(), 1, "en", "DVD")
			require.Error(t, err)
			assert.Nil(t, film)
			assert.ErrorIs(t, err, ErrUpstreamUnavailable)
			assert.ErrorIs(t, err, client.ErrNetworkFailure)
			assert.NotErrorIs(t, err, ErrMalformedUpstreamData)

			var ae *AssemblyError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, 1, ae.MovieID)
		})
	}
}

func TestAssemble_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		details string
		credits string
	}{
		{"details not json", `<html>`, `{}`},
		{"credits not json", `{"title":"X"}`, `not json`},
		{"details is array", `[]`, `{}`},
		{"details is null", `null`, `{}`},
		{"missing title", `{"overview":"no title"}`, `{}`},
		{"null title", `{"title":null}`, `{}`},
		{"numeric title", `{"title":12}`, `{}`},
		{"crew not array", `{"title":"X"}`, `{"crew":"nope"}`},
		{"cast entry not object", `{"title":"X"}`, `{"cast":["Keanu Reeves"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{details: tt.details, credits: tt.credits}
			film, err := NewAssembler(src).Assemble(context.Background(), 42, "en", "DVD")
			require.Error(t, err)
			assert.Nil(t, film)
			assert.ErrorIs(t, err, ErrMalformedUpstreamData)
			assert.NotErrorIs(t, err, ErrUpstreamUnavailable)
			assert.Contains(t, err.Error(), "assemble movie 42")
		})
	}
}

func TestNewAssembler_Panic(t *testing.T) {
	assert.Panics(t, func() { NewAssembler(nil) })
}

func TestAssemble_EndToEndCachesFetches(t *testing.T) {
	mock := testutil.NewMockTMDB()
	defer mock.Close()
	mock.ServeMatrix()

	c, err := client.New("k", client.WithBaseURL(mock.URL()), client.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	searches := cache.NewRegion(cache.RegionSearches, cache.NewMemoryStore(cache.RegionSearches, 10, time.Hour), time.Hour)
	movies := cache.NewRegion(cache.RegionMovies, cache.NewMemoryStore(cache.RegionMovies, 10, time.Hour), time.Hour)
	a := NewAssembler(metadata.NewFetcher(c, searches, movies))

	ctx := context.Background()
	first, err := a.Assemble(ctx, 603, "en-US", "DVD")
	require.NoError(t, err)
	second, err := a.Assemble(ctx, 603, "en-US", "4K")
	require.NoError(t, err)

	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, "4K", second.Medium)
	assert.Equal(t, 1, mock.PathCount("/movie/603"))
	assert.Equal(t, 1, mock.PathCount("/movie/603/credits"))

	_, err = a.Assemble(ctx, 404, "en-US", "DVD")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.True(t, client.IsNotFound(err))
}
