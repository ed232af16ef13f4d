// Package film assembles Film records from TMDB movie details and credits.
package film

import (
	"errors"
	"fmt"
)

const (
	// MaxCast caps the number of cast members on a Film.
	MaxCast = 10

	// UnknownYear is used when the release date carries no usable year.
	UnknownYear = "Unknown"

	// DefaultNote is the note of a freshly assembled Film.
	DefaultNote = "No opinion yet"
)

// Film is an assembled movie record, not yet persisted.
type Film struct {
	ExternalID  int      `json:"external_id"`
	PosterPath  string   `json:"poster_path"`
	Language    string   `json:"language"`
	Medium      string   `json:"medium"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ReleaseDate string   `json:"release_date"`
	Year        string   `json:"year"`
	Rating      float64  `json:"rating"`
	Note        string   `json:"note"`
	Director    Person   `json:"director"`
	Cast        []Person `json:"cast"`
}

// Assembly error kinds.
var (
	// ErrUpstreamUnavailable means details or credits could not be fetched.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedUpstreamData means a fetched body lacked the expected shape.
	ErrMalformedUpstreamData = errors.New("malformed upstream data")
)

// AssemblyError reports why a Film could not be assembled.
// errors.Is matches both Kind and the underlying cause.
type AssemblyError struct {
	MovieID int
	Kind    error
	Err     error
}

// Error implements the error interface.
func (e *AssemblyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assemble movie %d: %v: %v", e.MovieID, e.Kind, e.Err)
	}
	return fmt.Sprintf("assemble movie %d: %v", e.MovieID, e.Kind)
}

// Unwrap implements multi-error unwrapping for errors.Is/As.
func (e *AssemblyError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func unavailable(movieID int, err error) error {
	return &AssemblyError{MovieID: movieID, Kind: ErrUpstreamUnavailable, Err: err}
}

func malformed(movieID int, format string, args ...any) error {
	return &AssemblyError{MovieID: movieID, Kind: ErrMalformedUpstreamData, Err: fmt.Errorf(format, args...)}
}
