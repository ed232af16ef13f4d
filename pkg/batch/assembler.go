// Package batch assembles many films in parallel with a bounded worker pool.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/tmdb-film-client/pkg/film"
	"github.com/Sternrassler/tmdb-film-client/pkg/logging"
	"github.com/rs/zerolog"
)

// Config holds batch assembler configuration
type Config struct {
	// MaxConcurrency is the maximum number of films assembled in parallel.
	// Each film costs up to two upstream requests, so keep this close to the
	// client rate limit.
	MaxConcurrency int
	// Timeout per film
	Timeout time.Duration
}

// DefaultConfig returns safe default configuration for TMDB
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// FilmAssembler is implemented by *film.Assembler.
type FilmAssembler interface {
	Assemble(ctx context.Context, movieID int, language, medium string) (*film.Film, error)
}

// Result is the outcome for one requested movie id.
type Result struct {
	MovieID int
	Film    *film.Film
	Err     error
}

// Assembler assembles films for a list of ids in parallel
type Assembler struct {
	assembler FilmAssembler
	config    Config
	logger    zerolog.Logger
}

// NewAssembler creates a new batch assembler
func NewAssembler(assembler FilmAssembler, config Config) *Assembler {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Assembler{
		assembler: assembler,
		config:    config,
		logger:    logging.NewLogger(logging.ComponentBatch),
	}
}

type job struct {
	index   int
	movieID int
}

// AssembleAll assembles every id using a worker pool.
// Results are returned in input order; failed films carry their error.
// Ids left unprocessed because ctx ended carry ctx.Err().
func (a *Assembler) AssembleAll(ctx context.Context, ids []int, language, medium string) []Result {
	start := time.Now()
	results := make([]Result, len(ids))
	for i, id := range ids {
		results[i].MovieID = id
	}
	if len(ids) == 0 {
		return results
	}

	workers := a.config.MaxConcurrency
	if workers > len(ids) {
		workers = len(ids)
	}

	a.logger.Info().
		Int("films", len(ids)).
		Int("workers", workers).
		Msg("Starting batch assembly")

	jobs := make(chan job)
	done := make([]bool, len(ids))

	go func() {
		defer close(jobs)
		for i, id := range ids {
			select {
			case jobs <- job{index: i, movieID: id}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Each worker writes only the slots of the jobs it received.
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go a.worker(ctx, jobs, results, done, language, medium, &wg, w)
	}
	wg.Wait()

	failed := 0
	for i := range results {
		if !done[i] {
			results[i].Err = ctx.Err()
		}
		if results[i].Err != nil {
			failed++
		}
	}

	a.logger.Info().
		Int("films", len(ids)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch assembly complete")

	return results
}

// worker processes films from the queue
func (a *Assembler) worker(ctx context.Context, jobs <-chan job, results []Result, done []bool, language, medium string, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for j := range jobs {
		if ctx.Err() != nil {
			a.logger.Debug().
				Int("worker_id", workerID).
				Int("films_processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		filmCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		f, err := a.assembler.Assemble(filmCtx, j.movieID, language, medium)
		cancel()

		if err != nil {
			a.logger.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("movie_id", j.movieID).
				Msg("Film assembly failed")
		}
		results[j.index].Film = f
		results[j.index].Err = err
		done[j.index] = true
		processed++
	}

	if processed > 0 {
		a.logger.Debug().
			Int("worker_id", workerID).
			Int("films_processed", processed).
			Msg("Worker completed")
	}
}
