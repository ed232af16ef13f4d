package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/tmdb-film-client/internal/app"
	"github.com/Sternrassler/tmdb-film-client/internal/config"
	"github.com/Sternrassler/tmdb-film-client/pkg/film"
	"github.com/Sternrassler/tmdb-film-client/pkg/logging"
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
)

// CLI is the tmdb-proxy command structure.
type CLI struct {
	Config   string `help:"Path to a config file (yaml, json or toml)" type:"path" env:"TMDB_PROXY_CONFIG"`
	LogLevel string `help:"Override log.level (debug, info, warn, error)"`

	Serve    ServeCmd    `cmd:"" help:"Serve the internal film API with health, readiness and metrics endpoints"`
	Search   SearchCmd   `cmd:"" help:"Search TMDB by title and print the raw response"`
	Assemble AssembleCmd `cmd:"" help:"Assemble films by TMDB id and print them as JSON"`
}

// runContext is bound to every command's Run method.
type runContext struct {
	cfg *config.Config
	out io.Writer
}

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Addr string `help:"Listen address (overrides server.addr)"`
}

// SearchCmd performs a single search.
type SearchCmd struct {
	Title    string `arg:"" help:"Movie title to search for"`
	Language string `short:"l" help:"Result language" default:"en-US"`
	Page     int    `short:"p" help:"Result page" default:"1"`
}

// AssembleCmd assembles one or more films.
type AssembleCmd struct {
	IDs         []int  `arg:"" name:"id" help:"TMDB movie ids"`
	Language    string `short:"l" help:"Metadata language" default:"en-US"`
	Medium      string `short:"m" help:"Physical medium recorded on the film" default:"DVD"`
	Concurrency int    `short:"c" help:"Films assembled in parallel" default:"4"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("tmdb-proxy"),
		kong.Description("TMDB metadata client with response caching."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tmdb-proxy: %v\n", err)
		os.Exit(1)
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	if err := kctx.Run(&runContext{cfg: cfg, out: os.Stdout}); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// Run starts the server and blocks until SIGINT or SIGTERM.
func (c *ServeCmd) Run(rt *runContext) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := rt.cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}

	s := &server{
		searcher:  a.Fetcher,
		assembler: a.Assembler,
		ready:     a.Ready,
		logger:    logging.NewLogger(logging.ComponentServer),
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	shutdownError := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownError <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", addr).Msg("Starting TMDB proxy server")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownError; err != nil {
		return err
	}

	s.logger.Info().Str("addr", addr).Msg("Stopped server")
	return nil
}

// Run prints the raw search response.
func (c *SearchCmd) Run(rt *runContext) error {
	ctx := context.Background()
	a, err := app.New(ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	body, err := a.Fetcher.Search(ctx, c.Title, c.Language, c.Page)
	if err != nil {
		return fmt.Errorf("search %q: %w", c.Title, err)
	}
	_, err = fmt.Fprintln(rt.out, body)
	return err
}

// assembleOutput is one line of assemble output.
type assembleOutput struct {
	MovieID int        `json:"movie_id"`
	Film    *film.Film `json:"film,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// Run assembles every id and prints the results in input order.
// It fails when any film could not be assembled.
func (c *AssembleCmd) Run(rt *runContext) error {
	ctx := context.Background()
	a, err := app.New(ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	results := a.Batch(c.Concurrency).AssembleAll(ctx, c.IDs, c.Language, c.Medium)

	enc := json.NewEncoder(rt.out)
	enc.SetIndent("", "  ")

	failed := 0
	out := make([]assembleOutput, len(results))
	for i, r := range results {
		out[i].MovieID = r.MovieID
		if r.Err != nil {
			failed++
			out[i].Error = r.Err.Error()
			continue
		}
		out[i].Film = r.Film
	}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode films: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d films could not be assembled", failed, len(results))
	}
	return nil
}
