package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/photofeed/feed"
	"github.com/briangreenhill/photofeed/gettable"
	"github.com/briangreenhill/photofeed/internal/app"
	"github.com/briangreenhill/photofeed/internal/config"
	"github.com/briangreenhill/photofeed/internal/logging"
)

const version = "photofeed v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := runCLI(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func runCLI(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := "list"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, version)
		return nil
	case "list", "cached", "one":
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty, stderr)
	f, err := app.NewFeed(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error().Err(err).Msg("close cache")
		}
	}()

	sources := setupSources(f.Client)
	name := "photos"
	if len(args) > 1 {
		name = args[1]
	}
	src, ok := sources.Get(name)
	if !ok {
		return fmt.Errorf("source '%s' not found. Available sources: %v", name, sources.List())
	}

	cachedSrc, canCache := src.(gettable.Cached[feed.Item])
	switch cmd {
	case "cached":
		if !canCache {
			return fmt.Errorf("source %s keeps no cache", name)
		}
		items, ok := cachedSrc.CachedOnly()
		if !ok {
			return fmt.Errorf("nothing cached for %s", name)
		}
		printItems(stdout, items)
		return nil
	case "one":
		res := <-src.GetOne(ctx)
		if res.Err != nil {
			return fmt.Errorf("failed to get item from %s: %w", name, res.Err)
		}
		printItems(stdout, []feed.Item{res.Value})
		return nil
	default:
		return listFeed(ctx, src, stdout, stderr, logger)
	}
}

// setupSources registers every feed source the CLI can list.
func setupSources(photos gettable.Cached[feed.Item]) *gettable.Registry[feed.Item] {
	registry := gettable.NewRegistry[feed.Item]()
	registry.Register("photos", photos)
	return registry
}

// listFeed prints the cached feed straight away, then the fetched one. If
// the fetch fails the cached copy stands and a notice goes to stderr.
func listFeed(ctx context.Context, src gettable.Gettable[feed.Item], stdout, stderr io.Writer, logger zerolog.Logger) error {
	var items []feed.Item
	cached := false
	if c, ok := src.(gettable.Cached[feed.Item]); ok {
		items, cached = c.CachedOnly()
	}
	if cached {
		fmt.Fprintln(stdout, "# cached")
		printItems(stdout, items)
	}

	res := <-src.GetMany(ctx)
	if res.Err != nil {
		if !cached {
			return fmt.Errorf("failed to fetch feed: %w", res.Err)
		}
		logger.Debug().Err(res.Err).Msg("refresh failed, keeping cached feed")
		fmt.Fprintf(stderr, "Could not refresh the feed (%v). Showing the last saved copy.\n", res.Err)
		return nil
	}
	if cached {
		fmt.Fprintln(stdout, "# fresh")
	}
	printItems(stdout, res.Value)
	return nil
}

func printItems(w io.Writer, items []feed.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No photos.")
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "%5d  %-50s  %s\n", it.ID, it.Title, it.ThumbnailURLString)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: photofeed [command] [source]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  list (default)        Show the cached feed, then refresh it")
	fmt.Fprintln(w, "  cached                Show the cached feed without network access")
	fmt.Fprintln(w, "  one                   Fetch the single item at FEED_ONE_PATH")
	fmt.Fprintln(w, "  version, -v           Print the version")
	fmt.Fprintln(w, "  help, -h              Show this help message")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  FEED_BASE_URL         Feed origin (default http://jsonplaceholder.typicode.com/)")
	fmt.Fprintln(w, "  FEED_ONE_PATH         Single item resource (optional)")
	fmt.Fprintln(w, "  CACHE_DIR             Response cache directory")
	fmt.Fprintln(w, "  CACHE_BACKEND         bolt, file or none")
	fmt.Fprintf(w, "  %-21s Optional YAML config file\n", config.FileEnv)
}
