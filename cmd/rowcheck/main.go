package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Nyumat/NyumatFlix-sub000/internal/cache"
	"github.com/Nyumat/NyumatFlix-sub000/internal/catalog"
	"github.com/Nyumat/NyumatFlix-sub000/internal/config"
	"github.com/Nyumat/NyumatFlix-sub000/internal/logging"
	"github.com/Nyumat/NyumatFlix-sub000/internal/models"
	"github.com/Nyumat/NyumatFlix-sub000/internal/services"
)

var errUnknownRows = errors.New("one or more rows are not registered")

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func main() {
	var (
		minCount int
		list     bool
		ids      bool
		timeout  time.Duration
	)
	flag.IntVar(&minCount, "min", catalog.DefaultMinCount, "minimum items per row")
	flag.BoolVar(&list, "list", false, "print registered row IDs and exit")
	flag.BoolVar(&ids, "ids", true, "print the item IDs of each row")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: rowcheck [-min 20] [-ids=false] rowID...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if list {
		for _, row := range catalog.ListRows() {
			fmt.Printf("%-28s %-6s %s\n", row.ID, row.MediaType, row.Title)
		}
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Args(), minCount, ids, timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(rowIDs []string, minCount int, showIDs bool, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, closer := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer closer.Close()

	cacheManager, err := cache.NewManager(cfg.CacheSize, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}

	client := services.NewTMDBClient(cfg.TMDBAPIKey, services.TMDBOptions{
		BaseURL:   cfg.TMDBBaseURL,
		Language:  cfg.Language,
		Timeout:   cfg.TMDBTimeout,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Retries:   uint(cfg.Retries),
		Cache:     cacheManager,
		CacheTTL:  cfg.CacheTTL,
		GenreTTL:  cfg.GenreCacheTTL,
		Logger:    logger,
	})
	cat := catalog.New(client, catalog.Options{
		Language:          cfg.Language,
		Region:            cfg.Region,
		FetchConcurrency:  cfg.FetchConcurrency,
		EnrichConcurrency: cfg.EnrichConcurrency,
		GenreTTL:          cfg.GenreCacheTTL,
		Logger:            logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := cat.AggregateRows(ctx, rowIDs, minCount, catalog.NewSeenSet())
	return report(os.Stdout, results, minCount, showIDs)
}

// report prints one line per row and returns errUnknownRows if any row ID
// was not registered.
func report(w io.Writer, results []models.RowResult, minCount int, showIDs bool) error {
	unknown := 0
	total := 0
	for _, res := range results {
		if res.Status == models.RowUnknown {
			unknown++
		}
		total += len(res.Items)

		fmt.Fprintf(w, "%-28s %s %3d/%d items, %d pages\n",
			res.RowID, statusLabel(res.Status), len(res.Items), minCount, res.PagesFetched)
		if res.Err != nil {
			fmt.Fprintf(w, "  %s\n", dimStyle.Render(res.Err.Error()))
		}
		if showIDs && len(res.Items) > 0 {
			fmt.Fprintf(w, "  %s\n", dimStyle.Render(joinIDs(res.Items)))
		}
	}
	fmt.Fprintf(w, "%d rows, %d distinct items\n", len(results), total)

	if unknown > 0 {
		return fmt.Errorf("%w: %d", errUnknownRows, unknown)
	}
	return nil
}

func statusLabel(status models.RowStatus) string {
	label := fmt.Sprintf("%-14s", status)
	switch status {
	case models.RowComplete:
		return okStyle.Render(label)
	case models.RowExhausted, models.RowPageCeiling:
		return warnStyle.Render(label)
	default:
		return errStyle.Render(label)
	}
}

func joinIDs(items []models.MediaItem) string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = fmt.Sprint(item.ID)
	}
	return strings.Join(ids, " ")
}
