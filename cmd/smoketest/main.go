package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/myrjola/tripguide/internal/e2etest"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/logging"
)

// TestFlow walks the inspire-me flow and checks that the results page answers with experts or suggestions.
func TestFlow(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute) //nolint:mnd // guide generation may retry
	defer cancel()

	page, err := client.CompleteFlow(ctx, "inspire-me", map[string]url.Values{
		"traveler_type": {"value": {"Couple"}},
		"landscape":     {"option": {"0"}},
		"activities":    {"option": {"0"}},
		"experience":    {"value": {"Intermediate"}},
		"trip_length":   {"value": {"7"}},
	})
	if err != nil {
		return errors.Wrap(err, "complete flow")
	}
	if page.StatusCode != http.StatusOK {
		return errors.New("unexpected results status", slog.Int("status", page.StatusCode))
	}
	if page.Doc.Find("article.guide p").Length() == 0 {
		return errors.New("results without guide")
	}
	if page.Doc.Find("ol.experts li, ul.fallback").Length() == 0 {
		return errors.New("results without experts or suggestions")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname  = os.Args[1]
		serverURL = "https://" + hostname
		client    *e2etest.Client
		err       error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", serverURL))

	if client, err = e2etest.NewClient(serverURL); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestFlow(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing flow", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
