package main

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
	"github.com/myrjola/tripguide/internal/ai"
	"github.com/myrjola/tripguide/internal/catalog"
	"github.com/myrjola/tripguide/internal/crm"
	"github.com/myrjola/tripguide/internal/envstruct"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/guide"
	"github.com/myrjola/tripguide/internal/logging"
	"github.com/myrjola/tripguide/internal/pprofserver"
	"github.com/myrjola/tripguide/internal/repositories"
	"github.com/myrjola/tripguide/internal/sqlite"
	"github.com/myrjola/tripguide/internal/tags"
)

type application struct {
	logger         *slog.Logger
	db             *sqlite.Database
	sessionManager *scs.SessionManager
	htmx           *htmx.HTMX
	catalog        *catalog.Catalog
	tagger         tags.Extractor
	guideService   *guide.Service
	guides         *repositories.GuideRepository
	experts        *repositories.ExpertRepository
	contacts       *repositories.ContactRepository
	crm            crm.Sink
	templates      map[string]*template.Template
	now            func() time.Time
}

type config struct {
	// Addr is the address the server listens on. Use "localhost:0" for a random port.
	Addr string `env:"TRIPGUIDE_ADDR" envDefault:"localhost:4000"`
	// PprofAddr enables pprof on a loopback address such as "localhost:6060" when set.
	PprofAddr       string        `env:"TRIPGUIDE_PPROF_ADDR" envDefault:""`
	SqliteURL       string        `env:"TRIPGUIDE_SQLITE_URL" envDefault:"./tripguide.sqlite"`
	OpenAIKey       string        `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL   string        `env:"TRIPGUIDE_OPENAI_BASE_URL" envDefault:""`
	OpenAIModel     string        `env:"TRIPGUIDE_OPENAI_MODEL" envDefault:""`
	TagStrategy     string        `env:"TRIPGUIDE_TAG_STRATEGY" envDefault:"heuristic"`
	CatalogPath     string        `env:"TRIPGUIDE_CATALOG_PATH" envDefault:""`
	CRMURL          string        `env:"TRIPGUIDE_CRM_URL" envDefault:""`
	CRMToken        string        `env:"TRIPGUIDE_CRM_TOKEN" envDefault:""`
	RetryBackoff    time.Duration `env:"TRIPGUIDE_RETRY_BACKOFF" envDefault:"2s"`
	WriteTimeout    time.Duration `env:"TRIPGUIDE_WRITE_TIMEOUT" envDefault:"150s"`
	SessionLifetime time.Duration `env:"TRIPGUIDE_SESSION_LIFETIME" envDefault:"12h"`
	GuideRetention  time.Duration `env:"TRIPGUIDE_GUIDE_RETENTION" envDefault:"720h"`
}

const (
	tagStrategyHeuristic = "heuristic"
	tagStrategyDelegated = "delegated"
)

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	if cfg.PprofAddr != "" {
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
	}

	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.CatalogPath)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return errors.Wrap(err, "load question catalog", slog.String("path", cfg.CatalogPath))
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(context.WithoutCancel(ctx), slog.LevelError, "failed to close database",
				errors.SlogError(closeErr))
		}
	}()

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, time.Hour)
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.Name = "tripguide_session"
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	aiClient := ai.NewClient(ai.Config{
		APIKey:    cfg.OpenAIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		Model:     cfg.OpenAIModel,
		MaxTokens: 0,
	}, logger)

	experts := repositories.NewExpertRepository(db, logger)
	heuristic := tags.NewHeuristic()
	var tagger tags.Extractor
	switch cfg.TagStrategy {
	case tagStrategyHeuristic:
		tagger = heuristic
	case tagStrategyDelegated:
		vocab, vocabErr := experts.Vocabulary(ctx)
		if vocabErr != nil {
			return errors.Wrap(vocabErr, "load tag vocabulary")
		}
		tagger = tags.NewDelegated(aiClient, vocab, heuristic, logger)
	default:
		return errors.New("unknown tag strategy", slog.String("strategy", cfg.TagStrategy))
	}

	var sink crm.Sink = crm.NewOffline(logger)
	if cfg.CRMURL != "" {
		sink = crm.NewClient(cfg.CRMURL, cfg.CRMToken, logger)
	}

	templates, err := parseTemplates()
	if err != nil {
		return errors.Wrap(err, "parse templates")
	}

	app := application{
		logger:         logger,
		db:             db,
		sessionManager: sessionManager,
		htmx:           htmx.New(),
		catalog:        cat,
		tagger:         tagger,
		guideService:   guide.NewService(aiClient, heuristic.FromText, cfg.RetryBackoff, logger),
		guides:         repositories.NewGuideRepository(db, logger),
		experts:        experts,
		contacts:       repositories.NewContactRepository(db, logger),
		crm:            sink,
		templates:      templates,
		now:            time.Now,
	}

	maintenance, err := app.scheduleMaintenance(ctx, db, cfg.GuideRetention)
	if err != nil {
		return errors.Wrap(err, "schedule maintenance")
	}
	defer func() {
		<-maintenance.Stop().Done()
	}()

	if err = app.configureAndStartServer(ctx, cfg.Addr, cfg.WriteTimeout); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()

	// A missing .env file is fine, the environment may come from elsewhere.
	envErr := godotenv.Load()

	level := slog.LevelInfo
	if raw, ok := os.LookupEnv("TRIPGUIDE_LOG_LEVEL"); ok {
		if parsed, err := logging.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	loggerHandler := logging.NewContextHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelWarn, "could not load .env", errors.SlogError(envErr))
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
