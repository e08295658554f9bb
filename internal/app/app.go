package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"AuctionHarvester/internal/address"
	"AuctionHarvester/internal/api"
	"AuctionHarvester/internal/config"
	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/infrastructure/geocoding"
	"AuctionHarvester/internal/infrastructure/httpclient"
	"AuctionHarvester/internal/infrastructure/parser"
	"AuctionHarvester/internal/infrastructure/scheduler"
	"AuctionHarvester/internal/infrastructure/storage"
	"AuctionHarvester/internal/infrastructure/telegram"
	"AuctionHarvester/internal/logging"
	"AuctionHarvester/internal/ports"
	"AuctionHarvester/internal/scanner"
	"AuctionHarvester/internal/usecase"
)

// Run modes accepted by Application.Run.
const (
	ModeHarvest  = "harvest"
	ModeGeocode  = "geocode"
	ModeStates   = "states"
	ModeAll      = "all"
	ModeServe    = "serve"
	ModeSchedule = "schedule"
)

// Modes lists every accepted run mode.
var Modes = []string{ModeHarvest, ModeGeocode, ModeStates, ModeAll, ModeServe, ModeSchedule}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	db     *sql.DB

	harvester     *usecase.Harvester
	geocode       *usecase.GeocodePipeline
	states        *usecase.StateBackfill
	autocompleter *usecase.Autocompleter
	scheduler     *usecase.Scheduler
}

// New builds the application. Without a DSN listings are kept in memory,
// which is only useful for dry runs.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	if err := checkRegions(cfg.Harvest.Regions); err != nil {
		return nil, err
	}

	repo, err := a.openRepository(ctx)
	if err != nil {
		return nil, err
	}

	source := httpclient.New(httpclient.Options{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Jitter:      cfg.Retry.Jitter,
		UserAgent:   cfg.Source.UserAgent,
		Timeout:     cfg.Source.Timeout,
	})

	registry := scanner.NewRegistry()
	registry.Register(parser.NewCaixaScanner(source, parser.CaixaOptions{
		BaseURL:       cfg.Source.BaseURL,
		SearchPath:    cfg.Source.SearchPath,
		ListPath:      cfg.Source.ListPath,
		DetailPath:    cfg.Source.DetailPath,
		Rooms:         cfg.Harvest.Rooms,
		Timeout:       cfg.Source.Timeout,
		DetailTimeout: cfg.Source.DetailTimeout,
		VerifySearch:  cfg.Source.VerifyTLS.Search,
		VerifyList:    cfg.Source.VerifyTLS.List,
		VerifyDetail:  cfg.Source.VerifyTLS.Detail,
		Location:      cfg.Source.Location(),
	}, logging.Component(baseLogger, "scanner.caixa")))

	caixa, err := registry.Resolve("caixa")
	if err != nil {
		return nil, err
	}

	a.harvester = usecase.NewHarvester(usecase.HarvesterDeps{
		Scanner:      caixa,
		Repository:   repo,
		Logger:       logging.Component(baseLogger, "harvester"),
		Regions:      cfg.Harvest.Regions,
		Categories:   categories(cfg.Harvest.Categories),
		BatchSize:    cfg.Harvest.BatchSize,
		ItemDelayMin: cfg.Harvest.ItemDelayMin,
		ItemDelayMax: cfg.Harvest.ItemDelayMax,
		BatchPause:   cfg.Harvest.BatchPause,
	})

	geocoder, interval, err := newGeocoder(cfg)
	if err != nil {
		return nil, err
	}
	a.geocode = usecase.NewGeocodePipeline(usecase.GeocodeDeps{
		Repository: repo,
		Geocoder:   geocoder,
		Limiter:    usecase.NewProviderLimiter(interval),
		Logger:     logging.Component(baseLogger, "geocoder"),
	})
	a.autocompleter = usecase.NewAutocompleter(geocoder)
	a.states = usecase.NewStateBackfill(repo, logging.Component(baseLogger, "states"))

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(httpclient.New(httpclient.Options{MaxAttempts: 2}), "", tg.BotToken, tg.ChatID)
	}

	a.scheduler = usecase.NewScheduler(usecase.SchedulerDeps{
		Driver:    scheduler.NewIntervalScheduler(cfg.Scheduler.Interval, cfg.Scheduler.Location()),
		Harvester: a.harvester,
		Geocoder:  a.geocode,
		Notifier:  notifier,
		Logger:    logging.Component(baseLogger, "scheduler"),
	})

	return a, nil
}

func (a *Application) openRepository(ctx context.Context) (ports.ListingRepository, error) {
	if a.cfg.Database.DSN == "" {
		a.logger.Warn("no database configured, listings are kept in memory")
		return storage.NewMemoryRepository(), nil
	}

	db, err := storage.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN, a.cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	a.db = db
	return storage.NewPostgresRepository(db), nil
}

func newGeocoder(cfg config.Config) (ports.Geocoder, time.Duration, error) {
	endpoint := cfg.Geocoding.Geoapify
	if cfg.Geocoding.Provider == "locationiq" {
		endpoint = cfg.Geocoding.LocationIQ
	}

	client := httpclient.New(httpclient.Options{MaxAttempts: 1, Timeout: cfg.Geocoding.Timeout})
	geocoder, err := geocoding.New(cfg.Geocoding.Provider, client, geocoding.Options{
		BaseURL:     endpoint.BaseURL,
		APIKey:      endpoint.APIKey,
		CountryCode: cfg.Geocoding.CountryCode,
		Language:    cfg.Geocoding.Language,
		Limit:       cfg.Geocoding.AutocompleteLimit,
		Timeout:     cfg.Geocoding.Timeout,
	})
	if err != nil {
		return nil, 0, err
	}
	return geocoder, endpoint.Interval, nil
}

func checkRegions(regions []string) error {
	known := address.StateCodes()
	for _, r := range regions {
		if !slices.Contains(known, r) {
			return fmt.Errorf("unknown region %q (want one of %v)", r, known)
		}
	}
	return nil
}

func categories(in []config.CategoryConfig) []domain.Category {
	out := make([]domain.Category, 0, len(in))
	for _, c := range in {
		out = append(out, domain.Category{Code: c.Code, Name: c.Name, Modality: c.Modality})
	}
	return out
}

// Run executes one mode until it completes or ctx is cancelled.
func (a *Application) Run(ctx context.Context, mode string) error {
	switch mode {
	case ModeHarvest:
		_, err := a.harvester.Run(ctx)
		return err
	case ModeGeocode:
		_, err := a.geocode.Run(ctx)
		return err
	case ModeStates:
		_, err := a.states.Run(ctx)
		return err
	case ModeAll:
		now := time.Now().In(a.cfg.Scheduler.Location())
		return a.scheduler.RunOnce(ctx, now)
	case ModeServe:
		router := api.NewRouter(a.autocompleter, logging.Component(a.logger, "http"))
		return api.Serve(ctx, a.cfg.HTTP.Addr, router, a.logger)
	case ModeSchedule:
		return a.schedule(ctx)
	default:
		return fmt.Errorf("unknown mode %q (want one of %v)", mode, Modes)
	}
}

func (a *Application) schedule(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// Close releases the database handle, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// FilterCategories keeps the configured categories whose code is listed.
func FilterCategories(in []config.CategoryConfig, codes []string) []config.CategoryConfig {
	if len(codes) == 0 {
		return in
	}
	var out []config.CategoryConfig
	for _, c := range in {
		if slices.Contains(codes, c.Code) {
			out = append(out, c)
		}
	}
	return out
}
