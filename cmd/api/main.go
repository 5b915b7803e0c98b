package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polygonal-zones/internal/catalog"
	"polygonal-zones/internal/config"
	"polygonal-zones/internal/events"
	"polygonal-zones/internal/handler"
	"polygonal-zones/internal/loader"
	"polygonal-zones/internal/metrics"
	"polygonal-zones/internal/repository"
	"polygonal-zones/internal/service"
	"polygonal-zones/internal/tracker"
	"polygonal-zones/internal/zonefile"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	config, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	setupLogger(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Zone sources
	ld := loader.New(config.ConfigDir, config.FetchTimeout)
	builder := catalog.NewBuilder(ld)

	var trackers []*tracker.Tracker
	var watched []*tracker.Tracker
	for _, tc := range config.Trackers {
		t := tracker.New(tc, builder)
		trackers = append(trackers, t)
		if tc.Watch {
			watched = append(watched, t)
		}
	}
	manager := tracker.NewManager(trackers...)
	if err := manager.ReloadAll(ctx); err != nil {
		log.Error().Err(err).Msg("some trackers failed to load their zones")
	}

	// Optional state persistence and publishing
	var repo service.StateRepository
	if config.DBSource != "" {
		conn, err := pgxpool.New(ctx, config.DBSource)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot connect to db")
		}
		defer conn.Close()

		pg := repository.NewRepository(conn)
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("cannot migrate db")
		}
		repo = pg
	}

	var pub service.StatePublisher
	if config.Redis.Addr != "" {
		client, err := events.Open(ctx, config.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot connect to redis")
		}
		defer client.Close()
		pub = events.NewPublisher(client, config.Redis.Channel)
	}

	// Initialize layers
	store := zonefile.NewStore()

	locationService := service.NewLocationService(manager, repo, pub)
	zoneService := service.NewZoneService(manager, store, ld.Path, repo, pub)

	if err := locationService.Restore(ctx); err != nil {
		log.Error().Err(err).Msg("cannot restore tracker states")
	}

	if len(watched) > 0 {
		w, err := tracker.NewWatcher(watched, ld.Path, zoneService, tracker.DefaultDebounce)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot watch zone files")
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error().Err(err).Msg("zone file watcher stopped")
			}
		}()
	}

	locationHandler := handler.NewLocationHandler(locationService)
	zoneHandler := handler.NewZoneHandler(zoneService)

	r := gin.New()
	r.Use(gin.Recovery(), handler.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	if config.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	r.POST("/locations", locationHandler.PostLocation)
	r.GET("/trackers", locationHandler.ListTrackers)
	r.GET("/trackers/:id", locationHandler.GetTracker)
	r.GET("/resolve", locationHandler.Resolve)

	r.POST("/trackers/:id/zones", zoneHandler.AddZone)
	r.PUT("/trackers/:id/zones", zoneHandler.ReplaceZones)
	r.PUT("/trackers/:id/zones/:name", zoneHandler.EditZone)
	r.DELETE("/trackers/:id/zones/:name", zoneHandler.DeleteZone)
	r.POST("/trackers/:id/reload", zoneHandler.Reload)

	if config.Editor.Enabled {
		if err := store.Ensure(config.Editor.ZonesFile); err != nil {
			log.Fatal().Err(err).Msg("cannot create editor zones file")
		}
		editorHandler := handler.NewEditorHandler(store, zoneService, config.Editor.ZonesFile)

		editor := r.Group("/", handler.AllowIPs(config.Editor))
		editor.GET("/zones.json", editorHandler.Zones)
		editor.POST("/save_zones", editorHandler.SaveZones)
		if config.Editor.StaticDir != "" {
			editor.StaticFS("/editor", gin.Dir(config.Editor.StaticDir, false))
		}
	}

	srv := &http.Server{
		Addr:    config.ServerAddress,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", config.ServerAddress).Int("trackers", len(trackers)).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	if gin.Mode() != gin.DebugMode || level > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}
