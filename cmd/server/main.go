package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tilerealm.gg/internal/api"
	"tilerealm.gg/internal/logging"
	persistlog "tilerealm.gg/internal/persistence/log"
	"tilerealm.gg/internal/persistence/store"
	"tilerealm.gg/internal/sim/tilemap"
	"tilerealm.gg/internal/sim/tuning"
	"tilerealm.gg/internal/sim/zone"
	"tilerealm.gg/internal/transport/ws"
)

// dirProvider serves maps preloaded from a config directory.
type dirProvider struct {
	maps map[string]*tilemap.Map
}

func (p dirProvider) GetMap(id string) (*tilemap.Map, error) {
	if m, ok := p.maps[id]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("unknown map %q", id)
}

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		zoneID     = flag.String("zone", "zone_1", "zone id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		defaultMap = flag.String("map", "overworld", "default map id for joins that name none")
		logLevel   = flag.String("log_level", "info", "log level (debug, info, warn, error)")
		logFile    = flag.String("log_file", "", "rotated log file path (empty: stderr only)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite checkpoint store")
	)
	// .env overlays flag defaults in dev; missing file is fine.
	_ = godotenv.Load()
	flag.Parse()

	logger := logging.New(logging.Config{Level: envOr("LOG_LEVEL", *logLevel), FilePath: *logFile})
	defer func() { _ = logger.Sync() }()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalw("load tuning", "path", tp, "err", err)
		}
		logger.Infow("tuning not found, using defaults", "path", tp)
		tune = tuning.Defaults()
	}

	maps, err := tilemap.LoadDir(filepath.Join(*configDir, "maps"))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalw("load maps", "err", err)
		}
		maps = map[string]*tilemap.Map{}
	}
	if len(maps) == 0 {
		m := tilemap.GenerateDefault(*defaultMap)
		maps[m.ID] = m
		logger.Infow("no map files found, generated default", "map", m.ID)
	}

	z, err := zone.New(zone.Config{
		ID:         *zoneID,
		DefaultMap: *defaultMap,
		Tuning:     tune,
	}, dirProvider{maps: maps}, logger)
	if err != nil {
		logger.Fatalw("create zone", "err", err)
	}

	zoneDir := filepath.Join(*dataDir, "zones", *zoneID)
	tickLog := persistlog.NewTickLogger(zoneDir)
	defer func() { _ = tickLog.Close() }()
	auditLog := persistlog.NewAuditLogger(zoneDir)
	defer func() { _ = auditLog.Close() }()
	z.SetJournal(tickLog)
	z.SetAudit(auditLog)

	if !*disableDB {
		db, err := store.Open(filepath.Join(zoneDir, "zone.db"))
		if err != nil {
			logger.Fatalw("open store", "err", err)
		}
		defer func() { _ = db.Close() }()
		z.SetStore(db)
	}

	api.RegisterZoneMetrics(z)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go z.Run(ctx)

	wsServer := ws.NewServer(z, logger)
	router := api.NewRouter(api.RouterConfig{
		Zone:      z,
		WSHandler: wsServer.Handler(),
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		_ = srv.Shutdown(shutCtx)
	}()

	logger.Infow("server listening",
		"addr", *addr, "zone", *zoneID,
		"tick_rate_hz", tune.TickRateHz, "maps", len(maps))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalw("listen", "err", err)
	}
	logger.Infow("server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
