package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/faeln1/second-brain/internal/app/controllers"
	"github.com/faeln1/second-brain/internal/app/repositories"
	"github.com/faeln1/second-brain/internal/app/scheduler"
	"github.com/faeln1/second-brain/internal/app/services"
	"github.com/faeln1/second-brain/internal/app/summarizer"
	"github.com/faeln1/second-brain/internal/config"
	"github.com/faeln1/second-brain/internal/platform/database"
	httpPlatform "github.com/faeln1/second-brain/internal/platform/http"
	"github.com/faeln1/second-brain/internal/platform/logging"
	"github.com/faeln1/second-brain/internal/platform/metrics"
	"github.com/faeln1/second-brain/internal/platform/realtime"
	"github.com/faeln1/second-brain/internal/platform/waha"
	"github.com/faeln1/second-brain/internal/platform/whatsapp"
	"github.com/faeln1/second-brain/pkg/eventlog"
	"github.com/faeln1/second-brain/pkg/logger"
	minioStorage "github.com/faeln1/second-brain/pkg/storage/minio"
	"github.com/faeln1/second-brain/pkg/timewindow"
	"github.com/joho/godotenv"
	waLog "go.mau.fi/whatsmeow/util/log"
)

type stores struct {
	messages repositories.MessageRepository
	archive  repositories.SummaryRepository
	close    func() error
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.MustLoad()
	loggers := logger.New(cfg.LogLevel)
	loggers.App.Infof("configuration: env=%s driver=%s timezone=%s", cfg.Env, cfg.DBDriver, cfg.DefaultTimezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg, loggers.DB)
	if err != nil {
		log.Fatalf("database initialization error: %v", err)
	}
	if st.close != nil {
		defer func() {
			if err := st.close(); err != nil {
				loggers.DB.Errorf("error closing database: %v", err)
			}
		}()
	}

	m := metrics.MustNew(nil)
	windows := timewindow.NewResolver()
	hub := realtime.NewHub(cfg.AllowedOrigins, loggers.App.Sub("Realtime"))

	// group directories, WAHA first
	waMgr := whatsapp.NewManager(loggers.WhatsApp)
	defer waMgr.Close()
	var directories []services.GroupDirectory
	wahaClient, err := waha.New(waha.Config{
		BaseURL:  cfg.WAHA.URL,
		APIKey:   cfg.WAHA.APIKey,
		Session:  cfg.WAHA.Session,
		CacheTTL: cfg.WAHA.GroupsTTL,
		Timeout:  cfg.WAHA.Timeout,
	}, nil, loggers.App.Sub("WAHA"))
	switch {
	case err == nil:
		directories = append(directories, wahaClient)
	case errors.Is(err, waha.ErrNotConfigured):
		loggers.App.Infof("WAHA_URL not set, WAHA directory disabled")
	default:
		log.Fatalf("waha initialization error: %v", err)
	}
	directories = append(directories, whatsapp.NewDirectory(waMgr, loggers.WhatsApp.Sub("Directory")))

	resolver := services.NewGroupResolver(st.messages, loggers.Pipeline.Sub("Groups"), directories...).WithMetrics(m)
	cascade := services.NewMessageCascade(st.messages, windows, loggers.Pipeline.Sub("Cascade")).WithMetrics(m)

	engine, err := summarizer.New(ctx, summarizer.ConfigFromCredentials(summarizer.Credentials{
		OpenAIKey:     cfg.Summarizer.OpenAIKey,
		OpenAIBaseURL: cfg.Summarizer.OpenAIBaseURL,
		OpenAIModel:   cfg.Summarizer.OpenAIModel,
		GeminiKey:     cfg.Summarizer.GeminiKey,
		GeminiModel:   cfg.Summarizer.GeminiModel,
	}, cfg.Summarizer.Provider), loggers.Pipeline.Sub("Engine"))
	if err != nil {
		log.Fatalf("summary engine initialization error: %v", err)
	}

	summaries := services.NewSummaryService(engine, loggers.Pipeline.Sub("Engine"))
	notifier := buildNotifiers(ctx, cfg, hub, loggers)
	pipeline := services.NewGroupSummaryService(services.GroupSummaryDeps{
		Groups:          resolver,
		Messages:        cascade,
		Summaries:       summaries,
		Archive:         st.archive,
		Notifier:        notifier,
		Metrics:         m,
		Windows:         windows,
		Log:             loggers.Pipeline,
		DefaultTimezone: cfg.DefaultTimezone,
		CacheSize:       cfg.CacheSize,
	})

	events := eventlog.NewWriter(cfg.EventLogDir, loggers.Ingest.Sub("EventLog"))
	ingestor := services.NewMessageIngestor(st.messages, resolver, events, loggers.Ingest).WithMetrics(m)

	if !cfg.WhatsApp.SkipConnect {
		storeFactory := whatsapp.NewStoreFactory(cfg.WhatsApp.StoreDir, loggers.WhatsApp.Sub("Store"))
		bootstrap := services.NewSessionBootstrap(storeFactory, waMgr, loggers.WhatsApp.Sub("Bootstrap"), ingestor)
		bootstrap.QROut = os.Stdout
		known, err := storeFactory.Known()
		if err != nil {
			loggers.WhatsApp.Warnf("restore sessions: %v", err)
		}
		for _, name := range sessionNames(cfg.WhatsApp.Sessions, known) {
			go startSession(ctx, bootstrap, name, loggers.WhatsApp.Sub(name))
		}
	}

	digest, err := scheduler.New(scheduler.Config{
		Cron:        cfg.Digest.Cron,
		Timezone:    cfg.Digest.Timezone,
		Groups:      cfg.Digest.Groups,
		Concurrency: cfg.Digest.Concurrency,
		Timeout:     cfg.Digest.Timeout,
	}, pipeline, windows, loggers.Scheduler)
	if err != nil {
		log.Fatalf("digest scheduler initialization error: %v", err)
	}
	if err := digest.Start(); err != nil {
		log.Fatalf("digest scheduler start error: %v", err)
	}
	defer func() {
		if err := digest.Stop(); err != nil {
			loggers.Scheduler.Warnf("stop digest scheduler: %v", err)
		}
	}()

	router := httpPlatform.NewRouter(httpPlatform.RouterConfig{
		SummaryCtrl:    controllers.NewSummaryController(pipeline),
		GroupCtrl:      controllers.NewGroupController(services.NewGroupService(loggers.Pipeline.Sub("Directory"), directories...)),
		WebhookCtrl:    controllers.NewWebhookController(ingestor, cfg.WAHA.WebhookToken),
		SessionCtrl:    controllers.NewSessionController(waMgr),
		Realtime:       hub,
		Metrics:        m.Handler(),
		Logger:         loggers.HTTP,
		WAManager:      waMgr,
		Engine:         summaries.EngineName(),
		SwaggerEnable:  cfg.SwaggerEnable,
		DocsPath:       cfg.DocsPath,
		MasterToken:    cfg.MasterToken,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if cfg.MasterToken == "" {
		loggers.HTTP.Warnf("API_MASTER_TOKEN is empty, API endpoints are unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		loggers.HTTP.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	loggers.App.Infof("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggers.HTTP.Warnf("http shutdown: %v", err)
	}
}

func openStores(cfg *config.AppConfig, log waLog.Logger) (stores, error) {
	switch cfg.DBDriver {
	case "postgres":
		log.Infof("initializing postgres repositories")
		db, err := database.Open(cfg.DatabaseDSN, logging.Gorm(log.Sub("Gorm")))
		if err != nil {
			return stores{}, err
		}
		gormSQL, err := db.DB()
		if err != nil {
			return stores{}, err
		}
		messages, err := repositories.NewGormMessageRepo(db)
		if err != nil {
			gormSQL.Close()
			return stores{}, err
		}
		sqlDB, err := database.OpenSQL(cfg.DatabaseDSN)
		if err != nil {
			gormSQL.Close()
			return stores{}, err
		}
		archive, err := repositories.NewPostgresSummaryRepo(sqlDB)
		if err != nil {
			sqlDB.Close()
			gormSQL.Close()
			return stores{}, err
		}
		return stores{messages: messages, archive: archive, close: func() error {
			return errors.Join(sqlDB.Close(), gormSQL.Close())
		}}, nil
	case "sqlite":
		log.Infof("initializing sqlite repositories")
		db, err := database.OpenSQLite(cfg.DatabaseDSN)
		if err != nil {
			return stores{}, err
		}
		return stores{
			messages: repositories.NewSQLiteMessageRepo(db),
			archive:  repositories.NewSQLiteSummaryRepo(db),
			close:    db.Close,
		}, nil
	default:
		log.Infof("initializing in-memory repositories")
		return stores{
			messages: repositories.NewInMemoryMessageRepo(),
			archive:  repositories.NewInMemorySummaryRepo(),
		}, nil
	}
}

func buildNotifiers(ctx context.Context, cfg *config.AppConfig, hub *realtime.Hub, loggers *logger.Logger) *services.NotifierChain {
	log := loggers.Pipeline.Sub("Notify")
	var notifiers []services.SummaryNotifier
	if cfg.Notify.Realtime {
		notifiers = append(notifiers, services.NewBroadcastNotifier(hub))
	}
	notifiers = append(notifiers, services.NewWebhookNotifier(services.WebhookConfig{
		URL:     cfg.Notify.WebhookURL,
		Headers: cfg.Notify.WebhookHeaders,
	}, nil, log.Sub("Webhook")))

	if cfg.Storage.Enabled() {
		store, err := minioStorage.New(ctx, minioStorage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			log.Errorf("object storage disabled: %v", err)
		} else {
			log.Infof("summary export enabled bucket=%s endpoint=%s", cfg.Storage.Bucket, cfg.Storage.Endpoint)
			notifiers = append(notifiers, services.NewStorageExporter(store, cfg.Storage.Prefix, log.Sub("Export")))
		}
	}
	return services.NewNotifierChain(log, notifiers...)
}

func startSession(ctx context.Context, bootstrap *services.SessionBootstrap, name string, log waLog.Logger) {
	logged, err := bootstrap.Start(ctx, name)
	if err != nil {
		log.Errorf("failed to start session: %v", err)
		return
	}
	if logged {
		log.Infof("session restored")
		return
	}
	log.Infof("waiting for QR pairing, see GET /sessions/%s/qr", name)
}

// sessionNames merges the configured sessions with the ones already paired
// on disk.
func sessionNames(configured, known []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, name := range append(slices.Clone(configured), known...) {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
