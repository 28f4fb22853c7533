package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Daskott/medibox/server/dispatch"
	"github.com/Daskott/medibox/server/firebase"
	"github.com/Daskott/medibox/server/gstorage"
	"github.com/Daskott/medibox/server/logger"
	"github.com/Daskott/medibox/server/models"
	"github.com/Daskott/medibox/server/push"
	"github.com/Daskott/medibox/server/sms"
	"github.com/Daskott/medibox/server/work"
	"github.com/Daskott/medibox/shared"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DeviceStore is what the server needs from a backing store
type DeviceStore interface {
	dispatch.Store
	dispatch.DeviceLister
}

// App holds the wired components of a running medibox server
type App struct {
	config     shared.ServerConfig
	devMode    bool
	store      DeviceStore
	sqlStore   *models.SQLStore
	storage    *gstorage.GStorage
	dispatcher *dispatch.Dispatcher
	workerPool *work.WorkerPoolAdapter
	validate   *validator.Validate
	logg       *zap.SugaredLogger
}

// Start builds the app from 'config', starts the change watch & http listener
// and blocks until SIGINT/SIGTERM
func Start(config shared.ServerConfig, devMode bool) {
	logg := logger.NewLogger(devMode)
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := Build(ctx, config, devMode, logg)
	if err != nil {
		logg.Fatal(err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%v", app.config.Medibox.Listener.Port),
		Handler: app.Router(),
	}

	app.workerPool.Start(ctx)
	go serve(logg, server)

	<-ctx.Done()
	app.cleanup(server)
}

// Build validates the config & wires the store, delivery channels, dispatcher & jobs
func Build(ctx context.Context, config shared.ServerConfig, devMode bool, logg *zap.SugaredLogger) (*App, error) {
	validate := validator.New()
	config.ApplyDefaults()
	if err := config.Validate(validate); err != nil {
		return nil, err
	}

	app := &App{
		config:   config,
		devMode:  devMode,
		validate: validate,
		logg:     logg,
	}

	var pushSender dispatch.PushSender
	switch config.Store.Driver {
	case shared.FIREBASE_STORE:
		fbApp, err := firebase.NewApp(ctx, config.Firebase)
		if err != nil {
			return nil, err
		}

		app.store, err = firebase.NewRealtimeStore(ctx, fbApp, logg.Named("firebase"))
		if err != nil {
			return nil, err
		}

		if !devMode {
			client, err := firebase.NewMessagingClient(ctx, fbApp)
			if err != nil {
				return nil, err
			}
			pushSender = push.NewFCMSender(client, logg.Named("push"))
		}
	case shared.SQLITE_STORE:
		if err := app.openSqliteStore(ctx); err != nil {
			return nil, err
		}
		app.store = app.sqlStore

		if !devMode && config.Firebase.CredentialsFile != "" {
			fbApp, err := firebase.NewApp(ctx, config.Firebase)
			if err != nil {
				return nil, err
			}

			client, err := firebase.NewMessagingClient(ctx, fbApp)
			if err != nil {
				return nil, err
			}
			pushSender = push.NewFCMSender(client, logg.Named("push"))
		}
	}

	if pushSender == nil {
		logg.Warn("Push notifications are only logged, no firebase messaging client configured")
		pushSender = push.NewNoopSender(logg.Named("push"))
	}

	smsSender, err := sms.NewSender(config, devMode, logg.Named("sms"))
	if err != nil {
		return nil, err
	}

	app.dispatcher = dispatch.NewDispatcher(app.store, pushSender, smsSender, logg.Named("dispatch"))
	app.workerPool = work.NewWorkerAdapter(config.Medibox.Cron.TimeZone, config.Medibox.Watch.Workers, logg.Named("work"))

	if config.Medibox.Watch.Enabled {
		watcher := dispatch.NewWatcher(app.store, app.dispatcher, app.workerPool, logg)
		err := watcher.Register(config.Medibox.Watch.Interval, config.Medibox.Watch.SweepCron)
		if err != nil {
			return nil, err
		}
	}

	if app.storage != nil {
		if err := app.registerBackupJob(); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Close releases the store & storage clients of an app that was built but never started
func (app *App) Close() error {
	if app.storage != nil {
		app.storage.Close()
	}
	if app.sqlStore != nil {
		return app.sqlStore.Close()
	}
	return nil
}

func (app *App) Dispatcher() *dispatch.Dispatcher {
	return app.dispatcher
}

func (app *App) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(app.logg))

	router.HandleFunc("/healthz", app.healthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Handle("/sendNotification", corsMiddleware(http.HandlerFunc(app.sendNotification)))

	return router
}

// openSqliteStore opens the encrypted db, restoring it from google storage first
// when backups are enabled & there's no local copy yet
func (app *App) openSqliteStore(ctx context.Context) error {
	rootDir := app.config.Sqlite.Dir
	if rootDir == "" {
		var err error
		rootDir, err = configDirectory(app.devMode)
		if err != nil {
			return err
		}
	}

	storageConfig := app.config.Google.Storage
	if storageConfig.BackupEnabled() {
		var err error
		app.storage, err = gstorage.NewGStorage(ctx,
			app.config.Google.ApplicationCredentials, storageConfig.Bucket, storageConfig.Prefix, app.logg.Named("gstorage"))
		if err != nil {
			return err
		}

		dbFilePath, err := models.DbFilePath(rootDir)
		if err != nil {
			return err
		}

		if err := restoreSqliteDb(ctx, app.storage, dbFilePath, app.logg); err != nil {
			return err
		}
	}

	store, err := models.OpenSQLStore(app.config.Sqlite.PassPhrase, rootDir)
	if err != nil {
		return err
	}

	app.logg.Infof("Using sqlite store at %v", filepath.Dir(store.Path()))
	app.sqlStore = store
	return nil
}
