package server

import (
	"context"
	"errors"

	"github.com/Daskott/medibox/server/gstorage"
	"github.com/Daskott/medibox/server/models"
	"github.com/Daskott/medibox/server/work"
	"github.com/Daskott/medibox/utils"
	"go.uber.org/zap"
)

const BACKUP_SQLITE_DB_JOB = "backupSqliteDb"

func (app *App) registerBackupJob() error {
	err := app.workerPool.Register(BACKUP_SQLITE_DB_JOB, func(ctx context.Context, _ map[string]interface{}) error {
		return backupSqliteDb(ctx, app.storage, app.sqlStore, app.logg)
	})
	if err != nil {
		return err
	}

	return app.workerPool.PeriodicallyPerform(app.config.Google.Storage.SqliteBackupSchedule, work.JobParams{
		Name:    BACKUP_SQLITE_DB_JOB,
		Handler: BACKUP_SQLITE_DB_JOB,
		Unique:  true,
		Args:    map[string]interface{}{},
	})
}

func backupSqliteDb(ctx context.Context, storage *gstorage.GStorage, store *models.SQLStore, logg *zap.SugaredLogger) error {
	if err := store.Checkpoint(ctx); err != nil {
		return err
	}

	logg.Info("Backing up sqlite db to google storage")
	return storage.UploadFile(ctx, store.Path())
}

// restoreSqliteDb pulls the last backup when there's no local db, e.g. on a new host
func restoreSqliteDb(ctx context.Context, storage *gstorage.GStorage, dbFilePath string, logg *zap.SugaredLogger) error {
	exists, err := utils.FileExist(dbFilePath)
	if err != nil || exists {
		return err
	}

	err = storage.DownloadFile(ctx, dbFilePath)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		logg.Info("No sqlite db backup found in google storage, starting with an empty db")
		return nil
	}

	return err
}
