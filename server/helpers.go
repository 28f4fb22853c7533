package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Daskott/medibox/utils"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func (app *App) writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		app.logg.Error(payLoad.Error)
	} else if statusCode >= http.StatusBadRequest {
		app.logg.Info(payLoad.Error)
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(logg *zap.SugaredLogger, server *http.Server) {
	logg.Infof("Medibox server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Fatal(err)
	}
}

func (app *App) cleanup(server *http.Server) {
	// Stop the watch & queued dispatches before the store goes away
	app.workerPool.Stop()

	if app.storage != nil {
		if err := backupSqliteDb(context.Background(), app.storage, app.sqlStore, app.logg); err != nil {
			app.logg.Error(err)
		}
	}

	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		app.logg.Errorf("Medibox server shutdown failed:%+s", err)
	}

	if app.sqlStore != nil {
		if err := app.sqlStore.Close(); err != nil {
			app.logg.Error(err)
		}
	}
	if app.storage != nil {
		app.storage.Close()
	}

	app.logg.Infof("Medibox server stopped properly")
}

// configDirectory retrieves the directory to store medibox data,
// creating it if it doesn't exist
func configDirectory(devMode bool) (string, error) {
	// Use 'medibox' folder in home directory for prod
	configFolderName := "medibox"
	rootDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}

	configDir := filepath.Join(rootDir, configFolderName)
	if err = utils.CreateDirIfNotExist(configDir); err != nil {
		return "", err
	}

	return configDir, nil
}
