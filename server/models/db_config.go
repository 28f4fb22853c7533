package models

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/Daskott/medibox/utils"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "medibox.db"

// OpenSQLStore opens (creating it if needed) the encrypted sqlite db in 'dbRootDir'/db
// and migrates the schema
func OpenSQLStore(passPhrase string, dbRootDir string) (*SQLStore, error) {
	dbFilePath, err := DbFilePath(dbRootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to set sqlite DSN: %v", err)
	}

	db, err := gorm.Open(sqliteEncrypt.Open(dbDSN(dbFilePath, passPhrase)), &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(&User{}, &Device{})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	return &SQLStore{db: db, path: dbFilePath}, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func dbDSN(dbFilePath string, passPhrase string) string {
	return fmt.Sprintf(
		"file:%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL",
		dbFilePath,
		passPhrase,
	)
}

func DbFilePath(dbRootDir string) (string, error) {
	dbDir, err := DbDirectory(dbRootDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dbDir, DB_NAME), nil
}

func DbDirectory(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}
