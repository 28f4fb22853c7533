package utils

import (
	"os"
	"path/filepath"
)

func FileExist(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func CreateDirIfNotExist(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return err
		}
	}

	return nil
}

// WriteFileIfNotExist creates 'filePath' with 'content', leaving an existing file untouched
func WriteFileIfNotExist(filePath string, content []byte) error {
	exist, err := FileExist(filePath)
	if err != nil || exist {
		return err
	}

	err = CreateDirIfNotExist(filepath.Dir(filePath))
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, content, 0600)
}

// MaskToken returns the first 'visible' characters of a secret followed by "..."
func MaskToken(token string, visible int) string {
	if len(token) <= visible {
		return token + "..."
	}
	return token[:visible] + "..."
}
