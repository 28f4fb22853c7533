package gstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const TRANSFER_TIMEOUT = 50 * time.Second

var ErrObjectNotExist = storage.ErrObjectNotExist

// GStorage copies the sqlite db to & from a google storage bucket.
// Objects are stored as '{prefix}/{file name}'.
type GStorage struct {
	storageClient *storage.Client
	bucket        string
	prefix        string
	logg          *zap.SugaredLogger
}

func NewGStorage(ctx context.Context, credentialsFilePath, bucket, prefix string, logg *zap.SugaredLogger) (*GStorage, error) {
	opts := []option.ClientOption{}
	if credentialsFilePath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFilePath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGStorage: %v", err)
	}

	return &GStorage{storageClient: client, bucket: bucket, prefix: prefix, logg: logg}, nil
}

func (gs *GStorage) ObjectName(filePath string) string {
	return path.Join(gs.prefix, filepath.Base(filePath))
}

// UploadFile uploads the file at 'filePath' to the bucket.
func (gs *GStorage) UploadFile(ctx context.Context, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("os.Open: %v", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, TRANSFER_TIMEOUT)
	defer cancel()

	object := gs.ObjectName(filePath)
	wc := gs.storageClient.Bucket(gs.bucket).Object(object).NewWriter(ctx)
	if _, err = io.Copy(wc, f); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %v", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %v", err)
	}

	gs.logg.Infof("Blob %v uploaded", object)
	return nil
}

// DownloadFile downloads the object for 'destFilePath' into it. ErrObjectNotExist
// is returned as is, so a first run can tell there's nothing to restore.
func (gs *GStorage) DownloadFile(ctx context.Context, destFilePath string) error {
	ctx, cancel := context.WithTimeout(ctx, TRANSFER_TIMEOUT)
	defer cancel()

	object := gs.ObjectName(destFilePath)
	rc, err := gs.storageClient.Bucket(gs.bucket).Object(object).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return err
	}
	if err != nil {
		return fmt.Errorf("Object(%q).NewReader: %v", object, err)
	}
	defer rc.Close()

	f, err := os.OpenFile(destFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("os.OpenFile: %v", err)
	}

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("io.Copy: %v", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("f.Close: %v", err)
	}

	gs.logg.Infof("Blob %v downloaded to local file %v", object, destFilePath)
	return nil
}

func (gs *GStorage) Close() error {
	return gs.storageClient.Close()
}
