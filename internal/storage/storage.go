package storage

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/kgchat/internal/util"
	"github.com/OFFIS-RIT/kgchat/pkg/loader"
	loaderio "github.com/OFFIS-RIT/kgchat/pkg/loader/io"
	loaders3 "github.com/OFFIS-RIT/kgchat/pkg/loader/s3"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"

	defaultCSVDir = "./csv"
)

// NewFileStore builds the CSV library selected by CSV_STORAGE.
//
// "local" (the default) keeps files in CSV_DIR. "s3" needs AWS_REGION,
// AWS_ACCESS_KEY, AWS_SECRET_KEY and AWS_BUCKET; AWS_ENDPOINT and AWS_PREFIX
// are optional.
func NewFileStore(ctx context.Context) (loader.GraphFileStore, error) {
	backend := util.GetEnvString("CSV_STORAGE", BackendLocal)

	switch backend {
	case BackendLocal:
		dir := util.GetEnvString("CSV_DIR", defaultCSVDir)
		store, err := loaderio.NewDirGraphFileStore(dir)
		if err != nil {
			return nil, err
		}
		logger.Info("Using local csv storage", "dir", dir)
		return store, nil
	case BackendS3:
		if err := util.RequireEnv("AWS_REGION", "AWS_ACCESS_KEY", "AWS_SECRET_KEY", "AWS_BUCKET"); err != nil {
			return nil, fmt.Errorf("s3 csv storage: %w", err)
		}
		store, err := loaders3.NewS3GraphFileStore(ctx, loaders3.NewS3GraphFileStoreParams{
			Bucket:    util.GetEnv("AWS_BUCKET"),
			Prefix:    util.GetEnv("AWS_PREFIX"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			Region:    util.GetEnv("AWS_REGION"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Using s3 csv storage", "bucket", util.GetEnv("AWS_BUCKET"))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown CSV_STORAGE %q", backend)
	}
}
