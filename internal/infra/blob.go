package infra

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"exusiai.dev/crm-backup/internal/app/appconfig"
	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/pkg/blob"
)

func Blob(conf *appconfig.Config) (blob.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	var (
		store blob.Store
		err   error
	)
	switch conf.BlobDriver {
	case appconfig.BlobDriverS3:
		store, err = blob.NewS3(ctx, blob.S3Config{
			Bucket:    conf.BlobBucket,
			Prefix:    conf.BlobPrefix,
			Endpoint:  conf.BlobEndpoint,
			Region:    conf.BlobRegion,
			AccessKey: conf.BlobAccessKey,
			SecretKey: conf.BlobSecretKey,
		})
	case appconfig.BlobDriverMinio:
		store, err = blob.NewMinio(ctx, blob.MinioConfig{
			Endpoint:  conf.BlobEndpoint,
			AccessKey: conf.BlobAccessKey,
			SecretKey: conf.BlobSecretKey,
			UseSSL:    conf.BlobUseSSL,
			Bucket:    conf.BlobBucket,
			Prefix:    conf.BlobPrefix,
			Region:    conf.BlobRegion,
		})
	case appconfig.BlobDriverMemory:
		log.Warn().Msg("infra: blob: using in-memory blob store, backups will not survive a restart")
		store = blob.NewMemory()
	default:
		return nil, errors.Errorf("unknown blob driver %q", conf.BlobDriver)
	}
	if err != nil {
		log.Error().Err(err).Str("driver", conf.BlobDriver).Msg("infra: blob: failed to initialize blob store")
		return nil, err
	}

	return blob.NewRetrying(store, constant.BlobPutMaxAttempts), nil
}
