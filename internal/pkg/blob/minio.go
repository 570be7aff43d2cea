package blob

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
	Region    string
}

type Minio struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

// NewMinio connects to the endpoint and creates the bucket when it does not exist yet.
func NewMinio(ctx context.Context, conf MinioConfig) (*Minio, error) {
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseSSL,
		Region: conf.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create minio client")
	}

	exists, err := client.BucketExists(ctx, conf.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check bucket %q", conf.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, conf.Bucket, minio.MakeBucketOptions{Region: conf.Region}); err != nil {
			return nil, errors.Wrapf(err, "failed to create bucket %q", conf.Bucket)
		}
		log.Info().
			Str("evt.name", "blob.bucket_created").
			Str("bucket", conf.Bucket).
			Msg("created minio bucket")
	}

	return &Minio{
		Client: client,
		Bucket: conf.Bucket,
		Prefix: conf.Prefix,
	}, nil
}

func (m *Minio) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := m.Client.PutObject(ctx, m.Bucket, m.Prefix+key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrap(err, "failed to put object")
	}
	return nil
}

func (m *Minio) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.Client.GetObject(ctx, m.Bucket, m.Prefix+key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.wrapGetErr(err, key)
	}
	defer obj.Close()

	// GetObject is lazy, errors such as NoSuchKey surface on the first read
	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, m.wrapGetErr(err, key)
	}
	return b, nil
}

func (m *Minio) wrapGetErr(err error, key string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errors.Wrapf(ErrNotFound, "minio object %q", m.Prefix+key)
	}
	return errors.Wrap(err, "failed to get object")
}

func (m *Minio) Remove(ctx context.Context, keys []string) error {
	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, k := range keys {
			select {
			case objectsCh <- minio.ObjectInfo{Key: m.Prefix + k}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var firstErr error
	failed := 0
	for rerr := range m.Client.RemoveObjects(ctx, m.Bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if minio.ToErrorResponse(rerr.Err).Code == "NoSuchKey" {
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = errors.Wrapf(rerr.Err, "failed to remove %q", rerr.ObjectName)
		}
	}
	if firstErr != nil {
		return errors.Wrapf(firstErr, "%d objects not removed", failed)
	}
	return ctx.Err()
}
