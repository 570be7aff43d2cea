package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// s3DeleteBatchSize is the DeleteObjects per-request key limit.
const s3DeleteBatchSize = 1000

type S3Config struct {
	Bucket string

	// Prefix is for the keys in the bucket with no leading slash but optionally (typically) with trailing slash
	// e.g. "v1/" or simply "" (empty string)
	Prefix string

	// Endpoint overrides the AWS endpoint for S3 compatible services. Path style addressing is used when set.
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

type S3 struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

func NewS3(ctx context.Context, conf S3Config) (*S3, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(conf.Region),
	}
	if conf.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.AccessKey, conf.SecretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load aws config")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{
		Client: client,
		Bucket: conf.Bucket,
		Prefix: conf.Prefix,
	}, nil
}

func (s *S3) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if _, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(s.Bucket),
		Key:               aws.String(s.Prefix + key),
		Body:              bytes.NewReader(data),
		ContentType:       aws.String(contentType),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	}); err != nil {
		return errors.Wrap(err, "failed to invoke PutObject")
	}
	return nil
}

func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, errors.Wrapf(ErrNotFound, "s3 object %q", s.Prefix+key)
		}
		return nil, errors.Wrap(err, "failed to invoke GetObject")
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read object body")
	}
	return b, nil
}

func (s *S3) Remove(ctx context.Context, keys []string) error {
	for _, chunk := range lo.Chunk(keys, s3DeleteBatchSize) {
		objects := lo.Map(chunk, func(k string, _ int) types.ObjectIdentifier {
			return types.ObjectIdentifier{Key: aws.String(s.Prefix + k)}
		})
		out, err := s.Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.Bucket),
			Delete: &types.Delete{Objects: objects},
		})
		if err != nil {
			return errors.Wrap(err, "failed to invoke DeleteObjects")
		}
		if len(out.Errors) > 0 {
			msgs := lo.Map(out.Errors, func(e types.Error, _ int) string {
				return fmt.Sprintf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
			})
			return errors.Errorf("failed to delete %d objects: %s", len(out.Errors), strings.Join(msgs, "; "))
		}
	}
	return nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode() == "NotFound" || ae.ErrorCode() == "NoSuchKey"
	}
	return false
}
