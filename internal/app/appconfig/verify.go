package appconfig

import (
	"fmt"

	"github.com/samber/lo"
)

const (
	ReadErrorPolicyTruncate = "truncate"
	ReadErrorPolicyAbort    = "abort"

	BlobDriverS3     = "s3"
	BlobDriverMinio  = "minio"
	BlobDriverMemory = "memory"
)

func (c *ConfigSpec) verify() error {
	if !lo.Contains([]string{ReadErrorPolicyTruncate, ReadErrorPolicyAbort}, c.SnapshotReadErrorPolicy) {
		return fmt.Errorf("invalid snapshot read error policy %q: expect one of truncate, abort", c.SnapshotReadErrorPolicy)
	}
	if !lo.Contains([]string{BlobDriverS3, BlobDriverMinio, BlobDriverMemory}, c.BlobDriver) {
		return fmt.Errorf("invalid blob driver %q: expect one of s3, minio, memory", c.BlobDriver)
	}
	if c.SnapshotPageSize <= 0 {
		return fmt.Errorf("snapshot page size must be positive, got %d", c.SnapshotPageSize)
	}
	if c.RestoreBatchSize <= 0 {
		return fmt.Errorf("restore batch size must be positive, got %d", c.RestoreBatchSize)
	}
	if c.MaxBackups <= 0 {
		return fmt.Errorf("max backups must be positive, got %d", c.MaxBackups)
	}
	return nil
}
