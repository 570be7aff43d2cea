package appconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSpec() ConfigSpec {
	return ConfigSpec{
		BlobDriver:              BlobDriverS3,
		SnapshotReadErrorPolicy: ReadErrorPolicyTruncate,
		SnapshotPageSize:        1000,
		RestoreBatchSize:        500,
		MaxBackups:              30,
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ConfigSpec)
		wantErr bool
	}{
		{"defaults", func(c *ConfigSpec) {}, false},
		{"abort policy", func(c *ConfigSpec) { c.SnapshotReadErrorPolicy = ReadErrorPolicyAbort }, false},
		{"unknown policy", func(c *ConfigSpec) { c.SnapshotReadErrorPolicy = "ignore" }, true},
		{"minio driver", func(c *ConfigSpec) { c.BlobDriver = BlobDriverMinio }, false},
		{"unknown driver", func(c *ConfigSpec) { c.BlobDriver = "gcs" }, true},
		{"zero page size", func(c *ConfigSpec) { c.SnapshotPageSize = 0 }, true},
		{"negative batch size", func(c *ConfigSpec) { c.RestoreBatchSize = -1 }, true},
		{"zero ceiling", func(c *ConfigSpec) { c.MaxBackups = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := validSpec()
			tc.mutate(&c)
			err := c.verify()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
