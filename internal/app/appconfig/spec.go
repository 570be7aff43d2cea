package appconfig

import (
	"time"

	"exusiai.dev/crm-backup/internal/app/appcontext"
)

type ConfigSpec struct {
	// ServiceAddress is the listen address would listen on for serving normal service requests.
	ServiceAddress string `required:"true" split_words:"true" default:"localhost:9010"`

	// LogJsonStdout is whether to log JSON logs (instead of pretty-print logs) to stdout for the ease of log collection.
	LogJsonStdout bool `split_words:"true" default:"false"`

	// LogFile is the path of the rotated log file. Leaving this empty disables file logging.
	LogFile string `split_words:"true" default:"logs/app.log"`

	// TrustedProxies is a list of trusted proxies that are trusted to report a real IP via the X-Forwarded-For header.
	TrustedProxies []string `required:"true" split_words:"true" default:"::1,127.0.0.1,10.0.0.0/8"`

	// DevMode to indicate development mode. When true, the program would spin up utilities for debugging and
	// provide a more contextual message when encountered a panic.
	DevMode bool `split_words:"true"`

	// TracingEnabled to indicate whether to enable OpenTelemetry tracing.
	TracingEnabled bool `split_words:"true"`

	// TracingExporters to indicate which exporters to use for tracing.
	// Valid values are: otlp, stdout (for debug).
	TracingExporters []string `split_words:"true" default:"otlp"`

	// TracingSampleRate to indicate the sampling rate for tracing.
	TracingSampleRate float64 `split_words:"true" default:"1.0"`

	// infrastructure components connection instructions

	// PostgresDSN is the data source name for the PostgreSQL database holding both the CRM tables
	// and the backups control table. See https://bun.uptrace.dev/postgres/#pgdriver for more details.
	PostgresDSN string `required:"true" split_words:"true"`

	PostgresMaxOpenConns    int           `split_words:"true" default:"10"`
	PostgresMaxIdleConns    int           `split_words:"true" default:"2"`
	PostgresConnMaxLifeTime time.Duration `split_words:"true" default:"5m"`
	PostgresConnMaxIdleTime time.Duration `split_words:"true" default:"5m"`

	BunDebugVerbose bool `split_words:"true"`

	// RedisURL is the URL of the Redis server used for the restore advisory lock.
	// See https://pkg.go.dev/github.com/redis/go-redis/v9#ParseURL for more information.
	RedisURL string `required:"true" split_words:"true" default:"redis://127.0.0.1:6379/1"`

	// NatsURL is the URL of the NATS server. Only used when EventsEnabled is true.
	NatsURL string `split_words:"true" default:"nats://127.0.0.1:4222"`

	// EventsEnabled to indicate whether to publish backup lifecycle events to NATS JetStream.
	EventsEnabled bool `split_words:"true" default:"false"`

	// SentryDSN is the DSN of the Sentry server. See https://pkg.go.dev/github.com/getsentry/sentry-go#ClientOptions
	SentryDSN string `split_words:"true"`

	// blob storage

	// BlobDriver selects the blob store implementation. Valid values are: s3, minio, memory.
	// memory keeps blobs in process and is intended for local development only.
	BlobDriver string `required:"true" split_words:"true" default:"s3"`

	// BlobBucket is the bucket holding backup payloads.
	BlobBucket string `split_words:"true" default:"crm-backups"`

	// BlobPrefix is prepended to every object key, with no leading slash but optionally (typically)
	// with a trailing slash, e.g. "v1/" or simply "" (empty string).
	BlobPrefix string `split_words:"true" default:"v1/"`

	// BlobEndpoint overrides the S3 endpoint, or is the host:port of the MinIO server.
	BlobEndpoint string `split_words:"true"`

	// BlobRegion is the region of the bucket.
	BlobRegion string `split_words:"true" default:"us-east-1"`

	BlobAccessKey string `split_words:"true"`
	BlobSecretKey string `split_words:"true"`

	// BlobUseSSL is only consulted by the minio driver.
	BlobUseSSL bool `split_words:"true" default:"true"`

	// snapshot behavior

	// SnapshotPageSize is the maximum number of rows requested from the row store in a single page.
	SnapshotPageSize int `split_words:"true" default:"1000"`

	// SnapshotReadErrorPolicy decides what happens when a page read fails mid-table.
	// truncate: log and keep the rows read so far for that table; abort: fail the whole snapshot.
	SnapshotReadErrorPolicy string `split_words:"true" default:"truncate"`

	// MaxBackups is the maximum number of completed backups kept before the oldest are pruned.
	MaxBackups int `split_words:"true" default:"30"`

	// RestoreBatchSize is the number of rows upserted per row store call during restore.
	RestoreBatchSize int `split_words:"true" default:"500"`

	// RestoreAtomic wraps the clear and repopulate phases of a restore in a single database
	// transaction. Any table failure then rolls back the whole restore instead of continuing.
	RestoreAtomic bool `split_words:"true" default:"false"`

	// RestoreLockExpiry is the expiry of the restore advisory lock.
	RestoreLockExpiry time.Duration `split_words:"true" default:"30m"`

	// SchedulerEnabled enables the scheduled full backup worker.
	SchedulerEnabled bool `split_words:"true" default:"false"`

	// SchedulerInterval is the interval in-between scheduled backups.
	SchedulerInterval time.Duration `split_words:"true" default:"24h"`

	// auth

	// JWTSecret is the HMAC secret used to verify caller tokens.
	JWTSecret string `required:"true" split_words:"true"`

	// RoleCacheTTL is how long an administrator role lookup is cached.
	RoleCacheTTL time.Duration `split_words:"true" default:"30s"`

	// HTTPServerShutdownTimeout is the timeout for the HTTP server to shut down gracefully.
	HTTPServerShutdownTimeout time.Duration `required:"true" split_words:"true" default:"60s"`
}

type Config struct {
	// ConfigSpec is the configuration specification injected to the config.
	ConfigSpec

	// AppContext is the application context
	AppContext appcontext.Ctx
}
