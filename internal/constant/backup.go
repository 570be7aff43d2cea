package constant

import "time"

const (
	// RestoreMutexName is the redis key of the restore lock.
	RestoreMutexName = "mutex:backup:restore"

	// ScheduledBackupCreator is the created_by of snapshots taken by the scheduler and the CLI.
	ScheduledBackupCreator = "system"

	// BackupTimestampLayout is formatted in UTC; ':' and '.' are then replaced by '-'.
	BackupTimestampLayout = "2006-01-02T15:04:05.000Z"

	DefaultPageSize    = 1000
	DefaultBatchSize   = 500
	DefaultMaxBackups  = 30
	BlobPutMaxAttempts = 3

	EventStreamName    = "CRM_BACKUP_EVENTS"
	EventSubjectPrefix = "BACKUP."

	RoleCacheCleanupInterval = 5 * time.Minute

	// StaleBackupAge is how long an in_progress backup is protected from deletion.
	// It exceeds the HTTP write timeout, the longest a snapshot request can run.
	StaleBackupAge = 2 * time.Hour
)
