package model

import (
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/guregu/null.v3"
)

type BackupType string

const (
	BackupTypeManual     BackupType = "manual"
	BackupTypeScheduled  BackupType = "scheduled"
	BackupTypeModule     BackupType = "module"
	BackupTypePreRestore BackupType = "pre_restore"
)

type BackupStatus string

const (
	BackupStatusInProgress BackupStatus = "in_progress"
	BackupStatusCompleted  BackupStatus = "completed"
	BackupStatusFailed     BackupStatus = "failed"
)

// Manifest maps a table name to the number of rows captured for it.
type Manifest map[string]int

// Records returns the total row count over all tables.
func (m Manifest) Records() int {
	total := 0
	for _, c := range m {
		total += c
	}
	return total
}

// Backup is the control-table record describing one snapshot.
// CreatedAt and CreatedBy are never updated after insertion.
type Backup struct {
	bun.BaseModel `bun:"backups,alias:b"`

	ID           string       `bun:",pk" json:"id"`
	FileName     string       `bun:"file_name,notnull" json:"fileName"`
	FilePath     string       `bun:"file_path,notnull" json:"filePath"`
	SizeBytes    int64        `bun:"size_bytes,notnull" json:"sizeBytes"`
	TablesCount  int          `bun:"tables_count,notnull" json:"tablesCount"`
	RecordsCount int          `bun:"records_count,notnull" json:"recordsCount"`
	BackupType   BackupType   `bun:"backup_type,notnull" json:"backupType"`
	ModuleName   null.String  `bun:"module_name" json:"moduleName"`
	Status       BackupStatus `bun:"status,notnull" json:"status"`
	Manifest     Manifest     `bun:"manifest,type:jsonb" json:"manifest"`
	// Checksum is the hex xxh3-64 digest of the uploaded payload.
	Checksum null.String `bun:"checksum" json:"checksum"`
	// Warning records non-fatal problems, e.g. tables truncated by read errors.
	Warning      null.String `bun:"warning" json:"warning,omitempty"`
	ErrorMessage null.String `bun:"error_message" json:"errorMessage,omitempty"`
	CreatedAt    time.Time   `bun:"created_at,notnull" json:"createdAt"`
	CreatedBy    string      `bun:"created_by,notnull" json:"createdBy"`
	CompletedAt  null.Time   `bun:"completed_at" json:"completedAt"`
}

func (b *Backup) Completed() bool {
	return b.Status == BackupStatusCompleted
}
