package service

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/model"
)

const (
	EventBackupCompleted  = "backup.completed"
	EventBackupFailed     = "backup.failed"
	EventBackupPruned     = "backup.pruned"
	EventRestoreCompleted = "restore.completed"
)

// EventPublisher publishes lifecycle events. Publishing never fails the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any)
}

type BackupEvent struct {
	BackupID     string           `json:"backupId"`
	FileName     string           `json:"fileName"`
	BackupType   model.BackupType `json:"backupType"`
	ModuleName   string           `json:"moduleName,omitempty"`
	CreatedBy    string           `json:"createdBy"`
	TablesCount  int              `json:"tablesCount"`
	RecordsCount int              `json:"recordsCount"`
	SizeBytes    int64            `json:"sizeBytes"`
	Error        string           `json:"error,omitempty"`
}

func NewBackupEvent(b *model.Backup) BackupEvent {
	return BackupEvent{
		BackupID:     b.ID,
		FileName:     b.FileName,
		BackupType:   b.BackupType,
		ModuleName:   b.ModuleName.String,
		CreatedBy:    b.CreatedBy,
		TablesCount:  b.TablesCount,
		RecordsCount: b.RecordsCount,
		SizeBytes:    b.SizeBytes,
		Error:        b.ErrorMessage.String,
	}
}

type PrunedEvent struct {
	BackupIDs []string `json:"backupIds"`
}

type RestoreEvent struct {
	BackupID        string   `json:"backupId"`
	SafetyBackupID  string   `json:"safetyBackupId"`
	RestoredTables  []string `json:"restoredTables"`
	RestoredRecords int      `json:"restoredRecords"`
	FailedTables    []string `json:"failedTables,omitempty"`
}

type envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Events publishes to JetStream subjects BACKUP.<event>.
type Events struct {
	js nats.JetStreamContext
}

// NewEvents returns a no-op publisher when js is nil, i.e. events are disabled.
func NewEvents(js nats.JetStreamContext) EventPublisher {
	if js == nil {
		return NopEvents{}
	}
	return &Events{js: js}
}

func (e *Events) Publish(ctx context.Context, event string, payload any) {
	b, err := json.Marshal(envelope{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      payload,
	})
	if err != nil {
		log.Warn().Str("evt.name", "events.marshal").Str("event", event).Err(err).Msg("failed to marshal event")
		return
	}

	if _, err := e.js.Publish(constant.EventSubjectPrefix+event, b, nats.Context(ctx)); err != nil {
		log.Warn().
			Str("evt.name", "events.publish").
			Str("event", event).
			Err(err).
			Msg("failed to publish event")
	}
}

type NopEvents struct{}

func (NopEvents) Publish(context.Context, string, any) {}
