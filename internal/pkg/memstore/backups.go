package memstore

import (
	"context"
	"sort"
	"sync"

	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/apierr"
	"exusiai.dev/crm-backup/internal/store"
)

// Backups is an in-memory store.BackupStore.
type Backups struct {
	mu      sync.Mutex
	records map[string]*model.Backup

	CreateErr error
	UpdateErr error
	DeleteErr error
}

var _ store.BackupStore = (*Backups)(nil)

func NewBackups() *Backups {
	return &Backups{records: make(map[string]*model.Backup)}
}

func (s *Backups) CreateBackup(_ context.Context, b *model.Backup) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *b
	s.records[b.ID] = &c
	return nil
}

func (s *Backups) UpdateBackup(_ context.Context, b *model.Backup) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.records[b.ID]
	if !ok {
		return apierr.ErrNotFound
	}
	c := *b
	c.CreatedAt = prev.CreatedAt
	c.CreatedBy = prev.CreatedBy
	s.records[b.ID] = &c
	return nil
}

func (s *Backups) GetBackupByID(_ context.Context, id string) (*model.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.records[id]
	if !ok {
		return nil, apierr.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (s *Backups) ListBackups(_ context.Context, status model.BackupStatus) ([]*model.Backup, error) {
	all := s.sorted(func(b *model.Backup) bool { return status == "" || b.Status == status })
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

func (s *Backups) ListCompletedBackups(_ context.Context) ([]*model.Backup, error) {
	return s.sorted(func(b *model.Backup) bool { return b.Completed() }), nil
}

func (s *Backups) DeleteBackups(_ context.Context, ids []string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// All returns every record oldest first.
func (s *Backups) All() []*model.Backup {
	return s.sorted(func(*model.Backup) bool { return true })
}

func (s *Backups) sorted(keep func(b *model.Backup) bool) []*model.Backup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Backup, 0, len(s.records))
	for _, b := range s.records {
		if keep(b) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
