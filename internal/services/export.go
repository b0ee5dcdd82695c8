package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/accountadmin/apiserver/types"
)

const exportContentType = "application/json"

// ObjectWriter stores export payloads.
type ObjectWriter interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
}

// UserLister returns the account listing.
type UserLister interface {
	List(ctx context.Context) ([]types.User, error)
}

// AccountExport is the document written by ExportService.
type AccountExport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Count       int          `json:"count"`
	Accounts    []types.User `json:"accounts"`
}

// ExportService writes snapshots of the account listing to object storage.
type ExportService struct {
	users   UserLister
	objects ObjectWriter
	now     func() time.Time
}

func NewExportService(users UserLister, objects ObjectWriter) *ExportService {
	return &ExportService{
		users:   users,
		objects: objects,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Export stores the current listing under key, or under a timestamped key
// when key is empty, and returns the object key used.
func (s *ExportService) Export(ctx context.Context, key string) (string, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return "", err
	}

	now := s.now()
	key = strings.TrimSpace(key)
	if key == "" {
		key = fmt.Sprintf("exports/accounts-%s.json", now.Format("20060102T150405Z"))
	}

	data, err := json.Marshal(AccountExport{
		GeneratedAt: now,
		Count:       len(users),
		Accounts:    users,
	})
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}

	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return "", fmt.Errorf("upload export to %s: %w", s.objects.Bucket(), err)
	}
	return key, nil
}
