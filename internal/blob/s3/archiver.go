package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

const (
	contentTypeJSONL = "application/x-ndjson"

	// multipartThreshold switches uploads to the multipart manager.
	multipartThreshold = 16 * 1024 * 1024
)

// ArchiveImpl moves audit rows older than a cutoff into monthly JSONL
// objects and removes them from the primary store once every upload has
// succeeded. It implements domain.Archiver.
type ArchiveImpl struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	audit  domain.AuditStore
	logger *slog.Logger
}

func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, audit domain.AuditStore, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		reader: reader,
		audit:  audit,
		logger: logger.With(slog.String("component", "audit_archiver")),
	}
}

// ArchiveAudit uploads every audit entry created before the cutoff and
// returns the number of rows removed from the store. Rows are grouped by
// the month they were written in:
//
//	archive/audit/2026-09.jsonl
//
// When a month already has an archive object, the new batch is written
// next to it with the cutoff appended so earlier uploads are never
// overwritten.
func (a *ArchiveImpl) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.audit.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	months := groupByMonth(entries)
	keys := make([]string, 0, len(months))
	for month := range months {
		keys = append(keys, month)
	}
	slices.Sort(keys)

	paths := make([]string, 0, len(keys))
	for _, month := range keys {
		path, err := a.upload(ctx, month, before, months[month])
		if err != nil {
			return 0, err
		}
		paths = append(paths, path)
	}

	deleted, err := a.audit.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit delete: %w", err)
	}

	a.logger.InfoContext(ctx, "s3blob: audit archived",
		slog.Int("entries", len(entries)),
		slog.Int64("deleted", deleted),
		slog.Any("paths", paths),
	)

	if err := a.audit.Log(ctx, "archive.audit", map[string]any{
		"paths":   paths,
		"count":   len(entries),
		"deleted": deleted,
		"before":  before.UTC().Format(time.RFC3339),
	}); err != nil {
		return deleted, fmt.Errorf("s3blob: archive audit log: %w", err)
	}
	return deleted, nil
}

func (a *ArchiveImpl) upload(ctx context.Context, month string, before time.Time, entries []domain.AuditEntry) (string, error) {
	buf, err := marshalJSONL(entries)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive audit marshal %s: %w", month, err)
	}

	path := archivePath("audit", month, "")
	exists, err := a.reader.Exists(ctx, path)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive audit probe %s: %w", path, err)
	}
	if exists {
		path = archivePath("audit", month, before.UTC().Format("20060102T150405Z"))
	}

	if len(buf) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), contentTypeJSONL)
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive audit upload: %w", err)
	}
	return path, nil
}

func groupByMonth(entries []domain.AuditEntry) map[string][]domain.AuditEntry {
	out := make(map[string][]domain.AuditEntry)
	for _, e := range entries {
		month := e.CreatedAt.UTC().Format("2006-01")
		out[month] = append(out[month], e)
	}
	return out
}

// archivePath builds the object key for an archive file.
func archivePath(kind, month, suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("archive/%s/%s.jsonl", kind, month)
	}
	return fmt.Sprintf("archive/%s/%s-%s.jsonl", kind, month, suffix)
}

// marshalJSONL encodes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
