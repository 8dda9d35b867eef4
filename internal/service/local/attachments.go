package local

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/gridline-app/gridline/internal/model"
	"github.com/gridline-app/gridline/internal/service"
)

// uploadChunkSize is how much of the content is read between progress
// callbacks.
const uploadChunkSize = 64 * 1024

type attachmentService struct {
	s *Store
}

// List retrieves attachment metadata for an issue, oldest first. File
// bytes stay in the database until fetched explicitly.
func (svc *attachmentService) List(ctx context.Context, scope service.Scope, issueID string) ([]model.Attachment, error) {
	rows, err := svc.s.db.QueryContext(ctx,
		`SELECT id, issue_id, file_name, size, content_type, uploader_id, created_at
		 FROM attachments WHERE issue_id = ? ORDER BY created_at ASC, id ASC`, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attachments: %w", err)
	}
	defer rows.Close()

	attachments := make([]model.Attachment, 0)
	for rows.Next() {
		a, err := scanAttachmentFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning attachment row: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// Upload reads the request content, reporting progress as it goes, and
// stores the file alongside its metadata. Progress reaches 100 before the
// insert commits.
func (svc *attachmentService) Upload(ctx context.Context, scope service.Scope, issueID string, req service.UploadRequest) (model.Attachment, error) {
	content, err := readAll(ctx, req)
	if err != nil {
		return model.Attachment{}, err
	}

	tx, err := svc.s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireIssue(tx, scope, issueID); err != nil {
		return model.Attachment{}, err
	}

	a := model.Attachment{
		ID:          model.NewID(),
		IssueID:     issueID,
		FileName:    req.FileName,
		Size:        int64(len(content)),
		ContentType: req.ContentType,
		UploaderID:  svc.s.actor,
	}
	if _, err := tx.Exec(
		`INSERT INTO attachments (id, issue_id, file_name, size, content_type, uploader_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.IssueID, a.FileName, a.Size, nullString(a.ContentType), nullString(a.UploaderID), content, nowStamp(),
	); err != nil {
		return model.Attachment{}, fmt.Errorf("inserting attachment: %w", err)
	}

	if err := recordActivity(tx, issueID, "attachment_added", "", req.FileName, svc.s.actor); err != nil {
		return model.Attachment{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Attachment{}, fmt.Errorf("committing transaction: %w", err)
	}
	return svc.get(ctx, a.ID)
}

// Remove deletes an attachment and its stored bytes.
func (svc *attachmentService) Remove(ctx context.Context, scope service.Scope, issueID, id string) error {
	res, err := svc.s.db.ExecContext(ctx,
		`DELETE FROM attachments WHERE id = ? AND issue_id = ?`, id, issueID,
	)
	if err != nil {
		return fmt.Errorf("deleting attachment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return service.ErrNotFound
	}
	return nil
}

func (svc *attachmentService) get(ctx context.Context, id string) (model.Attachment, error) {
	row := svc.s.db.QueryRowContext(ctx,
		`SELECT id, issue_id, file_name, size, content_type, uploader_id, created_at
		 FROM attachments WHERE id = ?`, id,
	)
	a, err := scanAttachmentFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Attachment{}, service.ErrNotFound
		}
		return model.Attachment{}, fmt.Errorf("scanning attachment: %w", err)
	}
	return a, nil
}

// readAll drains the upload content in chunks, invoking the progress
// callback with percentages derived from the declared size. An unknown
// size reports 0 until completion, then 100.
func readAll(ctx context.Context, req service.UploadRequest) ([]byte, error) {
	if req.Content == nil {
		report(req, 100)
		return nil, nil
	}

	var buf bytes.Buffer
	chunk := make([]byte, uploadChunkSize)
	var read int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := req.Content.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			read += int64(n)
			if req.Size > 0 {
				pct := int(read * 100 / req.Size)
				if pct > 99 {
					pct = 99
				}
				report(req, pct)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading upload content: %w", err)
		}
	}
	report(req, 100)
	return buf.Bytes(), nil
}

func report(req service.UploadRequest, pct int) {
	if req.Progress != nil {
		req.Progress(pct)
	}
}

func scanAttachmentFrom(s scanner) (model.Attachment, error) {
	var a model.Attachment
	var contentType, uploaderID sql.NullString
	var createdAt string
	if err := s.Scan(&a.ID, &a.IssueID, &a.FileName, &a.Size, &contentType, &uploaderID, &createdAt); err != nil {
		return model.Attachment{}, err
	}
	a.ContentType = contentType.String
	a.UploaderID = uploaderID.String
	var err error
	if a.CreatedAt, err = parseStamp(createdAt); err != nil {
		return model.Attachment{}, err
	}
	return a, nil
}
