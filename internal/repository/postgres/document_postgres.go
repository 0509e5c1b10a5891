package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"docmanager/internal/model"
	"docmanager/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, title, content_type, author, uploaded_by, content, storage_path, uploaded_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var d model.Document
	if err := s.Scan(
		&d.ID,
		&d.Title,
		&d.ContentType,
		&d.Author,
		&d.UploadedBy,
		&d.Content,
		&d.StoragePath,
		&d.UploadedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row. uploaded_at is assigned by the database.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, title, content_type, author, uploaded_by, content, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.ContentType,
		doc.Author,
		doc.UploadedBy,
		doc.Content,
		doc.StoragePath,
	)
	out, err := scanDocument(row)
	if err != nil {
		switch {
		case IsPgForeignKeyError(err):
			return nil, fmt.Errorf("%w: %v", repository.ErrUnknownReference, err)
		case IsPgDuplicateError(err):
			return nil, fmt.Errorf("%w: %v", repository.ErrDuplicateKey, err)
		}
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// Delete removes a document by ID and returns sql.ErrNoRows if nothing was removed.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Search returns documents whose title or content contains query, ignoring case.
func (r *DocumentPostgres) Search(ctx context.Context, query string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const where = `WHERE title ILIKE $1 ESCAPE '\' OR content ILIKE $1 ESCAPE '\'`
	pattern := "%" + escapeLike(query) + "%"

	return r.page(ctx, where, []any{pattern}, pq)
}

// Filter returns documents matching every non-nil criterion of f.
func (r *DocumentPostgres) Filter(ctx context.Context, f repository.DocumentFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const where = `WHERE ($1::text IS NULL OR author = $1)
		AND ($2::text IS NULL OR content_type = $2)
		AND ($3::timestamptz IS NULL OR uploaded_at >= $3)
		AND ($4::timestamptz IS NULL OR uploaded_at <= $4)`

	args := []any{nullString(f.Author), nullString(f.ContentType), sql.NullTime{}, sql.NullTime{}}
	if f.From != nil {
		args[2] = sql.NullTime{Time: *f.From, Valid: true}
	}
	if f.To != nil {
		args[3] = sql.NullTime{Time: *f.To, Valid: true}
	}
	return r.page(ctx, where, args, pq)
}

// page runs a count and a LIMIT/OFFSET select sharing the same WHERE clause,
// newest uploads first.
func (r *DocumentPostgres) page(ctx context.Context, where string, args []any, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	n := len(args)
	qList := fmt.Sprintf(`SELECT %s FROM documents %s ORDER BY uploaded_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		documentColumns, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
