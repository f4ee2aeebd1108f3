// Package sqlstore provides storage operations on top of an ent SQL driver.
// It is database-agnostic and is embedded by the sqlite and postgres drivers.
package sqlstore

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/wikifetch/pkg/storage"
)

const (
	topicsTable = "topics"
	imagesTable = "images"
)

// schema is append-only: new tables and columns only.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS topics (
		name TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS images (
		name TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		filename TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}

// Driver implements storage.Driver with ent's dialect-aware SQL builders.
type Driver struct {
	drv *entsql.Driver
}

var _ storage.Driver = (*Driver)(nil)

// New wraps an opened ent SQL driver. Call Migrate before first use.
func New(drv *entsql.Driver) *Driver {
	return &Driver{drv: drv}
}

// DB returns the underlying database handle.
func (d *Driver) DB() *stdsql.DB {
	return d.drv.DB()
}

// Migrate creates the cache tables if they do not exist.
func (d *Driver) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.drv.Dialect())
}

// GetTopic retrieves a topic by its canonical full name.
func (d *Driver) GetTopic(ctx context.Context, name string) (*storage.Topic, error) {
	query, args := d.builder().
		Select("name", "content", "created_at").
		From(entsql.Table(topicsTable)).
		Where(entsql.EQ("name", name)).
		Query()

	rows := &entsql.Rows{}
	if err := d.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to query topic: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read topic: %w", err)
		}
		return nil, storage.NotFoundError{Kind: storage.KindTopic, Name: name}
	}

	var (
		t       storage.Topic
		created int64
	)
	if err := rows.Scan(&t.Name, &t.Content, &created); err != nil {
		return nil, fmt.Errorf("failed to scan topic: %w", err)
	}
	t.CreatedAt = time.UnixMilli(created)

	return &t, nil
}

// PutTopic stores a topic. Returns true if the topic was newly inserted.
// An existing row with the same name is left untouched.
func (d *Driver) PutTopic(ctx context.Context, t *storage.Topic) (bool, error) {
	if t == nil {
		return false, errors.New("cannot store nil topic")
	}

	query, args := d.builder().
		Insert(topicsTable).
		Columns("name", "content", "created_at").
		Values(t.Name, t.Content, createdAt(t.CreatedAt)).
		OnConflict(entsql.ConflictColumns("name"), entsql.DoNothing()).
		Query()

	return d.exec(ctx, query, args)
}

// GetImage retrieves an image record by name.
func (d *Driver) GetImage(ctx context.Context, name string) (*storage.Image, error) {
	query, args := d.builder().
		Select("name", "url", "filename", "created_at").
		From(entsql.Table(imagesTable)).
		Where(entsql.EQ("name", name)).
		Query()

	rows := &entsql.Rows{}
	if err := d.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to query image: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return nil, storage.NotFoundError{Kind: storage.KindImage, Name: name}
	}

	var (
		img     storage.Image
		created int64
	)
	if err := rows.Scan(&img.Name, &img.URL, &img.Filename, &created); err != nil {
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}
	img.CreatedAt = time.UnixMilli(created)

	return &img, nil
}

// PutImage stores an image record. Returns true if it was newly inserted.
func (d *Driver) PutImage(ctx context.Context, img *storage.Image) (bool, error) {
	if img == nil {
		return false, errors.New("cannot store nil image")
	}

	query, args := d.builder().
		Insert(imagesTable).
		Columns("name", "url", "filename", "created_at").
		Values(img.Name, img.URL, img.Filename, createdAt(img.CreatedAt)).
		OnConflict(entsql.ConflictColumns("name"), entsql.DoNothing()).
		Query()

	return d.exec(ctx, query, args)
}

// ReplaceImage updates url and filename of an image row whose filename is
// still staleFilename. created_at is kept.
func (d *Driver) ReplaceImage(ctx context.Context, img *storage.Image, staleFilename string) (bool, error) {
	if img == nil {
		return false, errors.New("cannot store nil image")
	}

	query, args := d.builder().
		Update(imagesTable).
		Set("url", img.URL).
		Set("filename", img.Filename).
		Where(entsql.And(
			entsql.EQ("name", img.Name),
			entsql.EQ("filename", staleFilename),
		)).
		Query()

	return d.exec(ctx, query, args)
}

// Stats returns record counts.
func (d *Driver) Stats(ctx context.Context) (*storage.Stats, error) {
	topics, err := d.count(ctx, topicsTable)
	if err != nil {
		return nil, err
	}

	images, err := d.count(ctx, imagesTable)
	if err != nil {
		return nil, err
	}

	return &storage.Stats{Topics: topics, Images: images}, nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.drv.Close()
}

// exec runs a write and reports whether it touched any row.
func (d *Driver) exec(ctx context.Context, query string, args []any) (bool, error) {
	var res stdsql.Result
	if err := d.drv.Exec(ctx, query, args, &res); err != nil {
		return false, fmt.Errorf("failed to write: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return n > 0, nil
}

func (d *Driver) count(ctx context.Context, table string) (int, error) {
	query, args := d.builder().
		Select(entsql.Count("*")).
		From(entsql.Table(table)).
		Query()

	rows := &entsql.Rows{}
	if err := d.drv.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	defer rows.Close()

	n, err := entsql.ScanInt(rows)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}

	return n, nil
}

func createdAt(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}
