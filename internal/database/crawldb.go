package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webcrawl/internal/model"
)

// DBFileName is the name of the SQLite file inside the database directory.
const DBFileName = "webcrawl.db"

// timeLayout keeps fixed-width UTC timestamps so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// CrawlDB provides SQLite-based page storage.
//
// Design decision: One database file holds the pages of every run. The url
// column is the primary key, so a page crawled by an earlier run is never
// overwritten; the crawler counts it as a duplicate instead.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; workers serialize on this connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Pages are stored once per URL
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		fetched_at TEXT NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		content_hash TEXT,
		size INTEGER,
		html BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_pages_fetched_at ON pages(fetched_at);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Store inserts page unless its URL is already present.
func (cdb *CrawlDB) Store(ctx context.Context, page *model.Page) (bool, error) {
	if page == nil {
		return false, &StoreError{Err: ErrNilPage}
	}

	query := `
	INSERT INTO pages (url, fetched_at, status_code, content_type, content_hash, size, html)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO NOTHING
	`

	result, err := cdb.db.ExecContext(ctx, query,
		page.URL,
		page.FetchedAt.UTC().Format(timeLayout),
		page.StatusCode,
		page.ContentType,
		page.Hash,
		page.Size(),
		page.HTML,
	)
	if err != nil {
		return false, &StoreError{URL: page.URL, Err: fmt.Errorf("failed to insert page: %w", err)}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, &StoreError{URL: page.URL, Err: fmt.Errorf("failed to read affected rows: %w", err)}
	}

	return affected == 1, nil
}

// GetPage retrieves a page including its HTML.
// Returns nil, nil if the URL is not stored.
func (cdb *CrawlDB) GetPage(ctx context.Context, url string) (*model.Page, error) {
	query := `
	SELECT url, fetched_at, status_code, content_type, content_hash, html
	FROM pages
	WHERE url = ?
	`

	var page model.Page
	var fetchedAt string

	err := cdb.db.QueryRowContext(ctx, query, url).Scan(
		&page.URL,
		&fetchedAt,
		&page.StatusCode,
		&page.ContentType,
		&page.Hash,
		&page.HTML,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{URL: url, Err: fmt.Errorf("failed to get page: %w", err)}
	}

	page.FetchedAt = parseTimestamp(fetchedAt)
	return &page, nil
}

// PageRecord is a stored page without its HTML.
type PageRecord struct {
	URL         string    `json:"url"`
	FetchedAt   time.Time `json:"fetched_at"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Hash        string    `json:"hash"`
	Size        int       `json:"size"`
}

// ListPages returns stored pages ordered by fetch time, newest first.
// A non-positive limit returns all pages.
func (cdb *CrawlDB) ListPages(ctx context.Context, limit int) ([]PageRecord, error) {
	query := `
	SELECT url, fetched_at, status_code, content_type, content_hash, size
	FROM pages
	ORDER BY fetched_at DESC, url ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Err: fmt.Errorf("failed to list pages: %w", err)}
	}
	defer rows.Close()

	records := make([]PageRecord, 0)
	for rows.Next() {
		var rec PageRecord
		var fetchedAt string
		if err := rows.Scan(&rec.URL, &fetchedAt, &rec.StatusCode, &rec.ContentType, &rec.Hash, &rec.Size); err != nil {
			return nil, &StoreError{Err: fmt.Errorf("failed to scan page: %w", err)}
		}
		rec.FetchedAt = parseTimestamp(fetchedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Err: fmt.Errorf("failed to iterate pages: %w", err)}
	}

	return records, nil
}

// CountPages returns the number of stored pages.
func (cdb *CrawlDB) CountPages(ctx context.Context) (int, error) {
	var count int
	if err := cdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pages").Scan(&count); err != nil {
		return 0, &StoreError{Err: fmt.Errorf("failed to count pages: %w", err)}
	}
	return count, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
