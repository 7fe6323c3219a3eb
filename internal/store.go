package internal

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// TranscriptStore persists transcripts keyed by (video, user)
type TranscriptStore interface {
	QueryTranscript(ctx context.Context, videoID, userID string) ([]TranscriptEntry, bool, error)
	StoreTranscript(ctx context.Context, videoID, userID string, entries []TranscriptEntry) error
}

// TitleStore keeps the append-only title history
type TitleStore interface {
	RecordTitle(ctx context.Context, videoID, userID, title string) error
	ListTitles(ctx context.Context, videoID, userID string) ([]GeneratedTitle, error)
}

// ImageStore records where generated images were uploaded
type ImageStore interface {
	RecordImage(ctx context.Context, storageRef, videoID, userID string) error
	LookupImageRef(ctx context.Context, videoID, userID string) (string, bool, error)
}

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SQLStore implements the persistence interfaces on Postgres or SQLite
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

var (
	_ TranscriptStore = (*SQLStore)(nil)
	_ TitleStore      = (*SQLStore)(nil)
	_ ImageStore      = (*SQLStore)(nil)
	_ UsageTracker    = (*SQLStore)(nil)
)

// OpenStore connects to the database and applies the embedded schema
func OpenStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if driver == DriverSQLite {
		// a single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &SQLStore{db: db, driver: driver, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) migrate(ctx context.Context) error {
	files, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("listing schema files: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		content, err := schemaFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		for stmt := range strings.SplitSeq(string(content), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("applying %s: %w", name, err)
			}
		}
	}
	return nil
}

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// rebind rewrites $N placeholders for drivers that expect ?
func (s *SQLStore) rebind(query string) string {
	if s.driver == DriverPostgres {
		return query
	}
	return placeholderPattern.ReplaceAllString(query, "?")
}

func (s *SQLStore) QueryTranscript(ctx context.Context, videoID, userID string) ([]TranscriptEntry, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT entries FROM transcripts WHERE video_id = $1 AND user_id = $2`),
		videoID, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying transcript: %w", err)
	}

	var entries []TranscriptEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false, fmt.Errorf("decoding transcript: %w", err)
	}
	return entries, true, nil
}

// StoreTranscript inserts a transcript; an existing row for the pair is kept as is
func (s *SQLStore) StoreTranscript(ctx context.Context, videoID, userID string, entries []TranscriptEntry) error {
	if entries == nil {
		entries = []TranscriptEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO transcripts (video_id, user_id, entries, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (video_id, user_id) DO NOTHING`),
		videoID, userID, string(raw), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("storing transcript: %w", err)
	}
	return nil
}

func (s *SQLStore) RecordTitle(ctx context.Context, videoID, userID, title string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO titles (id, video_id, user_id, title, created_at) VALUES ($1, $2, $3, $4, $5)`),
		uuid.NewString(), videoID, userID, title, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("recording title: %w", err)
	}
	return nil
}

// ListTitles returns the title history oldest first
func (s *SQLStore) ListTitles(ctx context.Context, videoID, userID string) ([]GeneratedTitle, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, video_id, user_id, title, created_at FROM titles
		 WHERE video_id = $1 AND user_id = $2
		 ORDER BY created_at ASC`),
		videoID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing titles: %w", err)
	}
	defer rows.Close()

	titles := []GeneratedTitle{}
	for rows.Next() {
		var t GeneratedTitle
		var created int64
		if err := rows.Scan(&t.ID, &t.VideoID, &t.UserID, &t.Title, &created); err != nil {
			return nil, fmt.Errorf("scanning title: %w", err)
		}
		t.CreatedAt = time.Unix(0, created).UTC()
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing titles: %w", err)
	}
	return titles, nil
}

func (s *SQLStore) RecordImage(ctx context.Context, storageRef, videoID, userID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO images (id, storage_ref, video_id, user_id, created_at) VALUES ($1, $2, $3, $4, $5)`),
		uuid.NewString(), storageRef, videoID, userID, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("recording image: %w", err)
	}
	return nil
}

// LookupImageRef returns the storage reference of the newest image for the pair
func (s *SQLStore) LookupImageRef(ctx context.Context, videoID, userID string) (string, bool, error) {
	var ref string
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT storage_ref FROM images
		 WHERE video_id = $1 AND user_id = $2
		 ORDER BY created_at DESC LIMIT 1`),
		videoID, userID).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up image: %w", err)
	}
	return ref, true, nil
}

// Track appends a usage event to the local ledger. The user doubles as the company.
func (s *SQLStore) Track(ctx context.Context, feature Feature, userID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO usage_events (id, event, company_id, user_id, created_at) VALUES ($1, $2, $3, $4, $5)`),
		uuid.NewString(), feature.String(), userID, userID, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("recording usage event: %w", err)
	}
	return nil
}

// CountUsage returns how many events of a feature a user has recorded
func (s *SQLStore) CountUsage(ctx context.Context, feature Feature, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM usage_events WHERE event = $1 AND user_id = $2`),
		feature.String(), userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting usage: %w", err)
	}
	return n, nil
}
