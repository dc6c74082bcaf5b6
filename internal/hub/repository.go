package hub

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for config entry persistence.
type Repository interface {
	// List retrieves all entries, oldest first.
	List(ctx context.Context) ([]ConfigEntry, error)

	// Create inserts a new entry.
	// Returns ErrEntryExists if an entry with the same ID already exists.
	Create(ctx context.Context, entry *ConfigEntry) error

	// Delete removes an entry by ID.
	// Returns ErrEntryNotFound if the entry does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using the config_entries table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// timestampFormat is fixed-width so stored timestamps sort as text.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

const selectEntries = `
	SELECT id, domain, title, source, data, created_at, updated_at
	FROM config_entries`

// List retrieves all entries.
func (r *SQLiteRepository) List(ctx context.Context) ([]ConfigEntry, error) {
	return r.queryEntries(ctx, selectEntries+" ORDER BY created_at, id")
}

// Create inserts a new entry. Zero timestamps are set to now.
func (r *SQLiteRepository) Create(ctx context.Context, entry *ConfigEntry) error {
	dataJSON, err := marshalData(entry.Data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	query := `
		INSERT INTO config_entries (id, domain, title, source, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Domain,
		entry.Title,
		string(entry.Source),
		dataJSON,
		entry.CreatedAt.Format(timestampFormat),
		entry.UpdatedAt.Format(timestampFormat),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrEntryExists
		}
		return fmt.Errorf("inserting config entry: %w", err)
	}
	return nil
}

// Delete removes an entry by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM config_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting config entry: %w", err)
	}
	return checkAffected(result)
}

func (r *SQLiteRepository) queryEntries(ctx context.Context, query string) ([]ConfigEntry, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying config entries: %w", err)
	}
	defer rows.Close()

	var entries []ConfigEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning config entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating config entries: %w", err)
	}
	return entries, nil
}

func scanEntry(scanner *sql.Rows) (*ConfigEntry, error) {
	var e ConfigEntry
	var source, dataJSON, createdAt, updatedAt string

	if err := scanner.Scan(&e.ID, &e.Domain, &e.Title, &source, &dataJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.Source = Source(source)

	if err := json.Unmarshal([]byte(dataJSON), &e.Data); err != nil {
		return nil, fmt.Errorf("unmarshalling data: %w", err)
	}
	if e.Data == nil {
		e.Data = map[string]string{}
	}

	var err error
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &e, nil
}

func marshalData(data map[string]string) (string, error) {
	if data == nil {
		data = map[string]string{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshalling data: %w", err)
	}
	return string(b), nil
}

func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
