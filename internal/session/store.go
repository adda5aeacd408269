package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store is the atomic session contract. Every mutation is a single
// statement or a single transaction; callers never do read-modify-write
// against it.
type Store interface {
	// UpsertTransport records deviceID's live transport. If a session
	// already exists the transport id is overwritten (last-writer-wins)
	// and any interface link is preserved.
	UpsertTransport(ctx context.Context, deviceID, transportID string) error

	// Link binds interfaceID to the device's session.
	Link(ctx context.Context, deviceID, interfaceID string) error

	// Clear removes the interface link from the device's session,
	// leaving the transport binding intact.
	Clear(ctx context.Context, deviceID string) error

	// ClearByInterface removes the link from whichever session holds
	// interfaceID and returns the session as it was before clearing.
	ClearByInterface(ctx context.Context, interfaceID string) (*Session, error)

	FindByDevice(ctx context.Context, deviceID string) (*Session, error)
	FindByTransport(ctx context.Context, transportID string) ([]*Session, error)
	FindByInterface(ctx context.Context, interfaceID string) (*Session, error)

	// DeleteByDevice removes the device's session row entirely.
	DeleteByDevice(ctx context.Context, deviceID string) error

	// DeleteByTransport removes every session bound to transportID and
	// returns the removed sessions, one per device.
	DeleteByTransport(ctx context.Context, transportID string) ([]*Session, error)

	List(ctx context.Context) ([]*Session, error)

	// Purge removes all sessions. Run at startup and shutdown: transport
	// ids never survive a restart, so stale rows are meaningless.
	Purge(ctx context.Context) (int64, error)
}

// SQLiteStore implements Store on the sessions table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a session store backed by the given database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) UpsertTransport(ctx context.Context, deviceID, transportID string) error {
	if deviceID == "" || transportID == "" {
		return ErrInvalidKey
	}

	query := `
		INSERT INTO sessions (device_id, transport_id, interface_id, updated_at)
		VALUES (?, ?, NULL, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			transport_id = excluded.transport_id,
			updated_at   = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, deviceID, transportID, now())
	if err != nil {
		return fmt.Errorf("upserting session for device %s: %w", deviceID, err)
	}

	return nil
}

func (s *SQLiteStore) Link(ctx context.Context, deviceID, interfaceID string) error {
	if deviceID == "" || interfaceID == "" {
		return ErrInvalidKey
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET interface_id = ?, updated_at = ? WHERE device_id = ?",
		interfaceID, now(), deviceID,
	)
	if err != nil {
		return fmt.Errorf("linking interface %s to device %s: %w", interfaceID, deviceID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking link result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return ErrInvalidKey
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET interface_id = NULL, updated_at = ? WHERE device_id = ?",
		now(), deviceID,
	)
	if err != nil {
		return fmt.Errorf("clearing session for device %s: %w", deviceID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking clear result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) ClearByInterface(ctx context.Context, interfaceID string) (*Session, error) {
	if interfaceID == "" {
		return nil, ErrInvalidKey
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	sess, err := scanSession(tx.QueryRowContext(ctx,
		"SELECT device_id, transport_id, interface_id, updated_at FROM sessions WHERE interface_id = ?",
		interfaceID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding session for interface %s: %w", interfaceID, err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE sessions SET interface_id = NULL, updated_at = ? WHERE device_id = ?",
		now(), sess.DeviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("clearing session for device %s: %w", sess.DeviceID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing clear: %w", err)
	}

	return sess, nil
}

func (s *SQLiteStore) FindByDevice(ctx context.Context, deviceID string) (*Session, error) {
	if deviceID == "" {
		return nil, ErrInvalidKey
	}

	sess, err := scanSession(s.db.QueryRowContext(ctx,
		"SELECT device_id, transport_id, interface_id, updated_at FROM sessions WHERE device_id = ?",
		deviceID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding session for device %s: %w", deviceID, err)
	}

	return sess, nil
}

func (s *SQLiteStore) FindByTransport(ctx context.Context, transportID string) ([]*Session, error) {
	if transportID == "" {
		return nil, ErrInvalidKey
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT device_id, transport_id, interface_id, updated_at FROM sessions WHERE transport_id = ? ORDER BY device_id",
		transportID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding sessions for transport %s: %w", transportID, err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

func (s *SQLiteStore) FindByInterface(ctx context.Context, interfaceID string) (*Session, error) {
	if interfaceID == "" {
		return nil, ErrInvalidKey
	}

	sess, err := scanSession(s.db.QueryRowContext(ctx,
		"SELECT device_id, transport_id, interface_id, updated_at FROM sessions WHERE interface_id = ?",
		interfaceID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding session for interface %s: %w", interfaceID, err)
	}

	return sess, nil
}

func (s *SQLiteStore) DeleteByDevice(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return ErrInvalidKey
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE device_id = ?", deviceID)
	if err != nil {
		return fmt.Errorf("deleting session for device %s: %w", deviceID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) DeleteByTransport(ctx context.Context, transportID string) ([]*Session, error) {
	if transportID == "" {
		return nil, ErrInvalidKey
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT device_id, transport_id, interface_id, updated_at FROM sessions WHERE transport_id = ? ORDER BY device_id",
		transportID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding sessions for transport %s: %w", transportID, err)
	}

	removed, err := collectSessions(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(removed) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("committing delete: %w", err)
		}
		return nil, nil
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM sessions WHERE transport_id = ?", transportID)
	if err != nil {
		return nil, fmt.Errorf("deleting sessions for transport %s: %w", transportID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing delete: %w", err)
	}

	return removed, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT device_id, transport_id, interface_id, updated_at FROM sessions ORDER BY device_id",
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions")
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking purge result: %w", err)
	}

	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess        Session
		interfaceID sql.NullString
		updatedAt   string
	)

	if err := row.Scan(&sess.DeviceID, &sess.TransportID, &interfaceID, &updatedAt); err != nil {
		return nil, err
	}

	if interfaceID.Valid {
		sess.InterfaceID = &interfaceID.String
	}

	parsed, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing session timestamp: %w", err)
	}
	sess.UpdatedAt = parsed

	return &sess, nil
}

func collectSessions(rows *sql.Rows) ([]*Session, error) {
	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}

	return sessions, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
