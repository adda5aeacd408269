package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for registry persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// CreateDevice inserts a new device.
	// Returns ErrDeviceExists if a device with the same (ip, port) exists.
	CreateDevice(ctx context.Context, device *Device) error

	// GetDevice retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetDevice(ctx context.Context, id string) (*Device, error)

	// GetDeviceByCode retrieves a device by its connection code.
	// Returns ErrDeviceNotFound if no device carries the code.
	GetDeviceByCode(ctx context.Context, code string) (*Device, error)

	// ListDevices retrieves all devices.
	ListDevices(ctx context.Context) ([]Device, error)

	// DeleteDeviceCascade removes a device and any session bound to it in
	// a single transaction. It reports whether a live session existed, so
	// callers can announce the disconnect before the deletion.
	// Returns ErrDeviceNotFound if the device does not exist.
	DeleteDeviceCascade(ctx context.Context, id string) (hadSession bool, err error)

	// CreateInterface inserts a new interface.
	// Returns ErrInterfaceExists if an interface already exists for the
	// same (email, device code) pair.
	CreateInterface(ctx context.Context, iface *Interface) error

	// GetInterface retrieves an interface by its unique identifier.
	// Returns ErrInterfaceNotFound if the interface does not exist.
	GetInterface(ctx context.Context, id string) (*Interface, error)

	// GetInterfaceDetail retrieves an interface with best-effort device
	// enrichment. A missing target device yields null type/subnet.
	GetInterfaceDetail(ctx context.Context, id string) (*InterfaceDetail, error)

	// ListInterfaces retrieves all interfaces.
	ListInterfaces(ctx context.Context) ([]Interface, error)

	// ListInterfacesByEmail retrieves all interfaces owned by an email,
	// each with best-effort device enrichment.
	ListInterfacesByEmail(ctx context.Context, email string) ([]InterfaceDetail, error)

	// DeleteInterfaceCascade removes an interface and clears interface_id
	// on any session referencing it, in a single transaction. The session
	// row itself survives: the device stays connected, just unpaired.
	// Returns ErrInterfaceNotFound if the interface does not exist.
	DeleteInterfaceCascade(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateDevice inserts a new device.
func (r *SQLiteRepository) CreateDevice(ctx context.Context, device *Device) error {
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO devices (device_id, type, ip, port, subnet, is_public, connection_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		device.ID,
		device.Type,
		device.IP,
		device.Port,
		device.Subnet,
		boolToInt(device.IsPublic),
		device.ConnectionCode,
		device.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	return nil
}

// GetDevice retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetDevice(ctx context.Context, id string) (*Device, error) {
	return r.getDevice(ctx, "device_id = ?", id)
}

// GetDeviceByCode retrieves a device by its connection code.
func (r *SQLiteRepository) GetDeviceByCode(ctx context.Context, code string) (*Device, error) {
	return r.getDevice(ctx, "connection_code = ?", code)
}

// getDevice retrieves a single device matching the given predicate.
func (r *SQLiteRepository) getDevice(ctx context.Context, where string, arg any) (*Device, error) {
	query := `
		SELECT device_id, type, ip, port, subnet, is_public, connection_code, created_at
		FROM devices
		WHERE ` + where

	row := r.db.QueryRowContext(ctx, query, arg)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device: %w", err)
	}
	return device, nil
}

// ListDevices retrieves all devices.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]Device, error) {
	query := `
		SELECT device_id, type, ip, port, subnet, is_public, connection_code, created_at
		FROM devices
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// DeleteDeviceCascade removes a device and any session bound to it.
func (r *SQLiteRepository) DeleteDeviceCascade(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	result, err := tx.ExecContext(ctx, "DELETE FROM devices WHERE device_id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting device: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, ErrDeviceNotFound
	}

	result, err = tx.ExecContext(ctx, "DELETE FROM sessions WHERE device_id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting device session: %w", err)
	}
	sessionRows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking session rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing device deletion: %w", err)
	}

	return sessionRows > 0, nil
}

// CreateInterface inserts a new interface.
func (r *SQLiteRepository) CreateInterface(ctx context.Context, iface *Interface) error {
	if iface.CreatedAt.IsZero() {
		iface.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO interfaces (interface_id, name, email, device_code, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		iface.ID,
		iface.Name,
		iface.Email,
		iface.DeviceCode,
		iface.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrInterfaceExists
		}
		return fmt.Errorf("inserting interface: %w", err)
	}

	return nil
}

// GetInterface retrieves an interface by its unique identifier.
func (r *SQLiteRepository) GetInterface(ctx context.Context, id string) (*Interface, error) {
	query := `
		SELECT interface_id, name, email, device_code, created_at
		FROM interfaces
		WHERE interface_id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	iface, err := scanInterface(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInterfaceNotFound
		}
		return nil, fmt.Errorf("querying interface: %w", err)
	}
	return iface, nil
}

// interfaceDetailQuery joins interfaces to their target devices by
// connection code. The LEFT JOIN keeps interfaces whose device is gone.
const interfaceDetailQuery = `
	SELECT i.interface_id, i.name, i.email, i.device_code, i.created_at,
		d.type, d.subnet
	FROM interfaces i
	LEFT JOIN devices d ON i.device_code = d.connection_code`

// GetInterfaceDetail retrieves an interface with device enrichment.
func (r *SQLiteRepository) GetInterfaceDetail(ctx context.Context, id string) (*InterfaceDetail, error) {
	row := r.db.QueryRowContext(ctx, interfaceDetailQuery+" WHERE i.interface_id = ?", id)
	detail, err := scanInterfaceDetail(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInterfaceNotFound
		}
		return nil, fmt.Errorf("querying interface detail: %w", err)
	}
	return detail, nil
}

// ListInterfaces retrieves all interfaces.
func (r *SQLiteRepository) ListInterfaces(ctx context.Context) ([]Interface, error) {
	query := `
		SELECT interface_id, name, email, device_code, created_at
		FROM interfaces
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying interfaces: %w", err)
	}
	defer rows.Close()

	var interfaces []Interface
	for rows.Next() {
		iface, err := scanInterface(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning interface: %w", err)
		}
		interfaces = append(interfaces, *iface)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating interfaces: %w", err)
	}

	return interfaces, nil
}

// ListInterfacesByEmail retrieves all interfaces owned by an email.
func (r *SQLiteRepository) ListInterfacesByEmail(ctx context.Context, email string) ([]InterfaceDetail, error) {
	rows, err := r.db.QueryContext(ctx, interfaceDetailQuery+" WHERE i.email = ? ORDER BY i.created_at", email)
	if err != nil {
		return nil, fmt.Errorf("querying interfaces by email: %w", err)
	}
	defer rows.Close()

	var details []InterfaceDetail
	for rows.Next() {
		detail, err := scanInterfaceDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning interface detail: %w", err)
		}
		details = append(details, *detail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating interface details: %w", err)
	}

	return details, nil
}

// DeleteInterfaceCascade removes an interface and unlinks its sessions.
func (r *SQLiteRepository) DeleteInterfaceCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	result, err := tx.ExecContext(ctx, "DELETE FROM interfaces WHERE interface_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting interface: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrInterfaceNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE sessions SET interface_id = NULL WHERE interface_id = ?", id,
	); err != nil {
		return fmt.Errorf("unlinking interface sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing interface deletion: %w", err)
	}

	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a row or rows result into a Device.
func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var isPublic int
	var createdAt string

	err := scanner.Scan(
		&d.ID,
		&d.Type,
		&d.IP,
		&d.Port,
		&d.Subnet,
		&isPublic,
		&d.ConnectionCode,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	d.IsPublic = isPublic != 0

	d.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &d, nil
}

// scanInterface scans a row or rows result into an Interface.
func scanInterface(scanner rowScanner) (*Interface, error) {
	var i Interface
	var createdAt string

	err := scanner.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.DeviceCode,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	i.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &i, nil
}

// scanInterfaceDetail scans a joined interface/device row.
func scanInterfaceDetail(scanner rowScanner) (*InterfaceDetail, error) {
	var detail InterfaceDetail
	var createdAt string
	var deviceType, deviceSubnet sql.NullString

	err := scanner.Scan(
		&detail.ID,
		&detail.Name,
		&detail.Email,
		&detail.DeviceCode,
		&createdAt,
		&deviceType,
		&deviceSubnet,
	)
	if err != nil {
		return nil, err
	}

	detail.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	if deviceType.Valid {
		detail.DeviceType = &deviceType.String
	}
	if deviceSubnet.Valid {
		detail.DeviceSubnet = &deviceSubnet.String
	}

	return &detail, nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
