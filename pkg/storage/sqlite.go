package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/FareWatch/pkg/model"

	_ "modernc.org/sqlite"
)

const alertColumns = `id, owner_id, notify_target, origin, destination, departure_date,
	target_price, last_price, active, created_at, updated_at`

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time keeps RecordObservation transactions from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) ResolveOwner(ctx context.Context, platform, externalID, notifyTarget string) (*model.Owner, error) {
	if platform == "" || externalID == "" {
		return nil, &model.ValidationError{Field: "owner", Reason: "platform and external id are required"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin resolve owner: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO owners (id, platform, external_id, notify_target, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(platform, external_id) DO NOTHING`,
		uuid.New().String(), platform, externalID, notifyTarget, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert owner: %w", err)
	}

	var o model.Owner
	err = tx.QueryRowContext(ctx,
		`SELECT id, platform, external_id, notify_target, created_at, updated_at
		 FROM owners WHERE platform = ? AND external_id = ?`, platform, externalID,
	).Scan(&o.ID, &o.Platform, &o.ExternalID, &o.NotifyTarget, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get owner: %w", err)
	}

	if notifyTarget != "" && notifyTarget != o.NotifyTarget {
		if _, err := tx.ExecContext(ctx,
			`UPDATE owners SET notify_target = ?, updated_at = ? WHERE id = ?`,
			notifyTarget, now, o.ID,
		); err != nil {
			return nil, fmt.Errorf("refresh owner notify target: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE alerts SET notify_target = ?, updated_at = ? WHERE owner_id = ? AND active = 1`,
			notifyTarget, now, o.ID,
		); err != nil {
			return nil, fmt.Errorf("refresh alert notify targets: %w", err)
		}
		o.NotifyTarget = notifyTarget
		o.UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit resolve owner: %w", err)
	}
	return &o, nil
}

func (s *SQLite) GetOwner(ctx context.Context, id string) (*model.Owner, error) {
	var o model.Owner
	err := s.db.QueryRowContext(ctx,
		`SELECT id, platform, external_id, notify_target, created_at, updated_at
		 FROM owners WHERE id = ?`, id,
	).Scan(&o.ID, &o.Platform, &o.ExternalID, &o.NotifyTarget, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("owner %q: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get owner: %w", err)
	}
	return &o, nil
}

func (s *SQLite) CreateAlert(ctx context.Context, alert *model.Alert) error {
	if err := alert.Validate(); err != nil {
		return err
	}
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now
	alert.Active = true
	alert.DepartureDate = model.DateOf(alert.DepartureDate)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, owner_id, notify_target, origin, destination, departure_date,
			target_price, last_price, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		alert.ID, alert.OwnerID, alert.NotifyTarget,
		string(alert.Origin), string(alert.Destination), model.FormatDate(alert.DepartureDate),
		nullFloat(alert.TargetPrice), nullFloat(alert.LastPrice),
		alert.CreatedAt, alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLite) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+alertColumns+" FROM alerts WHERE id = ?", id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %q: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func (s *SQLite) ListActiveByOwner(ctx context.Context, ownerID string) ([]model.Alert, error) {
	return s.queryAlerts(ctx,
		"SELECT "+alertColumns+" FROM alerts WHERE owner_id = ? AND active = 1 ORDER BY created_at DESC, rowid DESC",
		ownerID,
	)
}

func (s *SQLite) ListAllActiveNotPast(ctx context.Context, today time.Time) ([]model.Alert, error) {
	return s.queryAlerts(ctx,
		"SELECT "+alertColumns+" FROM alerts WHERE active = 1 AND departure_date >= ? ORDER BY created_at, rowid",
		model.FormatDate(model.DateOf(today)),
	)
}

func (s *SQLite) Deactivate(ctx context.Context, id, ownerID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET active = 0, updated_at = ? WHERE id = ? AND owner_id = ? AND active = 1`,
		time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("deactivate alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *SQLite) RecordObservation(ctx context.Context, alertID string, price float64, observedAt time.Time) (*model.PriceObservation, error) {
	if observedAt.IsZero() {
		observedAt = time.Now()
	}
	obs := &model.PriceObservation{
		ID:         uuid.New().String(),
		AlertID:    alertID,
		Price:      price,
		ObservedAt: observedAt.UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin record observation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE alerts SET last_price = ?, updated_at = ? WHERE id = ?`,
		price, obs.ObservedAt, alertID,
	)
	if err != nil {
		return nil, fmt.Errorf("update last price: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("alert %q: %w", alertID, model.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO price_observations (id, alert_id, price, observed_at) VALUES (?, ?, ?, ?)`,
		obs.ID, obs.AlertID, obs.Price, obs.ObservedAt,
	); err != nil {
		return nil, fmt.Errorf("insert observation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit observation: %w", err)
	}
	return obs, nil
}

func (s *SQLite) ListObservations(ctx context.Context, alertID string) ([]model.PriceObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, alert_id, price, observed_at FROM price_observations
		 WHERE alert_id = ? ORDER BY observed_at, rowid`, alertID)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	var history []model.PriceObservation
	for rows.Next() {
		var o model.PriceObservation
		if err := rows.Scan(&o.ID, &o.AlertID, &o.Price, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}
		history = append(history, o)
	}
	return history, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) queryAlerts(ctx context.Context, query string, args ...any) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*model.Alert, error) {
	var (
		a                 model.Alert
		origin, dest, dep string
		target, last      sql.NullFloat64
		active            int64
	)
	if err := row.Scan(&a.ID, &a.OwnerID, &a.NotifyTarget, &origin, &dest, &dep,
		&target, &last, &active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}

	departure, err := model.ParseDate(dep)
	if err != nil {
		return nil, fmt.Errorf("alert %s departure date: %w", a.ID, err)
	}
	a.Origin = model.AirportCode(origin)
	a.Destination = model.AirportCode(dest)
	a.DepartureDate = departure
	a.Active = active == 1
	if target.Valid {
		a.TargetPrice = model.Float(target.Float64)
	}
	if last.Valid {
		a.LastPrice = model.Float(last.Float64)
	}
	return &a, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
