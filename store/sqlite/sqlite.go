/*
Package sqlite provides the SQLite-backed implementation of inventory.Store.

PURPOSE:
  All persistence for the slab engine: materials and their shade variants,
  stock lots, reservations, and the append-only ledger. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

ATOMICITY:
  ApplyReservation and ApplyTransition are each one sql transaction: every
  lot update/delete, remnant insert, reservation write, ledger append, and
  the status recompute either all land or none do. The reference flow this
  engine replaces issued those writes independently; here a failure anywhere
  rolls the whole set back, so the area-conservation invariant can never be
  observed broken.

CONCURRENCY:
  Lot writes are guarded optimistically: UPDATE/DELETE statements carry
  "AND slab_count = ?" with the count from the planning snapshot. A guard
  that affects zero rows aborts the transaction with slab.ErrStorageConflict
  and the caller re-plans. Reservation transitions are guarded on status the
  same way, which is what makes terminal transitions fail loudly instead of
  double-applying.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statement exists for ledger_entries. Corrections are
  recorded as compensating entries.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single writer
  at a time, better crash recovery. A store-level mutex serializes writers
  within the process.

USAGE:
  st, err := sqlite.New("./data/slabyard.db")   // ":memory:" for tests
  svc := inventory.NewService(st, nil, logger)

SEE ALSO:
  - inventory/store.go: Interface and mutation-set contracts
  - inventory/store/memory.go: In-memory implementation for unit tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/slab-engine/inventory"
	"github.com/warp/slab-engine/slab"
)

// Store implements inventory.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS materials (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		low_stock_threshold TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'out_of_stock',
		created_at TEXT NOT NULL
	);

	-- One row per active shade variant; presence of the row is what makes
	-- the shade orderable.
	CREATE TABLE IF NOT EXISTS material_shades (
		material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
		shade TEXT NOT NULL,
		cost_price TEXT NOT NULL,
		sale_price TEXT NOT NULL,
		barcode TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (material_id, shade)
	);

	-- Geometry columns are either all set or all NULL.
	CREATE TABLE IF NOT EXISTS stock_lots (
		id TEXT PRIMARY KEY,
		material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
		shade TEXT NOT NULL,
		quantity TEXT NOT NULL,
		length TEXT,
		width TEXT,
		slab_count INTEGER,
		from_cut INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		CHECK ((length IS NULL) = (width IS NULL) AND (width IS NULL) = (slab_count IS NULL))
	);

	CREATE INDEX IF NOT EXISTS idx_lots_material_shade
		ON stock_lots(material_id, shade, created_at);

	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		material_id TEXT NOT NULL REFERENCES materials(id),
		shade TEXT NOT NULL,
		quantity TEXT NOT NULL,
		length TEXT NOT NULL,
		width TEXT NOT NULL,
		slab_count INTEGER NOT NULL,
		client_name TEXT NOT NULL,
		status TEXT NOT NULL,
		reserved_at TEXT NOT NULL,
		released_at TEXT,
		delivered_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reservations_material
		ON reservations(material_id, reserved_at);
	CREATE INDEX IF NOT EXISTS idx_reservations_status
		ON reservations(status);

	-- Append-only: no UPDATE/DELETE path exists for this table.
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		material_id TEXT NOT NULL REFERENCES materials(id),
		shade TEXT NOT NULL,
		direction TEXT NOT NULL CHECK (direction IN ('IN', 'OUT')),
		quantity TEXT NOT NULL,
		reason TEXT,
		reference_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_material
		ON ledger_entries(material_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_ledger_reference
		ON ledger_entries(reference_id) WHERE reference_id IS NOT NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MATERIALS
// =============================================================================

// SaveMaterial upserts a material and replaces its shade variant rows.
func (s *Store) SaveMaterial(ctx context.Context, m inventory.MaterialType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO materials (id, name, low_stock_threshold, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			low_stock_threshold = excluded.low_stock_threshold,
			status = excluded.status`,
		m.ID, m.Name, m.LowStockThreshold.String(), string(m.Status),
		m.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM material_shades WHERE material_id = ?`, m.ID); err != nil {
		return err
	}
	for shade, v := range m.Shades {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO material_shades (material_id, shade, cost_price, sale_price, barcode)
			VALUES (?, ?, ?, ?, ?)`,
			m.ID, string(shade), v.CostPrice.String(), v.SalePrice.String(), v.Barcode)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetMaterial returns nil, nil when the material does not exist.
func (s *Store) GetMaterial(ctx context.Context, id string) (*inventory.MaterialType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, low_stock_threshold, status, created_at
		FROM materials WHERE id = ?`, id)

	m, err := scanMaterial(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT shade, cost_price, sale_price, barcode
		FROM material_shades WHERE material_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var shade, cost, sale, barcode string
		if err := rows.Scan(&shade, &cost, &sale, &barcode); err != nil {
			return nil, err
		}
		costD, err := decimal.NewFromString(cost)
		if err != nil {
			return nil, err
		}
		saleD, err := decimal.NewFromString(sale)
		if err != nil {
			return nil, err
		}
		m.Shades[inventory.Shade(shade)] = inventory.ShadeVariant{
			CostPrice: costD,
			SalePrice: saleD,
			Barcode:   barcode,
		}
	}
	return m, rows.Err()
}

// ListMaterials returns all materials. Shade maps are left empty; listings
// don't need pricing.
func (s *Store) ListMaterials(ctx context.Context) ([]inventory.MaterialType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, low_stock_threshold, status, created_at
		FROM materials ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []inventory.MaterialType
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMaterial(r rowScanner) (*inventory.MaterialType, error) {
	var m inventory.MaterialType
	var threshold, status, createdAt string
	if err := r.Scan(&m.ID, &m.Name, &threshold, &status, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if m.LowStockThreshold, err = decimal.NewFromString(threshold); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	m.Status = inventory.StockStatus(status)
	m.Shades = make(map[inventory.Shade]inventory.ShadeVariant)
	return &m, nil
}

// =============================================================================
// LOTS
// =============================================================================

// InsertLot writes the lot, its IN ledger entry, and the refreshed material
// status in one transaction.
func (s *Store) InsertLot(ctx context.Context, lot inventory.StockLot, entry inventory.LedgerEntry) (inventory.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return inventory.ApplyResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertLotTx(ctx, tx, lot); err != nil {
		return inventory.ApplyResult{}, err
	}
	if err := appendLedgerTx(ctx, tx, entry); err != nil {
		return inventory.ApplyResult{}, err
	}

	var threshold string
	if err := tx.QueryRowContext(ctx,
		`SELECT low_stock_threshold FROM materials WHERE id = ?`, lot.MaterialID,
	).Scan(&threshold); err != nil {
		if err == sql.ErrNoRows {
			return inventory.ApplyResult{}, inventory.ErrMaterialNotFound
		}
		return inventory.ApplyResult{}, err
	}
	thresholdD, err := decimal.NewFromString(threshold)
	if err != nil {
		return inventory.ApplyResult{}, err
	}

	result, err := refreshStatusTx(ctx, tx, lot.MaterialID, thresholdD)
	if err != nil {
		return inventory.ApplyResult{}, err
	}
	return result, tx.Commit()
}

// LotsForShade returns geometry and non-geometry lots oldest-first, so
// planning drains old stock before new.
func (s *Store) LotsForShade(ctx context.Context, materialID string, shade inventory.Shade) ([]inventory.StockLot, error) {
	return s.queryLots(ctx, `
		SELECT id, material_id, shade, quantity, length, width, slab_count, from_cut, created_at
		FROM stock_lots WHERE material_id = ? AND shade = ?
		ORDER BY created_at ASC, id ASC`, materialID, string(shade))
}

// ListLots returns every lot for a material, oldest-first.
func (s *Store) ListLots(ctx context.Context, materialID string) ([]inventory.StockLot, error) {
	return s.queryLots(ctx, `
		SELECT id, material_id, shade, quantity, length, width, slab_count, from_cut, created_at
		FROM stock_lots WHERE material_id = ?
		ORDER BY created_at ASC, id ASC`, materialID)
}

func (s *Store) queryLots(ctx context.Context, query string, args ...any) ([]inventory.StockLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []inventory.StockLot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lot)
	}
	return out, rows.Err()
}

func scanLot(r rowScanner) (inventory.StockLot, error) {
	var lot inventory.StockLot
	var quantity, createdAt string
	var length, width sql.NullString
	var slabCount sql.NullInt64
	var fromCut int

	if err := r.Scan(&lot.ID, &lot.MaterialID, &lot.Shade, &quantity,
		&length, &width, &slabCount, &fromCut, &createdAt); err != nil {
		return lot, err
	}

	var err error
	if lot.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return lot, err
	}
	if lot.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return lot, err
	}
	lot.FromCut = fromCut != 0

	if length.Valid && width.Valid && slabCount.Valid {
		l, err := decimal.NewFromString(length.String)
		if err != nil {
			return lot, err
		}
		w, err := decimal.NewFromString(width.String)
		if err != nil {
			return lot, err
		}
		lot.Geometry = &inventory.LotGeometry{
			Length:    l,
			Width:     w,
			SlabCount: int(slabCount.Int64),
		}
	}
	return lot, nil
}

func insertLotTx(ctx context.Context, tx *sql.Tx, lot inventory.StockLot) error {
	var length, width, slabCount any
	if lot.Geometry != nil {
		length = lot.Geometry.Length.String()
		width = lot.Geometry.Width.String()
		slabCount = lot.Geometry.SlabCount
	}
	fromCut := 0
	if lot.FromCut {
		fromCut = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_lots (id, material_id, shade, quantity, length, width, slab_count, from_cut, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lot.ID, lot.MaterialID, string(lot.Shade), lot.Quantity.String(),
		length, width, slabCount, fromCut,
		lot.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func appendLedgerTx(ctx context.Context, tx *sql.Tx, e inventory.LedgerEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, material_id, shade, direction, quantity, reason, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.MaterialID, string(e.Shade), string(e.Direction),
		e.Quantity.String(), e.Reason, e.ReferenceID,
		e.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// =============================================================================
// RESERVATIONS & LEDGER READS
// =============================================================================

func (s *Store) GetReservation(ctx context.Context, id string) (*inventory.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, material_id, shade, quantity, length, width, slab_count,
		       client_name, status, reserved_at, released_at, delivered_at
		FROM reservations WHERE id = ?`, id)

	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) ListReservations(ctx context.Context, materialID string) ([]inventory.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, material_id, shade, quantity, length, width, slab_count,
		       client_name, status, reserved_at, released_at, delivered_at
		FROM reservations`
	var args []any
	if materialID != "" {
		query += ` WHERE material_id = ?`
		args = append(args, materialID)
	}
	query += ` ORDER BY reserved_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []inventory.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func scanReservation(r rowScanner) (*inventory.Reservation, error) {
	var res inventory.Reservation
	var quantity, length, width, reservedAt string
	var releasedAt, deliveredAt sql.NullString

	if err := r.Scan(&res.ID, &res.MaterialID, &res.Shade, &quantity, &length, &width,
		&res.SlabCount, &res.ClientName, &res.Status, &reservedAt, &releasedAt, &deliveredAt); err != nil {
		return nil, err
	}

	var err error
	if res.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, err
	}
	if res.Length, err = decimal.NewFromString(length); err != nil {
		return nil, err
	}
	if res.Width, err = decimal.NewFromString(width); err != nil {
		return nil, err
	}
	if res.ReservedAt, err = time.Parse(time.RFC3339Nano, reservedAt); err != nil {
		return nil, err
	}
	if releasedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, releasedAt.String)
		if err != nil {
			return nil, err
		}
		res.ReleasedAt = &t
	}
	if deliveredAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, deliveredAt.String)
		if err != nil {
			return nil, err
		}
		res.DeliveredAt = &t
	}
	return &res, nil
}

func (s *Store) LedgerEntries(ctx context.Context, materialID string) ([]inventory.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, material_id, shade, direction, quantity, reason, reference_id, created_at
		FROM ledger_entries`
	var args []any
	if materialID != "" {
		query += ` WHERE material_id = ?`
		args = append(args, materialID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []inventory.LedgerEntry
	for rows.Next() {
		var e inventory.LedgerEntry
		var quantity, createdAt string
		var reason, reference sql.NullString
		if err := rows.Scan(&e.ID, &e.MaterialID, &e.Shade, &e.Direction,
			&quantity, &reason, &reference, &createdAt); err != nil {
			return nil, err
		}
		var err error
		if e.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		e.Reason = reason.String
		e.ReferenceID = reference.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// ATOMIC MUTATION SETS
// =============================================================================

// ApplyReservation applies a full reservation mutation set in one sql
// transaction. Any missed optimistic guard aborts with ErrStorageConflict
// and nothing is committed.
func (s *Store) ApplyReservation(ctx context.Context, m inventory.ReservationMutation) (inventory.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return inventory.ApplyResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, u := range m.Updates {
		res, err := tx.ExecContext(ctx, `
			UPDATE stock_lots SET slab_count = ?, quantity = ?
			WHERE id = ? AND slab_count = ?`,
			u.NewCount, u.NewQuantity.String(), u.LotID, u.ExpectedCount)
		if err != nil {
			return inventory.ApplyResult{}, err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return inventory.ApplyResult{}, slab.ErrStorageConflict
		}
	}

	for _, d := range m.Deletes {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM stock_lots WHERE id = ? AND slab_count = ?`,
			d.LotID, d.ExpectedCount)
		if err != nil {
			return inventory.ApplyResult{}, err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return inventory.ApplyResult{}, slab.ErrStorageConflict
		}
	}

	for _, remnant := range m.Remnants {
		if err := insertLotTx(ctx, tx, remnant); err != nil {
			return inventory.ApplyResult{}, err
		}
	}

	if err := insertReservationTx(ctx, tx, m.Reservation); err != nil {
		return inventory.ApplyResult{}, err
	}
	for _, entry := range m.Ledger {
		if err := appendLedgerTx(ctx, tx, entry); err != nil {
			return inventory.ApplyResult{}, err
		}
	}

	result, err := refreshStatusTx(ctx, tx, m.MaterialID, m.LowStockThreshold)
	if err != nil {
		return inventory.ApplyResult{}, err
	}
	return result, tx.Commit()
}

// ApplyTransition moves a reservation out of Reserved, guarded on the
// expected current status, and applies the restore/ledger side effects in
// the same transaction.
func (s *Store) ApplyTransition(ctx context.Context, m inventory.TransitionMutation) (inventory.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return inventory.ApplyResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stampCol := "released_at"
	if m.ToStatus == inventory.StatusDelivered {
		stampCol = "delivered_at"
	}
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE reservations SET status = ?, %s = ?
		WHERE id = ? AND status = ?`, stampCol),
		string(m.ToStatus), m.Ledger.CreatedAt.UTC().Format(time.RFC3339Nano),
		m.ReservationID, string(m.FromStatus))
	if err != nil {
		return inventory.ApplyResult{}, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return inventory.ApplyResult{}, s.transitionConflict(ctx, tx, m)
	}

	var materialID string
	if err := tx.QueryRowContext(ctx,
		`SELECT material_id FROM reservations WHERE id = ?`, m.ReservationID,
	).Scan(&materialID); err != nil {
		return inventory.ApplyResult{}, err
	}

	if m.RestoredLot != nil {
		if err := insertLotTx(ctx, tx, *m.RestoredLot); err != nil {
			return inventory.ApplyResult{}, err
		}
	}
	if err := appendLedgerTx(ctx, tx, m.Ledger); err != nil {
		return inventory.ApplyResult{}, err
	}

	if m.RestoredLot == nil {
		// Delivery moves no stock; keep the material status as-is.
		var status string
		if err := tx.QueryRowContext(ctx,
			`SELECT status FROM materials WHERE id = ?`, materialID,
		).Scan(&status); err != nil {
			return inventory.ApplyResult{}, err
		}
		remaining, err := totalQuantityTx(ctx, tx, materialID)
		if err != nil {
			return inventory.ApplyResult{}, err
		}
		return inventory.ApplyResult{
			RemainingQuantity: remaining,
			Status:            inventory.StockStatus(status),
		}, tx.Commit()
	}

	result, err := refreshStatusTx(ctx, tx, materialID, m.LowStockThreshold)
	if err != nil {
		return inventory.ApplyResult{}, err
	}
	return result, tx.Commit()
}

// transitionConflict turns a missed status guard into the right error.
func (s *Store) transitionConflict(ctx context.Context, tx *sql.Tx, m inventory.TransitionMutation) error {
	var current string
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM reservations WHERE id = ?`, m.ReservationID,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return inventory.ErrReservationNotFound
	}
	if err != nil {
		return err
	}
	return &inventory.IllegalTransitionError{
		ReservationID: m.ReservationID,
		Current:       inventory.ReservationStatus(current),
		Attempted:     string(m.ToStatus),
	}
}

// totalQuantityTx sums lot quantities in Go rather than SQL so decimal
// strings never round-trip through sqlite's float affinity.
func totalQuantityTx(ctx context.Context, tx *sql.Tx, materialID string) (decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT quantity FROM stock_lots WHERE material_id = ?`, materialID)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return decimal.Zero, err
		}
		d, err := decimal.NewFromString(q)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

// refreshStatusTx recomputes the aggregate quantity and persists the derived
// status inside the caller's transaction.
func refreshStatusTx(ctx context.Context, tx *sql.Tx, materialID string, threshold decimal.Decimal) (inventory.ApplyResult, error) {
	remaining, err := totalQuantityTx(ctx, tx, materialID)
	if err != nil {
		return inventory.ApplyResult{}, err
	}
	status := inventory.StatusFor(remaining, threshold)
	if _, err := tx.ExecContext(ctx,
		`UPDATE materials SET status = ? WHERE id = ?`, string(status), materialID); err != nil {
		return inventory.ApplyResult{}, err
	}
	return inventory.ApplyResult{RemainingQuantity: remaining, Status: status}, nil
}

func insertReservationTx(ctx context.Context, tx *sql.Tx, r inventory.Reservation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (id, material_id, shade, quantity, length, width, slab_count,
			client_name, status, reserved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.MaterialID, string(r.Shade), r.Quantity.String(),
		r.Length.String(), r.Width.String(), r.SlabCount,
		r.ClientName, string(r.Status),
		r.ReservedAt.UTC().Format(time.RFC3339Nano))
	return err
}
