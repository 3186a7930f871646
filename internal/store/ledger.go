package store

import (
	"database/sql"
	"fmt"

	"questboard/internal/model"
	"questboard/internal/task"
)

type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func scanLedgerEntry(scanner interface{ Scan(...any) error }) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var instanceID sql.NullInt64

	err := scanner.Scan(&e.ID, &e.KidID, &e.Amount, &e.Reason, &instanceID, &e.Note, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if instanceID.Valid {
		e.InstanceID = &instanceID.Int64
	}
	return &e, nil
}

const ledgerCols = `id, kid_id, amount, reason, instance_id, note, created_at`

// Balance is the sum of all entry amounts for a kid. Recomputed on every call;
// the ledger stays small enough that nothing is cached.
func (s *LedgerStore) Balance(kidID int64) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM points_ledger WHERE kid_id = ?`,
		kidID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return int(total.Int64), nil
}

// ListByKid returns a kid's entries, newest first.
func (s *LedgerStore) ListByKid(kidID int64) ([]model.LedgerEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+ledgerCols+` FROM points_ledger WHERE kid_id = ? ORDER BY created_at DESC, id DESC`,
		kidID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Adjust appends a manual gamemaster correction, positive or negative.
func (s *LedgerStore) Adjust(kidID int64, amount int, note string) (*model.LedgerEntry, error) {
	note = task.Truncate(note, task.MaxNoteLen)

	result, err := s.db.Exec(
		`INSERT INTO points_ledger (kid_id, amount, reason, instance_id, note) VALUES (?, ?, ?, NULL, ?)`,
		kidID, amount, task.ReasonManualAdjustment, note,
	)
	if err != nil {
		return nil, fmt.Errorf("insert adjustment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+ledgerCols+` FROM points_ledger WHERE id = ?`, id)
	return scanLedgerEntry(row)
}

// CountByInstance reports how many entries reference an instance with the
// given reason.
func (s *LedgerStore) CountByInstance(instanceID int64, reason string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM points_ledger WHERE instance_id = ? AND reason = ?`,
		instanceID, reason,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return count, nil
}
