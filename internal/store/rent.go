package store

import (
	"database/sql"
	"fmt"
	"time"

	"questboard/internal/model"
	"questboard/internal/task"
)

type RentStore struct {
	db *sql.DB
}

func NewRentStore(db *sql.DB) *RentStore {
	return &RentStore{db: db}
}

func scanRentPolicy(scanner interface{ Scan(...any) error }) (*model.RentPolicy, error) {
	var p model.RentPolicy
	var lastCharged sql.NullString

	err := scanner.Scan(&p.ID, &p.KidID, &p.RentAmount, &p.RentDayOfMonth, &lastCharged)
	if err != nil {
		return nil, err
	}

	if lastCharged.Valid {
		p.LastChargedOn = &lastCharged.String
	}
	return &p, nil
}

const rentCols = `id, kid_id, rent_amount, rent_day_of_month, last_charged_on`

// Ensure returns the kid's rent policy, creating it with defaults (50 points,
// day 1) on first access. The unique constraint on kid_id makes concurrent
// first accesses converge on one row.
func (s *RentStore) Ensure(kidID int64) (*model.RentPolicy, error) {
	_, err := s.db.Exec(
		`INSERT INTO rent_policies (kid_id) VALUES (?) ON CONFLICT(kid_id) DO NOTHING`,
		kidID,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure rent policy: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+rentCols+` FROM rent_policies WHERE kid_id = ?`, kidID)
	p, err := scanRentPolicy(row)
	if err != nil {
		return nil, fmt.Errorf("get rent policy: %w", err)
	}
	return p, nil
}

// Update sets the rent amount (floored at 0) and day-of-month (clamped 1-28).
func (s *RentStore) Update(kidID int64, amount, dayOfMonth int) (*model.RentPolicy, error) {
	if _, err := s.Ensure(kidID); err != nil {
		return nil, err
	}

	if amount < 0 {
		amount = 0
	}
	dayOfMonth = task.ClampRentDay(dayOfMonth)

	_, err := s.db.Exec(
		`UPDATE rent_policies SET rent_amount = ?, rent_day_of_month = ? WHERE kid_id = ?`,
		amount, dayOfMonth, kidID,
	)
	if err != nil {
		return nil, fmt.Errorf("update rent policy: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+rentCols+` FROM rent_policies WHERE kid_id = ?`, kidID)
	return scanRentPolicy(row)
}

// ChargeIfDue debits one month of rent when today matches the policy's
// day-of-month and the kid has not already been charged today. The reported
// bool is "charged", not an error: a non-due day is a normal negative result.
// The conditional UPDATE on last_charged_on serializes duplicate invocations
// so the ledger sees one debit per kid per day.
func (s *RentStore) ChargeIfDue(kidID int64, today time.Time) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO rent_policies (kid_id) VALUES (?) ON CONFLICT(kid_id) DO NOTHING`, kidID); err != nil {
		return false, fmt.Errorf("ensure rent policy: %w", err)
	}

	var amount, dayOfMonth int
	var lastCharged sql.NullString
	err = tx.QueryRow(
		`SELECT rent_amount, rent_day_of_month, last_charged_on FROM rent_policies WHERE kid_id = ?`,
		kidID,
	).Scan(&amount, &dayOfMonth, &lastCharged)
	if err != nil {
		return false, fmt.Errorf("get rent policy: %w", err)
	}

	todayStr := today.Format("2006-01-02")
	if today.Day() != dayOfMonth {
		return false, nil
	}
	if lastCharged.Valid && lastCharged.String == todayStr {
		return false, nil
	}

	result, err := tx.Exec(
		`UPDATE rent_policies SET last_charged_on = ? WHERE kid_id = ? AND (last_charged_on IS NULL OR last_charged_on != ?)`,
		todayStr, kidID, todayStr,
	)
	if err != nil {
		return false, fmt.Errorf("stamp charge date: %w", err)
	}
	stamped, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if stamped == 0 {
		return false, nil
	}

	if amount < 0 {
		amount = -amount
	}
	_, err = tx.Exec(
		`INSERT INTO points_ledger (kid_id, amount, reason, instance_id, note) VALUES (?, ?, ?, NULL, ?)`,
		kidID, -amount, task.ReasonRentPaid, fmt.Sprintf("Monthly rent (day %d)", dayOfMonth),
	)
	if err != nil {
		return false, fmt.Errorf("debit rent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
