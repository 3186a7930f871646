package store

import (
	"database/sql"
	"fmt"
	"time"

	"questboard/internal/model"
	"questboard/internal/task"
)

// InstanceStore owns the task instance lifecycle. Every operation that spans
// more than one row (template flag flips, ledger appends) runs in a single
// transaction, and the state-changing UPDATEs are conditional on the expected
// prior state so that racing duplicates affect zero rows instead of repeating
// a side effect.
type InstanceStore struct {
	db *sql.DB
}

func NewInstanceStore(db *sql.DB) *InstanceStore {
	return &InstanceStore{db: db}
}

func scanInstance(scanner interface{ Scan(...any) error }) (*model.TaskInstance, error) {
	var i model.TaskInstance
	var archived int
	var approvedAt sql.NullTime

	err := scanner.Scan(
		&i.ID, &i.TemplateID, &i.AssignedKidID, &i.PointsAwarded,
		&i.Details, &i.Status, &i.SortOrder, &archived,
		&i.CreatedAt, &approvedAt,
	)
	if err != nil {
		return nil, err
	}

	i.Archived = archived != 0
	if approvedAt.Valid {
		i.ApprovedAt = &approvedAt.Time
	}
	return &i, nil
}

const instanceCols = `id, template_id, assigned_kid_id, points_awarded, details, status, sort_order, archived, created_at, approved_at`

// CreateFromTemplate spawns a new doing-lane instance for a kid, snapshotting
// the template's point value and hiding the template until the work is
// approved. At most one unresolved instance can exist per template: the
// conditional flag flip fails for the second caller.
func (s *InstanceStore) CreateFromTemplate(templateID, kidID int64) (*model.TaskInstance, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var points int
	err = tx.QueryRow(`SELECT default_points FROM task_templates WHERE id = ?`, templateID).Scan(&points)
	if err == sql.ErrNoRows {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template points: %w", err)
	}

	var kidExists int
	err = tx.QueryRow(`SELECT 1 FROM kids WHERE id = ?`, kidID).Scan(&kidExists)
	if err == sql.ErrNoRows {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check kid: %w", err)
	}

	result, err := tx.Exec(`UPDATE task_templates SET available = 0 WHERE id = ? AND available = 1`, templateID)
	if err != nil {
		return nil, fmt.Errorf("claim template: %w", err)
	}
	claimed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if claimed == 0 {
		return nil, task.ErrTemplateUnavailable
	}

	result, err = tx.Exec(
		`INSERT INTO task_instances (template_id, assigned_kid_id, points_awarded, details, status) VALUES (?, ?, ?, '', ?)`,
		templateID, kidID, points, string(task.StatusDoing),
	)
	if err != nil {
		return nil, fmt.Errorf("insert instance: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *InstanceStore) GetByID(id int64) (*model.TaskInstance, error) {
	row := s.db.QueryRow(`SELECT `+instanceCols+` FROM task_instances WHERE id = ?`, id)
	i, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return i, nil
}

// Move applies the workflow table: doing<->review only. Done is terminal here;
// it is reached exclusively through Approve.
func (s *InstanceStore) Move(id int64, target task.Status) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRow(`SELECT status FROM task_instances WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return task.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get instance status: %w", err)
	}

	if err := task.CheckMove(task.Status(current), target); err != nil {
		return err
	}

	_, err = tx.Exec(
		`UPDATE task_instances SET status = ? WHERE id = ? AND status = ?`,
		string(target), id, current,
	)
	if err != nil {
		return fmt.Errorf("move instance: %w", err)
	}
	return tx.Commit()
}

// UpdateDetails replaces the free-text details on an instance that is not yet
// done. Details are frozen once work is finalized.
func (s *InstanceStore) UpdateDetails(id int64, details string) error {
	details = task.Truncate(details, task.MaxDetailsLen)

	result, err := s.db.Exec(
		`UPDATE task_instances SET details = ? WHERE id = ? AND status != ?`,
		details, id, string(task.StatusDone),
	)
	if err != nil {
		return fmt.Errorf("update details: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var one int
		err := s.db.QueryRow(`SELECT 1 FROM task_instances WHERE id = ?`, id).Scan(&one)
		if err == sql.ErrNoRows {
			return task.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check instance: %w", err)
		}
		return task.ErrInstanceImmutable
	}
	return nil
}

// Approve finalizes reviewed work: status becomes done, the approval time is
// stamped, and the originating template is re-offered. Approval never touches
// the ledger; points move only on Collect.
func (s *InstanceStore) Approve(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	var templateID int64
	err = tx.QueryRow(`SELECT status, template_id FROM task_instances WHERE id = ?`, id).Scan(&current, &templateID)
	if err == sql.ErrNoRows {
		return task.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get instance: %w", err)
	}
	if task.Status(current) != task.StatusReview {
		return task.ErrNotInReview
	}

	// archived is reset so the instance lands in the done lane even if it was
	// somehow archived before.
	_, err = tx.Exec(
		`UPDATE task_instances SET status = ?, approved_at = ?, archived = 0 WHERE id = ? AND status = ?`,
		string(task.StatusDone), time.Now().UTC(), id, string(task.StatusReview),
	)
	if err != nil {
		return fmt.Errorf("approve instance: %w", err)
	}

	if _, err := tx.Exec(`UPDATE task_templates SET available = 1 WHERE id = ? AND available = 0`, templateID); err != nil {
		return fmt.Errorf("re-enable template: %w", err)
	}

	return tx.Commit()
}

// Reject sends reviewed work back to the doing lane. No ledger effect, no
// timestamp change, template availability untouched.
func (s *InstanceStore) Reject(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRow(`SELECT status FROM task_instances WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return task.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get instance status: %w", err)
	}
	if task.Status(current) != task.StatusReview {
		return task.ErrNotInReview
	}

	_, err = tx.Exec(
		`UPDATE task_instances SET status = ? WHERE id = ? AND status = ?`,
		string(task.StatusDoing), id, string(task.StatusReview),
	)
	if err != nil {
		return fmt.Errorf("reject instance: %w", err)
	}
	return tx.Commit()
}

// Collect archives a done instance and appends its single award entry to the
// ledger. Collecting an already-archived instance is a no-op success, and the
// archived flag flip is the point-award guard: only the caller whose UPDATE
// lands inserts the ledger row.
func (s *InstanceStore) Collect(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	var archived int
	var kidID int64
	var points int
	var title string
	err = tx.QueryRow(
		`SELECT i.status, i.archived, i.assigned_kid_id, i.points_awarded, t.title
		 FROM task_instances i JOIN task_templates t ON t.id = i.template_id
		 WHERE i.id = ?`, id,
	).Scan(&current, &archived, &kidID, &points, &title)
	if err == sql.ErrNoRows {
		return task.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get instance: %w", err)
	}
	if task.Status(current) != task.StatusDone {
		return task.ErrNotCollectible
	}
	if archived != 0 {
		// Already collected; double submits succeed quietly.
		return nil
	}

	result, err := tx.Exec(
		`UPDATE task_instances SET archived = 1 WHERE id = ? AND status = ? AND archived = 0`,
		id, string(task.StatusDone),
	)
	if err != nil {
		return fmt.Errorf("archive instance: %w", err)
	}
	flipped, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if flipped == 0 {
		return nil
	}

	_, err = tx.Exec(
		`INSERT INTO points_ledger (kid_id, amount, reason, instance_id, note) VALUES (?, ?, ?, ?, ?)`,
		kidID, points, task.ReasonTaskApproved, id, "Collected: "+title,
	)
	if err != nil {
		return fmt.Errorf("award points: %w", err)
	}

	return tx.Commit()
}

// Delete is the administrative override: it removes the instance together
// with any ledger entries that reference it.
func (s *InstanceStore) Delete(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM points_ledger WHERE instance_id = ?`, id); err != nil {
		return fmt.Errorf("delete ledger entries: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM task_instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return task.ErrNotFound
	}
	return tx.Commit()
}

// SetColumnOrder writes positional sort keys for the given ids within one
// status lane, optionally scoped to a kid. Ids that match no stored instance
// are skipped; an empty list is a no-op.
func (s *InstanceStore) SetColumnOrder(status task.Status, ids []int64, kidFilter *int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if kidFilter != nil {
			_, err = tx.Exec(
				`UPDATE task_instances SET sort_order = ? WHERE id = ? AND status = ? AND assigned_kid_id = ?`,
				i, id, string(status), *kidFilter,
			)
		} else {
			_, err = tx.Exec(
				`UPDATE task_instances SET sort_order = ? WHERE id = ? AND status = ?`,
				i, id, string(status),
			)
		}
		if err != nil {
			return fmt.Errorf("update sort order: %w", err)
		}
	}
	return tx.Commit()
}

// ListLane returns a kid's doing or review lane in board order.
func (s *InstanceStore) ListLane(status task.Status, kidID int64) ([]model.TaskInstance, error) {
	rows, err := s.db.Query(
		`SELECT `+instanceCols+` FROM task_instances
		 WHERE status = ? AND assigned_kid_id = ?
		 ORDER BY sort_order ASC, id ASC`,
		string(status), kidID,
	)
	if err != nil {
		return nil, fmt.Errorf("list lane: %w", err)
	}
	return collectInstances(rows)
}

// ListDone returns a kid's done-but-uncollected instances, newest approvals
// first.
func (s *InstanceStore) ListDone(kidID int64) ([]model.TaskInstance, error) {
	rows, err := s.db.Query(
		`SELECT `+instanceCols+` FROM task_instances
		 WHERE status = ? AND assigned_kid_id = ? AND archived = 0
		 ORDER BY approved_at DESC, id DESC`,
		string(task.StatusDone), kidID,
	)
	if err != nil {
		return nil, fmt.Errorf("list done lane: %w", err)
	}
	return collectInstances(rows)
}

// ListArchived returns collected instances, optionally for one kid, newest
// approvals first.
func (s *InstanceStore) ListArchived(kidFilter *int64) ([]model.TaskInstance, error) {
	var rows *sql.Rows
	var err error
	if kidFilter != nil {
		rows, err = s.db.Query(
			`SELECT `+instanceCols+` FROM task_instances
			 WHERE status = ? AND archived = 1 AND assigned_kid_id = ?
			 ORDER BY approved_at DESC, id DESC`,
			string(task.StatusDone), *kidFilter,
		)
	} else {
		rows, err = s.db.Query(
			`SELECT `+instanceCols+` FROM task_instances
			 WHERE status = ? AND archived = 1
			 ORDER BY approved_at DESC, id DESC`,
			string(task.StatusDone),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list archived: %w", err)
	}
	return collectInstances(rows)
}

func collectInstances(rows *sql.Rows) ([]model.TaskInstance, error) {
	defer rows.Close()

	var instances []model.TaskInstance
	for rows.Next() {
		i, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, *i)
	}
	return instances, rows.Err()
}
