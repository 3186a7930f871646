package store

import (
	"database/sql"
	"fmt"

	"questboard/internal/model"
	"questboard/internal/task"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func scanTemplate(scanner interface{ Scan(...any) error }) (*model.TaskTemplate, error) {
	var t model.TaskTemplate
	var available int

	err := scanner.Scan(&t.ID, &t.Title, &t.DefaultPoints, &t.HelpText, &available, &t.SortOrder, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	t.Available = available != 0
	return &t, nil
}

const templateCols = `id, title, default_points, help_text, available, sort_order, created_at`

func (s *TemplateStore) Create(title string, defaultPoints int, helpText string, sortOrder int) (*model.TaskTemplate, error) {
	title = task.Truncate(title, task.MaxTitleLen)
	helpText = task.Truncate(helpText, task.MaxHelpLen)

	result, err := s.db.Exec(
		`INSERT INTO task_templates (title, default_points, help_text, sort_order, available) VALUES (?, ?, ?, ?, 1)`,
		title, defaultPoints, helpText, sortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) GetByID(id int64) (*model.TaskTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateCols+` FROM task_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// List returns the whole catalog in display order.
func (s *TemplateStore) List() ([]model.TaskTemplate, error) {
	return s.list(`SELECT ` + templateCols + ` FROM task_templates ORDER BY sort_order ASC, id ASC`)
}

// ListAvailable returns the pool: templates currently offerable to kids.
func (s *TemplateStore) ListAvailable() ([]model.TaskTemplate, error) {
	return s.list(`SELECT ` + templateCols + ` FROM task_templates WHERE available = 1 ORDER BY sort_order ASC, id ASC`)
}

func (s *TemplateStore) list(query string) ([]model.TaskTemplate, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.TaskTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (s *TemplateStore) Update(id int64, title string, defaultPoints int, helpText string, sortOrder int) (*model.TaskTemplate, error) {
	title = task.Truncate(title, task.MaxTitleLen)
	helpText = task.Truncate(helpText, task.MaxHelpLen)

	_, err := s.db.Exec(
		`UPDATE task_templates SET title = ?, default_points = ?, help_text = ?, sort_order = ? WHERE id = ?`,
		title, defaultPoints, helpText, sortOrder, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes a template that has never been instantiated. Templates with
// instances keep their history and return ErrTemplateInUse.
func (s *TemplateStore) Delete(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT 1 FROM task_templates WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return task.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check template: %w", err)
	}

	var refs int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM task_instances WHERE template_id = ?`, id).Scan(&refs); err != nil {
		return fmt.Errorf("count instances: %w", err)
	}
	if refs > 0 {
		return task.ErrTemplateInUse
	}

	if _, err := tx.Exec(`DELETE FROM task_templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return tx.Commit()
}

// RefreshPool re-offers every template, including those hidden by in-flight
// instances.
func (s *TemplateStore) RefreshPool() error {
	_, err := s.db.Exec(`UPDATE task_templates SET available = 1`)
	if err != nil {
		return fmt.Errorf("refresh pool: %w", err)
	}
	return nil
}
