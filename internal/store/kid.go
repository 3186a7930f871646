package store

import (
	"database/sql"
	"fmt"

	"questboard/internal/model"
	"questboard/internal/task"
)

type KidStore struct {
	db *sql.DB
}

func NewKidStore(db *sql.DB) *KidStore {
	return &KidStore{db: db}
}

func scanKid(scanner interface{ Scan(...any) error }) (*model.Kid, error) {
	var k model.Kid
	err := scanner.Scan(&k.ID, &k.Name, &k.Color, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

const kidCols = `id, name, color, created_at`

func (s *KidStore) Create(name, color string) (*model.Kid, error) {
	name = task.Truncate(name, task.MaxNameLen)
	if color == "" {
		color = "#3b82f6"
	}
	result, err := s.db.Exec(
		`INSERT INTO kids (name, color) VALUES (?, ?)`,
		name, color,
	)
	if err != nil {
		return nil, fmt.Errorf("insert kid: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *KidStore) GetByID(id int64) (*model.Kid, error) {
	row := s.db.QueryRow(`SELECT `+kidCols+` FROM kids WHERE id = ?`, id)
	k, err := scanKid(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get kid: %w", err)
	}
	return k, nil
}

// List returns all kids ordered by name.
func (s *KidStore) List() ([]model.Kid, error) {
	rows, err := s.db.Query(`SELECT ` + kidCols + ` FROM kids ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list kids: %w", err)
	}
	defer rows.Close()

	var kids []model.Kid
	for rows.Next() {
		k, err := scanKid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan kid: %w", err)
		}
		kids = append(kids, *k)
	}
	return kids, rows.Err()
}

func (s *KidStore) Update(id int64, name, color string) (*model.Kid, error) {
	name = task.Truncate(name, task.MaxNameLen)
	_, err := s.db.Exec(
		`UPDATE kids SET name = ?, color = ? WHERE id = ?`,
		name, color, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update kid: %w", err)
	}
	return s.GetByID(id)
}
