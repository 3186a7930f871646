package model

import "time"

type TaskTemplate struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	DefaultPoints int       `json:"default_points"`
	HelpText      string    `json:"help_text"`
	Available     bool      `json:"available"`
	SortOrder     int       `json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
}

// TaskInstance is one concrete assignment of a template to a kid.
// PointsAwarded snapshots the template's default points at creation time,
// so later template edits never change an in-flight instance's award.
type TaskInstance struct {
	ID            int64      `json:"id"`
	TemplateID    int64      `json:"template_id"`
	AssignedKidID int64      `json:"assigned_kid_id"`
	PointsAwarded int        `json:"points_awarded"`
	Details       string     `json:"details"`
	Status        string     `json:"status"`
	SortOrder     int        `json:"sort_order"`
	Archived      bool       `json:"archived"`
	CreatedAt     time.Time  `json:"created_at"`
	ApprovedAt    *time.Time `json:"approved_at"`
}
