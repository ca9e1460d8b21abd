package models

import "time"

// ClassSession is one attendance-taking window. At most one session may be
// open at any time, enforced by a partial unique index at the store level.
type ClassSession struct {
	ID        string     `db:"id" json:"id"`
	TeacherID string     `db:"teacher_id" json:"teacher_id"`
	Date      time.Time  `db:"date" json:"date"`
	StartedAt time.Time  `db:"started_at" json:"started_at"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	Open      bool       `db:"open" json:"open"`
	RefLat    *float64   `db:"ref_lat" json:"ref_lat,omitempty"`
	RefLon    *float64   `db:"ref_lon" json:"ref_lon,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// HasReference reports whether a geofence center was set when the session
// was opened.
func (s *ClassSession) HasReference() bool {
	return s.RefLat != nil && s.RefLon != nil
}
