package models

import "time"

// AttendanceRecord is one student's scan for one session. The (session_id,
// student_id) pair is unique; valid is immutable once written, only the
// justification fields may change afterwards.
type AttendanceRecord struct {
	ID             string    `db:"id" json:"id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	ScannedAt      time.Time `db:"scanned_at" json:"scanned_at"`
	ScanLat        *float64  `db:"scan_lat" json:"scan_lat,omitempty"`
	ScanLon        *float64  `db:"scan_lon" json:"scan_lon,omitempty"`
	DistanceM      *float64  `db:"distance_m" json:"distance_m,omitempty"`
	Valid          bool      `db:"valid" json:"valid"`
	Justified      bool      `db:"justified" json:"justified"`
	JustifyReason  *string   `db:"justify_reason" json:"justify_reason,omitempty"`
	JustifyComment *string   `db:"justify_comment" json:"justify_comment,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// RosterEntry is an attendance row joined with the scanning student.
type RosterEntry struct {
	StudentID   string    `db:"student_id" json:"student_id"`
	Matricula   *string   `db:"matricula" json:"matricula,omitempty"`
	StudentName string    `db:"student_name" json:"student_name"`
	ScannedAt   time.Time `db:"scanned_at" json:"scanned_at"`
	ScanLat     *float64  `db:"scan_lat" json:"scan_lat,omitempty"`
	ScanLon     *float64  `db:"scan_lon" json:"scan_lon,omitempty"`
	DistanceM   *float64  `db:"distance_m" json:"distance_m,omitempty"`
	Valid       bool      `db:"valid" json:"valid"`
	Justified   bool      `db:"justified" json:"justified"`
}

// StudentStats summarises one student's attendance. present counts records
// that are valid or justified; total_sessions is the global session count.
type StudentStats struct {
	Present       int `json:"present"`
	Absent        int `json:"absent"`
	Justified     int `json:"justified"`
	TotalSessions int `json:"total_sessions"`
	Percentage    int `json:"percentage"`
}

// SemaphoreColor buckets an attendance percentage for teacher dashboards.
type SemaphoreColor string

const (
	SemaphoreGreen  SemaphoreColor = "green"
	SemaphoreYellow SemaphoreColor = "yellow"
	SemaphoreOrange SemaphoreColor = "orange"
	SemaphoreRed    SemaphoreColor = "red"
)

// SemaphoreFor classifies a percentage into its bucket.
func SemaphoreFor(percentage int) SemaphoreColor {
	switch {
	case percentage >= 80:
		return SemaphoreGreen
	case percentage >= 50:
		return SemaphoreYellow
	case percentage >= 30:
		return SemaphoreOrange
	default:
		return SemaphoreRed
	}
}

// SemaphoreCounts tallies students per bucket.
type SemaphoreCounts struct {
	Green  int `json:"green"`
	Yellow int `json:"yellow"`
	Orange int `json:"orange"`
	Red    int `json:"red"`
}

// Add increments the bucket for the given color.
func (c *SemaphoreCounts) Add(color SemaphoreColor) {
	switch color {
	case SemaphoreGreen:
		c.Green++
	case SemaphoreYellow:
		c.Yellow++
	case SemaphoreOrange:
		c.Orange++
	case SemaphoreRed:
		c.Red++
	}
}

// DashboardStudent is the per-student detail line on the teacher dashboard.
type DashboardStudent struct {
	ID         string         `json:"id"`
	FullName   string         `json:"full_name"`
	Matricula  *string        `json:"matricula,omitempty"`
	Present    int            `json:"present"`
	Percentage int            `json:"percentage"`
	Color      SemaphoreColor `json:"color"`
}

// TeacherDashboard aggregates the whole roster for a teacher.
type TeacherDashboard struct {
	TotalStudents int                `json:"total_students"`
	Semaphore     SemaphoreCounts    `json:"semaphore"`
	Students      []DashboardStudent `json:"students"`
}

// ActivityKind classifies a scan in the student activity feed.
type ActivityKind string

const (
	ActivityAttendance ActivityKind = "attendance"
	ActivityJustified  ActivityKind = "justified"
	ActivityInvalid    ActivityKind = "invalid"
)

// ActivityEntry is one line of the student's recent-activity feed.
type ActivityEntry struct {
	Kind      ActivityKind `json:"kind"`
	SessionID string       `json:"session_id"`
	ScannedAt time.Time    `json:"scanned_at"`
}
