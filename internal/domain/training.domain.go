package domain

import "time"

// CourseModule is one unit inside a training course, serialized into the
// course record.
type CourseModule struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	DurationMin int64  `json:"duration_min"`
}

// TrainingCourse is enablement content partner users work through.
type TrainingCourse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Category  string         `json:"category"`
	Modules   []CourseModule `json:"modules,omitempty"`
	Published bool           `json:"is_published"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TrainingProgress tracks one user's advance through one course. There is
// at most one progress record per (course, user) pair.
type TrainingProgress struct {
	ID               string    `json:"id"`
	CourseID         string    `json:"course_id"`
	UserID           string    `json:"user_id"`
	PartnerID        string    `json:"partner_id"`
	CompletedModules []string  `json:"completed_modules,omitempty"`
	PercentComplete  float64   `json:"percent_complete"`
	Completed        bool      `json:"is_completed"`
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}
