package domain

import "time"

// Rating represents a single user's rating for a chapter. CourseID is a
// denormalized copy of the chapter's owning course.
type Rating struct {
	CourseID  string
	ChapterID string
	UserID    string
	Point     int32
	CreatedAt time.Time
	UpdatedAt time.Time
}
