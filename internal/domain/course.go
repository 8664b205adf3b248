package domain

import "time"

// Course represents the canonical course entity in the database/service.
// OverallRating is derived: the truncated integer mean of every rating
// belonging to the course, or 0 when none exist.
type Course struct {
	ID            string
	Name          string
	Domain        []string
	OverallRating int32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CourseWithChapters embeds the chapters joined by course_id.
type CourseWithChapters struct {
	Course
	Chapters []Chapter
}
