package domain

import "time"

// Chapter represents a single chapter belonging to a course.
type Chapter struct {
	ID        string
	CourseID  string
	Name      string
	CreatedAt time.Time
}

// ChapterWithCourse embeds the owning course joined by course_id.
type ChapterWithCourse struct {
	Chapter
	Course Course
}
