package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kimo-edu/course-catalog/internal/domain"
)

// CoursesRepository provides persistence helpers for course entities.
type CoursesRepository struct {
	pool *pgxpool.Pool
}

const courseColumns = `
    id,
    name,
    domain,
    overall_rating,
    created_at,
    updated_at
`

// CourseCreateParams bundles the fields required to create a course.
type CourseCreateParams struct {
	Name   string
	Domain []string
}

// CourseSort selects the ordering of List results.
type CourseSort string

const (
	CourseSortName   CourseSort = "name"
	CourseSortDate   CourseSort = "date"
	CourseSortRating CourseSort = "rating"
)

// CourseListFilters encapsulates sorting and the optional domain filter.
type CourseListFilters struct {
	SortBy CourseSort
	Domain *string
}

// Create inserts a new course row and returns the stored entity.
func (r *CoursesRepository) Create(ctx context.Context, params CourseCreateParams) (domain.Course, error) {
	domains := params.Domain
	if domains == nil {
		domains = []string{}
	}

	query := fmt.Sprintf(`
        INSERT INTO courses (name, domain)
        VALUES ($1,$2)
        RETURNING %s
    `, courseColumns)

	row := r.pool.QueryRow(ctx, query, params.Name, domains)
	return scanCourse(row)
}

// GetByID fetches a course by its identifier.
func (r *CoursesRepository) GetByID(ctx context.Context, id string) (domain.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	row := r.pool.QueryRow(ctx, query, id)
	course, err := scanCourse(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Course{}, ErrNotFound
		}
		return domain.Course{}, err
	}
	return course, nil
}

// List returns courses matching the filters, each with its chapters embedded.
// Name sorts ascending; date and rating sort descending. The id tie-break
// keeps the ordering deterministic.
func (r *CoursesRepository) List(ctx context.Context, filters CourseListFilters) ([]domain.CourseWithChapters, error) {
	orderBy := "name ASC, id ASC"
	switch filters.SortBy {
	case CourseSortDate:
		orderBy = "created_at DESC, id DESC"
	case CourseSortRating:
		orderBy = "overall_rating DESC, id DESC"
	}

	where := ""
	args := make([]interface{}, 0, 1)
	if filters.Domain != nil {
		where = " WHERE $1 = ANY(domain)"
		args = append(args, *filters.Domain)
	}

	query := fmt.Sprintf(`SELECT %s FROM courses%s ORDER BY %s`, courseColumns, where, orderBy)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.CourseWithChapters, 0)
	ids := make([]string, 0)
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.CourseWithChapters{Course: course, Chapters: []domain.Chapter{}})
		ids = append(ids, course.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	chapters, err := r.chaptersForCourses(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if list, ok := chapters[items[i].ID]; ok {
			items[i].Chapters = list
		}
	}
	return items, nil
}

func (r *CoursesRepository) chaptersForCourses(ctx context.Context, courseIDs []string) (map[string][]domain.Chapter, error) {
	const query = `
        SELECT id, course_id, name, created_at
        FROM chapters
        WHERE course_id = ANY($1)
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.pool.Query(ctx, query, courseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped := make(map[string][]domain.Chapter)
	for rows.Next() {
		var chapter domain.Chapter
		if err := rows.Scan(&chapter.ID, &chapter.CourseID, &chapter.Name, &chapter.CreatedAt); err != nil {
			return nil, err
		}
		grouped[chapter.CourseID] = append(grouped[chapter.CourseID], chapter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grouped, nil
}

// RecomputeOverallRating recalculates a course's overall rating from every
// rating belonging to it, in a single statement so concurrent submissions
// cannot interleave a stale read. The mean uses truncating integer division;
// a course with no ratings resets to 0.
func (r *CoursesRepository) RecomputeOverallRating(ctx context.Context, courseID string) (int32, error) {
	const query = `
        UPDATE courses
        SET overall_rating = COALESCE((
                SELECT (SUM(point) / NULLIF(COUNT(*), 0))::int
                FROM ratings
                WHERE course_id = $1
            ), 0),
            updated_at = now()
        WHERE id = $1
        RETURNING overall_rating
    `

	var overall int32
	err := r.pool.QueryRow(ctx, query, courseID).Scan(&overall)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("recompute overall rating: %w", err)
	}
	return overall, nil
}

func scanCourse(row pgx.Row) (domain.Course, error) {
	var course domain.Course
	err := row.Scan(
		&course.ID,
		&course.Name,
		&course.Domain,
		&course.OverallRating,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		return domain.Course{}, err
	}
	if course.Domain == nil {
		course.Domain = []string{}
	}
	return course, nil
}
