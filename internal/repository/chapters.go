package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kimo-edu/course-catalog/internal/domain"
)

// ChaptersRepository provides persistence helpers for chapter entities.
type ChaptersRepository struct {
	pool *pgxpool.Pool
}

// ChapterCreateParams bundles the fields required to create a chapter.
type ChapterCreateParams struct {
	CourseID string
	Name     string
}

// ChapterListFilters holds the optional, conjunctive search filters.
type ChapterListFilters struct {
	Name      *string
	CourseID  *string
	ChapterID *string
}

// Create inserts a new chapter row and returns the stored entity.
func (r *ChaptersRepository) Create(ctx context.Context, params ChapterCreateParams) (domain.Chapter, error) {
	const query = `
        INSERT INTO chapters (course_id, name)
        VALUES ($1,$2)
        RETURNING id, course_id, name, created_at
    `
	var chapter domain.Chapter
	err := r.pool.QueryRow(ctx, query, params.CourseID, params.Name).Scan(
		&chapter.ID,
		&chapter.CourseID,
		&chapter.Name,
		&chapter.CreatedAt,
	)
	if err != nil {
		return domain.Chapter{}, err
	}
	return chapter, nil
}

// GetByID fetches a chapter by its identifier without the course join.
func (r *ChaptersRepository) GetByID(ctx context.Context, id string) (domain.Chapter, error) {
	const query = `SELECT id, course_id, name, created_at FROM chapters WHERE id = $1`
	var chapter domain.Chapter
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&chapter.ID,
		&chapter.CourseID,
		&chapter.Name,
		&chapter.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Chapter{}, ErrNotFound
		}
		return domain.Chapter{}, err
	}
	return chapter, nil
}

// List returns chapters matching the filters, each with its owning course
// embedded. A chapter whose join yields no course surfaces ErrOrphanChapter.
func (r *ChaptersRepository) List(ctx context.Context, filters ChapterListFilters) ([]domain.ChapterWithCourse, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Name != nil {
		where = append(where, fmt.Sprintf("c.name = %s", arg(*filters.Name)))
	}
	if filters.CourseID != nil {
		where = append(where, fmt.Sprintf("c.course_id = %s", arg(*filters.CourseID)))
	}
	if filters.ChapterID != nil {
		where = append(where, fmt.Sprintf("c.id = %s", arg(*filters.ChapterID)))
	}

	query := `
        SELECT c.id, c.course_id, c.name, c.created_at,
               k.id, k.name, k.domain, k.overall_rating, k.created_at, k.updated_at
        FROM chapters c
        LEFT JOIN courses k ON k.id = c.course_id
    `
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.created_at ASC, c.id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ChapterWithCourse, 0)
	for rows.Next() {
		item, err := scanChapterWithCourse(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetWithCourse fetches a single chapter with its owning course embedded.
func (r *ChaptersRepository) GetWithCourse(ctx context.Context, id string) (domain.ChapterWithCourse, error) {
	items, err := r.List(ctx, ChapterListFilters{ChapterID: &id})
	if err != nil {
		return domain.ChapterWithCourse{}, err
	}
	if len(items) == 0 {
		return domain.ChapterWithCourse{}, ErrNotFound
	}
	return items[0], nil
}

// CountByCourse returns the number of chapters referencing a course.
func (r *ChaptersRepository) CountByCourse(ctx context.Context, courseID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM chapters WHERE course_id = $1`
	var count int64
	if err := r.pool.QueryRow(ctx, query, courseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chapters: %w", err)
	}
	return count, nil
}

func scanChapterWithCourse(row pgx.Row) (domain.ChapterWithCourse, error) {
	var (
		item          domain.ChapterWithCourse
		courseID      *string
		courseName    *string
		courseDomain  []string
		overallRating *int32
		createdAt     *time.Time
		updatedAt     *time.Time
	)

	err := row.Scan(
		&item.ID,
		&item.CourseID,
		&item.Name,
		&item.CreatedAt,
		&courseID,
		&courseName,
		&courseDomain,
		&overallRating,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.ChapterWithCourse{}, err
	}
	if courseID == nil {
		return domain.ChapterWithCourse{}, fmt.Errorf("chapter %s: %w", item.ID, ErrOrphanChapter)
	}

	if courseDomain == nil {
		courseDomain = []string{}
	}
	item.Course = domain.Course{
		ID:            *courseID,
		Name:          *courseName,
		Domain:        courseDomain,
		OverallRating: *overallRating,
		CreatedAt:     *createdAt,
		UpdatedAt:     *updatedAt,
	}
	return item, nil
}
