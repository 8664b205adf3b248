package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kimo-edu/course-catalog/internal/domain"
)

// RatingsRepository provides helpers for chapter ratings.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// RatingUpsertParams captures the payload required to upsert a rating.
type RatingUpsertParams struct {
	CourseID  string
	ChapterID string
	UserID    string
	Point     int32
}

// Upsert inserts or updates a user's rating for a chapter and indicates
// whether it was newly created. The (chapter_id, user_id) key makes repeat
// submissions by the same user overwrite point in place.
func (r *RatingsRepository) Upsert(ctx context.Context, params RatingUpsertParams) (domain.Rating, bool, error) {
	const query = `
        INSERT INTO ratings (course_id, chapter_id, user_id, point)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (chapter_id, user_id)
        DO UPDATE SET point = EXCLUDED.point, updated_at = now()
        RETURNING course_id, chapter_id, user_id, point, created_at, updated_at, (xmax = 0) AS inserted
    `

	var rating domain.Rating
	var inserted bool
	err := r.pool.QueryRow(ctx, query, params.CourseID, params.ChapterID, params.UserID, params.Point).Scan(
		&rating.CourseID,
		&rating.ChapterID,
		&rating.UserID,
		&rating.Point,
		&rating.CreatedAt,
		&rating.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return domain.Rating{}, false, err
	}

	return rating, inserted, nil
}

// Get retrieves a rating for a specific chapter/user combination.
func (r *RatingsRepository) Get(ctx context.Context, chapterID, userID string) (domain.Rating, error) {
	const query = `
        SELECT course_id, chapter_id, user_id, point, created_at, updated_at
        FROM ratings
        WHERE chapter_id = $1 AND user_id = $2
    `
	var rating domain.Rating
	err := r.pool.QueryRow(ctx, query, chapterID, userID).Scan(
		&rating.CourseID,
		&rating.ChapterID,
		&rating.UserID,
		&rating.Point,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// ListByCourse returns every rating belonging to a course.
func (r *RatingsRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.Rating, error) {
	const query = `
        SELECT course_id, chapter_id, user_id, point, created_at, updated_at
        FROM ratings
        WHERE course_id = $1
        ORDER BY created_at ASC, chapter_id ASC, user_id ASC
    `
	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Rating, 0)
	for rows.Next() {
		var rating domain.Rating
		err := rows.Scan(
			&rating.CourseID,
			&rating.ChapterID,
			&rating.UserID,
			&rating.Point,
			&rating.CreatedAt,
			&rating.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
