package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kimo-edu/course-catalog/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// ErrOrphanChapter indicates a chapter whose owning course row is missing.
// The schema forbids this, but readers must never assume the join succeeded.
var ErrOrphanChapter = errors.New("repository: chapter has no owning course")

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Courses  *CoursesRepository
	Chapters *ChaptersRepository
	Ratings  *RatingsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Courses:  &CoursesRepository{pool: pool},
		Chapters: &ChaptersRepository{pool: pool},
		Ratings:  &RatingsRepository{pool: pool},
	}
}
