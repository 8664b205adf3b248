package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/kimo-edu/course-catalog/internal/domain"
	"github.com/kimo-edu/course-catalog/internal/repository"
)

// CourseStore is the slice of course persistence the service depends on.
type CourseStore interface {
	GetByID(ctx context.Context, id string) (domain.Course, error)
	List(ctx context.Context, filters repository.CourseListFilters) ([]domain.CourseWithChapters, error)
	RecomputeOverallRating(ctx context.Context, courseID string) (int32, error)
}

// ChapterStore is the slice of chapter persistence the service depends on.
type ChapterStore interface {
	GetByID(ctx context.Context, id string) (domain.Chapter, error)
	GetWithCourse(ctx context.Context, id string) (domain.ChapterWithCourse, error)
	List(ctx context.Context, filters repository.ChapterListFilters) ([]domain.ChapterWithCourse, error)
	CountByCourse(ctx context.Context, courseID string) (int64, error)
}

// RatingStore is the slice of rating persistence the service depends on.
type RatingStore interface {
	Upsert(ctx context.Context, params repository.RatingUpsertParams) (domain.Rating, bool, error)
}

// Service implements the catalog queries and the rating upsert engine over
// injected stores, so the core stays testable with in-memory fakes.
type Service struct {
	courses  CourseStore
	chapters ChapterStore
	ratings  RatingStore
	logger   *log.Logger
}

// New constructs a Service from individual stores.
func New(courses CourseStore, chapters ChapterStore, ratings RatingStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{courses: courses, chapters: chapters, ratings: ratings, logger: logger}
}

// NewWithRepository wires the service to the pgx-backed repositories.
func NewWithRepository(repo *repository.Repository, logger *log.Logger) *Service {
	return New(repo.Courses, repo.Chapters, repo.Ratings, logger)
}

// SortBy names the supported course orderings.
type SortBy string

const (
	SortByName   SortBy = "name"
	SortByDate   SortBy = "date"
	SortByRating SortBy = "rating"
)

// ParseSortBy validates a raw sort_by value. An empty value defaults to name.
func ParseSortBy(raw string) (SortBy, error) {
	switch raw {
	case "":
		return SortByName, nil
	case string(SortByName), string(SortByDate), string(SortByRating):
		return SortBy(raw), nil
	}
	return "", fmt.Errorf("unknown sort_by value %q, expected name, date or rating", raw)
}

// ListCourses returns courses with their chapters embedded. Name sorts
// ascending; date and rating sort descending. A domain filter keeps only
// courses whose domain set contains the value.
func (s *Service) ListCourses(ctx context.Context, sortBy SortBy, domainFilter *string) ([]domain.CourseWithChapters, error) {
	courses, err := s.courses.List(ctx, repository.CourseListFilters{
		SortBy: repository.CourseSort(sortBy),
		Domain: domainFilter,
	})
	if err != nil {
		return nil, &QueryError{Op: "list courses", Err: err}
	}
	return courses, nil
}

// CourseDetail pairs a course with its chapter count.
type CourseDetail struct {
	domain.Course
	TotalChapters int64
}

// GetCourse looks up a course by id and augments it with the chapter count.
func (s *Service) GetCourse(ctx context.Context, id string) (CourseDetail, error) {
	if err := validateID(id); err != nil {
		return CourseDetail{}, err
	}
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return CourseDetail{}, ErrCourseNotFound
		}
		return CourseDetail{}, &QueryError{Op: "get course", Err: err}
	}
	count, err := s.chapters.CountByCourse(ctx, id)
	if err != nil {
		return CourseDetail{}, &QueryError{Op: "count chapters", Err: err}
	}
	return CourseDetail{Course: course, TotalChapters: count}, nil
}

// ListChapters returns chapters matching the optional filters, conjunctive
// when present, each with its owning course embedded.
func (s *Service) ListChapters(ctx context.Context, name, courseID, chapterID string) ([]domain.ChapterWithCourse, error) {
	var filters repository.ChapterListFilters
	if name != "" {
		filters.Name = &name
	}
	if courseID != "" {
		if err := validateID(courseID); err != nil {
			return nil, err
		}
		filters.CourseID = &courseID
	}
	if chapterID != "" {
		if err := validateID(chapterID); err != nil {
			return nil, err
		}
		filters.ChapterID = &chapterID
	}

	chapters, err := s.chapters.List(ctx, filters)
	if err != nil {
		if errors.Is(err, repository.ErrOrphanChapter) {
			return nil, ErrOrphanChapter
		}
		return nil, &QueryError{Op: "list chapters", Err: err}
	}
	return chapters, nil
}

// GetChapter fetches a single chapter with its owning course embedded.
func (s *Service) GetChapter(ctx context.Context, id string) (domain.ChapterWithCourse, error) {
	if err := validateID(id); err != nil {
		return domain.ChapterWithCourse{}, err
	}
	chapter, err := s.chapters.GetWithCourse(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return domain.ChapterWithCourse{}, ErrChapterNotFound
		case errors.Is(err, repository.ErrOrphanChapter):
			return domain.ChapterWithCourse{}, ErrOrphanChapter
		}
		return domain.ChapterWithCourse{}, &QueryError{Op: "get chapter", Err: err}
	}
	return chapter, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
