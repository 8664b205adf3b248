package catalog

import (
	"context"
	"errors"

	"github.com/kimo-edu/course-catalog/internal/repository"
)

// RatingAck acknowledges a rating submission.
type RatingAck struct {
	// Created is true when a new rating row was inserted rather than an
	// existing one updated.
	Created bool
	// OverallRating is the course aggregate after the recompute. Only valid
	// when AggregateUpdated is true.
	OverallRating int32
	// AggregateUpdated is false when the recompute failed and the stored
	// course aggregate is stale.
	AggregateUpdated bool
}

// SubmitRating records or updates the user's rating for a chapter, then
// recomputes the owning course's overall rating. The upsert is keyed on
// (chapter, user), so a user has at most one rating per chapter and repeat
// submissions overwrite the point in place.
//
// A recompute failure does not fail the submission: it is logged and
// reported through AggregateUpdated so callers can see the aggregate is
// stale instead of being told everything succeeded.
func (s *Service) SubmitRating(ctx context.Context, chapterID, user string, point int) (RatingAck, error) {
	if err := validateID(chapterID); err != nil {
		return RatingAck{}, err
	}

	chapter, err := s.chapters.GetByID(ctx, chapterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return RatingAck{}, ErrChapterNotFound
		}
		return RatingAck{}, &QueryError{Op: "get chapter", Err: err}
	}

	_, created, err := s.ratings.Upsert(ctx, repository.RatingUpsertParams{
		CourseID:  chapter.CourseID,
		ChapterID: chapter.ID,
		UserID:    user,
		Point:     int32(point),
	})
	if err != nil {
		return RatingAck{}, &QueryError{Op: "upsert rating", Err: err}
	}

	ack := RatingAck{Created: created}
	overall, err := s.courses.RecomputeOverallRating(ctx, chapter.CourseID)
	if err != nil {
		s.logger.Printf("catalog: recompute overall rating for course %s: %v", chapter.CourseID, err)
		return ack, nil
	}
	ack.OverallRating = overall
	ack.AggregateUpdated = true
	return ack, nil
}
