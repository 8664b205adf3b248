package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/kimo-edu/course-catalog/internal/domain"
	"github.com/kimo-edu/course-catalog/internal/repository"
)

// fakeStore is an in-memory stand-in for the pgx repositories, implementing
// CourseStore, ChapterStore and RatingStore.
type fakeStore struct {
	courses  map[string]domain.Course
	chapters map[string]domain.Chapter
	ratings  map[string]domain.Rating // keyed chapterID + "|" + user

	listErr      error
	recomputeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		courses:  make(map[string]domain.Course),
		chapters: make(map[string]domain.Chapter),
		ratings:  make(map[string]domain.Rating),
	}
}

func (f *fakeStore) addCourse(name string, domains ...string) domain.Course {
	course := domain.Course{ID: uuid.NewString(), Name: name, Domain: domains}
	f.courses[course.ID] = course
	return course
}

func (f *fakeStore) addChapter(courseID, name string) domain.Chapter {
	chapter := domain.Chapter{ID: uuid.NewString(), CourseID: courseID, Name: name}
	f.chapters[chapter.ID] = chapter
	return chapter
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (domain.Course, error) {
	course, ok := f.courses[id]
	if !ok {
		return domain.Course{}, repository.ErrNotFound
	}
	return course, nil
}

func (f *fakeStore) List(ctx context.Context, filters repository.CourseListFilters) ([]domain.CourseWithChapters, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	items := make([]domain.CourseWithChapters, 0, len(f.courses))
	for _, course := range f.courses {
		if filters.Domain != nil && !contains(course.Domain, *filters.Domain) {
			continue
		}
		items = append(items, domain.CourseWithChapters{Course: course})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (f *fakeStore) RecomputeOverallRating(ctx context.Context, courseID string) (int32, error) {
	if f.recomputeErr != nil {
		return 0, f.recomputeErr
	}
	course, ok := f.courses[courseID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	var sum, count int32
	for _, rating := range f.ratings {
		if rating.CourseID == courseID {
			sum += rating.Point
			count++
		}
	}
	overall := int32(0)
	if count > 0 {
		overall = sum / count
	}
	course.OverallRating = overall
	f.courses[courseID] = course
	return overall, nil
}

func (f *fakeStore) chapterGet(id string) (domain.Chapter, bool) {
	chapter, ok := f.chapters[id]
	return chapter, ok
}

func (f *fakeStore) GetWithCourse(ctx context.Context, id string) (domain.ChapterWithCourse, error) {
	chapter, ok := f.chapterGet(id)
	if !ok {
		return domain.ChapterWithCourse{}, repository.ErrNotFound
	}
	course, ok := f.courses[chapter.CourseID]
	if !ok {
		return domain.ChapterWithCourse{}, fmt.Errorf("chapter %s: %w", id, repository.ErrOrphanChapter)
	}
	return domain.ChapterWithCourse{Chapter: chapter, Course: course}, nil
}

func (f *fakeStore) CountByCourse(ctx context.Context, courseID string) (int64, error) {
	var count int64
	for _, chapter := range f.chapters {
		if chapter.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Upsert(ctx context.Context, params repository.RatingUpsertParams) (domain.Rating, bool, error) {
	key := params.ChapterID + "|" + params.UserID
	existing, ok := f.ratings[key]
	if ok {
		existing.Point = params.Point
		f.ratings[key] = existing
		return existing, false, nil
	}
	rating := domain.Rating{
		CourseID:  params.CourseID,
		ChapterID: params.ChapterID,
		UserID:    params.UserID,
		Point:     params.Point,
	}
	f.ratings[key] = rating
	return rating, true, nil
}

// ChapterStore List/GetByID over the fake maps.
func (f *fakeStore) ListChapterRows(filters repository.ChapterListFilters) ([]domain.ChapterWithCourse, error) {
	items := make([]domain.ChapterWithCourse, 0)
	for _, chapter := range f.chapters {
		if filters.Name != nil && chapter.Name != *filters.Name {
			continue
		}
		if filters.CourseID != nil && chapter.CourseID != *filters.CourseID {
			continue
		}
		if filters.ChapterID != nil && chapter.ID != *filters.ChapterID {
			continue
		}
		course, ok := f.courses[chapter.CourseID]
		if !ok {
			return nil, fmt.Errorf("chapter %s: %w", chapter.ID, repository.ErrOrphanChapter)
		}
		items = append(items, domain.ChapterWithCourse{Chapter: chapter, Course: course})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

type fakeChapterStore struct{ *fakeStore }

func (f fakeChapterStore) GetByID(ctx context.Context, id string) (domain.Chapter, error) {
	chapter, ok := f.chapterGet(id)
	if !ok {
		return domain.Chapter{}, repository.ErrNotFound
	}
	return chapter, nil
}

func (f fakeChapterStore) List(ctx context.Context, filters repository.ChapterListFilters) ([]domain.ChapterWithCourse, error) {
	return f.ListChapterRows(filters)
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func newTestService(f *fakeStore) *Service {
	return New(f, fakeChapterStore{f}, f, log.New(io.Discard, "", 0))
}

func TestParseSortBy(t *testing.T) {
	cases := []struct {
		raw     string
		want    SortBy
		wantErr bool
	}{
		{"", SortByName, false},
		{"name", SortByName, false},
		{"date", SortByDate, false},
		{"rating", SortByRating, false},
		{"price", "", true},
		{"NAME", "", true},
	}
	for _, c := range cases {
		got, err := ParseSortBy(c.raw)
		if c.wantErr {
			if err == nil {
				t.Fatalf("ParseSortBy(%q) expected error", c.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseSortBy(%q) unexpected error: %v", c.raw, err)
		}
		if got != c.want {
			t.Fatalf("ParseSortBy(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestService_GetCourse(t *testing.T) {
	fake := newFakeStore()
	svc := newTestService(fake)
	ctx := context.Background()

	course := fake.addCourse("Algorithms", "programming")
	fake.addChapter(course.ID, "Sorting")
	fake.addChapter(course.ID, "Graphs")

	detail, err := svc.GetCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if detail.Name != "Algorithms" {
		t.Fatalf("name = %s, want Algorithms", detail.Name)
	}
	if detail.TotalChapters != 2 {
		t.Fatalf("TotalChapters = %d, want 2", detail.TotalChapters)
	}

	if _, err := svc.GetCourse(ctx, uuid.NewString()); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
	if _, err := svc.GetCourse(ctx, "not-a-uuid"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestService_ListCourses(t *testing.T) {
	fake := newFakeStore()
	svc := newTestService(fake)
	ctx := context.Background()

	fake.addCourse("Zoology", "science")
	fake.addCourse("Algebra", "mathematics")

	courses, err := svc.ListCourses(ctx, SortByName, nil)
	if err != nil {
		t.Fatalf("ListCourses: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("len = %d, want 2", len(courses))
	}

	filter := "science"
	filtered, err := svc.ListCourses(ctx, SortByName, &filter)
	if err != nil {
		t.Fatalf("ListCourses filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Name != "Zoology" {
		t.Fatalf("domain filter returned wrong courses: %+v", filtered)
	}

	fake.listErr = errors.New("connection reset")
	_, err = svc.ListCourses(ctx, SortByName, nil)
	var queryErr *QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("expected QueryError, got %v", err)
	}
}

func TestService_ListChapters(t *testing.T) {
	fake := newFakeStore()
	svc := newTestService(fake)
	ctx := context.Background()

	course := fake.addCourse("History", "humanities")
	fake.addChapter(course.ID, "Antiquity")
	fake.addChapter(course.ID, "Middle Ages")

	chapters, err := svc.ListChapters(ctx, "", course.ID, "")
	if err != nil {
		t.Fatalf("ListChapters: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("len = %d, want 2", len(chapters))
	}
	if chapters[0].Course.ID != course.ID {
		t.Fatalf("embedded course = %s, want %s", chapters[0].Course.ID, course.ID)
	}

	if _, err := svc.ListChapters(ctx, "", "garbage", ""); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID for course filter, got %v", err)
	}
	if _, err := svc.ListChapters(ctx, "", "", "garbage"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID for chapter filter, got %v", err)
	}
}

func TestService_GetChapter(t *testing.T) {
	fake := newFakeStore()
	svc := newTestService(fake)
	ctx := context.Background()

	course := fake.addCourse("Physics", "science")
	chapter := fake.addChapter(course.ID, "Mechanics")

	got, err := svc.GetChapter(ctx, chapter.ID)
	if err != nil {
		t.Fatalf("GetChapter: %v", err)
	}
	if got.Course.Name != "Physics" {
		t.Fatalf("embedded course = %s, want Physics", got.Course.Name)
	}

	if _, err := svc.GetChapter(ctx, uuid.NewString()); !errors.Is(err, ErrChapterNotFound) {
		t.Fatalf("expected ErrChapterNotFound, got %v", err)
	}

	// A chapter pointing at a course that does not exist is a consistency
	// error, never a crash.
	orphan := fake.addChapter(uuid.NewString(), "Orphan")
	if _, err := svc.GetChapter(ctx, orphan.ID); !errors.Is(err, ErrOrphanChapter) {
		t.Fatalf("expected ErrOrphanChapter, got %v", err)
	}
}

func TestService_SubmitRating(t *testing.T) {
	fake := newFakeStore()
	svc := newTestService(fake)
	ctx := context.Background()

	course := fake.addCourse("Chemistry", "science")
	chapter := fake.addChapter(course.ID, "Atoms")

	ack, err := svc.SubmitRating(ctx, chapter.ID, "alice", 5)
	if err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}
	if !ack.Created {
		t.Fatalf("expected first submission to create")
	}
	if !ack.AggregateUpdated || ack.OverallRating != 5 {
		t.Fatalf("ack = %+v, want aggregate 5", ack)
	}

	ack, err = svc.SubmitRating(ctx, chapter.ID, "bob", 3)
	if err != nil {
		t.Fatalf("SubmitRating bob: %v", err)
	}
	if ack.OverallRating != 4 {
		t.Fatalf("overall = %d, want 4 (truncated mean of 5 and 3)", ack.OverallRating)
	}

	ack, err = svc.SubmitRating(ctx, chapter.ID, "alice", 1)
	if err != nil {
		t.Fatalf("SubmitRating alice resubmit: %v", err)
	}
	if ack.Created {
		t.Fatalf("resubmission must update, not create")
	}
	if ack.OverallRating != 2 {
		t.Fatalf("overall = %d, want 2 (truncated mean of 1 and 3)", ack.OverallRating)
	}
	if len(fake.ratings) != 2 {
		t.Fatalf("rating rows = %d, want 2 (one per user)", len(fake.ratings))
	}
}

func TestService_SubmitRatingIdempotent(t *testing.T) {
	fake := newFakeStore()
	svc := newTestService(fake)
	ctx := context.Background()

	course := fake.addCourse("Statistics")
	chapter := fake.addChapter(course.ID, "Distributions")

	first, err := svc.SubmitRating(ctx, chapter.ID, "alice", 4)
	if err != nil {
		t.Fatalf("first submission: %v", err)
	}
	second, err := svc.SubmitRating(ctx, chapter.ID, "alice", 4)
	if err != nil {
		t.Fatalf("second submission: %v", err)
	}
	if second.Created {
		t.Fatalf("repeat submission must not create")
	}
	if first.OverallRating != second.OverallRating {
		t.Fatalf("overall changed on identical resubmission: %d != %d", first.OverallRating, second.OverallRating)
	}
	if len(fake.ratings) != 1 {
		t.Fatalf("rating rows = %d, want 1", len(fake.ratings))
	}
}

func TestService_SubmitRatingErrors(t *testing.T) {
	fake := newFakeStore()
	svc := newTestService(fake)
	ctx := context.Background()

	if _, err := svc.SubmitRating(ctx, "bogus", "alice", 5); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := svc.SubmitRating(ctx, uuid.NewString(), "alice", 5); !errors.Is(err, ErrChapterNotFound) {
		t.Fatalf("expected ErrChapterNotFound, got %v", err)
	}
}

// A recompute failure must not fail the submission, but the acknowledgment
// has to report the aggregate as stale.
func TestService_SubmitRatingRecomputeFailure(t *testing.T) {
	fake := newFakeStore()
	svc := newTestService(fake)
	ctx := context.Background()

	course := fake.addCourse("Geology")
	chapter := fake.addChapter(course.ID, "Minerals")

	fake.recomputeErr = errors.New("deadlock detected")
	ack, err := svc.SubmitRating(ctx, chapter.ID, "alice", 5)
	if err != nil {
		t.Fatalf("SubmitRating should not fail on recompute error, got %v", err)
	}
	if !ack.Created {
		t.Fatalf("rating should still have been created")
	}
	if ack.AggregateUpdated {
		t.Fatalf("AggregateUpdated should be false when recompute fails")
	}
	if len(fake.ratings) != 1 {
		t.Fatalf("rating rows = %d, want 1", len(fake.ratings))
	}
}
