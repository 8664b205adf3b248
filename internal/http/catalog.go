package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kimo-edu/course-catalog/internal/catalog"
	"github.com/kimo-edu/course-catalog/internal/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

const ratingAcceptedMessage = "Rating details updated into the system"

// ratingStaleMessage is returned when the rating was stored but the course
// aggregate recompute failed, so the stored overall rating is stale.
const ratingStaleMessage = "Rating recorded; overall course rating refresh pending"

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success string `json:"success"`
}

type chapterSummary struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Name     string `json:"name"`
}

type courseResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Domain        []string         `json:"domain"`
	OverallRating int32            `json:"overall_rating"`
	Chapters      []chapterSummary `json:"chapters"`
}

// courseDetailResponse mirrors the single-course shape: chapter count in
// place of the embedded chapter list.
type courseDetailResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Domain        []string `json:"domain"`
	OverallRating int32    `json:"overall_rating"`
	TotalChapters int64    `json:"total_chapters"`
}

type courseInfo struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Domain        []string `json:"domain"`
	OverallRating int32    `json:"overall_rating"`
}

type chapterResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	CourseInfo courseInfo `json:"course_info"`
}

type ratingRequest struct {
	User  string `json:"user"`
	Point int    `json:"point"`
}

// courseListQuery holds the parsed /course query string.
type courseListQuery struct {
	SortBy catalog.SortBy
	Domain *string
}

func parseCourseListQuery(query url.Values) (courseListQuery, error) {
	var parsed courseListQuery
	sortBy, err := catalog.ParseSortBy(strings.TrimSpace(query.Get("sort_by")))
	if err != nil {
		return parsed, err
	}
	parsed.SortBy = sortBy
	if val := strings.TrimSpace(query.Get("domain")); val != "" {
		parsed.Domain = &val
	}
	return parsed, nil
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	parsed, err := parseCourseListQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	courses, err := s.catalog.ListCourses(r.Context(), parsed.SortBy, parsed.Domain)
	if err != nil {
		s.renderCatalogError(w, "list courses", err)
		return
	}

	items := make([]courseResponse, 0, len(courses))
	for _, course := range courses {
		items = append(items, toCourseResponse(course))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "course_id")

	detail, err := s.catalog.GetCourse(r.Context(), id)
	if err != nil {
		s.renderCatalogError(w, "get course", err)
		return
	}

	s.respondJSON(w, http.StatusOK, courseDetailResponse{
		ID:            detail.ID,
		Name:          detail.Name,
		Domain:        detail.Domain,
		OverallRating: detail.OverallRating,
		TotalChapters: detail.TotalChapters,
	})
}

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	chapters, err := s.catalog.ListChapters(r.Context(),
		strings.TrimSpace(query.Get("name")),
		strings.TrimSpace(query.Get("course_id")),
		strings.TrimSpace(query.Get("id")),
	)
	if err != nil {
		s.renderCatalogError(w, "list chapters", err)
		return
	}

	items := make([]chapterResponse, 0, len(chapters))
	for _, chapter := range chapters {
		items = append(items, toChapterResponse(chapter))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chapter_id")

	chapter, err := s.catalog.GetChapter(r.Context(), id)
	if err != nil {
		// The single-chapter surface reports not-found as a plain 400
		// failure, unlike the rating endpoint.
		if errors.Is(err, catalog.ErrChapterNotFound) {
			s.respondError(w, http.StatusBadRequest, "Chapter not found")
			return
		}
		s.renderCatalogError(w, "get chapter", err)
		return
	}

	s.respondJSON(w, http.StatusOK, toChapterResponse(chapter))
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "chapter_id")

	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	user := strings.TrimSpace(req.User)
	if user == "" {
		s.respondError(w, http.StatusBadRequest, "user is required")
		return
	}

	ack, err := s.catalog.SubmitRating(r.Context(), chapterID, user, req.Point)
	if err != nil {
		s.renderCatalogError(w, "submit rating", err)
		return
	}

	message := ratingAcceptedMessage
	if !ack.AggregateUpdated {
		message = ratingStaleMessage
	}
	s.respondJSON(w, http.StatusOK, successResponse{Success: message})
}

// renderCatalogError maps the catalog error taxonomy onto the wire contract:
// not-found entities are 404, everything else client-facing is 400. No error
// escapes as a 500 here; store failures carry their message in the body.
func (s *Server) renderCatalogError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, catalog.ErrCourseNotFound):
		s.respondError(w, http.StatusNotFound, "Course not found")
	case errors.Is(err, catalog.ErrChapterNotFound):
		s.respondError(w, http.StatusNotFound, "Chapter not found")
	case errors.Is(err, catalog.ErrInvalidID):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrOrphanChapter):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Printf("%s error: %v", op, err)
		s.respondError(w, http.StatusBadRequest, err.Error())
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusBadRequest, "malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusBadRequest, "request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "unable to parse request body")
	}
}

func toCourseResponse(course domain.CourseWithChapters) courseResponse {
	chapters := make([]chapterSummary, 0, len(course.Chapters))
	for _, chapter := range course.Chapters {
		chapters = append(chapters, chapterSummary{
			ID:       chapter.ID,
			CourseID: chapter.CourseID,
			Name:     chapter.Name,
		})
	}
	return courseResponse{
		ID:            course.ID,
		Name:          course.Name,
		Domain:        course.Domain,
		OverallRating: course.OverallRating,
		Chapters:      chapters,
	}
}

func toChapterResponse(chapter domain.ChapterWithCourse) chapterResponse {
	return chapterResponse{
		ID:   chapter.ID,
		Name: chapter.Name,
		CourseInfo: courseInfo{
			ID:            chapter.Course.ID,
			Name:          chapter.Course.Name,
			Domain:        chapter.Course.Domain,
			OverallRating: chapter.Course.OverallRating,
		},
	}
}
