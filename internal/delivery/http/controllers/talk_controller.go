package controllers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"talkregistration/internal/delivery/http/helpers"
	"talkregistration/internal/domain"
)

// CreateTalkRequest is the request body for POST /talks. Field rules are
// enforced by the talk service so create and update report the same problems.
type CreateTalkRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Location     string           `json:"location"`
	Speakers     []domain.Speaker `json:"speakers"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
	MaxAttendees *int             `json:"max_attendees"`
	Tags         []string         `json:"tags"`
}

// OptionalInt tells an absent JSON field apart from an explicit null.
type OptionalInt struct {
	Set   bool
	Value *int
}

// UnmarshalJSON implements json.Unmarshaler. It only runs when the key is present.
func (o *OptionalInt) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// UpdateTalkRequest is the request body for PATCH /talks/{talkID}. All fields
// are optional; max_attendees set to null removes the capacity limit.
type UpdateTalkRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Location     *string          `json:"location"`
	Speakers     []domain.Speaker `json:"speakers"`
	StartTime    *time.Time       `json:"start_time"`
	EndTime      *time.Time       `json:"end_time"`
	MaxAttendees OptionalInt      `json:"max_attendees" swaggertype:"integer"`
	Tags         []string         `json:"tags"`
}

func (u UpdateTalkRequest) patch() domain.TalkPatch {
	p := domain.TalkPatch{
		Title:       u.Title,
		Description: u.Description,
		Location:    u.Location,
		Speakers:    u.Speakers,
		StartTime:   u.StartTime,
		EndTime:     u.EndTime,
		Tags:        u.Tags,
	}
	if u.MaxAttendees.Set {
		if u.MaxAttendees.Value == nil {
			p.ClearMaxAttendees = true
		} else {
			p.MaxAttendees = u.MaxAttendees.Value
		}
	}
	return p
}

// ListTalksResponse is the data payload for GET /talks (200).
type ListTalksResponse struct {
	Items      []*domain.Talk         `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListTalksSuccessResponse is the success response envelope for GET /talks (200).
type ListTalksSuccessResponse struct {
	Data  ListTalksResponse `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// TalkSuccessResponse is the success response envelope for single-talk endpoints.
type TalkSuccessResponse struct {
	Data  *domain.Talk      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ImportTalksResponse is the data payload for the Sessionize import (201).
type ImportTalksResponse struct {
	Imported int            `json:"imported"`
	Talks    []*domain.Talk `json:"talks"`
}

// ImportTalksSuccessResponse is the success response envelope for the Sessionize import (201).
type ImportTalksSuccessResponse struct {
	Data  ImportTalksResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// DeleteTalkResponse is the data payload for DELETE /talks/{talkID} (200).
type DeleteTalkResponse struct {
	Status string `json:"status"`
}

// TalkController handles the talk catalogue endpoints.
type TalkController struct {
	Logger  *slog.Logger
	Service domain.TalkService
}

// NewTalkController creates a TalkController with the given logger and service.
func NewTalkController(logger *slog.Logger, svc domain.TalkService) *TalkController {
	return &TalkController{
		Logger:  logger,
		Service: svc,
	}
}

// ListTalks godoc
// @Summary List talks
// @Description Returns talks ordered by start time. Optional tag (case-insensitive) and location filters. Use page and page_size query params.
// @Tags talks
// @Produce json
// @Param tag query string false "Only talks carrying this tag"
// @Param location query string false "Only talks at this location"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 50, max 200)"
// @Success 200 {object} controllers.ListTalksSuccessResponse "data contains items and pagination"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /talks [get]
func (c *TalkController) ListTalks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TalkFilter{
		Tag:      strings.TrimSpace(q.Get("tag")),
		Location: strings.TrimSpace(q.Get("location")),
	}
	params := helpers.ParsePagination(r)
	talks, total, err := c.Service.List(r.Context(), filter, params)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "talks not found")
		return
	}
	if talks == nil {
		talks = []*domain.Talk{}
	}
	meta := helpers.NewPaginationMeta(params, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListTalksResponse{Items: talks, Pagination: meta})
}

// GetTalk godoc
// @Summary Get a talk by ID
// @Tags talks
// @Produce json
// @Param talkID path string true "Talk ID"
// @Success 200 {object} controllers.TalkSuccessResponse "data contains the talk"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /talks/{talkID} [get]
func (c *TalkController) GetTalk(w http.ResponseWriter, r *http.Request) {
	talkID := r.PathValue("talkID")
	if talkID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing talkID")
		return
	}
	talk, err := c.Service.GetByID(r.Context(), talkID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "talk not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, talk)
}

// CreateTalk godoc
// @Summary Create a talk
// @Description Admin only. Title (min 3), description (min 10), location (min 2), start_time and end_time are required; end_time must be after start_time. max_attendees is optional (null means unlimited).
// @Tags talks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateTalkRequest true "Talk data"
// @Success 201 {object} controllers.TalkSuccessResponse "data contains the created talk"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request, error.details lists problems"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /talks [post]
func (c *TalkController) CreateTalk(w http.ResponseWriter, r *http.Request) {
	var req CreateTalkRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	talk := domain.NewTalk(req.Title, req.Description, req.Location, req.Speakers, req.StartTime, req.EndTime, req.MaxAttendees, req.Tags)
	if err := c.Service.Create(r.Context(), talk); err != nil {
		writeServiceError(w, r, c.Logger, err, "talk not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, talk)
}

// UpdateTalk godoc
// @Summary Update a talk
// @Description Admin only. Partial update; the merged talk is validated with the same rules as create. Send max_attendees as null to remove the capacity limit.
// @Tags talks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param talkID path string true "Talk ID"
// @Param body body UpdateTalkRequest true "Fields to update"
// @Success 200 {object} controllers.TalkSuccessResponse "data contains the updated talk"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /talks/{talkID} [patch]
func (c *TalkController) UpdateTalk(w http.ResponseWriter, r *http.Request) {
	talkID := r.PathValue("talkID")
	if talkID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing talkID")
		return
	}
	var req UpdateTalkRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	talk, err := c.Service.Update(r.Context(), talkID, req.patch())
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "talk not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, talk)
}

// DeleteTalk godoc
// @Summary Delete a talk
// @Description Admin only. Refused with 409 while the talk has active registrations.
// @Tags talks
// @Produce json
// @Security BearerAuth
// @Param talkID path string true "Talk ID"
// @Success 200 {object} helpers.APIResponse "data.status: deleted"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /talks/{talkID} [delete]
func (c *TalkController) DeleteTalk(w http.ResponseWriter, r *http.Request) {
	talkID := r.PathValue("talkID")
	if talkID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing talkID")
		return
	}
	if err := c.Service.Delete(r.Context(), talkID); err != nil {
		writeServiceError(w, r, c.Logger, err, "talk not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteTalkResponse{Status: "deleted"})
}

// ImportSessionize godoc
// @Summary Import talks from Sessionize
// @Description Admin only. Fetches the public Sessionize agenda and creates a talk per session. Sessions already imported (same title and start time) are skipped.
// @Tags talks
// @Produce json
// @Security BearerAuth
// @Param sessionizeID path string true "Sessionize event ID"
// @Success 201 {object} controllers.ImportTalksSuccessResponse "data contains the imported talks"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /talks/import/sessionize/{sessionizeID} [post]
func (c *TalkController) ImportSessionize(w http.ResponseWriter, r *http.Request) {
	sessionizeID := strings.TrimSpace(r.PathValue("sessionizeID"))
	if sessionizeID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing sessionizeID")
		return
	}
	talks, err := c.Service.ImportSessionize(r.Context(), sessionizeID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "sessionize event not found")
		return
	}
	if talks == nil {
		talks = []*domain.Talk{}
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, ImportTalksResponse{Imported: len(talks), Talks: talks})
}
