package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"talkregistration/internal/delivery/http/helpers"
	"talkregistration/internal/delivery/http/middleware"
	"talkregistration/internal/domain"
)

// RegistrationSuccessResponse is the success response envelope for single-registration endpoints.
type RegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// MyRegistrationsSuccessResponse is the success response envelope for GET /users/me/registrations (200).
type MyRegistrationsSuccessResponse struct {
	Data  []*domain.UserRegistration `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// TalkRegistrationsSuccessResponse is the success response envelope for GET /talks/{talkID}/registrations (200).
type TalkRegistrationsSuccessResponse struct {
	Data  []*domain.TalkRegistration `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// CancelRegistrationResponse is the data payload for DELETE /talks/{talkID}/registrations (200).
type CancelRegistrationResponse struct {
	Status string `json:"status"`
}

// RegistrationController handles talk registration endpoints.
type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

// NewRegistrationController creates a RegistrationController with the given logger and service.
func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// Register godoc
// @Summary Register for a talk
// @Description Registers the authenticated user. Fails with 409 when already registered or when the talk is full. A confirmation email is sent in the background.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param talkID path string true "Talk ID"
// @Success 201 {object} controllers.RegistrationSuccessResponse "data contains the registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already registered or talk full)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /talks/{talkID}/registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	talkID := r.PathValue("talkID")
	if talkID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing talkID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	reg, err := c.Service.Register(r.Context(), userID, talkID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "talk not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// Cancel godoc
// @Summary Cancel my registration
// @Description Removes the authenticated user's registration for the talk, freeing the seat.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param talkID path string true "Talk ID"
// @Success 200 {object} helpers.APIResponse "data.status: cancelled"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /talks/{talkID}/registrations [delete]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	talkID := r.PathValue("talkID")
	if talkID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing talkID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.Cancel(r.Context(), userID, talkID); err != nil {
		writeServiceError(w, r, c.Logger, err, "registration not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, CancelRegistrationResponse{Status: string(domain.RegistrationCancelled)})
}

// ListMine godoc
// @Summary List my registrations
// @Description Returns the authenticated user's registrations with their talks, ordered by talk start time.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.MyRegistrationsSuccessResponse "data contains registrations"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me/registrations [get]
func (c *RegistrationController) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	list, err := c.Service.ListForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "user not found")
		return
	}
	if list == nil {
		list = []*domain.UserRegistration{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// ListForTalk godoc
// @Summary List registrations of a talk
// @Description Admin only. Returns the talk's registrations with the attendee's id, display name and email.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param talkID path string true "Talk ID"
// @Success 200 {object} controllers.TalkRegistrationsSuccessResponse "data contains registrations"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /talks/{talkID}/registrations [get]
func (c *RegistrationController) ListForTalk(w http.ResponseWriter, r *http.Request) {
	talkID := r.PathValue("talkID")
	if talkID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing talkID")
		return
	}
	list, err := c.Service.ListForTalk(r.Context(), talkID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "talk not found")
		return
	}
	if list == nil {
		list = []*domain.TalkRegistration{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// CancelByID godoc
// @Summary Cancel a registration
// @Description Admin only. Marks the registration cancelled, freeing its seat while keeping the record.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} controllers.RegistrationSuccessResponse "data contains the registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/cancel [post]
func (c *RegistrationController) CancelByID(w http.ResponseWriter, r *http.Request) {
	c.updateByID(w, r, c.Service.CancelByID)
}

// MarkAttended godoc
// @Summary Mark attendance
// @Description Admin only. Records that the attendee showed up. Cancelled registrations are rejected with 400.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} controllers.RegistrationSuccessResponse "data contains the registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/attendance [post]
func (c *RegistrationController) MarkAttended(w http.ResponseWriter, r *http.Request) {
	c.updateByID(w, r, c.Service.MarkAttended)
}

func (c *RegistrationController) updateByID(w http.ResponseWriter, r *http.Request, update func(ctx context.Context, id string) (*domain.Registration, error)) {
	registrationID := r.PathValue("registrationID")
	if registrationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing registrationID")
		return
	}
	reg, err := update(r.Context(), registrationID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "registration not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}
