package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// IncidentsHandler exposes the incident lifecycle.
type IncidentsHandler struct {
	incidents  *service.IncidentService
	duplicates *service.DuplicateService
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(incidents *service.IncidentService, duplicates *service.DuplicateService) *IncidentsHandler {
	return &IncidentsHandler{incidents: incidents, duplicates: duplicates}
}

// CreateIncident POST /incidents.
func (h *IncidentsHandler) CreateIncident(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	res, err := h.incidents.CreateIncident(c.UserContext(), principal.OrganizationID, principal.UserID, service.CreateIncidentInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Channel:         req.Channel,
		Impact:          req.Impact,
		Urgency:         req.Urgency,
		Priority:        req.Priority,
		AssigneeID:      req.AssigneeID,
		TeamID:          req.TeamID,
		Tags:            req.Tags,
		ConfigItemIDs:   req.ConfigItemIDs,
		ProblemID:       req.ProblemID,
		ChangeRequestID: req.ChangeRequestID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(withWarnings(fiber.Map{"data": dto.NewIncidentResponse(res.Incident)}, res.Warnings))
}

// GetIncident GET /incidents/:id.
func (h *IncidentsHandler) GetIncident(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	view, err := h.incidents.GetIncident(c.UserContext(), principal.OrganizationID, c.Params("id"))
	if err != nil {
		return err
	}
	resp := dto.NewIncidentResponse(view.Incident)
	resp.SLA = dto.NewSLAResponse(view.SLA)
	return c.JSON(fiber.Map{"data": resp})
}

// UpdateIncident PATCH /incidents/:id.
func (h *IncidentsHandler) UpdateIncident(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	incident, err := h.incidents.UpdateIncident(c.UserContext(), principal.OrganizationID, c.Params("id"), principal.UserID, service.UpdateIncidentInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Channel:         req.Channel,
		Impact:          req.Impact,
		Urgency:         req.Urgency,
		Priority:        req.Priority,
		Tags:            req.Tags,
		ConfigItemIDs:   req.ConfigItemIDs,
		ProblemID:       req.ProblemID,
		ChangeRequestID: req.ChangeRequestID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIncidentResponse(incident)})
}

// Transition POST /incidents/:id/transition.
func (h *IncidentsHandler) Transition(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", map[string]any{"field": "status"})
	}
	incident, err := h.incidents.Transition(c.UserContext(), principal.OrganizationID, c.Params("id"), principal.UserID, req.Status, service.TransitionDetails{
		AssigneeID:        req.AssigneeID,
		TeamID:            req.TeamID,
		Reason:            req.Reason,
		Comment:           req.Comment,
		PendingReason:     req.PendingReason,
		OnHoldUntil:       req.OnHoldUntil,
		ResolutionSummary: req.ResolutionSummary,
		ClosureCode:       req.ClosureCode,
		ProblemID:         req.ProblemID,
		Metadata:          req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIncidentResponse(incident)})
}

// AddComment POST /incidents/:id/comments.
func (h *IncidentsHandler) AddComment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	res, err := h.incidents.AddComment(c.UserContext(), principal.OrganizationID, c.Params("id"), principal.UserID, req.Content, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(withWarnings(fiber.Map{"data": dto.NewCommentResponse(res.Comment)}, res.Warnings))
}

// ListTimeline GET /incidents/:id/timeline.
func (h *IncidentsHandler) ListTimeline(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	entries, err := h.incidents.ListTimeline(c.UserContext(), principal.OrganizationID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTimelineResponse(entries)})
}

// FindDuplicates GET /incidents/:id/duplicates.
func (h *IncidentsHandler) FindDuplicates(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return apperrors.NewValidationError("limit must be a positive integer", map[string]any{"limit": raw})
		}
	}
	res, err := h.duplicates.FindPotentialDuplicates(c.UserContext(), principal.OrganizationID, c.Params("id"), limit)
	if err != nil {
		return err
	}
	out := dto.DuplicatesResponse{
		Target:     dto.NewIncidentResponse(res.Target),
		Duplicates: make([]dto.DuplicateCandidateResponse, 0, len(res.Duplicates)),
	}
	for _, candidate := range res.Duplicates {
		out.Duplicates = append(out.Duplicates, dto.DuplicateCandidateResponse{
			Incident: dto.NewIncidentResponse(candidate.Incident),
			Score:    candidate.Score,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// Merge POST /incidents/:id/merge.
func (h *IncidentsHandler) Merge(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.MergeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	res, err := h.duplicates.MergeIncidents(c.UserContext(), principal.OrganizationID, principal.UserID, c.Params("id"), req.SourceIDs, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(dto.MergeResponse{
		Data:              dto.NewIncidentResponse(res.Data),
		MergedCount:       res.MergedCount,
		MergedIncidentIDs: res.MergedIncidentIDs,
	})
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.OrganizationID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func withWarnings(body fiber.Map, warnings []string) fiber.Map {
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}
	return body
}
