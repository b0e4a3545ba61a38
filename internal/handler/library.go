package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/chromox/api/internal/library"
	"github.com/chromox/api/internal/model"
	"github.com/chromox/api/internal/orchestrator"
	"github.com/chromox/api/internal/service"
	"github.com/chromox/api/pkg/response"
)

// LibraryHandler serves the render-history collection: projections,
// per-item actions and replay status.
type LibraryHandler struct {
	view      *library.View[model.RenderJob]
	orch      *orchestrator.Orchestrator
	service   *service.LibraryService
	validator *validator.Validate
}

func NewLibraryHandler(view *library.View[model.RenderJob], orch *orchestrator.Orchestrator, svc *service.LibraryService, v *validator.Validate) *LibraryHandler {
	return &LibraryHandler{
		view:      view,
		orch:      orch,
		service:   svc,
		validator: v,
	}
}

// RenderItem is a render decorated with its per-item action state
type RenderItem struct {
	model.RenderJob
	State orchestrator.ItemState `json:"state"`
}

// RenderGroup is one projected group of the render history
type RenderGroup struct {
	Label     string       `json:"label"`
	Count     int          `json:"count"`
	Collapsed bool         `json:"collapsed"`
	Items     []RenderItem `json:"items"`
}

// RenderListResponse is the full render-history projection
type RenderListResponse struct {
	Groups []RenderGroup `json:"groups"`
	Total  int           `json:"total"`
}

// List handles GET /api/library/renders
func (h *LibraryHandler) List(c *fiber.Ctx) error {
	criteria := library.Criteria{
		Search: c.Query("search"),
		Filters: map[string]string{
			library.FilterPersona: c.Query("persona"),
			library.FilterRating:  c.Query("rating"),
		},
	}
	sortKey := parseSortKey(c.Query("sort"))
	groupKey := parseGroupKey(c.Query("group"))

	projection := h.view.Project(criteria, sortKey, groupKey)

	result := RenderListResponse{Total: projection.Total, Groups: make([]RenderGroup, 0, len(projection.Groups))}
	for _, g := range projection.Groups {
		group := RenderGroup{
			Label:     g.Label,
			Count:     g.Count,
			Collapsed: g.Collapsed,
			Items:     make([]RenderItem, 0, len(g.Items)),
		}
		for _, item := range g.Items {
			group.Items = append(group.Items, RenderItem{
				RenderJob: item,
				State:     h.orch.StateOf(item.ID),
			})
		}
		result.Groups = append(result.Groups, group)
	}

	return response.OK(c, result)
}

// Refresh handles POST /api/library/renders/refresh
func (h *LibraryHandler) Refresh(c *fiber.Ctx) error {
	if err := h.view.Refresh(c.Context()); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.NoContent(c)
}

// Rate handles POST /api/library/renders/:id/rating
func (h *LibraryHandler) Rate(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Render ID is required", nil)
	}

	var req model.RateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	render, ok := h.view.Find(id)
	if !ok {
		return response.NotFound(c, "Render not found")
	}

	current, err := h.orch.ToggleRating(c.Context(), id, render.Rating, req.Rating)
	if err != nil {
		if errors.Is(err, orchestrator.ErrActionPending) {
			return response.Conflict(c, "Rating change already in flight")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{"id": id, "rating": current})
}

// BeginRename handles POST /api/library/renders/:id/label/edit
func (h *LibraryHandler) BeginRename(c *fiber.Ctx) error {
	id := c.Params("id")
	render, ok := h.view.Find(id)
	if !ok {
		return response.NotFound(c, "Render not found")
	}

	h.orch.BeginEdit(id, render.Label)
	return response.OK(c, h.orch.StateOf(id))
}

// CancelRename handles DELETE /api/library/renders/:id/label/edit
func (h *LibraryHandler) CancelRename(c *fiber.Ctx) error {
	h.orch.CancelEdit(c.Params("id"))
	return response.NoContent(c)
}

// Rename handles PUT /api/library/renders/:id/label
func (h *LibraryHandler) Rename(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Render ID is required", nil)
	}

	var req model.RenameRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	// An all-whitespace label is a silent revert, not an error, so the
	// validator's required tag is deliberately not consulted here.
	if err := h.orch.CommitRename(c.Context(), id, req.Label); err != nil {
		if errors.Is(err, orchestrator.ErrActionPending) {
			return response.Conflict(c, "Rename already in flight")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{"id": id})
}

// SaveToFolio handles POST /api/library/renders/:id/folio
func (h *LibraryHandler) SaveToFolio(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Render ID is required", nil)
	}

	var req model.SaveToFolioRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.orch.SaveToFolio(c.Context(), id, req.Name); err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrAlreadySaved):
			return response.Conflict(c, "Render already saved to folio")
		case errors.Is(err, orchestrator.ErrActionPending):
			return response.Conflict(c, "Save already in flight")
		case err.Error() == "render not found":
			return response.NotFound(c, "Render not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, fiber.Map{"id": id, "saved": true})
}

// Replay handles POST /api/library/renders/:id/replay
func (h *LibraryHandler) Replay(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Render ID is required", nil)
	}

	result, err := h.orch.Replay(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrActionPending):
			return response.Conflict(c, "Replay already in flight")
		case err.Error() == "render not found":
			return response.NotFound(c, "Render not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// ReplayStatus handles GET /api/library/replay/:jobId
func (h *LibraryHandler) ReplayStatus(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.GetReplayJob(c.Context(), jobID)
	if err != nil {
		if err.Error() == "replay job not found" {
			return response.NotFound(c, "Replay job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, job)
}

// Collapse handles POST /api/library/renders/groups/collapse
func (h *LibraryHandler) Collapse(c *fiber.Ctx) error {
	var req model.CollapseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if req.Label == "" {
		return response.ValidationError(c, "Group label is required", nil)
	}

	collapsed := h.view.ToggleGroup(req.Label)
	return response.OK(c, model.CollapseResponse{Label: req.Label, Collapsed: collapsed})
}

// parseSortKey maps the sort query param onto a known key. Anything
// unrecognized falls back to recent-first.
func parseSortKey(raw string) model.SortKey {
	switch key := model.SortKey(raw); key {
	case model.SortRecent, model.SortOldest, model.SortAZ, model.SortZA, model.SortLiked, model.SortDisliked:
		return key
	}
	return model.SortRecent
}

// parseGroupKey maps the group query param onto a known key
func parseGroupKey(raw string) model.GroupKey {
	switch key := model.GroupKey(raw); key {
	case model.GroupPersona, model.GroupDate, model.GroupRating, model.GroupSource, model.GroupStyle:
		return key
	}
	return model.GroupNone
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
