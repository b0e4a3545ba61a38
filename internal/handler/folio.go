package handler

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/chromox/api/internal/library"
	"github.com/chromox/api/internal/middleware"
	"github.com/chromox/api/internal/model"
	"github.com/chromox/api/internal/orchestrator"
	"github.com/chromox/api/internal/service"
	"github.com/chromox/api/pkg/response"
)

const maxClipSize = 50 * 1024 * 1024 // 50MB

// FolioHandler serves the curated clip collection
type FolioHandler struct {
	view      *library.View[model.FolioClip]
	orch      *orchestrator.Orchestrator
	service   *service.FolioService
	validator *validator.Validate
}

func NewFolioHandler(view *library.View[model.FolioClip], orch *orchestrator.Orchestrator, svc *service.FolioService, v *validator.Validate) *FolioHandler {
	return &FolioHandler{
		view:      view,
		orch:      orch,
		service:   svc,
		validator: v,
	}
}

// ClipItem is a clip decorated with its per-item action state
type ClipItem struct {
	model.FolioClip
	Removable bool                   `json:"removable"`
	State     orchestrator.ItemState `json:"state"`
}

// ClipGroup is one projected group of the folio
type ClipGroup struct {
	Label     string     `json:"label"`
	Count     int        `json:"count"`
	Collapsed bool       `json:"collapsed"`
	Items     []ClipItem `json:"items"`
}

// ClipListResponse is the full folio projection
type ClipListResponse struct {
	Groups []ClipGroup `json:"groups"`
	Total  int         `json:"total"`
}

// List handles GET /api/folio/clips
func (h *FolioHandler) List(c *fiber.Ctx) error {
	criteria := library.Criteria{
		Search: c.Query("search"),
		Filters: map[string]string{
			library.FilterPersona: c.Query("persona"),
			library.FilterSource:  c.Query("source"),
		},
	}
	sortKey := parseSortKey(c.Query("sort"))
	groupKey := parseGroupKey(c.Query("group"))

	projection := h.view.Project(criteria, sortKey, groupKey)

	result := ClipListResponse{Total: projection.Total, Groups: make([]ClipGroup, 0, len(projection.Groups))}
	for _, g := range projection.Groups {
		group := ClipGroup{
			Label:     g.Label,
			Count:     g.Count,
			Collapsed: g.Collapsed,
			Items:     make([]ClipItem, 0, len(g.Items)),
		}
		for _, item := range g.Items {
			group.Items = append(group.Items, ClipItem{
				FolioClip: item,
				Removable: item.Removable(),
				State:     h.orch.StateOf(item.ID),
			})
		}
		result.Groups = append(result.Groups, group)
	}

	return response.OK(c, result)
}

// Refresh handles POST /api/folio/clips/refresh
func (h *FolioHandler) Refresh(c *fiber.Ctx) error {
	if err := h.view.Refresh(c.Context()); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.NoContent(c)
}

// Upload handles POST /api/folio/clips
func (h *FolioHandler) Upload(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("name"))

	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > maxClipSize {
		return response.ValidationError(c, "File size exceeds 50MB limit", map[string]interface{}{
			"maxSize":  maxClipSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	validTypes := map[string]bool{
		"audio/wav":   true,
		"audio/x-wav": true,
		"audio/wave":  true,
		"audio/mpeg":  true,
		"audio/mp3":   true,
		"audio/mp4":   true,
		"audio/x-m4a": true,
		"audio/aac":   true,
		"audio/x-aac": true,
	}
	if !validTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: WAV, M4A, MP3, AAC", map[string]interface{}{
			"contentType": contentType,
		})
	}

	if name == "" {
		name = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	ext := strings.TrimPrefix(filepath.Ext(file.Filename), ".")
	if ext == "" {
		ext = "wav"
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	result, err := h.service.UploadClip(c.Context(), middleware.GetUserID(c), name, ext, contentType, f)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}

// Remove handles DELETE /api/folio/clips/:id
func (h *FolioHandler) Remove(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Clip ID is required", nil)
	}

	clip, ok := h.view.Find(id)
	if !ok {
		return response.NotFound(c, "Clip not found")
	}

	if err := h.orch.RemoveClip(c.Context(), id, clip.SourceKind); err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrGuideReadOnly):
			return response.Forbidden(c, "Guide clips cannot be removed")
		case errors.Is(err, orchestrator.ErrActionPending):
			return response.Conflict(c, "Removal already in flight")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.NoContent(c)
}

// Collapse handles POST /api/folio/clips/groups/collapse
func (h *FolioHandler) Collapse(c *fiber.Ctx) error {
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
