package http

import (
	"errors"

	"github.com/labstack/echo/v4"

	"mtbridge/internal/delivery/http/dto"
	"mtbridge/internal/domain"
	"mtbridge/internal/service"
)

// GroupHandler serves the group catalogue endpoints
type GroupHandler struct {
	directory *service.DirectoryService
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(directory *service.DirectoryService) *GroupHandler {
	return &GroupHandler{directory: directory}
}

// ListGroups returns the best-effort group catalogue
// GET /api/groups
func (h *GroupHandler) ListGroups(c echo.Context) error {
	groups, err := h.directory.GetAllGroups(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, map[string]any{
		"groups": groups,
		"count":  len(groups),
	})
}

// GetGroup returns one group descriptor
// GET /api/group/:name
func (h *GroupHandler) GetGroup(c echo.Context) error {
	group, err := h.directory.GetGroup(c.Request().Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return OperationFailedResponse(c, "Group not found")
		}
		return serviceError(c, err)
	}
	return SuccessResponse(c, group)
}

// CreateGroup creates a new group descriptor
// POST /api/groups
func (h *GroupHandler) CreateGroup(c echo.Context) error {
	var req dto.GroupCreateRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request body")
	}

	created, err := h.directory.CreateGroup(c.Request().Context(), req.ToGroup())
	if err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, created)
}

// UpdateGroup merges a partial update into one group
// POST /api/group/:name
func (h *GroupHandler) UpdateGroup(c echo.Context) error {
	var req dto.GroupUpdateRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request body")
	}

	updated, err := h.directory.UpdateGroup(c.Request().Context(), c.Param("name"), req.ToPatch())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return OperationFailedResponse(c, "Group not found")
		}
		return serviceError(c, err)
	}
	return SuccessResponse(c, updated)
}
