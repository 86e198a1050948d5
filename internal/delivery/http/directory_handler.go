package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"mtbridge/internal/delivery/http/dto"
	"mtbridge/internal/domain"
	"mtbridge/internal/service"
)

// DirectoryHandler serves the account directory endpoints
type DirectoryHandler struct {
	directory *service.DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler
func NewDirectoryHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// serviceError converts a Directory Service failure into the uniform
// envelope. Malformed input is the caller's fault (400); everything else
// is a domain-level failure reported inside a 200 envelope, matching the
// backend's administrative tooling conventions.
func serviceError(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrInvalidInput) {
		return BadRequestResponse(c, err.Error())
	}
	return OperationFailedResponse(c, err.Error())
}

func parseLogin(c echo.Context) (uint64, error) {
	login, err := strconv.ParseUint(c.Param("login"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid login format")
	}
	return login, nil
}

// Connect establishes the backend session
// POST /api/connect
func (h *DirectoryHandler) Connect(c echo.Context) error {
	var req dto.ConnectRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request body")
	}

	if err := h.directory.Connect(c.Request().Context(), req.Server, req.Login, req.Password); err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, map[string]any{
		"message": "Connected successfully",
		"server":  req.Server,
		"login":   req.Login,
	})
}

// Disconnect tears down the backend session
// POST /api/disconnect
func (h *DirectoryHandler) Disconnect(c echo.Context) error {
	if err := h.directory.Disconnect(c.Request().Context()); err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, map[string]any{"message": "Disconnected successfully"})
}

// Status reports the session state
// GET /api/status
func (h *DirectoryHandler) Status(c echo.Context) error {
	return SuccessResponse(c, map[string]any{
		"connected": h.directory.Connected(),
		"timestamp": time.Now().UTC(),
	})
}

// GetUser returns one account record
// GET /api/user/:login
func (h *DirectoryHandler) GetUser(c echo.Context) error {
	login, err := parseLogin(c)
	if err != nil {
		return BadRequestResponse(c, err.Error())
	}

	user, err := h.directory.GetUser(c.Request().Context(), login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return OperationFailedResponse(c, "User not found")
		}
		return serviceError(c, err)
	}
	return SuccessResponse(c, user)
}

// GetAccount returns the financial snapshot of one account
// GET /api/account/:login
func (h *DirectoryHandler) GetAccount(c echo.Context) error {
	login, err := parseLogin(c)
	if err != nil {
		return BadRequestResponse(c, err.Error())
	}

	account, err := h.directory.GetAccount(c.Request().Context(), login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return OperationFailedResponse(c, "Account not found")
		}
		return serviceError(c, err)
	}
	return SuccessResponse(c, account)
}

// GetUserGroup returns the group name of one account
// GET /api/user/:login/group
func (h *DirectoryHandler) GetUserGroup(c echo.Context) error {
	login, err := parseLogin(c)
	if err != nil {
		return BadRequestResponse(c, err.Error())
	}

	group, err := h.directory.GetUserGroup(c.Request().Context(), login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return OperationFailedResponse(c, "Group not found")
		}
		return serviceError(c, err)
	}
	return SuccessResponse(c, map[string]any{"group": group})
}

// GetAllUsers runs the full discovery pass
// GET /api/users
func (h *DirectoryHandler) GetAllUsers(c echo.Context) error {
	result, err := h.directory.GetAllUsers(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, result)
}

func (h *DirectoryHandler) usersBySet(c echo.Context, set service.UserSet) error {
	users, err := h.directory.GetUsersBySet(c.Request().Context(), set)
	if err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, users)
}

// GetRealUsers lists members of the real-group seed catalogue
// GET /api/users/real
func (h *DirectoryHandler) GetRealUsers(c echo.Context) error {
	return h.usersBySet(c, service.SetReal)
}

// GetDemoUsers lists members of the demo-group seed catalogue
// GET /api/users/demo
func (h *DirectoryHandler) GetDemoUsers(c echo.Context) error {
	return h.usersBySet(c, service.SetDemo)
}

// GetVIPUsers lists members of the VIP-group seed catalogue
// GET /api/users/vip
func (h *DirectoryHandler) GetVIPUsers(c echo.Context) error {
	return h.usersBySet(c, service.SetVIP)
}

// GetManagerUsers lists members of the manager-group seed catalogue
// GET /api/users/managers
func (h *DirectoryHandler) GetManagerUsers(c echo.Context) error {
	return h.usersBySet(c, service.SetManagers)
}

// GetDiscoveryStats reports discovery provenance and activity breakdown
// GET /api/users/stats
func (h *DirectoryHandler) GetDiscoveryStats(c echo.Context) error {
	stats, err := h.directory.GetDiscoveryStats(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, stats)
}

// GetUsersInGroup lists the members of one group
// GET /api/group/:name/users
func (h *DirectoryHandler) GetUsersInGroup(c echo.Context) error {
	users, err := h.directory.GetUsersInGroup(c.Request().Context(), c.Param("name"))
	if err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, users)
}

// GetGroupPositions flattens positions across the members of one group
// GET /api/group/:name/positions
func (h *DirectoryHandler) GetGroupPositions(c echo.Context) error {
	positions, err := h.directory.GetGroupPositions(c.Request().Context(), c.Param("name"))
	if err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, positions)
}

// GetUserDeals returns historical deals for one account. Defaults to the
// last seven days through tomorrow when the range is not given.
// GET /api/user/:login/deals?from=2024-01-02&to=2024-01-09
func (h *DirectoryHandler) GetUserDeals(c echo.Context) error {
	login, err := parseLogin(c)
	if err != nil {
		return BadRequestResponse(c, err.Error())
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -7).Truncate(24 * time.Hour)
	to := now.AddDate(0, 0, 1).Truncate(24 * time.Hour)

	if raw := c.QueryParam("from"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return BadRequestResponse(c, "Invalid 'from' date")
		}
		from = parsed
	}
	if raw := c.QueryParam("to"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return BadRequestResponse(c, "Invalid 'to' date")
		}
		to = parsed
	}

	page, err := h.directory.GetUserDeals(c.Request().Context(), login, from, to)
	if err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, page)
}

// GetUserPositions returns the open positions of one account
// GET /api/user/:login/positions
func (h *DirectoryHandler) GetUserPositions(c echo.Context) error {
	login, err := parseLogin(c)
	if err != nil {
		return BadRequestResponse(c, err.Error())
	}

	positions, err := h.directory.GetUserPositions(c.Request().Context(), login)
	if err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, positions)
}

// GetPositionSummary aggregates the open positions of one account
// GET /api/user/:login/positions/summary
func (h *DirectoryHandler) GetPositionSummary(c echo.Context) error {
	login, err := parseLogin(c)
	if err != nil {
		return BadRequestResponse(c, err.Error())
	}

	summary, err := h.directory.GetPositionSummary(c.Request().Context(), login)
	if err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, summary)
}

// PerformBalance applies a deposit or withdrawal
// POST /api/balance
func (h *DirectoryHandler) PerformBalance(c echo.Context) error {
	var req dto.BalanceRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request body")
	}

	result, err := h.directory.BalanceOperation(c.Request().Context(), req.Login, req.Amount, req.Comment, req.OperationType())
	if err != nil {
		return serviceError(c, err)
	}
	return SuccessResponse(c, result)
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}
