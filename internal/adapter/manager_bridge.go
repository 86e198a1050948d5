package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mtbridge/internal/domain"
)

// ManagerBridge implements domain.Gateway against the native manager
// bridge sidecar, the small process that links the proprietary MT5
// Manager SDK and exposes it over local HTTP. Transport framing, TLS and
// reconnect semantics live on the sidecar's side of the fence.
type ManagerBridge struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger

	mu        sync.RWMutex
	connected bool
}

// NewManagerBridge creates a gateway talking to the sidecar at baseURL.
func NewManagerBridge(baseURL string, timeout time.Duration, log *logrus.Logger) *ManagerBridge {
	return &ManagerBridge{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// bridgeEnvelope is the sidecar's standard response wrapper.
type bridgeEnvelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

type connectRequest struct {
	Server   string `json:"server"`
	Login    uint64 `json:"login"`
	Password string `json:"password"`
}

type balanceRequest struct {
	Login   uint64  `json:"login"`
	Amount  float64 `json:"amount"`
	Type    uint32  `json:"type"`
	Comment string  `json:"comment"`
	Deposit bool    `json:"deposit"`
}

type balanceResult struct {
	Success bool `json:"success"`
}

type userGroupResult struct {
	Group string `json:"group"`
}

// Connect establishes the manager session on the sidecar.
func (b *ManagerBridge) Connect(ctx context.Context, server string, login uint64, password string) error {
	req := connectRequest{Server: server, Login: login, Password: password}
	if err := b.call(ctx, http.MethodPost, "/manager/connect", req, nil); err != nil {
		return domain.WrapBackend("connect", server, err)
	}

	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()

	b.log.WithFields(logrus.Fields{"server": server, "login": login}).Info("manager session established")
	return nil
}

// Disconnect tears down the manager session.
func (b *ManagerBridge) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	wasConnected := b.connected
	b.connected = false
	b.mu.Unlock()

	if !wasConnected {
		return nil
	}
	if err := b.call(ctx, http.MethodPost, "/manager/disconnect", nil, nil); err != nil {
		return domain.WrapBackend("disconnect", "", err)
	}
	b.log.Info("manager session closed")
	return nil
}

// IsConnected reports whether a live session exists.
func (b *ManagerBridge) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// User fetches one account record by login.
func (b *ManagerBridge) User(ctx context.Context, login uint64) (*domain.User, error) {
	var user domain.User
	path := fmt.Sprintf("/manager/users/%d", login)
	if err := b.call(ctx, http.MethodGet, path, nil, &user); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.WrapBackend("get user", fmt.Sprint(login), err)
	}
	return &user, nil
}

// Account fetches the financial snapshot for a login.
func (b *ManagerBridge) Account(ctx context.Context, login uint64) (*domain.Account, error) {
	var account domain.Account
	path := fmt.Sprintf("/manager/accounts/%d", login)
	if err := b.call(ctx, http.MethodGet, path, nil, &account); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.WrapBackend("get account", fmt.Sprint(login), err)
	}
	return &account, nil
}

// UsersInGroup fetches all members of one group.
func (b *ManagerBridge) UsersInGroup(ctx context.Context, group string) ([]domain.User, error) {
	var users []domain.User
	path := "/manager/groups/" + url.PathEscape(group) + "/users"
	if err := b.call(ctx, http.MethodGet, path, nil, &users); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.WrapBackend("get group users", group, err)
	}
	return users, nil
}

// UserGroup resolves the group name for a login.
func (b *ManagerBridge) UserGroup(ctx context.Context, login uint64) (string, error) {
	var result userGroupResult
	path := fmt.Sprintf("/manager/users/%d/group", login)
	if err := b.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrNotFound
		}
		return "", domain.WrapBackend("get user group", fmt.Sprint(login), err)
	}
	return result.Group, nil
}

// UserDeals fetches historical deals for a login within [from, to).
func (b *ManagerBridge) UserDeals(ctx context.Context, login uint64, from, to time.Time) ([]domain.Deal, error) {
	var deals []domain.Deal
	path := fmt.Sprintf("/manager/users/%d/deals?from=%s&to=%s",
		login,
		url.QueryEscape(from.UTC().Format(time.RFC3339)),
		url.QueryEscape(to.UTC().Format(time.RFC3339)))
	if err := b.call(ctx, http.MethodGet, path, nil, &deals); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.WrapBackend("get deals", fmt.Sprint(login), err)
	}
	return deals, nil
}

// UserPositions fetches the open positions of a login.
func (b *ManagerBridge) UserPositions(ctx context.Context, login uint64) ([]domain.Position, error) {
	var positions []domain.Position
	path := fmt.Sprintf("/manager/users/%d/positions", login)
	if err := b.call(ctx, http.MethodGet, path, nil, &positions); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Position{}, nil
		}
		return nil, domain.WrapBackend("get positions", fmt.Sprint(login), err)
	}
	return positions, nil
}

// BalanceOperation submits a deposit or withdrawal for a login.
func (b *ManagerBridge) BalanceOperation(ctx context.Context, login uint64, amount float64, opType uint32, comment string, deposit bool) (bool, error) {
	req := balanceRequest{Login: login, Amount: amount, Type: opType, Comment: comment, Deposit: deposit}
	var result balanceResult
	if err := b.call(ctx, http.MethodPost, "/manager/balance", req, &result); err != nil {
		return false, domain.WrapBackend("balance operation", fmt.Sprint(login), err)
	}
	return result.Success, nil
}

// call performs one bridge round trip and decodes the envelope. A
// NOT_FOUND code comes back as domain.ErrNotFound so callers can branch
// without string matching.
func (b *ManagerBridge) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope bridgeEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if !envelope.OK {
		if envelope.Code == "NOT_FOUND" || resp.StatusCode == http.StatusNotFound {
			return domain.ErrNotFound
		}
		return fmt.Errorf("bridge error: %s", envelope.Error)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
