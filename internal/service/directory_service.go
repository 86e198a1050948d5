package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mtbridge/configs"
	"mtbridge/internal/discovery"
	"mtbridge/internal/domain"
	"mtbridge/pkg/metrics"
)

// Bounds protecting the single backend session from runaway fan-out.
const (
	maxDealsReturned       = 100
	maxGroupPositionFanout = 50
)

const discoveryMethod = "seed group enumeration with login window and pattern expansion"

// DirectoryService is the façade the HTTP layer calls. It enforces the
// session precondition and composes the discovery engine, the group
// cache and the backend gateway.
type DirectoryService struct {
	gateway   domain.Gateway
	engine    *discovery.Engine
	groups    domain.GroupRepository
	catalog   configs.DiscoveryConfig
	collector *metrics.Collector
	log       *logrus.Logger
}

// NewDirectoryService creates the façade.
func NewDirectoryService(
	gateway domain.Gateway,
	engine *discovery.Engine,
	groups domain.GroupRepository,
	catalog configs.DiscoveryConfig,
	collector *metrics.Collector,
	log *logrus.Logger,
) *DirectoryService {
	return &DirectoryService{
		gateway:   gateway,
		engine:    engine,
		groups:    groups,
		catalog:   catalog,
		collector: collector,
		log:       log,
	}
}

// requireSession gates every operation except Connect and Status.
func (s *DirectoryService) requireSession() error {
	if !s.gateway.IsConnected() {
		return domain.ErrNotConnected
	}
	return nil
}

// Connect establishes the backend session.
func (s *DirectoryService) Connect(ctx context.Context, server string, login uint64, password string) error {
	if server == "" {
		return fmt.Errorf("%w: server is required", domain.ErrInvalidInput)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	return s.gateway.Connect(ctx, server, login, password)
}

// Disconnect tears the session down.
func (s *DirectoryService) Disconnect(ctx context.Context) error {
	return s.gateway.Disconnect(ctx)
}

// Connected reports the session state.
func (s *DirectoryService) Connected() bool {
	return s.gateway.IsConnected()
}

// GetUser fetches one account record. ErrNotFound when absent.
func (s *DirectoryService) GetUser(ctx context.Context, login uint64) (*domain.User, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	return s.gateway.User(ctx, login)
}

// GetAccount fetches the financial snapshot for a login.
func (s *DirectoryService) GetAccount(ctx context.Context, login uint64) (*domain.Account, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	return s.gateway.Account(ctx, login)
}

// GetUserGroup resolves the group name of a login.
func (s *DirectoryService) GetUserGroup(ctx context.Context, login uint64) (string, error) {
	if err := s.requireSession(); err != nil {
		return "", err
	}
	return s.gateway.UserGroup(ctx, login)
}

// GetUsersInGroup returns the members of one group. A group without
// members, or one the backend does not know, yields an empty list.
func (s *DirectoryService) GetUsersInGroup(ctx context.Context, name string) ([]domain.User, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", domain.ErrInvalidInput)
	}
	users, err := s.gateway.UsersInGroup(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return []domain.User{}, nil
		}
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// UserSet selects one of the configured seed catalogues.
type UserSet string

// Seed catalogues served by the /api/users/... variants.
const (
	SetReal     UserSet = "real"
	SetDemo     UserSet = "demo"
	SetVIP      UserSet = "vip"
	SetManagers UserSet = "managers"
)

func (s *DirectoryService) seedsFor(set UserSet) []string {
	switch set {
	case SetDemo:
		return s.catalog.DemoGroups
	case SetVIP:
		return s.catalog.VIPGroups
	case SetManagers:
		return s.catalog.ManagerGroups
	default:
		return s.catalog.RealGroups
	}
}

// GetUsersBySet lists the deduplicated members of one seed catalogue.
// Partial failures inside the pass are absorbed; the result is always a
// (possibly empty) best-effort list.
func (s *DirectoryService) GetUsersBySet(ctx context.Context, set UserSet) ([]domain.User, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	users := s.engine.UsersFromGroups(ctx, s.seedsFor(set))
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// AllUsersStats summarizes one discovery pass for the /api/users payload.
type AllUsersStats struct {
	TotalUsers           int    `json:"total_users"`
	FromSeedGroups       int    `json:"from_seed_groups"`
	AdditionalDiscovered int    `json:"additional_discovered"`
	GroupsFound          int    `json:"groups_found"`
	LoginRange           string `json:"login_range"`
	DiscoveryMethod      string `json:"discovery_method"`
}

// AllUsers is the /api/users payload: the user list plus provenance.
type AllUsers struct {
	Users          []domain.User `json:"users"`
	DiscoveryStats AllUsersStats `json:"discovery_stats"`
}

// GetAllUsers runs the full discovery pass over the real-group seeds.
func (s *DirectoryService) GetAllUsers(ctx context.Context) (*AllUsers, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}

	result := s.engine.DiscoverUsers(ctx, s.catalog.RealGroups)
	groups := make(map[string]bool)
	for _, u := range result.Users {
		groups[u.Group] = true
	}

	return &AllUsers{
		Users: result.Users,
		DiscoveryStats: AllUsersStats{
			TotalUsers:           len(result.Users),
			FromSeedGroups:       result.FromSeedGroups,
			AdditionalDiscovered: result.AdditionalDiscovered,
			GroupsFound:          len(groups),
			LoginRange:           loginRangeText(result.Users),
			DiscoveryMethod:      discoveryMethod,
		},
	}, nil
}

// LoginRange is the observed login span of a discovery pass.
type LoginRange struct {
	Min  uint64 `json:"min"`
	Max  uint64 `json:"max"`
	Text string `json:"range_text"`
}

// GroupCount is one entry of the per-group member breakdown.
type GroupCount struct {
	Group string `json:"group"`
	Count int    `json:"count"`
}

// ActivityStats buckets accounts by recency of last access.
type ActivityStats struct {
	ActiveToday int `json:"active_today"`
	ActiveWeek  int `json:"active_week"`
	ActiveMonth int `json:"active_month"`
}

// DiscoveryStats is the full provenance and activity breakdown served by
// /api/users/stats.
type DiscoveryStats struct {
	TotalUsers           int           `json:"total_users"`
	FromSeedGroups       int           `json:"from_seed_groups"`
	AdditionalDiscovered int           `json:"additional_discovered"`
	GroupsFound          []string      `json:"groups_found"`
	GroupsCount          int           `json:"groups_count"`
	LoginRange           *LoginRange   `json:"login_range"`
	DiscoveryMethod      string        `json:"discovery_method"`
	GroupBreakdown       []GroupCount  `json:"group_breakdown"`
	ActivityStats        ActivityStats `json:"activity_stats"`
}

// GetDiscoveryStats runs a discovery pass and reports its provenance.
func (s *DirectoryService) GetDiscoveryStats(ctx context.Context) (*DiscoveryStats, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}

	result := s.engine.DiscoverUsers(ctx, s.catalog.RealGroups)

	byGroup := make(map[string]int)
	for _, u := range result.Users {
		byGroup[u.Group]++
	}
	groupNames := make([]string, 0, len(byGroup))
	breakdown := make([]GroupCount, 0, len(byGroup))
	for name, count := range byGroup {
		groupNames = append(groupNames, name)
		breakdown = append(breakdown, GroupCount{Group: name, Count: count})
	}
	sort.Strings(groupNames)
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Count != breakdown[j].Count {
			return breakdown[i].Count > breakdown[j].Count
		}
		return breakdown[i].Group < breakdown[j].Group
	})

	stats := &DiscoveryStats{
		TotalUsers:           len(result.Users),
		FromSeedGroups:       result.FromSeedGroups,
		AdditionalDiscovered: result.AdditionalDiscovered,
		GroupsFound:          groupNames,
		GroupsCount:          len(groupNames),
		DiscoveryMethod:      discoveryMethod,
		GroupBreakdown:       breakdown,
		ActivityStats:        activityStats(result.Users),
	}
	if len(result.Users) > 0 {
		min, max := result.Users[0].Login, result.Users[0].Login
		for _, u := range result.Users {
			if u.Login < min {
				min = u.Login
			}
			if u.Login > max {
				max = u.Login
			}
		}
		stats.LoginRange = &LoginRange{Min: min, Max: max, Text: fmt.Sprintf("%d - %d", min, max)}
	}
	return stats, nil
}

// GetAllGroups reconstructs the best-effort group catalogue.
func (s *DirectoryService) GetAllGroups(ctx context.Context) ([]*domain.Group, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	return s.engine.DiscoverGroups(ctx, s.catalog.RealGroups), nil
}

// GetGroup resolves one group descriptor, cache first, then discovery,
// case-insensitively.
func (s *DirectoryService) GetGroup(ctx context.Context, name string) (*domain.Group, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", domain.ErrInvalidInput)
	}
	if cached, ok := s.groups.Get(name); ok {
		return cached, nil
	}
	for _, g := range s.engine.DiscoverGroups(ctx, s.catalog.RealGroups) {
		if strings.EqualFold(g.Name, name) {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: group %s", domain.ErrNotFound, name)
}

// CreateGroup validates, defaults and stores a new group descriptor.
// Creation is a local logical record: the backend offers no remote group
// mutation, so the descriptor lives in the directory cache.
func (s *DirectoryService) CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	if err := domain.ValidateName(group.Name); err != nil {
		return nil, err
	}

	if _, exists := s.groups.Get(group.Name); exists {
		return nil, fmt.Errorf("%w: group %s", domain.ErrAlreadyExists, group.Name)
	}
	for _, existing := range s.engine.DiscoverGroups(ctx, s.catalog.RealGroups) {
		if strings.EqualFold(existing.Name, group.Name) {
			return nil, fmt.Errorf("%w: group %s", domain.ErrAlreadyExists, group.Name)
		}
	}

	created := group.Clone()
	created.FillDefaults()
	created.UserCount = 0
	created.LastUpdate = time.Now().UTC()
	s.groups.Put(created)

	s.log.WithField("group", created.Name).Info("group created")
	return created.Clone(), nil
}

// UpdateGroup merges a partial update into the current descriptor. Only
// cache-resident groups persist the merge; an update to a group known by
// discovery alone is accepted logically but lost on restart.
func (s *DirectoryService) UpdateGroup(ctx context.Context, name string, patch *domain.GroupPatch) (*domain.Group, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", domain.ErrInvalidInput)
	}

	current, cacheResident := s.groups.Get(name)
	if !cacheResident {
		found, err := s.GetGroup(ctx, name)
		if err != nil {
			return nil, err
		}
		current = found
	}

	patch.Apply(current)
	current.LastUpdate = time.Now().UTC()

	// Refresh the member count while we hold a session; best effort.
	if members, err := s.gateway.UsersInGroup(ctx, name); err == nil {
		current.UserCount = len(members)
	}

	if cacheResident {
		s.groups.Put(current)
	} else {
		s.log.WithField("group", name).Warn("update to discovered-only group will not survive restart")
	}
	return current.Clone(), nil
}

// BalanceResult reports the outcome of one balance operation.
type BalanceResult struct {
	Message string  `json:"message"`
	Login   uint64  `json:"login"`
	Amount  float64 `json:"amount"`
	Comment string  `json:"comment"`
}

// BalanceOperation deposits (amount > 0) or withdraws (amount < 0) on an
// account. The account must exist and hold a nonzero rights bitmask; the
// backend submit call is never reached otherwise. The backend's verdict
// is returned verbatim and never retried.
func (s *DirectoryService) BalanceOperation(ctx context.Context, login uint64, amount float64, comment string, opType uint32) (*BalanceResult, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}

	user, err := s.gateway.User(ctx, login)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, login)
		}
		return nil, err
	}
	if !user.HasTradingRights() {
		return nil, fmt.Errorf("%w: login %d", domain.ErrNoRights, login)
	}

	ok, err := s.gateway.BalanceOperation(ctx, login, math.Abs(amount), opType, comment, amount > 0)
	if err != nil {
		s.collector.BalanceOperation(false)
		return nil, err
	}
	s.collector.BalanceOperation(ok)
	if !ok {
		return nil, fmt.Errorf("balance operation rejected for login %d", login)
	}

	s.log.WithFields(logrus.Fields{"login": login, "amount": amount}).Info("balance operation applied")
	return &BalanceResult{
		Message: "Balance operation successful",
		Login:   login,
		Amount:  amount,
		Comment: comment,
	}, nil
}

// DealsPage caps the deals returned to one request.
type DealsPage struct {
	Total    int           `json:"total"`
	Returned int           `json:"returned"`
	Deals    []domain.Deal `json:"deals"`
}

// GetUserDeals fetches historical deals, capped at maxDealsReturned.
func (s *DirectoryService) GetUserDeals(ctx context.Context, login uint64, from, to time.Time) (*DealsPage, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}

	deals, err := s.gateway.UserDeals(ctx, login, from, to)
	if err != nil {
		if isNotFound(err) {
			deals = nil
		} else {
			return nil, err
		}
	}

	total := len(deals)
	if len(deals) > maxDealsReturned {
		deals = deals[:maxDealsReturned]
	}
	if deals == nil {
		deals = []domain.Deal{}
	}
	return &DealsPage{Total: total, Returned: len(deals), Deals: deals}, nil
}

// GetUserPositions fetches the open positions of a login.
func (s *DirectoryService) GetUserPositions(ctx context.Context, login uint64) ([]domain.Position, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	positions, err := s.gateway.UserPositions(ctx, login)
	if err != nil {
		return nil, err
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	return positions, nil
}

// GetPositionSummary aggregates the open positions of a login.
func (s *DirectoryService) GetPositionSummary(ctx context.Context, login uint64) (*domain.PositionSummary, error) {
	positions, err := s.GetUserPositions(ctx, login)
	if err != nil {
		return nil, err
	}
	return domain.SummarizePositions(login, positions), nil
}

// GetGroupPositions fans out over the first maxGroupPositionFanout
// members of a group and flattens their positions. Per-member failures
// are skipped so one broken account cannot sink the whole listing.
func (s *DirectoryService) GetGroupPositions(ctx context.Context, name string) ([]domain.Position, error) {
	members, err := s.GetUsersInGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(members) > maxGroupPositionFanout {
		members = members[:maxGroupPositionFanout]
	}

	positions := []domain.Position{}
	for _, member := range members {
		memberPositions, err := s.gateway.UserPositions(ctx, member.Login)
		if err != nil {
			s.log.WithError(err).WithField("login", member.Login).Debug("skipping member positions")
			continue
		}
		positions = append(positions, memberPositions...)
	}
	return positions, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func loginRangeText(users []domain.User) string {
	if len(users) == 0 {
		return "N/A"
	}
	min, max := users[0].Login, users[0].Login
	for _, u := range users {
		if u.Login < min {
			min = u.Login
		}
		if u.Login > max {
			max = u.Login
		}
	}
	return fmt.Sprintf("%d - %d", min, max)
}

func activityStats(users []domain.User) ActivityStats {
	now := time.Now()
	var stats ActivityStats
	for _, u := range users {
		age := now.Sub(u.LastAccess)
		if age < 24*time.Hour {
			stats.ActiveToday++
		}
		if age <= 7*24*time.Hour {
			stats.ActiveWeek++
		}
		if age <= 30*24*time.Hour {
			stats.ActiveMonth++
		}
	}
	return stats
}
