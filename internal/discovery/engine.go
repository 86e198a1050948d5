package discovery

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"mtbridge/internal/domain"
	"mtbridge/pkg/metrics"
)

// The backend has no "list everything" primitive, so discovery probes
// point lookups around known-valid logins and round-number anchors. The
// bounds below cap the call volume of a single pass.
const (
	expansionWindow    = 50  // probe [login-50, login+50] around each seed login
	expansionSeedLimit = 5   // only the first 5 seed logins, sorted ascending
	expansionCap       = 100 // stop the expansion phase after 100 new accounts
	patternProbeCount  = 20  // probes per round-number anchor
	patternCap         = 20  // stop the pattern phase after 20 new accounts
)

// patternAnchors are the round-number login ranges brokers habitually
// allocate from.
var patternAnchors = []uint64{1, 100, 1_000, 10_000, 100_000}

// Result is the composite, deduplicated output of one discovery pass.
// The user list is best-effort by construction: the backend offers no
// authoritative enumeration, so completeness is never guaranteed.
type Result struct {
	Users                []domain.User `json:"users"`
	FromSeedGroups       int           `json:"from_seed_groups"`
	AdditionalDiscovered int           `json:"additional_discovered"`
}

// Engine reconstructs the full account and group listing from point
// queries only. Passes run sequentially on the calling goroutine; a
// discovery-heavy request may take seconds but needs no coordination.
type Engine struct {
	gateway    domain.Gateway
	groups     domain.GroupRepository
	candidates []string
	log        *logrus.Logger
	collector  *metrics.Collector
}

// NewEngine creates a discovery engine. candidates is the deployment's
// catalogue of group names to probe when listing groups.
func NewEngine(gateway domain.Gateway, groups domain.GroupRepository, candidates []string, log *logrus.Logger, collector *metrics.Collector) *Engine {
	return &Engine{
		gateway:    gateway,
		groups:     groups,
		candidates: candidates,
		log:        log,
		collector:  collector,
	}
}

// UsersFromGroups accumulates the members of the given groups into a
// login-deduplicated list. A group that errors (absent, access denied)
// is skipped; one bad group must not abort the pass.
func (e *Engine) UsersFromGroups(ctx context.Context, groupNames []string) []domain.User {
	seen := make(map[uint64]bool)
	return e.collectGroupUsers(ctx, groupNames, seen)
}

func (e *Engine) collectGroupUsers(ctx context.Context, groupNames []string, seen map[uint64]bool) []domain.User {
	var users []domain.User
	for _, name := range groupNames {
		if name == "" {
			continue
		}
		members, err := e.gateway.UsersInGroup(ctx, name)
		if err != nil {
			e.log.WithError(err).WithField("group", name).Debug("seed group skipped")
			continue
		}
		for _, u := range members {
			if !seen[u.Login] {
				seen[u.Login] = true
				users = append(users, u)
			}
		}
	}
	return users
}

// DiscoverUsers runs the full three-phase pass: seed groups, login-window
// expansion, round-number pattern probing.
func (e *Engine) DiscoverUsers(ctx context.Context, seedGroups []string) *Result {
	seen := make(map[uint64]bool)

	seedUsers := e.collectGroupUsers(ctx, seedGroups, seen)

	expanded := e.expand(ctx, seedUsers, seen)
	expanded = append(expanded, e.probePatterns(ctx, seen)...)

	all := make([]domain.User, 0, len(seedUsers)+len(expanded))
	all = append(all, seedUsers...)
	all = append(all, expanded...)

	e.log.WithFields(logrus.Fields{
		"from_seed":  len(seedUsers),
		"additional": len(expanded),
	}).Info("user discovery pass complete")

	return &Result{
		Users:                all,
		FromSeedGroups:       len(seedUsers),
		AdditionalDiscovered: len(expanded),
	}
}

// expand probes the login window around the first expansionSeedLimit
// seed logins sorted ascending. Probe failures mean "not found" and are
// never retried or propagated.
func (e *Engine) expand(ctx context.Context, seedUsers []domain.User, seen map[uint64]bool) []domain.User {
	if len(seedUsers) == 0 {
		return nil
	}

	logins := make([]uint64, 0, len(seedUsers))
	for _, u := range seedUsers {
		logins = append(logins, u.Login)
	}
	sort.Slice(logins, func(i, j int) bool { return logins[i] < logins[j] })
	if len(logins) > expansionSeedLimit {
		logins = logins[:expansionSeedLimit]
	}

	var found []domain.User
	for _, login := range logins {
		start := uint64(1)
		if login > expansionWindow {
			start = login - expansionWindow
		}
		for candidate := start; candidate <= login+expansionWindow; candidate++ {
			if seen[candidate] {
				continue
			}
			user := e.probe(ctx, candidate)
			if user == nil {
				continue
			}
			seen[candidate] = true
			found = append(found, *user)
			if len(found) >= expansionCap {
				e.log.WithField("limit", expansionCap).Debug("expansion cap reached")
				return found
			}
		}
	}
	return found
}

// probePatterns checks the first patternProbeCount logins at each
// round-number anchor.
func (e *Engine) probePatterns(ctx context.Context, seen map[uint64]bool) []domain.User {
	var found []domain.User
	for _, anchor := range patternAnchors {
		for candidate := anchor; candidate < anchor+patternProbeCount; candidate++ {
			if seen[candidate] {
				continue
			}
			user := e.probe(ctx, candidate)
			if user == nil {
				continue
			}
			seen[candidate] = true
			found = append(found, *user)
			if len(found) >= patternCap {
				return found
			}
		}
	}
	return found
}

func (e *Engine) probe(ctx context.Context, login uint64) *domain.User {
	e.collector.DiscoveryProbe()
	user, err := e.gateway.User(ctx, login)
	if err != nil || user == nil {
		return nil
	}
	e.collector.DiscoveryHit()
	return user
}

// DiscoverGroups reconstructs the group catalogue: candidate names with
// members are promoted to derived descriptors, further groups come from
// the group field observed on discovered users, and every cache-resident
// group appears even with zero current members.
func (e *Engine) DiscoverGroups(ctx context.Context, seedGroups []string) []*domain.Group {
	found := make(map[string]*domain.Group) // keyed by lowercased name

	for _, name := range e.candidates {
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, exists := found[key]; exists {
			continue
		}
		members, err := e.gateway.UsersInGroup(ctx, name)
		if err != nil || len(members) == 0 {
			continue
		}
		found[key] = domain.DeriveGroup(name, members)
	}

	// Users carry their group name, so a full user pass surfaces groups
	// the candidate catalogue missed.
	result := e.DiscoverUsers(ctx, seedGroups)
	byGroup := make(map[string][]domain.User)
	for _, u := range result.Users {
		if u.Group != "" {
			byGroup[u.Group] = append(byGroup[u.Group], u)
		}
	}
	for name, members := range byGroup {
		key := strings.ToLower(name)
		if _, exists := found[key]; !exists {
			found[key] = domain.DeriveGroup(name, members)
		}
	}

	// Explicitly created groups always appear, members or not.
	for _, cached := range e.groups.GetAll() {
		key := strings.ToLower(cached.Name)
		if _, exists := found[key]; !exists {
			found[key] = cached
		}
	}

	groups := make([]*domain.Group, 0, len(found))
	for _, g := range found {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}
