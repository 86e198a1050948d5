package discovery

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtbridge/internal/domain"
	"mtbridge/pkg/metrics"
)

// fakeGateway serves canned users and group memberships.
type fakeGateway struct {
	users  map[uint64]domain.User
	groups map[string][]domain.User
	probes int
}

func (f *fakeGateway) Connect(ctx context.Context, server string, login uint64, password string) error {
	return nil
}
func (f *fakeGateway) Disconnect(ctx context.Context) error { return nil }
func (f *fakeGateway) IsConnected() bool                    { return true }

func (f *fakeGateway) User(ctx context.Context, login uint64) (*domain.User, error) {
	f.probes++
	if user, ok := f.users[login]; ok {
		return &user, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGateway) Account(ctx context.Context, login uint64) (*domain.Account, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeGateway) UsersInGroup(ctx context.Context, group string) ([]domain.User, error) {
	members, ok := f.groups[group]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return members, nil
}

func (f *fakeGateway) UserGroup(ctx context.Context, login uint64) (string, error) {
	if user, ok := f.users[login]; ok {
		return user.Group, nil
	}
	return "", domain.ErrNotFound
}

func (f *fakeGateway) UserDeals(ctx context.Context, login uint64, from, to time.Time) ([]domain.Deal, error) {
	return nil, nil
}

func (f *fakeGateway) UserPositions(ctx context.Context, login uint64) ([]domain.Position, error) {
	return nil, nil
}

func (f *fakeGateway) BalanceOperation(ctx context.Context, login uint64, amount float64, opType uint32, comment string, deposit bool) (bool, error) {
	return true, nil
}

type fakeRepo struct {
	groups map[string]*domain.Group
}

func (r *fakeRepo) Get(name string) (*domain.Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}

func (r *fakeRepo) GetAll() []*domain.Group {
	var all []*domain.Group
	for _, g := range r.groups {
		all = append(all, g)
	}
	return all
}

func (r *fakeRepo) Put(g *domain.Group) {
	r.groups[g.Name] = g
}

func newTestEngine(gw *fakeGateway, candidates []string) *Engine {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewEngine(gw, &fakeRepo{groups: map[string]*domain.Group{}}, candidates, log, metrics.NewCollector())
}

func user(login uint64, group string) domain.User {
	return domain.User{Login: login, Name: "trader", Group: group, Rights: 67}
}

func TestDiscoverUsersExpandsAroundSeedLogins(t *testing.T) {
	gw := &fakeGateway{
		users: map[uint64]domain.User{
			10:    user(10, "real"),
			20:    user(20, "real"),
			65:    user(65, `real\Hidden`),
			10050: user(10050, "real"),
		},
		groups: map[string][]domain.User{
			"real": {user(10, "real"), user(20, "real"), user(10050, "real")},
		},
	}
	engine := newTestEngine(gw, nil)

	result := engine.DiscoverUsers(context.Background(), []string{"real"})

	// the window around login 20 reaches 65; nothing else exists
	assert.Equal(t, 3, result.FromSeedGroups)
	assert.Equal(t, 1, result.AdditionalDiscovered)
	require.Len(t, result.Users, 4)

	logins := make(map[uint64]bool)
	for _, u := range result.Users {
		assert.False(t, logins[u.Login], "duplicate login %d", u.Login)
		logins[u.Login] = true
	}
	assert.True(t, logins[65])
}

func TestDiscoverUsersWindowClampsAtOne(t *testing.T) {
	gw := &fakeGateway{
		users: map[uint64]domain.User{
			1:  user(1, `real\Low`),
			20: user(20, "real"),
		},
		groups: map[string][]domain.User{
			"real": {user(20, "real")},
		},
	}
	engine := newTestEngine(gw, nil)

	result := engine.DiscoverUsers(context.Background(), []string{"real"})

	// window [1, 70], never below login 1
	assert.Equal(t, 1, result.AdditionalDiscovered)
	assert.Equal(t, result.Users[len(result.Users)-1].Login, uint64(1))
}

func TestDiscoverUsersExpansionCap(t *testing.T) {
	users := map[uint64]domain.User{
		200: user(200, "real"),
		400: user(400, "real"),
	}
	// fill both probe windows completely
	for l := uint64(150); l <= 250; l++ {
		users[l] = user(l, `real\Dense`)
	}
	for l := uint64(350); l <= 450; l++ {
		users[l] = user(l, `real\Dense`)
	}
	gw := &fakeGateway{
		users: users,
		groups: map[string][]domain.User{
			"real": {user(200, "real"), user(400, "real")},
		},
	}
	engine := newTestEngine(gw, nil)

	result := engine.DiscoverUsers(context.Background(), []string{"real"})

	assert.Equal(t, 2, result.FromSeedGroups)
	assert.Equal(t, expansionCap, result.AdditionalDiscovered)
}

func TestDiscoverUsersPatternProbing(t *testing.T) {
	users := make(map[uint64]domain.User)
	for l := uint64(1); l <= 40; l++ {
		users[l] = user(l, `real\Anchored`)
	}
	gw := &fakeGateway{users: users, groups: map[string][]domain.User{}}
	engine := newTestEngine(gw, nil)

	result := engine.DiscoverUsers(context.Background(), nil)

	// no seeds, so everything comes from the anchor probes, capped
	assert.Zero(t, result.FromSeedGroups)
	assert.Equal(t, patternCap, result.AdditionalDiscovered)
}

func TestUsersFromGroupsSkipsBrokenGroups(t *testing.T) {
	gw := &fakeGateway{
		users: map[uint64]domain.User{},
		groups: map[string][]domain.User{
			"real":     {user(10, "real"), user(20, "real")},
			`real\Dup`: {user(20, `real\Dup`), user(30, `real\Dup`)},
		},
	}
	engine := newTestEngine(gw, nil)

	users := engine.UsersFromGroups(context.Background(), []string{"real", "missing", `real\Dup`})

	// missing group is skipped, login 20 deduplicated
	require.Len(t, users, 3)
}

func TestDiscoverGroups(t *testing.T) {
	gw := &fakeGateway{
		users: map[uint64]domain.User{
			10: user(10, "real"),
		},
		groups: map[string][]domain.User{
			"real":     {user(10, "real")},
			`demo\VIP`: {user(90000, `demo\VIP`)},
		},
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	repo := &fakeRepo{groups: map[string]*domain.Group{
		`real\Created`: {Name: `real\Created`, Leverage: 300},
	}}
	engine := NewEngine(gw, repo, []string{"real", `demo\VIP`, "missing"}, log, metrics.NewCollector())

	groups := engine.DiscoverGroups(context.Background(), []string{"real"})

	names := make(map[string]*domain.Group)
	for _, g := range groups {
		names[g.Name] = g
	}
	require.Contains(t, names, "real")
	require.Contains(t, names, `demo\VIP`)
	require.Contains(t, names, `real\Created`)
	assert.NotContains(t, names, "missing")

	// membership counts flow into the derived descriptors
	assert.Equal(t, 1, names["real"].UserCount)
	assert.True(t, names[`demo\VIP`].IsDemo)
	// cache-resident groups appear even with zero members
	assert.Equal(t, uint32(300), names[`real\Created`].Leverage)
}
