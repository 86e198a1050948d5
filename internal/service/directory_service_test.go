package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtbridge/configs"
	"mtbridge/internal/discovery"
	"mtbridge/internal/domain"
	"mtbridge/pkg/metrics"
)

// fakeGateway is an in-memory stand-in for the manager bridge.
type fakeGateway struct {
	connected bool
	users     map[uint64]domain.User
	groups    map[string][]domain.User
	deals     map[uint64][]domain.Deal
	positions map[uint64][]domain.Position

	balanceCalled bool
	balanceOK     bool
	balanceErr    error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		connected: true,
		users:     map[uint64]domain.User{},
		groups:    map[string][]domain.User{},
		deals:     map[uint64][]domain.Deal{},
		positions: map[uint64][]domain.Position{},
		balanceOK: true,
	}
}

func (f *fakeGateway) Connect(ctx context.Context, server string, login uint64, password string) error {
	f.connected = true
	return nil
}

func (f *fakeGateway) Disconnect(ctx context.Context) error {
	f.connected = false
	return nil
}

func (f *fakeGateway) IsConnected() bool { return f.connected }

func (f *fakeGateway) User(ctx context.Context, login uint64) (*domain.User, error) {
	if user, ok := f.users[login]; ok {
		return &user, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGateway) Account(ctx context.Context, login uint64) (*domain.Account, error) {
	if _, ok := f.users[login]; ok {
		return &domain.Account{Login: login, Currency: "USD"}, nil
	}
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
	return f.deals[login], nil
}

func (f *fakeGateway) UserPositions(ctx context.Context, login uint64) ([]domain.Position, error) {
	return f.positions[login], nil
}

func (f *fakeGateway) BalanceOperation(ctx context.Context, login uint64, amount float64, opType uint32, comment string, deposit bool) (bool, error) {
	f.balanceCalled = true
	return f.balanceOK, f.balanceErr
}

type fakeGroups struct {
	table map[string]*domain.Group
}

func (r *fakeGroups) Get(name string) (*domain.Group, bool) {
	g, ok := r.table[name]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

func (r *fakeGroups) GetAll() []*domain.Group {
	var all []*domain.Group
	for _, g := range r.table {
		all = append(all, g.Clone())
	}
	return all
}

func (r *fakeGroups) Put(g *domain.Group) {
	r.table[g.Name] = g.Clone()
}

func newTestService(gw *fakeGateway) (*DirectoryService, *fakeGroups) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	repo := &fakeGroups{table: map[string]*domain.Group{}}
	collector := metrics.NewCollector()
	engine := discovery.NewEngine(gw, repo, []string{"real"}, log, collector)
	catalog := configs.DiscoveryConfig{
		RealGroups:    []string{"real"},
		DemoGroups:    []string{`demo\CFD`},
		VIPGroups:     []string{`real\VIP A`},
		ManagerGroups: []string{`managers\dealers`},
	}
	return NewDirectoryService(gw, engine, repo, catalog, collector, log), repo
}

func TestOperationsRequireSession(t *testing.T) {
	gw := newFakeGateway()
	gw.connected = false
	svc, _ := newTestService(gw)
	ctx := context.Background()

	_, err := svc.GetUser(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	_, err = svc.GetAllUsers(ctx)
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	_, err = svc.CreateGroup(ctx, &domain.Group{Name: `real\New`})
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	_, err = svc.BalanceOperation(ctx, 1, 100, "", 2)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestConnectValidatesInput(t *testing.T) {
	svc, _ := newTestService(newFakeGateway())
	ctx := context.Background()

	err := svc.Connect(ctx, "", 1, "secret")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = svc.Connect(ctx, "mt5.example.com:443", 1, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.NoError(t, svc.Connect(ctx, "mt5.example.com:443", 1, "secret"))
}

func TestGetUsersInGroup(t *testing.T) {
	gw := newFakeGateway()
	gw.groups["real"] = []domain.User{{Login: 10, Group: "real"}}
	svc, _ := newTestService(gw)
	ctx := context.Background()

	users, err := svc.GetUsersInGroup(ctx, "real")
	require.NoError(t, err)
	assert.Len(t, users, 1)

	// unknown group is an empty list, not an error
	users, err = svc.GetUsersInGroup(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NotNil(t, users)

	_, err = svc.GetUsersInGroup(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetAllUsersReportsProvenance(t *testing.T) {
	gw := newFakeGateway()
	gw.users[10] = domain.User{Login: 10, Group: "real"}
	gw.users[15] = domain.User{Login: 15, Group: `real\Hidden`}
	gw.groups["real"] = []domain.User{{Login: 10, Group: "real"}}
	svc, _ := newTestService(gw)

	result, err := svc.GetAllUsers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.DiscoveryStats.TotalUsers)
	assert.Equal(t, 1, result.DiscoveryStats.FromSeedGroups)
	assert.Equal(t, 1, result.DiscoveryStats.AdditionalDiscovered)
	assert.Equal(t, "10 - 15", result.DiscoveryStats.LoginRange)
	assert.Equal(t, 2, result.DiscoveryStats.GroupsFound)
}

func TestCreateGroupAppliesDefaults(t *testing.T) {
	svc, repo := newTestService(newFakeGateway())

	created, err := svc.CreateGroup(context.Background(), &domain.Group{Name: `real\Fresh`})
	require.NoError(t, err)

	assert.Equal(t, uint32(100), created.Leverage)
	assert.Equal(t, 7.0, created.Commission)
	assert.Equal(t, 80.0, created.MarginCall)
	assert.Equal(t, 50.0, created.MarginStopOut)
	assert.Equal(t, uint32(67), created.Rights)
	assert.False(t, created.IsDemo)
	assert.Zero(t, created.UserCount)
	assert.False(t, created.LastUpdate.IsZero())

	_, persisted := repo.Get(`real\Fresh`)
	assert.True(t, persisted)
}

func TestCreateGroupRejectsBadName(t *testing.T) {
	svc, _ := newTestService(newFakeGateway())

	_, err := svc.CreateGroup(context.Background(), &domain.Group{Name: "flatname"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateGroupRejectsDuplicates(t *testing.T) {
	gw := newFakeGateway()
	svc, repo := newTestService(gw)
	ctx := context.Background()

	repo.Put(&domain.Group{Name: `real\Taken`})
	_, err := svc.CreateGroup(ctx, &domain.Group{Name: `real\Taken`})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// discovered groups collide case-insensitively
	gw.users[10] = domain.User{Login: 10, Group: "real"}
	gw.groups["real"] = []domain.User{{Login: 10, Group: "real"}}
	_, err = svc.CreateGroup(ctx, &domain.Group{Name: `REAL\x`})
	assert.NoError(t, err)

	_, err = svc.CreateGroup(ctx, &domain.Group{Name: `real\X`})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestUpdateGroupMergesPatch(t *testing.T) {
	svc, repo := newTestService(newFakeGateway())
	ctx := context.Background()

	repo.Put(&domain.Group{Name: `real\Tunable`, Leverage: 100, Commission: 7})

	leverage := uint32(400)
	updated, err := svc.UpdateGroup(ctx, `real\Tunable`, &domain.GroupPatch{Leverage: &leverage})
	require.NoError(t, err)

	assert.Equal(t, uint32(400), updated.Leverage)
	assert.Equal(t, 7.0, updated.Commission)
	assert.False(t, updated.LastUpdate.IsZero())

	persisted, ok := repo.Get(`real\Tunable`)
	require.True(t, ok)
	assert.Equal(t, uint32(400), persisted.Leverage)
}

func TestUpdateGroupUnknownName(t *testing.T) {
	svc, _ := newTestService(newFakeGateway())

	leverage := uint32(400)
	_, err := svc.UpdateGroup(context.Background(), `real\Ghost`, &domain.GroupPatch{Leverage: &leverage})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBalanceOperationGuards(t *testing.T) {
	gw := newFakeGateway()
	svc, _ := newTestService(gw)
	ctx := context.Background()

	_, err := svc.BalanceOperation(ctx, 999, 100, "deposit", 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, gw.balanceCalled)

	gw.users[20] = domain.User{Login: 20, Rights: 0}
	_, err = svc.BalanceOperation(ctx, 20, 100, "deposit", 2)
	assert.ErrorIs(t, err, domain.ErrNoRights)
	assert.False(t, gw.balanceCalled)
}

func TestBalanceOperationOutcomes(t *testing.T) {
	gw := newFakeGateway()
	gw.users[20] = domain.User{Login: 20, Rights: 67}
	svc, _ := newTestService(gw)
	ctx := context.Background()

	result, err := svc.BalanceOperation(ctx, 20, -50, "withdrawal", 2)
	require.NoError(t, err)
	assert.True(t, gw.balanceCalled)
	assert.Equal(t, -50.0, result.Amount)

	// the backend's rejection is surfaced, not retried
	gw.balanceOK = false
	_, err = svc.BalanceOperation(ctx, 20, 100, "deposit", 2)
	assert.Error(t, err)

	gw.balanceOK = true
	gw.balanceErr = errors.New("session dropped")
	_, err = svc.BalanceOperation(ctx, 20, 100, "deposit", 2)
	assert.Error(t, err)
}

func TestGetUserDealsCapped(t *testing.T) {
	gw := newFakeGateway()
	deals := make([]domain.Deal, 150)
	for i := range deals {
		deals[i] = domain.Deal{DealID: uint64(i + 1), Login: 20}
	}
	gw.deals[20] = deals
	svc, _ := newTestService(gw)

	page, err := svc.GetUserDeals(context.Background(), 20, time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 150, page.Total)
	assert.Equal(t, 100, page.Returned)
	assert.Len(t, page.Deals, 100)
	assert.Equal(t, uint64(1), page.Deals[0].DealID)
}

func TestGetGroupPositionsFanoutCap(t *testing.T) {
	gw := newFakeGateway()
	members := make([]domain.User, 60)
	for i := range members {
		login := uint64(i + 1)
		members[i] = domain.User{Login: login, Group: `real\Busy`}
		gw.positions[login] = []domain.Position{{PositionID: login, Login: login}}
	}
	gw.groups[`real\Busy`] = members
	svc, _ := newTestService(gw)

	positions, err := svc.GetGroupPositions(context.Background(), `real\Busy`)
	require.NoError(t, err)

	// only the first 50 members are queried
	assert.Len(t, positions, 50)
}

func TestGetPositionSummary(t *testing.T) {
	gw := newFakeGateway()
	gw.positions[20] = []domain.Position{
		{Login: 20, Symbol: "EURUSD", Action: "Buy", Volume: 1, Profit: 5},
		{Login: 20, Symbol: "GBPUSD", Action: "Sell", Volume: 2, Profit: -1},
	}
	svc, _ := newTestService(gw)

	summary, err := svc.GetPositionSummary(context.Background(), 20)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalPositions)
	assert.Equal(t, 1, summary.BuyPositions)
	assert.Equal(t, 1, summary.SellPositions)
	assert.InDelta(t, 4.0, summary.TotalProfit, 1e-9)
}

func TestGetUsersBySet(t *testing.T) {
	gw := newFakeGateway()
	gw.groups[`demo\CFD`] = []domain.User{{Login: 90001, Group: `demo\CFD`}}
	svc, _ := newTestService(gw)

	users, err := svc.GetUsersBySet(context.Background(), SetDemo)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	users, err = svc.GetUsersBySet(context.Background(), SetManagers)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NotNil(t, users)
}
