package domain

import (
	"context"
	"time"
)

// Gateway is the narrow interface to the external trading platform. The
// platform offers only point lookups; there is no enumeration primitive.
// Exactly one live session exists per process and all concurrent requests
// funnel through it.
type Gateway interface {
	// Connect establishes the manager session.
	Connect(ctx context.Context, server string, login uint64, password string) error

	// Disconnect tears the session down. Safe to call when disconnected.
	Disconnect(ctx context.Context) error

	// IsConnected reports whether a live session exists.
	IsConnected() bool

	// User fetches one account record; ErrNotFound when the login does
	// not exist.
	User(ctx context.Context, login uint64) (*User, error)

	// Account fetches the financial snapshot for a login.
	Account(ctx context.Context, login uint64) (*Account, error)

	// UsersInGroup fetches the members of one group; ErrNotFound when
	// the group is unknown to the backend.
	UsersInGroup(ctx context.Context, group string) ([]User, error)

	// UserGroup resolves the group name for a login.
	UserGroup(ctx context.Context, login uint64) (string, error)

	// UserDeals fetches historical deals in [from, to).
	UserDeals(ctx context.Context, login uint64, from, to time.Time) ([]Deal, error)

	// UserPositions fetches the open positions of a login.
	UserPositions(ctx context.Context, login uint64) ([]Position, error)

	// BalanceOperation submits a deposit (deposit=true) or withdrawal of
	// amount (always positive) and returns the backend's verdict.
	BalanceOperation(ctx context.Context, login uint64, amount float64, opType uint32, comment string, deposit bool) (bool, error)
}

// GroupRepository is the in-memory table of explicitly created or updated
// group descriptors. Implementations persist mutations durably but never
// surface persistence failures to the mutating caller.
type GroupRepository interface {
	// Get returns a snapshot of the named group, case-sensitive.
	Get(name string) (*Group, bool)

	// GetAll returns snapshots of every stored group.
	GetAll() []*Group

	// Put inserts or replaces a group by name and persists the table.
	Put(group *Group)
}
