package domain

import (
	"time"
)

// User represents a trading account record as returned by the manager
// backend. It is an immutable snapshot taken at query time and is never
// cached beyond the lifetime of the request that fetched it.
type User struct {
	Login        uint64    `json:"login"`
	Name         string    `json:"name"`
	Group        string    `json:"group"`
	Email        string    `json:"email"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zipcode"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	Comment      string    `json:"comment"`
	Registration time.Time `json:"registration"`
	LastAccess   time.Time `json:"last_access"`
	Leverage     uint32    `json:"leverage"`
	Rights       uint32    `json:"rights"`
}

// HasTradingRights reports whether the account may trade at all.
// A zero rights bitmask means the backend has revoked everything.
func (u *User) HasTradingRights() bool {
	return u.Rights != 0
}
