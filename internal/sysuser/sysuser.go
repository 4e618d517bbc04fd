// Package sysuser answers the account questions the daemon asks at startup:
// whether the session belongs to a system account and whether the user
// administers the machine.
package sysuser

import (
	"errors"
	"fmt"
	"os/user"
	"slices"

	"golang.org/x/sys/unix"
)

// AdminGroups are the groups whose members may install updates.
var AdminGroups = []string{"admin", "sudo"}

// Account describes the session user.
type Account struct {
	UID      int
	Username string
	Groups   []string
}

// Lookup is the subset of os/user the account checks need.
type Lookup interface {
	Current() (*user.User, error)
	GroupIds(u *user.User) ([]string, error)
	LookupGroup(name string) (*user.Group, error)
}

type osLookup struct{}

func (osLookup) Current() (*user.User, error)                 { return user.Current() }
func (osLookup) GroupIds(u *user.User) ([]string, error)      { return u.GroupIds() }
func (osLookup) LookupGroup(name string) (*user.Group, error) { return user.LookupGroup(name) }

// Checker resolves account facts through a Lookup.
type Checker struct {
	lookup Lookup
	uid    func() int
}

// New returns a Checker backed by the system user database.
func New() *Checker {
	return &Checker{lookup: osLookup{}, uid: unix.Getuid}
}

// NewWithLookup returns a Checker backed by lookup, reporting uid as the
// real user id.
func NewWithLookup(lookup Lookup, uid int) *Checker {
	return &Checker{lookup: lookup, uid: func() int { return uid }}
}

// UID returns the real user id of the process.
func (c *Checker) UID() int {
	return c.uid()
}

// IsSystemUser reports whether the process runs below endSystemUID.
func (c *Checker) IsSystemUser(endSystemUID int) bool {
	return c.uid() < endSystemUID
}

// InAdminGroup reports whether the user belongs to one of AdminGroups. When
// none of those groups exist on the system every user counts as an admin.
func (c *Checker) InAdminGroup() (bool, error) {
	current, err := c.lookup.Current()
	if err != nil {
		return false, fmt.Errorf("lookup current user: %w", err)
	}
	gids, err := c.lookup.GroupIds(current)
	if err != nil {
		return false, fmt.Errorf("lookup groups of %s: %w", current.Username, err)
	}

	found := false
	for _, name := range AdminGroups {
		group, err := c.lookup.LookupGroup(name)
		if err != nil {
			var unknown user.UnknownGroupError
			if errors.As(err, &unknown) {
				continue
			}
			return false, fmt.Errorf("lookup group %s: %w", name, err)
		}
		found = true
		if slices.Contains(gids, group.Gid) {
			return true, nil
		}
	}
	return !found, nil
}

// Account returns the current user's id, name and group ids.
func (c *Checker) Account() (Account, error) {
	current, err := c.lookup.Current()
	if err != nil {
		return Account{}, fmt.Errorf("lookup current user: %w", err)
	}
	gids, err := c.lookup.GroupIds(current)
	if err != nil {
		return Account{}, fmt.Errorf("lookup groups of %s: %w", current.Username, err)
	}
	return Account{UID: c.uid(), Username: current.Username, Groups: gids}, nil
}
