package sysuser

import (
	"errors"
	"os/user"
	"testing"
)

type fakeLookup struct {
	groups map[string]string
	member []string
	err    error
}

func (f fakeLookup) Current() (*user.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &user.User{Uid: "1000", Username: "alice"}, nil
}

func (f fakeLookup) GroupIds(*user.User) ([]string, error) {
	return f.member, nil
}

func (f fakeLookup) LookupGroup(name string) (*user.Group, error) {
	gid, ok := f.groups[name]
	if !ok {
		return nil, user.UnknownGroupError(name)
	}
	return &user.Group{Name: name, Gid: gid}, nil
}

func TestInAdminGroup(t *testing.T) {
	tests := []struct {
		name   string
		lookup fakeLookup
		want   bool
	}{
		{name: "sudo member", lookup: fakeLookup{groups: map[string]string{"sudo": "27"}, member: []string{"1000", "27"}}, want: true},
		{name: "admin member", lookup: fakeLookup{groups: map[string]string{"admin": "110", "sudo": "27"}, member: []string{"110"}}, want: true},
		{name: "not a member", lookup: fakeLookup{groups: map[string]string{"sudo": "27"}, member: []string{"1000"}}, want: false},
		{name: "no admin groups exist", lookup: fakeLookup{groups: map[string]string{}, member: []string{"1000"}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewWithLookup(tt.lookup, 1000).InAdminGroup()
			if err != nil {
				t.Fatalf("InAdminGroup: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestInAdminGroupLookupError(t *testing.T) {
	if _, err := NewWithLookup(fakeLookup{err: errors.New("nss down")}, 1000).InAdminGroup(); err == nil {
		t.Fatal("expected error when the current user cannot be resolved")
	}
}

func TestIsSystemUser(t *testing.T) {
	c := NewWithLookup(fakeLookup{}, 120)
	if !c.IsSystemUser(500) {
		t.Fatal("uid 120 should be a system user below 500")
	}
	if c.IsSystemUser(100) {
		t.Fatal("uid 120 should be a regular user above 100")
	}
	account, err := NewWithLookup(fakeLookup{member: []string{"27"}}, 1000).Account()
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if account.Username != "alice" || account.UID != 1000 || len(account.Groups) != 1 {
		t.Fatalf("unexpected account %+v", account)
	}
}
