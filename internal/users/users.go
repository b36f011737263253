// Package users is the administration surface over user accounts:
// CRUD, activation toggling, role listing and permission assignment.
package users

import (
	"context"
	"log/slog"

	"github.com/supervisorapp/supervisor-client/internal/core/datamodel/user"
	"github.com/supervisorapp/supervisor-client/internal/notify"
	"github.com/supervisorapp/supervisor-client/internal/resource"
	"github.com/supervisorapp/supervisor-client/internal/transport"
)

const (
	AccountsPath    = "/users/accounts/"
	RolesPath       = "/users/roles/"
	PermissionsPath = "/users/permissions/"
)

type Store struct {
	*resource.Store[user.User]
}

func NewStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *Store {
	return &Store{resource.NewStore(
		resource.NewEndpoints[user.User](client, AccountsPath), "user", notifier, logger)}
}

func (s *Store) Active(ctx context.Context, params transport.Params) ([]user.User, error) {
	return s.ListFrom(ctx, "active", params)
}

// Activate flips the account on and patches the local copy so the
// list reflects the new state without a refetch.
func (s *Store) Activate(ctx context.Context, id int64) (user.User, error) {
	return s.setActive(ctx, id, "activate")
}

func (s *Store) Deactivate(ctx context.Context, id int64) (user.User, error) {
	return s.setActive(ctx, id, "deactivate")
}

func (s *Store) setActive(ctx context.Context, id int64, action string) (user.User, error) {
	resp, err := s.Endpoints().MemberAction(ctx, id, action, struct{}{})
	if err != nil {
		return user.User{}, err
	}
	var account user.User
	if err := resp.Decode(&account); err != nil {
		return user.User{}, err
	}
	s.Absorb(account)
	return account, nil
}

// AssignPermissions replaces the account's custom permission set.
func (s *Store) AssignPermissions(ctx context.Context, id int64, codes []string) (user.User, error) {
	resp, err := s.Endpoints().MemberAction(ctx, id, "permissions", map[string]any{
		"permissions": codes,
	})
	if err != nil {
		return user.User{}, err
	}
	var account user.User
	if err := resp.Decode(&account); err != nil {
		return user.User{}, err
	}
	s.Absorb(account)
	return account, nil
}

func (s *Store) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	_, err := s.Endpoints().MemberAction(ctx, id, "reset-password", map[string]any{
		"new_password": newPassword,
	})
	return err
}

// Directory reads the reference lists the account forms depend on.
type Directory struct {
	client *transport.Client
}

func NewDirectory(client *transport.Client) *Directory {
	return &Directory{client: client}
}

func (d *Directory) Roles(ctx context.Context) ([]string, error) {
	resp, err := d.client.Get(ctx, RolesPath, nil)
	if err != nil {
		return nil, err
	}
	var roles []string
	return roles, resp.Decode(&roles)
}

func (d *Directory) Permissions(ctx context.Context) ([]user.Permission, error) {
	resp, err := d.client.Get(ctx, PermissionsPath, nil)
	if err != nil {
		return nil, err
	}
	var permissions []user.Permission
	return permissions, resp.Decode(&permissions)
}
