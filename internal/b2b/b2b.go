// Package b2b covers enterprise connections: teams, connection
// orders and maintenance tickets.
package b2b

import (
	"context"
	"log/slog"

	"github.com/supervisorapp/supervisor-client/internal/notify"
	"github.com/supervisorapp/supervisor-client/internal/resource"
	"github.com/supervisorapp/supervisor-client/internal/transport"
)

const (
	TeamsPath        = "/b2b/teams/"
	ConnectionsPath  = "/b2b/connections/"
	MaintenancesPath = "/b2b/maintenances/"
)

type Team struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Nom      string `json:"nom"`
	Zone     string `json:"zone,omitempty"`
	IsActive bool   `json:"is_active"`
}

func (t Team) EntityID() int64 { return t.ID }

type Connection struct {
	ID            int64  `json:"id"`
	Reference     string `json:"reference"`
	ClientNom     string `json:"client_nom"`
	Adresse       string `json:"adresse,omitempty"`
	Statut        string `json:"statut"`
	DatePlanifiee string `json:"date_planifiee,omitempty"`
	Team          int64  `json:"team,omitempty"`
}

func (c Connection) EntityID() int64 { return c.ID }

type Maintenance struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
	ClientNom string `json:"client_nom"`
	Motif     string `json:"motif,omitempty"`
	Statut    string `json:"statut"`
	Team      int64  `json:"team,omitempty"`
}

func (m Maintenance) EntityID() int64 { return m.ID }

type TeamStore struct {
	*resource.Store[Team]
}

func NewTeamStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *TeamStore {
	return &TeamStore{resource.NewStore(
		resource.NewEndpoints[Team](client, TeamsPath), "team", notifier, logger)}
}

type ConnectionStore struct {
	*resource.Store[Connection]
}

func NewConnectionStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *ConnectionStore {
	return &ConnectionStore{resource.NewStore(
		resource.NewEndpoints[Connection](client, ConnectionsPath), "connection", notifier, logger)}
}

// Schedule books the connection for a date (YYYY-MM-DD).
func (s *ConnectionStore) Schedule(ctx context.Context, id int64, date string) error {
	_, err := s.Endpoints().MemberAction(ctx, id, "schedule", map[string]string{"date": date})
	return err
}

// Complete records the field result and closes the connection.
func (s *ConnectionStore) Complete(ctx context.Context, id int64, data any) error {
	_, err := s.Endpoints().MemberAction(ctx, id, "complete", data)
	return err
}

type MaintenanceStore struct {
	*resource.Store[Maintenance]
}

func NewMaintenanceStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *MaintenanceStore {
	return &MaintenanceStore{resource.NewStore(
		resource.NewEndpoints[Maintenance](client, MaintenancesPath), "maintenance", notifier, logger)}
}

// Assign hands the ticket to a team.
func (s *MaintenanceStore) Assign(ctx context.Context, id, teamID int64) error {
	_, err := s.Endpoints().MemberAction(ctx, id, "assign", map[string]int64{"team_id": teamID})
	return err
}
