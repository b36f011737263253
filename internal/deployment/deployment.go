// Package deployment covers the site-deployment API family:
// operators, projects, technicians, subcontractors and daily field
// reports.
package deployment

import (
	"context"
	"log/slog"
	"time"

	"github.com/supervisorapp/supervisor-client/internal/notify"
	"github.com/supervisorapp/supervisor-client/internal/resource"
	"github.com/supervisorapp/supervisor-client/internal/transport"
)

const (
	OperatorsPath      = "/deployment/operators/"
	ProjectsPath       = "/deployment/projects/"
	TechniciansPath    = "/deployment/technicians/"
	SubcontractorsPath = "/deployment/subcontractors/"
	DailyReportsPath   = "/deployment/daily-reports/"
)

// Operator is a telecom operator the deployments are built for.
type Operator struct {
	ID               int64     `json:"id"`
	Code             string    `json:"code"`
	Nom              string    `json:"nom"`
	Couleur          string    `json:"couleur,omitempty"`
	ContactNom       string    `json:"contact_nom,omitempty"`
	ContactEmail     string    `json:"contact_email,omitempty"`
	ContactTelephone string    `json:"contact_telephone,omitempty"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

func (o Operator) EntityID() int64 { return o.ID }

type Project struct {
	ID               int64  `json:"id"`
	Code             string `json:"code"`
	Nom              string `json:"nom"`
	Operator         int64  `json:"operator"`
	TypeProjet       string `json:"type_projet,omitempty"`
	ZoneGeographique string `json:"zone_geographique,omitempty"`
	DateDebut        string `json:"date_debut,omitempty"`
	DateFinPrevue    string `json:"date_fin_prevue,omitempty"`
	DateFinReelle    string `json:"date_fin_reelle,omitempty"`
	Statut           string `json:"statut"`
	Budget           string `json:"budget,omitempty"`
	Description      string `json:"description,omitempty"`
}

func (p Project) EntityID() int64 { return p.ID }

type Technician struct {
	ID               int64  `json:"id"`
	Matricule        string `json:"matricule"`
	Nom              string `json:"nom"`
	Prenoms          string `json:"prenoms"`
	Telephone        string `json:"telephone,omitempty"`
	Email            string `json:"email,omitempty"`
	Specialite       int64  `json:"specialite,omitempty"`
	NiveauCompetence string `json:"niveau_competence,omitempty"`
	EstChefChantier  bool   `json:"est_chef_chantier"`
	IsActive         bool   `json:"is_active"`
}

func (t Technician) EntityID() int64 { return t.ID }

type Subcontractor struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Nom         string `json:"nom"`
	Adresse     string `json:"adresse,omitempty"`
	Telephone   string `json:"telephone,omitempty"`
	Email       string `json:"email,omitempty"`
	Specialites string `json:"specialites,omitempty"`
	IsActive    bool   `json:"is_active"`
}

func (s Subcontractor) EntityID() int64 { return s.ID }

type DailyReport struct {
	ID          int64  `json:"id"`
	Project     int64  `json:"project"`
	Date        string `json:"date"`
	Resume      string `json:"resume,omitempty"`
	Meteo       string `json:"meteo,omitempty"`
	Blocages    string `json:"blocages,omitempty"`
	EffectifSum int    `json:"effectif_total,omitempty"`
}

func (r DailyReport) EntityID() int64 { return r.ID }

// ----------------- STORES -----------------

type OperatorStore struct {
	*resource.Store[Operator]
}

func NewOperatorStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *OperatorStore {
	return &OperatorStore{resource.NewStore(
		resource.NewEndpoints[Operator](client, OperatorsPath), "operator", notifier, logger)}
}

// Active loads only the operators flagged active.
func (s *OperatorStore) Active(ctx context.Context) ([]Operator, error) {
	return s.ListFrom(ctx, "active", nil)
}

type ProjectStore struct {
	*resource.Store[Project]
}

func NewProjectStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *ProjectStore {
	return &ProjectStore{resource.NewStore(
		resource.NewEndpoints[Project](client, ProjectsPath), "project", notifier, logger)}
}

func (s *ProjectStore) Active(ctx context.Context) ([]Project, error) {
	return s.ListFrom(ctx, "active", nil)
}

func (s *ProjectStore) Delayed(ctx context.Context) ([]Project, error) {
	return s.ListFrom(ctx, "delayed", nil)
}

// Statistics fetches the per-project KPI summary; its shape varies by
// project type, so callers get the raw document.
func (s *ProjectStore) Statistics(ctx context.Context, id int64) (map[string]any, error) {
	resp, err := s.Endpoints().MemberAction(ctx, id, "statistics", nil)
	if err != nil {
		return nil, err
	}
	stats := map[string]any{}
	return stats, resp.Decode(&stats)
}

type TechnicianStore struct {
	*resource.Store[Technician]
}

func NewTechnicianStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *TechnicianStore {
	return &TechnicianStore{resource.NewStore(
		resource.NewEndpoints[Technician](client, TechniciansPath), "technician", notifier, logger)}
}

func (s *TechnicianStore) Active(ctx context.Context) ([]Technician, error) {
	return s.ListFrom(ctx, "active", nil)
}

// BySpecialty groups the technicians by trade on the server side.
func (s *TechnicianStore) BySpecialty(ctx context.Context) (map[string][]Technician, error) {
	resp, err := s.Endpoints().CollectionAction(ctx, "by_specialite", nil, nil)
	if err != nil {
		return nil, err
	}
	grouped := map[string][]Technician{}
	return grouped, resp.Decode(&grouped)
}

type SubcontractorStore struct {
	*resource.Store[Subcontractor]
}

func NewSubcontractorStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *SubcontractorStore {
	return &SubcontractorStore{resource.NewStore(
		resource.NewEndpoints[Subcontractor](client, SubcontractorsPath), "subcontractor", notifier, logger)}
}

func (s *SubcontractorStore) Active(ctx context.Context) ([]Subcontractor, error) {
	return s.ListFrom(ctx, "active", nil)
}

type DailyReportStore struct {
	*resource.Store[DailyReport]
}

func NewDailyReportStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *DailyReportStore {
	return &DailyReportStore{resource.NewStore(
		resource.NewEndpoints[DailyReport](client, DailyReportsPath), "daily report", notifier, logger)}
}

func (s *DailyReportStore) ByProject(ctx context.Context, projectID int64) ([]DailyReport, error) {
	return s.ListFrom(ctx, "by_project", transport.Params{"project_id": projectID})
}

func (s *DailyReportStore) ByDate(ctx context.Context, date string) ([]DailyReport, error) {
	return s.ListFrom(ctx, "by_date", transport.Params{"date": date})
}

// UploadPhotos attaches field photos to a report.
func (s *DailyReportStore) UploadPhotos(ctx context.Context, id int64, files []transport.File) error {
	_, err := s.Endpoints().Upload(ctx, id, "photos", files, nil)
	return err
}
