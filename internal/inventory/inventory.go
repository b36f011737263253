// Package inventory covers stock: materials, stock movements and the
// warehouse reports.
package inventory

import (
	"context"
	"log/slog"

	"github.com/supervisorapp/supervisor-client/internal/notify"
	"github.com/supervisorapp/supervisor-client/internal/resource"
	"github.com/supervisorapp/supervisor-client/internal/transport"
)

const (
	MaterialsPath = "/inventory/materials/"
	MovementsPath = "/inventory/movements/"
	ReportsPath   = "/inventory/reports/"
)

type Material struct {
	ID            int64  `json:"id"`
	Code          string `json:"code"`
	Nom           string `json:"nom"`
	Unite         string `json:"unite,omitempty"`
	QuantiteStock int    `json:"quantite_stock"`
	SeuilAlerte   int    `json:"seuil_alerte,omitempty"`
	IsActive      bool   `json:"is_active"`
}

func (m Material) EntityID() int64 { return m.ID }

// MovementType values mirror the backend's stock movement kinds.
const (
	MovementAcquisition = "acquisition"
	MovementAllocation  = "allocation"
	MovementReturn      = "return"
	MovementAdjustment  = "adjustment"
)

type StockMovement struct {
	ID       int64  `json:"id"`
	Material int64  `json:"material"`
	Type     string `json:"type"`
	Quantite int    `json:"quantite"`
	Motif    string `json:"motif,omitempty"`
	Date     string `json:"date,omitempty"`
}

func (m StockMovement) EntityID() int64 { return m.ID }

type MaterialStore struct {
	*resource.Store[Material]
}

func NewMaterialStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *MaterialStore {
	return &MaterialStore{resource.NewStore(
		resource.NewEndpoints[Material](client, MaterialsPath), "material", notifier, logger)}
}

// Stats fetches usage statistics for one material.
func (s *MaterialStore) Stats(ctx context.Context, id int64) (map[string]any, error) {
	resp, err := s.Endpoints().MemberAction(ctx, id, "stats", nil)
	if err != nil {
		return nil, err
	}
	stats := map[string]any{}
	return stats, resp.Decode(&stats)
}

type MovementStore struct {
	*resource.Store[StockMovement]
}

func NewMovementStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *MovementStore {
	return &MovementStore{resource.NewStore(
		resource.NewEndpoints[StockMovement](client, MovementsPath), "stock movement", notifier, logger)}
}

// History lists the movements of one material.
func (s *MovementStore) History(ctx context.Context, materialID int64) ([]StockMovement, error) {
	return s.List(ctx, transport.Params{"material_id": materialID})
}

// Reports exposes the warehouse reporting endpoints; they answer with
// aggregate documents, not CRUD collections.
type Reports struct {
	client *transport.Client
}

func NewReports(client *transport.Client) *Reports {
	return &Reports{client: client}
}

func (r *Reports) Current(ctx context.Context) (map[string]any, error) {
	resp, err := r.client.Get(ctx, ReportsPath+"current/", nil)
	if err != nil {
		return nil, err
	}
	report := map[string]any{}
	return report, resp.Decode(&report)
}

func (r *Reports) LowStock(ctx context.Context) ([]Material, error) {
	resp, err := r.client.Get(ctx, ReportsPath+"low-stock/", nil)
	if err != nil {
		return nil, err
	}
	var materials []Material
	return materials, resp.Decode(&materials)
}

// ExportExcel downloads the stock report as a spreadsheet.
func (r *Reports) ExportExcel(ctx context.Context) ([]byte, error) {
	body, _, err := r.client.Download(ctx, ReportsPath+"export/", nil)
	return body, err
}
