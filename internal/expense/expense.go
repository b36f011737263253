// Package expense covers field expenses, their categories and the
// approval workflow.
package expense

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/supervisorapp/supervisor-client/internal/notify"
	"github.com/supervisorapp/supervisor-client/internal/resource"
	"github.com/supervisorapp/supervisor-client/internal/transport"
)

const (
	ExpensesPath   = "/expenses/"
	CategoriesPath = "/expenses/categories/"
	ReportsPath    = "/expenses/reports/"
	ApprovalPath   = "/expenses/approval/"
)

// Status values mirror the backend's expense lifecycle.
const (
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusPaid     = "paid"
)

type Expense struct {
	ID          int64  `json:"id"`
	Libelle     string `json:"libelle"`
	Montant     string `json:"montant"`
	Categorie   int64  `json:"categorie,omitempty"`
	Project     int64  `json:"project,omitempty"`
	Statut      string `json:"statut"`
	Date        string `json:"date,omitempty"`
	ReceiptURL  string `json:"receipt_url,omitempty"`
	Description string `json:"description,omitempty"`
}

func (e Expense) EntityID() int64 { return e.ID }

type Category struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Nom      string `json:"nom"`
	IsActive bool   `json:"is_active"`
}

func (c Category) EntityID() int64 { return c.ID }

type Store struct {
	*resource.Store[Expense]
}

func NewStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *Store {
	return &Store{resource.NewStore(
		resource.NewEndpoints[Expense](client, ExpensesPath), "expense", notifier, logger)}
}

// UploadReceipt attaches the supporting document to an expense.
func (s *Store) UploadReceipt(ctx context.Context, id int64, receipt transport.File) error {
	_, err := s.Endpoints().Upload(ctx, id, "receipt", []transport.File{receipt}, nil)
	return err
}

type CategoryStore struct {
	*resource.Store[Category]
}

func NewCategoryStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *CategoryStore {
	return &CategoryStore{resource.NewStore(
		resource.NewEndpoints[Category](client, CategoriesPath), "expense category", notifier, logger)}
}

// Approval drives the review workflow; it lives on its own endpoint
// family, separate from the expense collection.
type Approval struct {
	client *transport.Client
}

func NewApproval(client *transport.Client) *Approval {
	return &Approval{client: client}
}

func (a *Approval) Approve(ctx context.Context, id int64, comment string) error {
	_, err := a.client.Post(ctx, memberAction(ApprovalPath, id, "approve"), map[string]string{"comment": comment})
	return err
}

func (a *Approval) Reject(ctx context.Context, id int64, reason string) error {
	_, err := a.client.Post(ctx, memberAction(ApprovalPath, id, "reject"), map[string]string{"reason": reason})
	return err
}

// Pending lists the expenses waiting for review.
func (a *Approval) Pending(ctx context.Context) ([]Expense, error) {
	resp, err := a.client.Get(ctx, ApprovalPath+"pending/", nil)
	if err != nil {
		return nil, err
	}
	var expenses []Expense
	return expenses, resp.Decode(&expenses)
}

// Reports exposes the expense aggregation endpoints.
type Reports struct {
	client *transport.Client
}

func NewReports(client *transport.Client) *Reports {
	return &Reports{client: client}
}

func (r *Reports) Summary(ctx context.Context, params transport.Params) (map[string]any, error) {
	resp, err := r.client.Get(ctx, ReportsPath+"summary/", params)
	if err != nil {
		return nil, err
	}
	summary := map[string]any{}
	return summary, resp.Decode(&summary)
}

func (r *Reports) ByCategory(ctx context.Context, params transport.Params) (map[string]any, error) {
	resp, err := r.client.Get(ctx, ReportsPath+"by-category/", params)
	if err != nil {
		return nil, err
	}
	breakdown := map[string]any{}
	return breakdown, resp.Decode(&breakdown)
}

func memberAction(base string, id int64, action string) string {
	return fmt.Sprintf("%s%d/%s/", base, id, action)
}
