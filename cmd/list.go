package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/supervisorapp/supervisor-client/internal/b2b"
	"github.com/supervisorapp/supervisor-client/internal/deployment"
	"github.com/supervisorapp/supervisor-client/internal/expense"
	"github.com/supervisorapp/supervisor-client/internal/inventory"
	"github.com/supervisorapp/supervisor-client/internal/mapping"
	"github.com/supervisorapp/supervisor-client/internal/notify"
	"github.com/supervisorapp/supervisor-client/internal/transport"
	"github.com/supervisorapp/supervisor-client/internal/users"
)

var (
	listPage     int
	listPageSize int
)

// row is one printed line of a listing: the entity id and a short
// human label.
type row struct {
	ID    int64
	Label string
}

type lister func(ctx context.Context, deps *Dependencies, params transport.Params) ([]row, error)

var listers = map[string]lister{
	"operators": func(ctx context.Context, deps *Dependencies, params transport.Params) ([]row, error) {
		store := deployment.NewOperatorStore(deps.API, &notify.LogNotifier{Logger: deps.Logger}, deps.Logger)
		items, err := store.List(ctx, params)
		if err != nil {
			return nil, err
		}
		rows := make([]row, 0, len(items))
		for _, item := range items {
			rows = append(rows, row{item.ID, item.Nom})
		}
		return rows, nil
	},
	"projects": func(ctx context.Context, deps *Dependencies, params transport.Params) ([]row, error) {
		store := deployment.NewProjectStore(deps.API, &notify.LogNotifier{Logger: deps.Logger}, deps.Logger)
		items, err := store.List(ctx, params)
		if err != nil {
			return nil, err
		}
		rows := make([]row, 0, len(items))
		for _, item := range items {
			rows = append(rows, row{item.ID, fmt.Sprintf("%s [%s]", item.Nom, item.Statut)})
		}
		return rows, nil
	},
	"technicians": func(ctx context.Context, deps *Dependencies, params transport.Params) ([]row, error) {
		store := deployment.NewTechnicianStore(deps.API, &notify.LogNotifier{Logger: deps.Logger}, deps.Logger)
		items, err := store.List(ctx, params)
		if err != nil {
			return nil, err
		}
		rows := make([]row, 0, len(items))
		for _, item := range items {
			rows = append(rows, row{item.ID, item.Nom + " " + item.Prenoms})
		}
		return rows, nil
	},
	"teams": func(ctx context.Context, deps *Dependencies, params transport.Params) ([]row, error) {
		store := b2b.NewTeamStore(deps.API, &notify.LogNotifier{Logger: deps.Logger}, deps.Logger)
		items, err := store.List(ctx, params)
		if err != nil {
			return nil, err
		}
		rows := make([]row, 0, len(items))
		for _, item := range items {
			rows = append(rows, row{item.ID, item.Nom})
		}
		return rows, nil
	},
	"materials": func(ctx context.Context, deps *Dependencies, params transport.Params) ([]row, error) {
		store := inventory.NewMaterialStore(deps.API, &notify.LogNotifier{Logger: deps.Logger}, deps.Logger)
		items, err := store.List(ctx, params)
		if err != nil {
			return nil, err
		}
		rows := make([]row, 0, len(items))
		for _, item := range items {
			rows = append(rows, row{item.ID, fmt.Sprintf("%s (stock %d)", item.Nom, item.QuantiteStock)})
		}
		return rows, nil
	},
	"expenses": func(ctx context.Context, deps *Dependencies, params transport.Params) ([]row, error) {
		store := expense.NewStore(deps.API, &notify.LogNotifier{Logger: deps.Logger}, deps.Logger)
		items, err := store.List(ctx, params)
		if err != nil {
			return nil, err
		}
		rows := make([]row, 0, len(items))
		for _, item := range items {
			rows = append(rows, row{item.ID, fmt.Sprintf("%s [%s]", item.Description, item.Statut)})
		}
		return rows, nil
	},
	"vehicles": func(ctx context.Context, deps *Dependencies, params transport.Params) ([]row, error) {
		store := mapping.NewVehicleStore(deps.API, &notify.LogNotifier{Logger: deps.Logger}, deps.Logger)
		items, err := store.List(ctx, params)
		if err != nil {
			return nil, err
		}
		rows := make([]row, 0, len(items))
		for _, item := range items {
			rows = append(rows, row{item.ID, item.Immatriculation})
		}
		return rows, nil
	},
	"users": func(ctx context.Context, deps *Dependencies, params transport.Params) ([]row, error) {
		store := users.NewStore(deps.API, &notify.LogNotifier{Logger: deps.Logger}, deps.Logger)
		items, err := store.List(ctx, params)
		if err != nil {
			return nil, err
		}
		rows := make([]row, 0, len(items))
		for _, item := range items {
			rows = append(rows, row{item.ID, fmt.Sprintf("%s (%s)", item.Username, item.Profile.Role)})
		}
		return rows, nil
	},
}

func listableResources() string {
	names := make([]string, 0, len(listers))
	for name := range listers {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

var listCmd = &cobra.Command{
	Use:   "list <resource>",
	Short: "List a resource collection",
	Long:  `List one of the backend collections. Requires a logged-in session.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		list, ok := listers[name]
		if !ok {
			return fmt.Errorf("unknown resource %q (available: %s)", name, listableResources())
		}

		deps, err := initializeDependencies()
		if err != nil {
			return err
		}

		ctx := context.Background()
		deps.Session.Initialize(ctx)
		if !deps.Session.IsAuthenticated() {
			return fmt.Errorf("not logged in")
		}

		params := transport.Params{}
		if listPage > 0 {
			params["page"] = listPage
		}
		if listPageSize > 0 {
			params["page_size"] = listPageSize
		}

		rows, err := list(ctx, deps, params)
		if err != nil {
			return err
		}
		for _, r := range rows {
			fmt.Fprintf(cmd.OutOrStdout(), "%6d  %s\n", r.ID, r.Label)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 0, "page number")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "items per page")
}
