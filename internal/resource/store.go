package resource

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/supervisorapp/supervisor-client/internal"
	"github.com/supervisorapp/supervisor-client/internal/notify"
	"github.com/supervisorapp/supervisor-client/internal/transport"
)

type Pagination struct {
	Page       int
	PageSize   int
	TotalCount int
}

// Store is the per-resource state container: the last successful item
// list, a selection, loading/error flags and pagination. A failed
// operation leaves everything but loading/error untouched. Safe for
// concurrent use, but overlapping List calls on one store race on the
// final items (last response wins), so callers wanting ordering must
// serialize.
type Store[T Entity] struct {
	endpoints Endpoints[T]
	notifier  notify.Notifier
	logger    *slog.Logger
	label     string

	mu         sync.Mutex
	items      []T
	selected   *T
	loading    bool
	lastError  string
	pagination Pagination
}

// NewStore builds a store over an endpoint set. label is the human
// name used in notifications and fallback error messages
// ("operator", "material", ...).
func NewStore[T Entity](endpoints Endpoints[T], label string, notifier notify.Notifier, logger *slog.Logger) *Store[T] {
	return &Store[T]{
		endpoints: endpoints,
		notifier:  notifier,
		logger:    logger,
		label:     label,
	}
}

func (s *Store[T]) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()
}

func (s *Store[T]) finish() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// fail records the error, notifies, and returns err for the caller's
// own handling. Prefers the server's message over the fallback.
func (s *Store[T]) fail(op string, err error, fallback string) error {
	message := fallback

	var verr *internal.ValidationError
	var serr *internal.HTTPStatusError
	switch {
	case errors.As(err, &verr) && verr.Body.FirstMessage() != "":
		message = verr.Body.FirstMessage()
	case errors.As(err, &serr) && serr.Body.FirstMessage() != "":
		message = serr.Body.FirstMessage()
	}

	s.mu.Lock()
	s.lastError = message
	s.loading = false
	s.mu.Unlock()

	s.logger.Error("resource operation failed", "resource", s.label, "op", op, "error", err)
	s.notifier.Notify(notify.Notification{
		Severity: notify.SeverityNegative,
		Message:  message,
	})
	return err
}

func (s *Store[T]) succeed(message string) {
	s.notifier.Notify(notify.Notification{
		Severity: notify.SeverityPositive,
		Message:  message,
	})
}

func intParam(params transport.Params, key string) (int, bool) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

// List replaces items with the server's result sequence. Both the
// bare-array and the {results, count} envelope shapes are accepted;
// the envelope additionally updates the pagination total.
func (s *Store[T]) List(ctx context.Context, params transport.Params) ([]T, error) {
	s.begin()

	result, err := s.endpoints.List(ctx, params)
	if err != nil {
		return nil, s.fail("list", err, "failed to load "+s.label+" list")
	}

	s.mu.Lock()
	s.items = result.Items
	if result.HasTotal {
		s.pagination.TotalCount = result.Total
	}
	if page, ok := intParam(params, "page"); ok {
		s.pagination.Page = page
	}
	if size, ok := intParam(params, "page_size"); ok {
		s.pagination.PageSize = size
	}
	s.loading = false
	items := append([]T(nil), s.items...)
	s.mu.Unlock()

	return items, nil
}

// ListFrom replaces items from a custom collection action (active/,
// delayed/, ...) that answers with the usual list shape.
func (s *Store[T]) ListFrom(ctx context.Context, action string, params transport.Params) ([]T, error) {
	s.begin()

	result, err := s.endpoints.ListAction(ctx, action, params)
	if err != nil {
		return nil, s.fail(action, err, "failed to load "+s.label+" list")
	}

	s.mu.Lock()
	s.items = result.Items
	if result.HasTotal {
		s.pagination.TotalCount = result.Total
	}
	s.loading = false
	items := append([]T(nil), s.items...)
	s.mu.Unlock()

	return items, nil
}

// Get fetches one entity into the selection.
func (s *Store[T]) Get(ctx context.Context, id int64) (T, error) {
	s.begin()

	entity, err := s.endpoints.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, s.fail("get", err, "failed to load "+s.label)
	}

	s.mu.Lock()
	s.selected = &entity
	s.loading = false
	s.mu.Unlock()

	return entity, nil
}

// Create posts data and appends the server-assigned entity to items.
func (s *Store[T]) Create(ctx context.Context, data any) (T, error) {
	s.begin()

	entity, err := s.endpoints.Create(ctx, data)
	if err != nil {
		var zero T
		return zero, s.fail("create", err, "failed to create "+s.label)
	}

	s.mu.Lock()
	s.items = append(s.items, entity)
	s.loading = false
	s.mu.Unlock()

	s.succeed(s.label + " created")
	return entity, nil
}

// Update sends a full update and replaces the matching item (and the
// selection, when it is the same entity).
func (s *Store[T]) Update(ctx context.Context, id int64, data any) (T, error) {
	return s.replace(ctx, id, data, false)
}

// Patch sends a partial update with the same replacement semantics.
func (s *Store[T]) Patch(ctx context.Context, id int64, data any) (T, error) {
	return s.replace(ctx, id, data, true)
}

func (s *Store[T]) replace(ctx context.Context, id int64, data any, partial bool) (T, error) {
	s.begin()

	var entity T
	var err error
	op := "update"
	if partial {
		op = "patch"
		entity, err = s.endpoints.Patch(ctx, id, data)
	} else {
		entity, err = s.endpoints.Update(ctx, id, data)
	}
	if err != nil {
		var zero T
		return zero, s.fail(op, err, "failed to update "+s.label)
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].EntityID() == id {
			s.items[i] = entity
			break
		}
	}
	if s.selected != nil && (*s.selected).EntityID() == id {
		s.selected = &entity
	}
	s.loading = false
	s.mu.Unlock()

	s.succeed(s.label + " updated")
	return entity, nil
}

// Delete removes the entity remotely, then locally. A miss in the
// local list is not an error, the remote call already decided.
func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	s.begin()

	if err := s.endpoints.Delete(ctx, id); err != nil {
		return s.fail("delete", err, "failed to delete "+s.label)
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].EntityID() == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	if s.selected != nil && (*s.selected).EntityID() == id {
		s.selected = nil
	}
	s.loading = false
	s.mu.Unlock()

	s.succeed(s.label + " deleted")
	return nil
}

// Absorb replaces the matching item (and selection) with an entity a
// custom action answered with. Local state only, no network and no
// notification.
func (s *Store[T]) Absorb(entity T) {
	id := entity.EntityID()
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].EntityID() == id {
			s.items[i] = entity
			break
		}
	}
	if s.selected != nil && (*s.selected).EntityID() == id {
		s.selected = &entity
	}
	s.mu.Unlock()
}

// Select and ClearSelection are pure local state, no network.
func (s *Store[T]) Select(entity T) {
	s.mu.Lock()
	s.selected = &entity
	s.mu.Unlock()
}

func (s *Store[T]) ClearSelection() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}

// Reset restores the initial empty state; used when navigating away
// from a resource or on logout.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	s.items = nil
	s.selected = nil
	s.loading = false
	s.lastError = ""
	s.pagination = Pagination{}
	s.mu.Unlock()
}

// ----------------- READ ACCESS -----------------

func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}

func (s *Store[T]) Selected() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		var zero T
		return zero, false
	}
	return *s.selected, true
}

func (s *Store[T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store[T]) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Store[T]) Pagination() Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

// FindByID searches the local items without touching the network.
func (s *Store[T]) FindByID(id int64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].EntityID() == id {
			return s.items[i], true
		}
	}
	var zero T
	return zero, false
}

// Endpoints exposes the underlying endpoint set for custom actions
// that do not go through store state.
func (s *Store[T]) Endpoints() Endpoints[T] {
	return s.endpoints
}
