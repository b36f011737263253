// Package resource is the reusable state+operation bundle every
// collection endpoint is accessed through: one generic store,
// instantiated per resource type.
package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/supervisorapp/supervisor-client/internal/transport"
)

// Entity is anything with the stable primary key the store uses to
// find, replace and remove items.
type Entity interface {
	EntityID() int64
}

// ListResult is the tagged form of a list response: Items always,
// Total only when the server answered with a paginated envelope. The
// shape is resolved exactly once, here, never re-sniffed downstream.
type ListResult[T any] struct {
	Items    []T
	Total    int
	HasTotal bool
}

type listEnvelope[T any] struct {
	Results []T  `json:"results"`
	Count   *int `json:"count"`
}

func decodeList[T any](raw []byte) (ListResult[T], error) {
	trimmed := bytes.TrimSpace(raw)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return ListResult[T]{}, fmt.Errorf("decode list: %w", err)
		}
		return ListResult[T]{Items: items}, nil
	}

	var env listEnvelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return ListResult[T]{}, fmt.Errorf("decode list envelope: %w", err)
	}

	result := ListResult[T]{Items: env.Results}
	if env.Count != nil {
		result.Total = *env.Count
		result.HasTotal = true
	}
	return result, nil
}

// Endpoints binds a collection base path to the shared transport:
// GET <base>/ list, GET <base><id>/ detail, POST/PUT/PATCH/DELETE,
// plus the backend's custom-action conventions.
type Endpoints[T Entity] struct {
	client *transport.Client
	base   string
}

func NewEndpoints[T Entity](client *transport.Client, base string) Endpoints[T] {
	return Endpoints[T]{client: client, base: base}
}

// Client exposes the underlying transport for callers that need
// requests outside the collection's CRUD conventions.
func (e Endpoints[T]) Client() *transport.Client {
	return e.client
}

func (e Endpoints[T]) memberPath(id int64) string {
	return fmt.Sprintf("%s%d/", e.base, id)
}

func (e Endpoints[T]) List(ctx context.Context, params transport.Params) (ListResult[T], error) {
	resp, err := e.client.Get(ctx, e.base, params)
	if err != nil {
		return ListResult[T]{}, err
	}
	return decodeList[T](resp.Body)
}

func (e Endpoints[T]) Get(ctx context.Context, id int64) (T, error) {
	var entity T
	resp, err := e.client.Get(ctx, e.memberPath(id), nil)
	if err != nil {
		return entity, err
	}
	return entity, resp.Decode(&entity)
}

func (e Endpoints[T]) Create(ctx context.Context, data any) (T, error) {
	var entity T
	resp, err := e.client.Post(ctx, e.base, data)
	if err != nil {
		return entity, err
	}
	return entity, resp.Decode(&entity)
}

func (e Endpoints[T]) Update(ctx context.Context, id int64, data any) (T, error) {
	var entity T
	resp, err := e.client.Put(ctx, e.memberPath(id), data)
	if err != nil {
		return entity, err
	}
	return entity, resp.Decode(&entity)
}

func (e Endpoints[T]) Patch(ctx context.Context, id int64, data any) (T, error) {
	var entity T
	resp, err := e.client.Patch(ctx, e.memberPath(id), data)
	if err != nil {
		return entity, err
	}
	return entity, resp.Decode(&entity)
}

func (e Endpoints[T]) Delete(ctx context.Context, id int64) error {
	_, err := e.client.Delete(ctx, e.memberPath(id))
	return err
}

// CollectionAction calls <base><action>/ with GET when body is nil,
// POST otherwise.
func (e Endpoints[T]) CollectionAction(ctx context.Context, action string, params transport.Params, body any) (*transport.Response, error) {
	path := e.base + action + "/"
	if body == nil {
		return e.client.Get(ctx, path, params)
	}
	return e.client.Post(ctx, path, body)
}

// MemberAction calls <base><id>/<action>/ with GET when body is nil,
// POST otherwise.
func (e Endpoints[T]) MemberAction(ctx context.Context, id int64, action string, body any) (*transport.Response, error) {
	path := e.memberPath(id) + action + "/"
	if body == nil {
		return e.client.Get(ctx, path, nil)
	}
	return e.client.Post(ctx, path, body)
}

// ListAction fetches a custom collection action that answers with the
// usual list shape (e.g. active/, delayed/) and resolves it the same
// way List does.
func (e Endpoints[T]) ListAction(ctx context.Context, action string, params transport.Params) (ListResult[T], error) {
	resp, err := e.CollectionAction(ctx, action, params, nil)
	if err != nil {
		return ListResult[T]{}, err
	}
	return decodeList[T](resp.Body)
}

// Upload posts a multipart form to a member action, e.g. photos on a
// daily report.
func (e Endpoints[T]) Upload(ctx context.Context, id int64, action string, files []transport.File, fields map[string]string) (*transport.Response, error) {
	return e.client.Upload(ctx, e.memberPath(id)+action+"/", files, fields)
}
