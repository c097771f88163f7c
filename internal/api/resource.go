package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Resource is the typed CRUD surface of one /api/<entities> collection.
type Resource[T any] struct {
	client  *Client
	path    string
	listKey string
}

// NewResource binds a collection path ("journal-entries") and the key its
// list responses nest rows under ("journal_entries").
func NewResource[T any](c *Client, path, listKey string) *Resource[T] {
	if listKey == "" {
		listKey = path
	}
	return &Resource[T]{client: c, path: path, listKey: listKey}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string {
	return r.path
}

func (r *Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// List fetches one page. Query carries search, filters, page and per_page.
func (r *Resource[T]) List(ctx context.Context, query url.Values) (Page[T], error) {
	env, err := r.client.Do(ctx, http.MethodGet, r.path, query, nil)
	if err != nil {
		return Page[T]{}, err
	}
	return decodePage[T](env.Data, r.listKey)
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	env, err := r.client.Do(ctx, http.MethodGet, r.itemPath(id), nil, nil)
	if err != nil {
		return zero, err
	}
	if isNull(env.Data) {
		return zero, fmt.Errorf("%w: empty data", ErrMalformedResponse)
	}
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

// Create posts a new record. The returned record is nil when the server
// answers without data.
func (r *Resource[T]) Create(ctx context.Context, body any) (*T, string, error) {
	env, err := r.client.Do(ctx, http.MethodPost, r.path, nil, body)
	if err != nil {
		return nil, "", err
	}
	rec, err := decodeOptional[T](env.Data)
	return rec, env.Message, err
}

// Update replaces a record.
func (r *Resource[T]) Update(ctx context.Context, id string, body any) (*T, string, error) {
	env, err := r.client.Do(ctx, http.MethodPut, r.itemPath(id), nil, body)
	if err != nil {
		return nil, "", err
	}
	rec, err := decodeOptional[T](env.Data)
	return rec, env.Message, err
}

// Delete removes a record.
func (r *Resource[T]) Delete(ctx context.Context, id string) (string, error) {
	env, err := r.client.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// Action invokes a side-action endpoint such as approve, post or record-payment.
func (r *Resource[T]) Action(ctx context.Context, id, action string, body any) (*T, string, error) {
	env, err := r.client.Do(ctx, http.MethodPost, r.itemPath(id)+"/"+url.PathEscape(action), nil, body)
	if err != nil {
		return nil, "", err
	}
	rec, err := decodeOptional[T](env.Data)
	return rec, env.Message, err
}

func decodeOptional[T any](raw json.RawMessage) (*T, error) {
	if isNull(raw) {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &out, nil
}
