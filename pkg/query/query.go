// Package query runs an API effect on demand, checks the response against the
// effect's contract and keeps the latest result as observable state.
package query

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samvad-hq/openapi-ff/pkg/apieffect"
	"github.com/samvad-hq/openapi-ff/pkg/contract"
	"github.com/samvad-hq/openapi-ff/pkg/effect"
)

// Status is the lifecycle stage of a query.
type Status string

const (
	StatusInitial Status = "initial"
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFail    Status = "fail"
)

// State is a snapshot of the query after its latest transition.
type State struct {
	Status Status
	Data   any
	Err    error
	Cached bool
}

// Cache persists successful response bodies between runs.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// Option configures a Query.
type Option func(*options)

type options struct {
	cache     Cache
	keyPrefix string
	log       Logger
}

// WithCache serves fresh cached data instead of calling the API and stores
// every validated response under keyPrefix.
func WithCache(c Cache, keyPrefix string) Option {
	return func(o *options) {
		o.cache = c
		o.keyPrefix = keyPrefix
	}
}

// WithLogger sets the logger used for cache failures.
func WithLogger(log Logger) Option {
	return func(o *options) { o.log = log }
}

// Query couples an API effect with its contract.
type Query[In any] struct {
	api   *apieffect.ApiEffect[In]
	state *effect.Store[State]
	opts  options
}

// New builds a query around api.
func New[In any](api *apieffect.ApiEffect[In], opts ...Option) (*Query[In], error) {
	if api == nil || api.Effect == nil {
		return nil, errors.New("api effect must not be nil")
	}
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.log = ensureLogger(o.log)

	return &Query[In]{
		api:   api,
		state: effect.NewStore(State{Status: StatusInitial}),
		opts:  o,
	}, nil
}

// Start runs the query once and returns the classified failure, if any.
// The final state is visible through State and Watch before Start returns.
func (q *Query[In]) Start(ctx context.Context, in In) error {
	prev := q.state.Get()
	q.state.Set(State{Status: StatusPending, Data: prev.Data})

	key := q.cacheKey(in)
	if data, ok := q.cached(key); ok {
		q.state.Set(State{Status: StatusDone, Data: data, Cached: true})
		return nil
	}

	data, err := q.api.Effect.Run(ctx, in)
	if err != nil {
		q.state.Set(State{Status: StatusFail, Err: err})
		return err
	}

	k := q.api.Contract
	if k == nil {
		k = contract.Unknown()
	}
	if msgs := k.Validate(data); len(msgs) > 0 {
		invalid := &apieffect.InvalidDataError{ValidationErrors: msgs, Response: data}
		q.state.Set(State{Status: StatusFail, Err: invalid})
		return invalid
	}

	q.store(key, data)
	q.state.Set(State{Status: StatusDone, Data: data})
	return nil
}

// State returns the current snapshot.
func (q *Query[In]) State() State { return q.state.Get() }

// Data returns the latest valid data.
func (q *Query[In]) Data() any { return q.state.Get().Data }

// Error returns the failure of the latest run.
func (q *Query[In]) Error() error { return q.state.Get().Err }

// Status returns the lifecycle stage.
func (q *Query[In]) Status() Status { return q.state.Get().Status }

func (q *Query[In]) Succeeded() bool { return q.Status() == StatusDone }

func (q *Query[In]) Failed() bool { return q.Status() == StatusFail }

// Watch subscribes fn to state transitions. The returned func unsubscribes.
func (q *Query[In]) Watch(fn func(State)) func() { return q.state.Watch(fn) }

// Route returns the method and path label of the underlying effect.
func (q *Query[In]) Route() string { return q.api.Effect.Name() }

func (q *Query[In]) cacheKey(in In) string {
	if q.opts.cache == nil {
		return ""
	}
	raw, err := json.Marshal(in)
	if err != nil {
		q.opts.log.WarnObj("query input not cacheable", "query_cache", map[string]any{
			"route": q.Route(),
			"error": err.Error(),
		})
		return ""
	}
	return Key(q.opts.keyPrefix, q.api.Method.String(), q.api.Path, raw)
}

func (q *Query[In]) cached(key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	raw, ok, err := q.opts.cache.Get(key)
	if err != nil {
		q.opts.log.WarnObj("query cache read failed", "query_cache", map[string]any{
			"route": q.Route(),
			"error": err.Error(),
		})
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var data any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			q.opts.log.WarnObj("query cache entry undecodable", "query_cache", map[string]any{
				"route": q.Route(),
				"key":   key,
				"error": err.Error(),
			})
			return nil, false
		}
	}
	return data, true
}

func (q *Query[In]) store(key string, data any) {
	if key == "" {
		return
	}
	raw, err := json.Marshal(data)
	if err == nil {
		err = q.opts.cache.Put(key, raw)
	}
	if err != nil {
		q.opts.log.WarnObj("query cache write failed", "query_cache", map[string]any{
			"route": q.Route(),
			"error": err.Error(),
		})
	}
}

// Key derives the cache key of one request.
func Key(prefix, method, path string, input []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s %s ", method, path)
	h.Write(input)
	return prefix + hex.EncodeToString(h.Sum(nil))
}
