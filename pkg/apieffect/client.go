// Package apieffect turns the operations of a typed HTTP transport into
// effects whose failures are classified into API, HTTP and network errors.
package apieffect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/openapi-ff/pkg/contract"
	"github.com/samvad-hq/openapi-ff/pkg/effect"
	"github.com/samvad-hq/openapi-ff/pkg/httpclient"
)

// ContractFactory builds the response contract of a single route.
type ContractFactory func(method httpclient.Method, path string) contract.Contract

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithContractFactory makes CreateApiEffect attach a per-route contract.
func WithContractFactory(f ContractFactory) ClientOption {
	return func(c *Client) { c.createContract = f }
}

// Client binds routes of one transport to effects.
type Client struct {
	transport      httpclient.Transport
	createContract ContractFactory
}

// CreateClient wraps transport. Without a contract factory every route gets
// the permissive contract.Unknown().
func CreateClient(transport httpclient.Transport, opts ...ClientOption) (*Client, error) {
	if transport == nil {
		return nil, errors.New("transport must not be nil")
	}
	c := &Client{transport: transport}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// ApiEffect is a route bound to its effect and response contract.
type ApiEffect[In any] struct {
	Effect   *effect.Effect[In, any]
	Contract contract.Contract
	Method   httpclient.Method
	Path     string
}

// Settle runs the effect and folds its result into an Outcome.
func (a *ApiEffect[In]) Settle(ctx context.Context, in In) Outcome {
	data, err := a.Effect.Run(ctx, in)
	return Outcome{Data: data, Err: err}
}

type dispatchFunc func(ctx context.Context, params httpclient.Params) (any, error)

type effectConfig[In any] struct {
	build   func(name string, dispatch dispatchFunc) *effect.Effect[In, any]
	mappers int
}

// EffectOption configures a single CreateApiEffect call site.
type EffectOption[In any] func(*effectConfig[In])

// WithMapParams converts the caller's input into transport parameters.
func WithMapParams[In any](fn func(in In) httpclient.Params) EffectOption[In] {
	return func(cfg *effectConfig[In]) {
		cfg.mappers++
		cfg.build = func(name string, dispatch dispatchFunc) *effect.Effect[In, any] {
			return effect.New(name, func(ctx context.Context, in In) (any, error) {
				return dispatch(ctx, fn(in))
			})
		}
	}
}

// WithSourceMapParams is WithMapParams with an extra input read from source
// on every call. Source is typically (*effect.Store[S]).Get.
func WithSourceMapParams[S, In any](source func() S, fn func(s S, in In) httpclient.Params) EffectOption[In] {
	return func(cfg *effectConfig[In]) {
		cfg.mappers++
		cfg.build = func(name string, dispatch dispatchFunc) *effect.Effect[In, any] {
			return effect.Attach(name, source, func(ctx context.Context, s S, in In) (any, error) {
				return dispatch(ctx, fn(s, in))
			})
		}
	}
}

// CreateApiEffect binds method and path to an effect. Without a mapper the
// input type must be httpclient.Params, *httpclient.Params or struct{}.
func CreateApiEffect[In any](c *Client, method httpclient.Method, path string, opts ...EffectOption[In]) (*ApiEffect[In], error) {
	if c == nil {
		return nil, errors.New("client must not be nil")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("route path is empty")
	}
	call, err := httpclient.Bind(c.transport, method)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", path, err)
	}

	var cfg effectConfig[In]
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	name := method.String() + " " + path
	if cfg.mappers > 1 {
		return nil, fmt.Errorf("route %s: only one parameter mapper may be set, got %d", name, cfg.mappers)
	}
	dispatch := func(ctx context.Context, params httpclient.Params) (any, error) {
		res, err := call(ctx, path, &params)
		o := Classify(res, err)
		return o.Data, o.Err
	}

	var fx *effect.Effect[In, any]
	if cfg.build != nil {
		fx = cfg.build(name, dispatch)
	} else {
		toParams, ok := verbatimParams[In]()
		if !ok {
			var zero In
			return nil, fmt.Errorf("route %s: input type %T needs a parameter mapper", name, zero)
		}
		fx = effect.New(name, func(ctx context.Context, in In) (any, error) {
			return dispatch(ctx, toParams(in))
		})
	}

	k := contract.Unknown()
	if c.createContract != nil {
		if built := c.createContract(method, path); built != nil {
			k = built
		}
	}

	return &ApiEffect[In]{Effect: fx, Contract: k, Method: method, Path: path}, nil
}

func verbatimParams[In any]() (func(In) httpclient.Params, bool) {
	var zero In
	switch any(zero).(type) {
	case httpclient.Params:
		return func(in In) httpclient.Params { return any(in).(httpclient.Params) }, true
	case *httpclient.Params:
		return func(in In) httpclient.Params {
			if p := any(in).(*httpclient.Params); p != nil {
				return *p
			}
			return httpclient.Params{}
		}, true
	case struct{}:
		return func(In) httpclient.Params { return httpclient.Params{} }, true
	}
	return nil, false
}
