// Package probe calls configured API routes through validated queries and
// publishes every outcome.
package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/openapi-ff/internal/domain"
	"github.com/samvad-hq/openapi-ff/internal/logger"
	"github.com/samvad-hq/openapi-ff/pkg/apieffect"
	"github.com/samvad-hq/openapi-ff/pkg/httpclient"
	"github.com/samvad-hq/openapi-ff/pkg/publishers"
	"github.com/samvad-hq/openapi-ff/pkg/query"
	"github.com/samvad-hq/openapi-ff/pkg/routes"
)

const cacheKeyPrefix = "resp:"

// Service coordinates probing across multiple routes.
type Service struct {
	client    *apieffect.Client
	publisher EventPublisher
	cache     query.Cache
	log       logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	queries map[string]*query.Query[httpclient.Params]
}

// NewService wires a probe service. publisher and cache are optional.
func NewService(client *apieffect.Client, publisher EventPublisher, log logger.Logger, cache query.Cache) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{
		client:    client,
		publisher: publisher,
		cache:     cache,
		log:       log,
		now:       time.Now,
		queries:   make(map[string]*query.Query[httpclient.Params]),
	}
}

// Run executes a probe pass for all routes. Route outcomes are published and
// logged; only failures to set up or publish are returned.
func (s *Service) Run(ctx context.Context, rs []routes.Route) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("probe service is not initialized")
	}

	if len(rs) == 0 {
		return fmt.Errorf("no routes configured for probing")
	}

	errs := s.runAll(ctx, rs)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func (s *Service) runAll(ctx context.Context, rs []routes.Route) []error {
	errs := make([]error, 0, len(rs))

	for _, route := range rs {
		if ctx.Err() != nil {
			break
		}
		res, err := s.Probe(ctx, route)
		if err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("route probe failed", "probe_error", map[string]any{
				"route_id": route.ID,
				"error":    err.Error(),
			})
			continue
		}
		if err := s.publish(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// Probe runs a single route and folds its outcome into a ProbeResult. The
// returned error is non-nil only when the route could not be called at all.
func (s *Service) Probe(ctx context.Context, route routes.Route) (domain.ProbeResult, error) {
	q, err := s.queryFor(route)
	if err != nil {
		return domain.ProbeResult{}, err
	}

	start := s.now()
	runErr := q.Start(ctx, route.Params)
	state := q.State()

	res := resultFor(route, state.Data, runErr)
	res.Cached = state.Cached
	res.Elapsed = s.now().Sub(start)
	res.CollectedAt = s.now().UTC()

	fields := map[string]any{
		"route_id":   res.RouteID,
		"route":      q.Route(),
		"kind":       res.Kind,
		"elapsed_ms": res.Elapsed.Milliseconds(),
	}
	if res.Succeeded() {
		fields["cached"] = res.Cached
		s.log.InfoObj("route probe completed", "probe_result", fields)
	} else {
		fields["status"] = res.Status
		fields["reason"] = res.Reason
		fields["validation_errors"] = res.ValidationErrors
		s.log.WarnObj("route probe unsuccessful", "probe_result", fields)
	}
	return res, nil
}

func (s *Service) publish(ctx context.Context, res domain.ProbeResult) error {
	if s.publisher == nil {
		return nil
	}
	evt := publishers.NewEvent(res)
	delivered, err := s.publisher.Publish(ctx, evt)
	if err != nil {
		return fmt.Errorf("publish outcome of route %s: %w", res.RouteID, err)
	}
	s.log.DebugObj("probe outcome published", "probe_publish", map[string]any{
		"route_id":  res.RouteID,
		"event_id":  evt.ID,
		"delivered": delivered,
	})
	return nil
}

// queryFor returns the query bound to route, creating it on first use.
func (s *Service) queryFor(route routes.Route) (*query.Query[httpclient.Params], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q, ok := s.queries[route.ID]; ok {
		return q, nil
	}

	fx, err := apieffect.CreateApiEffect[httpclient.Params](s.client, route.Method, route.Path)
	if err != nil {
		return nil, fmt.Errorf("register route %s: %w", route.ID, err)
	}

	opts := []query.Option{query.WithLogger(s.log)}
	if s.cache != nil {
		opts = append(opts, query.WithCache(s.cache, cacheKeyPrefix+route.ID+":"))
	}
	q, err := query.New(fx, opts...)
	if err != nil {
		return nil, fmt.Errorf("build query for route %s: %w", route.ID, err)
	}
	q.Watch(func(st query.State) {
		s.log.DebugObj("route query state changed", "query_state", map[string]any{
			"route_id": route.ID,
			"status":   st.Status,
		})
	})

	s.queries[route.ID] = q
	return q, nil
}

// resultFor maps a query outcome onto the shared result record.
func resultFor(route routes.Route, data any, err error) domain.ProbeResult {
	res := domain.ProbeResult{
		RouteID: route.ID,
		Method:  route.Method.String(),
		Path:    route.Path,
		Kind:    string(apieffect.KindOf(err)),
	}

	var (
		apiErr     *apieffect.ApiError
		httpErr    *apieffect.HttpError
		netErr     *apieffect.NetworkError
		invalidErr *apieffect.InvalidDataError
	)
	switch {
	case err == nil:
		res.Data = data
	case errors.As(err, &apiErr):
		res.Status = apiErr.Status
		res.StatusText = apiErr.StatusText
		res.Data = apiErr.Response
	case errors.As(err, &httpErr):
		res.Status = httpErr.Status
		res.StatusText = httpErr.StatusText
	case errors.As(err, &netErr):
		res.Reason = netErr.Reason
	case errors.As(err, &invalidErr):
		res.ValidationErrors = invalidErr.ValidationErrors
		res.Data = invalidErr.Response
	default:
		res.Kind = "UNKNOWN"
		res.Reason = err.Error()
	}
	return res
}
