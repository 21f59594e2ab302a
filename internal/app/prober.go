package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samvad-hq/openapi-ff/internal/config"
	"github.com/samvad-hq/openapi-ff/internal/domain"
	"github.com/samvad-hq/openapi-ff/internal/logger"
	"github.com/samvad-hq/openapi-ff/internal/probe"
	"github.com/samvad-hq/openapi-ff/internal/storage"
	"github.com/samvad-hq/openapi-ff/pkg/apieffect"
	"github.com/samvad-hq/openapi-ff/pkg/contract"
	"github.com/samvad-hq/openapi-ff/pkg/httpclient"
	"github.com/samvad-hq/openapi-ff/pkg/publishers"
	"github.com/samvad-hq/openapi-ff/pkg/routes"
)

// Prober represents the API probe runtime. It owns the probe loop and wires
// the route registry, the API client, publishers and the response cache.
type Prober struct {
	cfg           *config.Config
	routeReg      *routes.Registry
	fanout        *publishers.Fanout
	probeService  *probe.Service
	probeInterval time.Duration
	log           logger.Logger
	store         storage.Store
}

// NewProber builds a prober runtime from config files.
func NewProber(ctx context.Context, cfg *config.Config, log logger.Logger) (*Prober, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	routeReg, err := routes.LoadRegistry(cfg.RoutesFile)
	if err != nil {
		return nil, fmt.Errorf("load routes registry: %w", err)
	}
	routeList := routeReg.Enabled()
	routeIDs := make([]string, 0, len(routeList))
	for _, r := range routeList {
		routeIDs = append(routeIDs, r.ID)
	}
	log.InfoObj("routes registry loaded", "routes_meta", map[string]any{
		"count": len(routeIDs),
		"ids":   routeIDs,
	})

	client, err := newAPIClient(cfg, log)
	if err != nil {
		return nil, err
	}

	fanout, err := loadPublishers(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		EntryTTL:        cfg.CacheTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"cache_ttl_seconds":        int(cfg.CacheTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Prober{
		cfg:           cfg,
		routeReg:      routeReg,
		fanout:        fanout,
		probeService:  probe.NewService(client, fanout, log, store),
		probeInterval: cfg.ProbeInterval,
		log:           log,
		store:         store,
	}, nil
}

// newAPIClient builds the resty transport and, when an OpenAPI document is
// configured, derives response contracts from it.
func newAPIClient(cfg *config.Config, log logger.Logger) (*apieffect.Client, error) {
	transport := httpclient.NewRestyTransport(httpclient.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.RequestTimeout,
		Headers: map[string]string{"User-Agent": cfg.AppName},
	})

	var opts []apieffect.ClientOption
	if path := strings.TrimSpace(cfg.OpenAPIFile); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read openapi document: %w", err)
		}
		doc, err := contract.LoadOpenAPI(raw)
		if err != nil {
			return nil, fmt.Errorf("load openapi document: %w", err)
		}
		opts = append(opts, apieffect.WithContractFactory(doc.Factory(log)))
		log.InfoObj("openapi contracts enabled", "openapi_file", path)
	}

	client, err := apieffect.CreateClient(transport, opts...)
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}
	return client, nil
}

// loadPublishers builds the publisher fan-out. Without a publishers file
// outcomes are only logged.
func loadPublishers(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(cfg.PublishersFile) == "" {
		log.InfoObj("no publishers file configured; outcomes are logged only", "publishers_file", "")
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run starts the probe loop until the context is cancelled.
func (p *Prober) Run(ctx context.Context) error {
	if p == nil || p.probeService == nil {
		return fmt.Errorf("prober is not initialized")
	}
	defer p.Close()

	rs := p.routeReg.Enabled()
	if len(rs) == 0 {
		p.log.WarnObj("no routes enabled; prober idle", "routes_file", p.cfg.RoutesFile)
		<-ctx.Done()
		p.log.InfoObj("prober loop exiting", "reason", ctx.Err())
		return nil
	}

	p.log.InfoObj("prober loop starting", "prober_state", map[string]any{
		"routes_count":     len(rs),
		"publishers_count": p.fanout.Size(),
		"probe_interval":   p.probeInterval.String(),
	})

	if err := p.RunOnce(ctx, rs); err != nil {
		p.log.ErrorObj("initial probe failed", "error", err)
	}

	ticker := time.NewTicker(p.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("prober loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := p.RunOnce(ctx, rs); err != nil {
				p.log.ErrorObj("scheduled probe failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single probe pass across rs.
func (p *Prober) RunOnce(ctx context.Context, rs []routes.Route) error {
	start := time.Now()
	p.log.InfoObj("probe pass started", "probe_meta", map[string]any{
		"routes_count": len(rs),
		"started_at":   start.UTC(),
	})
	if err := p.probeService.Run(ctx, rs); err != nil {
		return err
	}
	p.log.InfoObj("probe pass completed", "probe_meta", map[string]any{
		"routes_count": len(rs),
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
	return nil
}

// Call probes a single route by id without publishing the outcome.
func (p *Prober) Call(ctx context.Context, routeID string) (domain.ProbeResult, error) {
	if p == nil || p.probeService == nil {
		return domain.ProbeResult{}, fmt.Errorf("prober is not initialized")
	}
	route, ok := p.routeReg.ByID(routeID)
	if !ok {
		return domain.ProbeResult{}, fmt.Errorf("unknown route id %q", routeID)
	}
	return p.probeService.Probe(ctx, route)
}

// Close releases the storage backend and publisher connections, logging any
// errors encountered.
func (p *Prober) Close() {
	if p == nil {
		return
	}
	p.fanout.Close()
	if p.store == nil {
		return
	}
	if err := p.store.Close(); err != nil {
		p.log.ErrorObj("storage close failed", "error", err)
	}
}
