// Package routes loads the list of API routes to probe from YAML or JSON files.
package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/openapi-ff/pkg/httpclient"
)

// configFile represents the structure of the routes configuration file.
type configFile struct {
	Routes []rawRoute `json:"routes" yaml:"routes"`
}

type rawRoute struct {
	ID      string            `json:"id" yaml:"id"`
	Method  string            `json:"method" yaml:"method"`
	Path    string            `json:"path" yaml:"path"`
	Params  httpclient.Params `json:"params" yaml:"params"`
	Enabled *bool             `json:"enabled" yaml:"enabled"`
}

// Route is one callable operation together with the static parameters used
// when probing it.
type Route struct {
	ID      string
	Method  httpclient.Method
	Path    string
	Params  httpclient.Params
	Enabled bool
}

// Registry holds the routes declared in a config file, in file order.
type Registry struct {
	mu     sync.RWMutex
	routes []Route
	idx    map[string]Route
}

// LoadRegistry loads the route registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("routes file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open routes file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}

	return Parse(raw, filepath.Ext(path))
}

// Parse builds a registry from file content. ext selects the decoder; an
// empty ext tries every known format.
func Parse(data []byte, ext string) (*Registry, error) {
	file, err := decodeRoutes(data, ext)
	if err != nil {
		return nil, err
	}
	if len(file.Routes) == 0 {
		return nil, errors.New("routes file contains no routes entries")
	}

	reg := &Registry{
		routes: make([]Route, 0, len(file.Routes)),
		idx:    make(map[string]Route, len(file.Routes)),
	}
	for i, rr := range file.Routes {
		route, err := buildRoute(sanitizeRoute(rr))
		if err != nil {
			return nil, fmt.Errorf("routes[%d]: %w", i, err)
		}
		if _, exists := reg.idx[route.ID]; exists {
			return nil, fmt.Errorf("duplicate route id %q", route.ID)
		}
		reg.routes = append(reg.routes, route)
		reg.idx[route.ID] = route
	}
	return reg, nil
}

func decodeRoutes(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		ext string
		fn  func([]byte, any) error
	}{
		{ext: ".yaml", fn: yaml.Unmarshal},
		{ext: ".yml", fn: yaml.Unmarshal},
		{ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var file configFile
		if err := d.fn(data, &file); err != nil {
			lastErr = err
			continue
		}
		return file, nil
	}
	if lastErr != nil {
		return configFile{}, fmt.Errorf("routes file format not recognized (expected YAML or JSON): %w", lastErr)
	}
	return configFile{}, errors.New("routes file format not recognized (expected YAML or JSON)")
}

func sanitizeRoute(rr rawRoute) rawRoute {
	rr.ID = strings.TrimSpace(rr.ID)
	rr.Method = strings.TrimSpace(rr.Method)
	rr.Path = strings.TrimSpace(rr.Path)
	if len(rr.Params.Header) > 0 {
		headers := make(map[string]string, len(rr.Params.Header))
		for k, v := range rr.Params.Header {
			if k = strings.TrimSpace(k); k != "" {
				headers[k] = strings.TrimSpace(v)
			}
		}
		rr.Params.Header = headers
	}
	return rr
}

func buildRoute(rr rawRoute) (Route, error) {
	if rr.ID == "" {
		return Route{}, errors.New("id is required")
	}
	if rr.Method == "" {
		return Route{}, fmt.Errorf("method is required for route %q", rr.ID)
	}
	m, err := httpclient.ParseMethod(rr.Method)
	if err != nil {
		return Route{}, fmt.Errorf("route %q: %w", rr.ID, err)
	}
	if rr.Path == "" || !strings.HasPrefix(rr.Path, "/") {
		return Route{}, fmt.Errorf("path for route %q must start with /", rr.ID)
	}

	enabled := true
	if rr.Enabled != nil {
		enabled = *rr.Enabled
	}
	return Route{
		ID:      rr.ID,
		Method:  m,
		Path:    rr.Path,
		Params:  rr.Params,
		Enabled: enabled,
	}, nil
}

// ByID returns the route by id.
func (r *Registry) ByID(id string) (Route, bool) {
	if r == nil {
		return Route{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.idx[strings.TrimSpace(id)]
	return route, ok
}

// All returns all configured routes.
func (r *Registry) All() []Route {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Enabled returns routes that are enabled.
func (r *Registry) Enabled() []Route {
	all := r.All()
	out := make([]Route, 0, len(all))
	for _, route := range all {
		if route.Enabled {
			out = append(out, route)
		}
	}
	return out
}
