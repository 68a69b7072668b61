package openapi

import (
	"strings"

	scene "github.com/goliatone/go-scene"
)

type generatorConfig struct {
	version     string
	info        infoConfig
	routes      routeConfig
	contentType string
	// writeResponses are attached to every put operation.
	writeResponses map[string]string
	filter         scene.Interface
}

type infoConfig struct {
	title       string
	version     string
	description string
}

// routeConfig places the snapshot routes of each class at
// prefix/<class>/{object}. A non-empty operationPrefix replaces the default
// "<method>:<path>" operation ids with operationPrefix + Method + Class.
type routeConfig struct {
	prefix          string
	operationPrefix string
	summary         string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		version:        "3.0.3",
		info:           infoConfig{title: "Scene Classes", version: "1.0.0"},
		routes:         routeConfig{prefix: "/objects"},
		contentType:    "application/json",
		writeResponses: map[string]string{"204": "Snapshot applied"},
	}
}

// GeneratorOption configures the OpenAPI generator behaviour.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version != "" {
			cfg.version = version
		}
	}
}

// InfoOption configures optional fields on the OpenAPI info section.
type InfoOption func(*infoConfig)

// WithInfoDescription sets the info description.
func WithInfoDescription(description string) InfoOption {
	return func(info *infoConfig) {
		info.description = description
	}
}

// WithInfo sets the info title and version; empty strings keep the defaults.
func WithInfo(title, version string, opts ...InfoOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.title = title
		}
		if version != "" {
			cfg.info.version = version
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.info)
			}
		}
	}
}

// RouteOption configures optional route metadata.
type RouteOption func(*routeConfig)

// WithRouteSummary attaches a summary to every snapshot operation.
func WithRouteSummary(summary string) RouteOption {
	return func(routes *routeConfig) {
		routes.summary = strings.TrimSpace(summary)
	}
}

// WithRoutes sets the path prefix and operation id prefix of the per-class
// snapshot routes. Empty inputs keep the defaults.
func WithRoutes(prefix, operationPrefix string, opts ...RouteOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if prefix = strings.Trim(prefix, "/"); prefix != "" {
			cfg.routes.prefix = "/" + prefix
		}
		if operationPrefix != "" {
			cfg.routes.operationPrefix = operationPrefix
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.routes)
			}
		}
	}
}

// WithContentType sets the media type of snapshot bodies.
func WithContentType(contentType string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if contentType != "" {
			cfg.contentType = contentType
		}
	}
}

// WithWriteResponse adds or overrides a response of the put operations.
func WithWriteResponse(status, description string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if status == "" {
			return
		}
		if cfg.writeResponses == nil {
			cfg.writeResponses = map[string]string{}
		}
		cfg.writeResponses[status] = description
	}
}

// WithInterfaceFilter restricts GenerateContext to classes whose interface
// includes iface.
func WithInterfaceFilter(iface scene.Interface) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.filter = iface
	}
}
