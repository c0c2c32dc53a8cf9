// Package config loads this module's administrative configuration (spec
// §1 "the administrative CLI/config loader" is an out-of-scope external
// collaborator — this package is the concrete loader the binary actually
// wires in, using the teacher's chu/loaderenv/tell stack).
package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/rakunlabs/chu/loader/external/loaderconsul"
	_ "github.com/rakunlabs/chu/loader/external/loadervault"
	"github.com/rakunlabs/chu/loader/loaderenv"
	"github.com/rakunlabs/logi"

	mforwardauth "github.com/rakunlabs/ada/middleware/forwardauth"
	"github.com/rakunlabs/chu"
	"github.com/rakunlabs/tell"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// Service names this process for the mserver middleware's response
// headers, matching the teacher's config.Service convention.
var Service = "legatoDataHub"

// Config is the root administrative configuration (spec §6.3 "Recognised
// administrative options").
type Config struct {
	LogLevel string `cfg:"log_level,no_prefix" default:"info"`

	// MaxResourcesPerClient is the value for clientapi.NewSession's
	// maxResources cap (exceeding it yields NoMemory, spec §6.3). The
	// datahub binary creates no client sessions, so nothing in it reads
	// this field.
	MaxResourcesPerClient int `cfg:"max_resources_per_client" default:"0"`

	// DefaultUnits is loaded from configuration but read by no other
	// package: administratively created observations take their units
	// from the create request, and a Placeholder that is pushed to gets
	// "" as its units.
	DefaultUnits string `cfg:"default_units"`

	Buffer    Buffer      `cfg:"buffer"`
	Tree      Tree        `cfg:"tree"`
	Sweep     Sweep       `cfg:"sweep"`
	Store     Store       `cfg:"store"`
	Server    Server      `cfg:"server"`
	Telemetry tell.Config `cfg:"telemetry,noprefix"`
}

// Buffer holds observation buffer caps (spec §6.3
// observationBufferMaxCount / observationBufferMaxWindowSec). These values
// are not applied to any buffer: an administratively created observation
// gets exactly the caps given in its create request, and a cap left at 0
// there means uncapped on that axis.
type Buffer struct {
	MaxCount  int    `cfg:"max_count" default:"1000"`
	MaxWindow string `cfg:"max_window" default:"24h"` // parsed with go-str2duration
}

// MaxWindowSeconds parses MaxWindow ("24h", "90m", ...) into seconds for
// resource.Buffer's MaxWindow field. An empty MaxWindow means uncapped.
func (b Buffer) MaxWindowSeconds() (float64, error) {
	if b.MaxWindow == "" {
		return 0, nil
	}
	d, err := str2duration.ParseDuration(b.MaxWindow)
	if err != nil {
		return 0, fmt.Errorf("parse buffer.max_window %q: %w", b.MaxWindow, err)
	}
	return d.Seconds(), nil
}

// Tree bounds path grammar abuse (spec §5 "Maximum path depth and maximum
// segment length").
type Tree struct {
	MaxDepth      int `cfg:"max_depth" default:"32"`
	MaxSegmentLen int `cfg:"max_segment_len" default:"256"`
}

// Sweep configures the periodic observation-buffer sweep
// (SPEC_FULL.md "Periodic buffer sweep").
type Sweep struct {
	Enabled  bool   `cfg:"enabled" default:"true"`
	Interval string `cfg:"interval" default:"1m"`
}

// Server configures the administrative/query HTTP facade.
type Server struct {
	BasePath string `cfg:"base_path"`
	Port     string `cfg:"port" default:"8080"`
	Host     string `cfg:"host"`

	// ForwardAuth, if set, forwards auth requests to an external
	// authentication service, the same collaborator seam the teacher
	// uses for its admin surface.
	ForwardAuth *mforwardauth.ForwardAuth `cfg:"forward_auth"`

	// AdminToken, if set, protects the administrative endpoints with
	// bearer token authentication.
	AdminToken string `cfg:"admin_token" log:"-"`
}

// Store selects the optional observation-buffer persistence backend
// (spec §6.4 "Persistence (optional)"). At most one of Postgres/SQLite
// should be set; neither set means persistence is disabled.
type Store struct {
	Postgres *StorePostgres `cfg:"postgres"`
	SQLite   *StoreSQLite   `cfg:"sqlite"`
}

type StorePostgres struct {
	TablePrefix     *string        `cfg:"table_prefix"`
	Datasource      string         `cfg:"datasource" log:"-"`
	Schema          string         `cfg:"schema"`
	ConnMaxLifetime *time.Duration `cfg:"conn_max_lifetime"`
	MaxIdleConns    *int           `cfg:"max_idle_conns"`
	MaxOpenConns    *int           `cfg:"max_open_conns"`
}

type StoreSQLite struct {
	TablePrefix *string `cfg:"table_prefix"`
	Datasource  string  `cfg:"datasource"`
}

// Load reads configuration from path using chu, applying the AT_-style
// environment override convention (renamed to this module's own
// prefix) and setting the process log level.
func Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config
	if err := chu.Load(ctx, path, &cfg, chu.WithLoaderOption(loaderenv.New(loaderenv.WithPrefix("DATAHUB_")))); err != nil {
		return nil, err
	}

	if err := logi.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("set log level %s: %w", cfg.LogLevel, err)
	}

	slog.Info("loaded configuration", "config", chu.MarshalMap(cfg))

	return &cfg, nil
}
