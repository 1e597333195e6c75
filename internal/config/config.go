// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gonum.org/v1/gonum/spatial/r3"

	"lps/internal/position"
)

// Config is the full service configuration.
type Config struct {
	Anchors  AnchorConfig
	Broker   BrokerConfig
	PathLoss PathLossConfig
	Solver   string
	// MaxRangeAge rejects ranges older than this; zero disables the check.
	MaxRangeAge time.Duration
	Recorder    RecorderConfig
	MetricsAddr string
	Log         LogConfig
}

type AnchorConfig struct {
	D12, D13, D23 float64
	IDs           [3]string
	Offset        r3.Vec
}

type BrokerConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Topics         []string
	ConnectTimeout time.Duration
}

type PathLossConfig struct {
	TxPower  float64
	Exponent float64
}

type RecorderConfig struct {
	File     string
	Interval time.Duration
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Anchors: AnchorConfig{
			D12: 1, D13: 1, D23: 1,
			IDs: [3]string{"anchor_1", "anchor_2", "anchor_3"},
		},
		Broker: BrokerConfig{
			Broker:         "tcp://localhost:1883",
			ClientID:       "lps",
			Topics:         []string{"lps/ranges"},
			ConnectTimeout: 60 * time.Second,
		},
		PathLoss:    PathLossConfig{TxPower: -43.40, Exponent: 2.4},
		Solver:      position.SolverClosedForm,
		MaxRangeAge: 10 * time.Second,
		Recorder:    RecorderConfig{File: "data/positions.csv", Interval: 2 * time.Second},
		MetricsAddr: ":9102",
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads an optional .env file and then the process environment.
func Load(dotenv ...string) (Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from the variables returned by lookup.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	p := parser{lookup: lookup}

	p.float("LPS_ANCHOR_D12", &cfg.Anchors.D12)
	p.float("LPS_ANCHOR_D13", &cfg.Anchors.D13)
	p.float("LPS_ANCHOR_D23", &cfg.Anchors.D23)
	if raw, ok := lookup("LPS_ANCHOR_IDS"); ok && raw != "" {
		ids := splitList(raw)
		if len(ids) != 3 {
			p.fail("LPS_ANCHOR_IDS", fmt.Errorf("want 3 ids, got %d", len(ids)))
		} else {
			copy(cfg.Anchors.IDs[:], ids)
		}
	}
	if raw, ok := lookup("LPS_FRAME_OFFSET"); ok && raw != "" {
		v, err := ParseVec(raw)
		p.fail("LPS_FRAME_OFFSET", err)
		cfg.Anchors.Offset = v
	}

	// The broker address follows the compose layout: host plus internal port.
	if port, ok := lookup("MOSQUITTO_INTERNAL_PORT"); ok && port != "" {
		host := "mosquitto"
		if h, ok := lookup("MOSQUITTO_HOST"); ok && h != "" {
			host = h
		}
		cfg.Broker.Broker = "tcp://" + host + ":" + port
	}
	p.str("MOSQUITTO_BROKER", &cfg.Broker.Broker)
	p.str("MOSQUITTO_CLIENT_ID", &cfg.Broker.ClientID)
	p.str("MOSQUITTO_USER", &cfg.Broker.Username)
	p.str("MOSQUITTO_PASSWORD", &cfg.Broker.Password)
	if raw, ok := lookup("MOSQUITTO_TOPIC"); ok && raw != "" {
		cfg.Broker.Topics = splitList(raw)
	}
	p.duration("MOSQUITTO_CONNECT_TIMEOUT", &cfg.Broker.ConnectTimeout)

	p.float("LPS_TX_POWER", &cfg.PathLoss.TxPower)
	p.float("LPS_PATH_LOSS_EXPONENT", &cfg.PathLoss.Exponent)
	p.str("LPS_SOLVER", &cfg.Solver)
	p.duration("LPS_MAX_RANGE_AGE", &cfg.MaxRangeAge)
	p.str("LPS_RECORD_FILE", &cfg.Recorder.File)
	p.duration("LPS_RECORD_INTERVAL", &cfg.Recorder.Interval)
	p.str("LPS_METRICS_ADDR", &cfg.MetricsAddr)
	p.str("LOG_LEVEL", &cfg.Log.Level)
	p.str("LOG_FORMAT", &cfg.Log.Format)

	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	tri := position.Triangle{D12: c.Anchors.D12, D13: c.Anchors.D13, D23: c.Anchors.D23}
	if err := tri.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("anchors: %w", err))
	}
	seen := make(map[string]bool, 3)
	for i, id := range c.Anchors.IDs {
		if id == "" {
			errs = append(errs, fmt.Errorf("anchor %d: empty id", i+1))
		} else if seen[id] {
			errs = append(errs, fmt.Errorf("anchor %d: duplicate id %q", i+1, id))
		}
		seen[id] = true
	}
	switch c.Solver {
	case position.SolverClosedForm, position.SolverLeastSquares:
	default:
		errs = append(errs, fmt.Errorf("LPS_SOLVER: unknown solver %q", c.Solver))
	}
	if c.PathLoss.Exponent <= 0 {
		errs = append(errs, fmt.Errorf("LPS_PATH_LOSS_EXPONENT: must be positive, got %v", c.PathLoss.Exponent))
	}
	if c.Recorder.Interval <= 0 {
		errs = append(errs, fmt.Errorf("LPS_RECORD_INTERVAL: must be positive, got %s", c.Recorder.Interval))
	}
	if c.MaxRangeAge < 0 {
		errs = append(errs, fmt.Errorf("LPS_MAX_RANGE_AGE: must not be negative, got %s", c.MaxRangeAge))
	}
	return errors.Join(errs...)
}

// ParseVec parses "x,y,z" into a vector.
func ParseVec(raw string) (r3.Vec, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("want x,y,z, got %q", raw)
	}
	var c [3]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("component %d of %q: %w", i+1, raw, err)
		}
		c[i] = v
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) fail(key string, err error) {
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
	}
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.lookup(key); ok && v != "" {
		*dst = v
	}
}

func (p *parser) float(key string, dst *float64) {
	raw, ok := p.lookup(key)
	if !ok || raw == "" {
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = v
}

func (p *parser) duration(key string, dst *time.Duration) {
	raw, ok := p.lookup(key)
	if !ok || raw == "" {
		return
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
