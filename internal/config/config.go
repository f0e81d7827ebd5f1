package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rzbill/uid/internal/namespace"
	pebblestore "github.com/rzbill/uid/internal/storage/pebble"
	"github.com/rzbill/uid/pkg/log"
)

// Port bounds accepted for the binary protocol listener.
const (
	MinPort = 5000
	MaxPort = 65535
)

// DefaultPort is the binary protocol port used when none is configured.
const DefaultPort = 7321

// Position backends.
const (
	BackendFile   = "file"
	BackendPebble = "pebble"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Duration is a time.Duration that reads and writes as "30s" in JSON and YAML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Server configures one uid server process.
type Server struct {
	Namespace       string     `json:"namespace" yaml:"namespace"`
	Backend         string     `json:"backend" yaml:"backend"`
	PositionFile    string     `json:"positionFile" yaml:"positionFile"`
	DataDir         string     `json:"dataDir" yaml:"dataDir"`
	// Fsync is the pebble backend's WAL sync mode: always|interval|never.
	Fsync           string     `json:"fsync" yaml:"fsync"`
	IndexStart      uint64     `json:"indexStart" yaml:"indexStart"`
	IndexSize       uint64     `json:"indexSize" yaml:"indexSize"`
	MaxBlockSize    uint64     `json:"maxBlockSize" yaml:"maxBlockSize"`
	UpdateIncrement uint64     `json:"updateIncrement" yaml:"updateIncrement"`
	Host            string     `json:"host" yaml:"host"`
	Port            int        `json:"port" yaml:"port"`
	HTTPAddr        string     `json:"httpAddr" yaml:"httpAddr"`
	GRPCAddr        string     `json:"grpcAddr" yaml:"grpcAddr"`
	ReadTimeout     Duration   `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    Duration   `json:"writeTimeout" yaml:"writeTimeout"`
	Log             log.Config `json:"log" yaml:"log"`
}

// Client configures the client library and CLI.
type Client struct {
	PrimaryHost  string   `json:"primaryHost" yaml:"primaryHost"`
	PrimaryPort  int      `json:"primaryPort" yaml:"primaryPort"`
	FailsafeHost string   `json:"failsafeHost" yaml:"failsafeHost"`
	FailsafePort int      `json:"failsafePort" yaml:"failsafePort"`
	Timeout      Duration `json:"timeout" yaml:"timeout"`
	BlockSize    uint64   `json:"blockSize" yaml:"blockSize"`
	// HTTPServers is a comma-separated list of base URLs. When set, the
	// HTTP block endpoint is used instead of the binary protocol.
	HTTPServers string `json:"httpServers" yaml:"httpServers"`
	Namespace   string `json:"namespace" yaml:"namespace"`
}

// File is the on-disk layout: one section per role.
type File struct {
	Server Server `json:"server" yaml:"server"`
	Client Client `json:"client" yaml:"client"`
}

// DefaultServer returns built-in server defaults. The range itself has no
// default: IndexSize and MaxBlockSize must be configured.
func DefaultServer() Server {
	return Server{
		Namespace:       namespace.DefaultName,
		Backend:         BackendFile,
		Fsync:           "always",
		IndexStart:      1,
		UpdateIncrement: 1000,
		Port:            DefaultPort,
		ReadTimeout:     Duration(30 * time.Second),
		WriteTimeout:    Duration(30 * time.Second),
		Log:             log.Config{Level: "info", Format: "text"},
	}
}

// DefaultClient returns built-in client defaults.
func DefaultClient() Client {
	return Client{
		PrimaryHost: "localhost",
		PrimaryPort: DefaultPort,
		Timeout:     Duration(30 * time.Second),
		BlockSize:   1000,
		Namespace:   namespace.DefaultName,
	}
}

// Default returns both sections with defaults.
func Default() File {
	return File{Server: DefaultServer(), Client: DefaultClient()}
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// the defaults. If path is empty, returns defaults.
func Load(path string) (File, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return File{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return File{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// End is one past the last id of the range.
func (s Server) End() uint64 { return s.IndexStart + s.IndexSize }

// ListenAddr is the binary protocol listen address.
func (s Server) ListenAddr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Validate checks the server section.
func (s Server) Validate() error {
	var problems []string
	if err := validPort(s.Port); err != nil {
		problems = append(problems, err.Error())
	}
	if s.IndexSize == 0 {
		problems = append(problems, "indexSize must be positive")
	} else if s.IndexStart > math.MaxUint64-s.IndexSize {
		problems = append(problems, "indexStart+indexSize overflows uint64")
	}
	if s.MaxBlockSize == 0 {
		problems = append(problems, "maxBlockSize must be positive")
	} else if s.IndexSize != 0 && s.MaxBlockSize > s.IndexSize {
		problems = append(problems, "maxBlockSize exceeds indexSize")
	}
	switch s.Backend {
	case BackendFile:
		if s.PositionFile == "" {
			problems = append(problems, "positionFile is required for the file backend")
		}
	case BackendPebble:
		if s.DataDir == "" {
			problems = append(problems, "dataDir is required for the pebble backend")
		}
		if _, err := pebblestore.ParseFsyncMode(s.Fsync); err != nil {
			problems = append(problems, err.Error())
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown backend %q", s.Backend))
	}
	if v, err := namespace.NewValidator(""); err == nil {
		if err := v.Validate(s.Namespace); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w server config: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// PrimaryAddr is host:port of the primary server.
func (c Client) PrimaryAddr() string {
	return net.JoinHostPort(c.PrimaryHost, strconv.Itoa(c.PrimaryPort))
}

// FailsafeAddr is host:port of the failsafe server, or "" when none is set.
func (c Client) FailsafeAddr() string {
	if c.FailsafeHost == "" {
		return ""
	}
	return net.JoinHostPort(c.FailsafeHost, strconv.Itoa(c.FailsafePort))
}

// Validate checks the client section.
func (c Client) Validate() error {
	var problems []string
	if c.HTTPServers == "" {
		if c.PrimaryHost == "" {
			problems = append(problems, "primary host is required")
		}
		if err := validPort(c.PrimaryPort); err != nil {
			problems = append(problems, "primary "+err.Error())
		}
		if c.FailsafeHost != "" {
			if err := validPort(c.FailsafePort); err != nil {
				problems = append(problems, "failsafe "+err.Error())
			}
		}
	}
	if c.BlockSize == 0 {
		problems = append(problems, "blockSize must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w client config: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func validPort(p int) error {
	if p < MinPort || p > MaxPort {
		return fmt.Errorf("port %d outside %d..%d", p, MinPort, MaxPort)
	}
	return nil
}
