// Package fwdcfg loads the bridge configuration from an optional YAML file.
// Command line flags that were set explicitly are applied on top by the
// command layer, so a file can hold the site defaults and a flag can still
// override any one of them.
package fwdcfg

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/txn2/keybusfwd/pkg/fwdbridge"
	"github.com/txn2/keybusfwd/pkg/fwdcapture"
	"github.com/txn2/keybusfwd/pkg/fwdkeybus"
	"github.com/txn2/keybusfwd/pkg/fwdsession"
)

// DefaultListen is the telnet listen address
const DefaultListen = ":2323"

// Config is everything keybusfwd bridge can be told
type Config struct {
	Listen       string            `yaml:"listen"`
	Greeting     string            `yaml:"greeting"`
	PollInterval time.Duration     `yaml:"pollInterval"`
	WriteTimeout time.Duration     `yaml:"writeTimeout"`
	QueueSize    int               `yaml:"queueSize"`
	Decoder      fwdkeybus.Options `yaml:"decoder"`
	Capture      CaptureConfig     `yaml:"capture"`
	API          APIConfig         `yaml:"api"`
	TUI          bool              `yaml:"tui"`
	Verbose      bool              `yaml:"verbose"`
}

// CaptureConfig selects the replay source and recording target
type CaptureConfig struct {
	Replay string `yaml:"replay"`
	Record string `yaml:"record"`
	Loop   bool   `yaml:"loop"`
}

// APIConfig controls the REST API
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Listen:       DefaultListen,
		Greeting:     fwdbridge.DefaultGreeting,
		PollInterval: fwdbridge.DefaultPollInterval,
		WriteTimeout: fwdsession.DefaultWriteTimeout,
		QueueSize:    fwdcapture.DefaultQueueSize,
		API: APIConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()

	dat, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "unable to read config %s", path)
	}
	if err := yaml.UnmarshalStrict(dat, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "unable to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly
func (c Config) Validate() error {
	if err := validAddr("listen", c.Listen); err != nil {
		return err
	}
	if c.API.Enabled {
		if err := validAddr("api.addr", c.API.Addr); err != nil {
			return err
		}
	}
	if c.PollInterval < 0 {
		return errors.Errorf("pollInterval must not be negative, got %s", c.PollInterval)
	}
	if c.WriteTimeout <= 0 {
		return errors.Errorf("writeTimeout must be positive, got %s", c.WriteTimeout)
	}
	if c.QueueSize <= 0 {
		return errors.Errorf("queueSize must be positive, got %d", c.QueueSize)
	}
	if c.Capture.Loop && c.Capture.Replay == "" {
		return errors.New("capture.loop needs capture.replay")
	}
	if c.Capture.Record != "" && c.Capture.Record == c.Capture.Replay {
		return errors.New("capture.record and capture.replay must differ")
	}
	return nil
}

func validAddr(field, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.Wrapf(err, "%s", field)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return errors.Errorf("%s: bad port %q", field, port)
	}
	return nil
}
