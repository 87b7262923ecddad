package config

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/robo-console/pkg/console"
	"github.com/robotalks/robo-console/pkg/link"
)

// Config provides options shared by the device emulator and the operator
// shell.
type Config struct {
	// Link is the device link URL, e.g. tcp://host:port, ws://host:port/console,
	// serial:/dev/ttyUSB0 or stdio:.
	Link string `yaml:"link"`
	// DeviceID names the device in telemetry topics.
	DeviceID string `yaml:"id"`
	// MQTTURL enables telemetry when set, e.g. mqtt://host:port/topic-prefix.
	MQTTURL string `yaml:"mqtt"`

	HeartbeatMs  int           `yaml:"heartbeat"`
	LineCapacity int           `yaml:"line-cap"`
	Banner       string        `yaml:"banner"`
	Idle         time.Duration `yaml:"idle"`
	Baud         int           `yaml:"baud"`

	// File is the YAML file loaded by Load.
	File string `yaml:"-"`
}

// baseConfig holds built-in defaults adjusted by the environment.
var baseConfig = Config{
	Link:         "tcp://127.0.0.1:7023",
	HeartbeatMs:  int(console.DefaultPeriod),
	LineCapacity: console.DefaultCapacity,
	Banner:       console.DefaultBanner,
	Baud:         link.DefaultBaud,
}

var defaultConfig Config

func init() {
	if val := os.Getenv("CONSOLE_LINK"); val != "" {
		baseConfig.Link = val
	}
	if val := os.Getenv("CONSOLE_MQTT_URL"); val != "" {
		baseConfig.MQTTURL = val
	}
	if val := os.Getenv("CONSOLE_CONFIG"); val != "" {
		baseConfig.File = val
	}
	if val := os.Getenv("CONSOLE_ID"); val != "" {
		baseConfig.DeviceID = val
	} else {
		baseConfig.DeviceID = MachineID()
	}
	defaultConfig = baseConfig
}

// MachineID returns an application specific ID of this machine, falling
// back to the host name.
func MachineID() string {
	if id, err := machineid.ProtectedID("robo-console"); err == nil {
		return id[:12]
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "console"
}

// SetupFlags sets command line flags.
func SetupFlags() {
	setupFlags(flag.CommandLine, &defaultConfig)
}

func setupFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.Link, "link", c.Link, "Device link URL")
	fs.StringVar(&c.DeviceID, "id", c.DeviceID, "Device ID")
	fs.StringVar(&c.MQTTURL, "mqtt", c.MQTTURL, "MQTT broker URL for telemetry")
	fs.IntVar(&c.HeartbeatMs, "heartbeat", c.HeartbeatMs, "Heartbeat period in milliseconds")
	fs.IntVar(&c.LineCapacity, "line-cap", c.LineCapacity, "Line buffer capacity")
	fs.StringVar(&c.Banner, "banner", c.Banner, "Boot banner")
	fs.DurationVar(&c.Idle, "idle", c.Idle, "Sleep between idle polls")
	fs.IntVar(&c.Baud, "baud", c.Baud, "Serial baud rate")
	fs.StringVar(&c.File, "config", c.File, "YAML config file")
}

// copies a flag value from src to dst.
var flagFields = map[string]func(dst, src *Config){
	"link":      func(dst, src *Config) { dst.Link = src.Link },
	"id":        func(dst, src *Config) { dst.DeviceID = src.DeviceID },
	"mqtt":      func(dst, src *Config) { dst.MQTTURL = src.MQTTURL },
	"heartbeat": func(dst, src *Config) { dst.HeartbeatMs = src.HeartbeatMs },
	"line-cap":  func(dst, src *Config) { dst.LineCapacity = src.LineCapacity },
	"banner":    func(dst, src *Config) { dst.Banner = src.Banner },
	"idle":      func(dst, src *Config) { dst.Idle = src.Idle },
	"baud":      func(dst, src *Config) { dst.Baud = src.Baud },
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile overrides c with the values present in a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %v", path, err)
	}
	return nil
}

// Load builds the effective config after flags are parsed: defaults, then
// the config file, then the flags explicitly set on fs.
func Load(fs *flag.FlagSet) (*Config, error) {
	return load(fs, baseConfig, defaultConfig)
}

func load(fs *flag.FlagSet, base, flagged Config) (*Config, error) {
	if flagged.File == "" {
		return &flagged, flagged.Validate()
	}
	conf := base
	conf.File = flagged.File
	if err := conf.LoadFile(conf.File); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if fn := flagFields[f.Name]; fn != nil {
			fn(&conf, &flagged)
		}
	})
	return &conf, conf.Validate()
}

// MustLoad is Load and fails on error.
func MustLoad() *Config {
	conf, err := Load(flag.CommandLine)
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

// MaxLineCapacity bounds LineCapacity.
const MaxLineCapacity = 4096

// Validate checks the values are usable.
func (c *Config) Validate() error {
	switch {
	case c.Link == "":
		return fmt.Errorf("link must be specified")
	case c.HeartbeatMs <= 0 || int64(c.HeartbeatMs) > math.MaxUint32:
		return fmt.Errorf("invalid heartbeat period %d", c.HeartbeatMs)
	case c.LineCapacity < 2 || c.LineCapacity > MaxLineCapacity:
		return fmt.Errorf("line capacity %d out of range [2, %d]", c.LineCapacity, MaxLineCapacity)
	case c.Idle < 0:
		return fmt.Errorf("negative idle %v", c.Idle)
	case c.Baud <= 0:
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	return nil
}

// ConsoleOptions returns the options for each console session.
func (c *Config) ConsoleOptions() console.Options {
	return console.Options{
		Capacity: c.LineCapacity,
		Period:   uint32(c.HeartbeatMs),
		Banner:   c.Banner,
		Idle:     c.Idle,
	}
}

// LinkOptions returns the options to open the link.
func (c *Config) LinkOptions() link.Options {
	return link.Options{Baud: c.Baud}
}

// Meta describes the device for telemetry.
func (c *Config) Meta() map[string]string {
	return map[string]string{
		"link":      c.Link,
		"heartbeat": fmt.Sprintf("%dms", c.HeartbeatMs),
		"banner":    c.Banner,
	}
}
