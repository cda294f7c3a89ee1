// config loads webctl's settings. Sources, lowest precedence first: built-in
// defaults, the YAML config file, the environment. Command-line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/webctl/internal/bootstrap"
	"github.com/chainguard-dev/webctl/internal/ec2"
	"github.com/chainguard-dev/webctl/internal/remote"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables read by 'Load'.
const (
	EnvConfig        = "WEBCTL_CONFIG"
	EnvLogDir        = "WEBCTL_LOG_DIR"
	EnvRegion        = "AWS_REGION"
	EnvGroup         = "GROUP"
	EnvKeyName       = "KEYNAME"
	EnvSecurityGroup = "SECURITYGROUP"
	EnvKeyDir        = "KEYDIR"
)

var ErrInvalid = fmt.Errorf("invalid configuration")

// Config holds the settings shared by webctl's commands.
type Config struct {
	// Region is the AWS region. Empty defers to the AWS shared config.
	Region string `yaml:"region"`

	// LogDir holds the rotated log files. default: ~/.webctl/logs
	LogDir string `yaml:"log_dir"`

	// Group is the default 'Group' tag of created and destroyed instances.
	Group   string `yaml:"group"`
	KeyName string `yaml:"key_name"`
	// KeyDir holds '<KeyName>.pem' private keys. default: ~/.ssh
	KeyDir         string   `yaml:"key_dir"`
	SecurityGroups []string `yaml:"security_groups" validate:"dive,required"`

	ImageID      string `yaml:"image" validate:"omitempty,startswith=ami-"`
	InstanceType string `yaml:"instance_type"`

	// User is the SSH login user. default: ec2-user
	User string `yaml:"user"`
	// Script is the local web server check script.
	Script string `yaml:"script"`
	// Retries is the bootstrap budget.
	Retries int `yaml:"retries" validate:"gte=0,lte=100"`
}

// DefaultPath is the config file read when neither '--config' nor
// WEBCTL_CONFIG name one.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "webctl", "config.yaml")
}

// Load reads the config file at 'path' (or WEBCTL_CONFIG, or 'DefaultPath'),
// overlays the environment read through 'getenv' and applies defaults. A
// missing file is an error only when it was named explicitly.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	explicit := true
	if path == "" {
		path = getenv(EnvConfig)
	}
	if path == "" {
		path, explicit = DefaultPath(), false
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
			}
		}
	}

	cfg.applyEnv(getenv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	for env, field := range map[string]*string{
		EnvLogDir:  &c.LogDir,
		EnvRegion:  &c.Region,
		EnvGroup:   &c.Group,
		EnvKeyName: &c.KeyName,
		EnvKeyDir:  &c.KeyDir,
	} {
		if v := getenv(env); v != "" {
			*field = v
		}
	}
	if v := getenv(EnvSecurityGroup); v != "" {
		c.SecurityGroups = SplitList(v)
	}
}

func (c *Config) applyDefaults() {
	home, _ := os.UserHomeDir()
	if c.LogDir == "" && home != "" {
		c.LogDir = filepath.Join(home, ".webctl", "logs")
	}
	if c.KeyDir == "" && home != "" {
		c.KeyDir = filepath.Join(home, ".ssh")
	}
	if c.ImageID == "" {
		c.ImageID = ec2.DefaultImageID
	}
	if c.InstanceType == "" {
		c.InstanceType = string(ec2.DefaultInstanceType)
	}
	if c.User == "" {
		c.User = remote.DefaultUser
	}
	if c.Script == "" {
		c.Script = bootstrap.DefaultScript
	}
	if c.Retries == 0 {
		c.Retries = bootstrap.DefaultBudget
	}
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// SplitList splits a comma-separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
