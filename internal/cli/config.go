package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const (
	maxWalkDepth = 25
	envPrefix    = "ENVGEN"
)

// configNames are tried in order in every directory during discovery.
var configNames = []string{"envgen.yaml", "envgen.yml"}

// Config represents the envgen configuration from envgen.yaml.
type Config struct {
	// Declaration is the default declaration file.
	Declaration string `mapstructure:"declaration" json:"declaration"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database" json:"database"`

	// Per-command configuration
	Generate GenerateConfig `mapstructure:"generate" json:"generate"`
	Migrate  MigrateConfig  `mapstructure:"migrate" json:"migrate"`
	Doctor   DoctorConfig   `mapstructure:"doctor" json:"doctor"`

	Log LogConfig `mapstructure:"log" json:"log"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL      string `mapstructure:"url" json:"url"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Name     string `mapstructure:"name" json:"name"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`
}

// GenerateConfig holds code generation settings. The list fields take the
// same "service.KEY" references as the matching generate flags.
type GenerateConfig struct {
	Target   string   `mapstructure:"target" json:"target"`
	Output   string   `mapstructure:"output" json:"output"`
	Package  string   `mapstructure:"package" json:"package"`
	Services []string `mapstructure:"services" json:"services"`
	Exclude  []string `mapstructure:"exclude" json:"exclude"`
	Optional []string `mapstructure:"optional" json:"optional"`
	Require  []string `mapstructure:"require" json:"require"`
}

// MigrateConfig holds migration settings.
type MigrateConfig struct {
	DryRun bool `mapstructure:"dry_run" json:"dry_run"`
	Force  bool `mapstructure:"force" json:"force"`
}

// DoctorConfig holds doctor command settings.
type DoctorConfig struct {
	Verbose bool `mapstructure:"verbose" json:"verbose"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	JSON  bool   `mapstructure:"json" json:"json"`
	Level string `mapstructure:"level" json:"level"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Set up environment variable binding
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Find and load config file
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, errors.Wrap(err, "reading config file")
		}
	}

	// 4. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, errors.Wrap(err, "unmarshaling config")
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("declaration", "services.yaml")

	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "prefer")

	// Generate defaults
	v.SetDefault("generate.target", "")
	v.SetDefault("generate.output", "")
	v.SetDefault("generate.package", "config")
	v.SetDefault("generate.services", []string{})
	v.SetDefault("generate.exclude", []string{})
	v.SetDefault("generate.optional", []string{})
	v.SetDefault("generate.require", []string{})

	// Migrate defaults
	v.SetDefault("migrate.dry_run", false)
	v.SetDefault("migrate.force", false)

	// Doctor defaults
	v.SetDefault("doctor.verbose", false)

	// Log defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for envgen.yaml or envgen.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", errors.Newf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "getting cwd")
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Check for repo boundary (.git file or directory)
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

// HasDatabase reports whether any database connection setting is present.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != "" || c.Database.Host != ""
}

// DSN returns the database connection string.
// If database.url is set, it's returned directly.
// Otherwise, builds a DSN from discrete fields.
func (c *Config) DSN() (string, error) {
	db := c.Database

	if db.URL != "" {
		return db.URL, nil
	}

	if db.Host == "" {
		return "", errors.WithHint(
			errors.New("database.host is required when database.url is not set"),
			"set database.url in envgen.yaml or ENVGEN_DATABASE_URL",
		)
	}
	if db.Name == "" {
		return "", errors.New("database.name is required when database.url is not set")
	}
	if db.User == "" {
		return "", errors.New("database.user is required when database.url is not set")
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   "/" + db.Name,
	}

	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	} else {
		u.User = url.User(db.User)
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Redacted returns a copy safe to print: the database password and any
// password embedded in database.url are masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = "********"
	}
	if u, err := url.Parse(out.Database.URL); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "********")
			out.Database.URL = u.String()
		}
	}
	return &out
}

// ResolvedDeclaration returns the declaration path to use, with an explicit
// flag value taking precedence over the configured one.
func (c *Config) ResolvedDeclaration(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return c.Declaration
}
