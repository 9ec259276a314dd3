// Package config loads the TOML configuration from its search path and
// expands it into the per-cycle work matrix.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/mkowalski/repochecker/internal/model"
)

const fileName = "repochecker"

// SearchPath mirrors the teacher's layered config lookup and the original
// tool's three-location search order: working directory first, then the
// site-wide and vendor-default locations.
var SearchPath = []string{".", "/etc/repochecker", "/usr/share/repochecker"}

// Config is the decoded shape of repochecker.toml.
type Config struct {
	RepoChecker RepoCheckerConfig `mapstructure:"repochecker" toml:"repochecker" validate:"required"`
	Repos       ReposConfig       `mapstructure:"repos" toml:"repos" validate:"required"`
	Arches      []ArchConfig      `mapstructure:"arch" toml:"arch" validate:"required,min=1,dive"`
	Releases    []ReleaseConfig   `mapstructure:"release" toml:"release" validate:"required,min=1,dive"`
	Mirror      MirrorConfig      `mapstructure:"mirror" toml:"mirror"`
	Counter     CounterConfig     `mapstructure:"counter" toml:"counter"`
	Maintainers MaintainersConfig `mapstructure:"maintainers" toml:"maintainers" validate:"required"`
	Log         LogConfig         `mapstructure:"log" toml:"log"`
}

// MaintainersConfig points at the two remote admin/maintainer documents.
type MaintainersConfig struct {
	AdminURL  string  `mapstructure:"admin_url" toml:"admin_url" validate:"required,url"`
	RosterURL string  `mapstructure:"roster_url" toml:"roster_url" validate:"required,url"`
	Timeout   float64 `mapstructure:"timeout" toml:"timeout"`
}

// RepoCheckerConfig holds the top-level daemon settings.
type RepoCheckerConfig struct {
	Interval float64 `mapstructure:"interval" toml:"interval" validate:"gt=0"`
}

// ReposConfig names the four repository-set roles referenced by release type.
type ReposConfig struct {
	Stable  []string `mapstructure:"stable" toml:"stable"`
	Updates []string `mapstructure:"updates" toml:"updates"`
	Testing []string `mapstructure:"testing" toml:"testing"`
	Rawhide []string `mapstructure:"rawhide" toml:"rawhide"`
}

// ArchConfig declares an architecture and the secondary architectures whose
// binaries install alongside it.
type ArchConfig struct {
	Name      string   `mapstructure:"name" toml:"name" validate:"required"`
	MultiArch []string `mapstructure:"multiarch" toml:"multiarch"`
}

// ReleaseType is one of the three release lifecycle stages.
type ReleaseType string

const (
	ReleaseRawhide    ReleaseType = "rawhide"
	ReleasePreRelease ReleaseType = "prerelease"
	ReleaseStable     ReleaseType = "stable"
)

// ReleaseConfig declares one release subject to auditing.
type ReleaseConfig struct {
	Name     string      `mapstructure:"name" toml:"name" validate:"required"`
	Type     ReleaseType `mapstructure:"type" toml:"type" validate:"required,oneof=rawhide prerelease stable"`
	Arches   []string    `mapstructure:"arches" toml:"arches" validate:"required,min=1"`
	Archived bool        `mapstructure:"archived" toml:"archived"`
}

// MirrorConfig selects the optional secondary snapshot mirror.
type MirrorConfig struct {
	Backend string `mapstructure:"backend" toml:"backend" validate:"omitempty,oneof=none postgres sqlite"`
	DSN     string `mapstructure:"dsn" toml:"dsn"`
}

// CounterConfig selects the override hit-counter backend.
type CounterConfig struct {
	Backend   string `mapstructure:"backend" toml:"backend" validate:"omitempty,oneof=memory redis"`
	RedisAddr string `mapstructure:"redis_addr" toml:"redis_addr"`
}

// LogConfig matches the teacher's ambient logging knobs.
type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format" validate:"omitempty,oneof=json text"`
	Output string `mapstructure:"output" toml:"output" validate:"omitempty,oneof=stdout stderr file"`
}

var validate = validator.New()

// Load finds and decodes the configuration from SearchPath, applying
// environment overrides and validating the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(fileName)
	v.SetConfigType("toml")
	for _, dir := range SearchPath {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("REPOCHECKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: no configuration file found in search path %v: %w", SearchPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", v.ConfigFileUsed(), err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("mirror.backend", "none")
	v.SetDefault("counter.backend", "memory")
}

// ToMatrix expands the configuration into the per-cycle work matrix: one
// entry per (release, repository-set, with_testing) combination, grounded on
// the original release-type-to-repository-set rules — rawhide releases
// check only the rawhide set, pre-releases check only stable, and stable
// releases produce two entries: a stable+updates one and a `-testing` one whose
// check set is the testing repos alone but whose install set is the union
// of stable, updates, and testing.
func (c *Config) ToMatrix() ([]model.MatrixEntry, error) {
	var matrix []model.MatrixEntry

	archByName := make(map[string]ArchConfig, len(c.Arches))
	for _, a := range c.Arches {
		archByName[a.Name] = a
	}

	for _, release := range c.Releases {
		arches := make([]model.Arch, 0, len(release.Arches))
		for _, name := range release.Arches {
			a, ok := archByName[name]
			if !ok {
				return nil, fmt.Errorf("config: no multiarch configuration for %s/%s", release.Name, name)
			}
			arches = append(arches, model.Arch{Name: a.Name, MultiArch: a.MultiArch})
		}

		for _, repos := range c.repoSetsFor(release) {
			matrix = append(matrix, model.MatrixEntry{
				Release:     release.Name,
				Arches:      arches,
				Repos:       repos.repos,
				Check:       repos.check,
				WithTesting: repos.withTesting,
				Archived:    release.Archived,
			})
		}
	}

	return matrix, nil
}

type repoSet struct {
	repos       []string
	check       []string
	withTesting bool
}

func (c *Config) repoSetsFor(release ReleaseConfig) []repoSet {
	switch release.Type {
	case ReleaseRawhide:
		return []repoSet{{repos: c.Repos.Rawhide, check: c.Repos.Rawhide}}

	case ReleasePreRelease:
		return []repoSet{{repos: c.Repos.Stable, check: c.Repos.Stable}}

	case ReleaseStable:
		stable := concat(c.Repos.Stable, c.Repos.Updates)
		testing := concat(stable, c.Repos.Testing)
		return []repoSet{
			{repos: stable, check: stable},
			{repos: testing, check: c.Repos.Testing, withTesting: true},
		}

	default:
		return nil
	}
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
