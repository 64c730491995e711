// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

const EnvPrefix = "LAUNCHPAD"

type Config struct {
	Log           LogConfig     `mapstructure:"log"`
	Storage       StorageConfig `mapstructure:"storage"`
	Engine        EngineConfig  `mapstructure:"engine"`
	Fees          FeesConfig    `mapstructure:"fees"`
	CurveDefaults CurveDefaults `mapstructure:"curve_defaults"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	MaxBackups  int    `mapstructure:"max_backups"`
	Compress    bool   `mapstructure:"compress"`
	Development bool   `mapstructure:"development"`
}

type StorageConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

type EngineConfig struct {
	ProgramID         string `mapstructure:"program_id"`
	PlatformAuthority string `mapstructure:"platform_authority"`
	EventBuffer       int    `mapstructure:"event_buffer"`
}

type FeeRow struct {
	PlatformBps  uint16   `mapstructure:"platform_bps"`
	CreatorBps   uint16   `mapstructure:"creator_bps"`
	AuxiliaryBps []uint16 `mapstructure:"auxiliary_bps"`
}

type FeesConfig struct {
	PreGraduationBuy   FeeRow `mapstructure:"pre_graduation_buy"`
	PostGraduationBuy  FeeRow `mapstructure:"post_graduation_buy"`
	PreGraduationSell  FeeRow `mapstructure:"pre_graduation_sell"`
	PostGraduationSell FeeRow `mapstructure:"post_graduation_sell"`
}

// CurveDefaults are the creation parameters the CLI uses when a scenario
// does not set its own. The engine itself has no defaults.
type CurveDefaults struct {
	VirtualSolReserves   uint64 `mapstructure:"virtual_sol_reserves"`
	VirtualTokenReserves uint64 `mapstructure:"virtual_token_reserves"`
	InitialSupply        uint64 `mapstructure:"initial_supply"`
	GraduationThreshold  uint64 `mapstructure:"graduation_threshold"`
}

const (
	DefaultLogFile              = "curvectl.log"
	DefaultStoragePath          = "data/audit"
	DefaultEventBuffer          = 1024
	DefaultVirtualSolReserves   = 30_000_000_000
	DefaultVirtualTokenReserves = 1_073_000_000_000_000
	DefaultInitialSupply        = 793_100_000_000_000
	DefaultGraduationThreshold  = 85_000_000_000
)

func defaults() map[string]interface{} {
	d := map[string]interface{}{
		"log.level":        "info",
		"log.file":         DefaultLogFile,
		"log.max_size_mb":  100,
		"log.max_age_days": 7,
		"log.max_backups":  3,
		"log.compress":     true,
		"log.development":  false,

		"storage.path":      DefaultStoragePath,
		"storage.in_memory": false,

		"engine.program_id":         curve.DefaultProgramID.String(),
		"engine.platform_authority": "",
		"engine.event_buffer":       DefaultEventBuffer,

		"curve_defaults.virtual_sol_reserves":   DefaultVirtualSolReserves,
		"curve_defaults.virtual_token_reserves": DefaultVirtualTokenReserves,
		"curve_defaults.initial_supply":         DefaultInitialSupply,
		"curve_defaults.graduation_threshold":   DefaultGraduationThreshold,
	}

	fees := curve.DefaultFeeSchedule()
	for name, r := range map[string]curve.FeeRates{
		"pre_graduation_buy":   fees.PreGraduationBuy,
		"post_graduation_buy":  fees.PostGraduationBuy,
		"pre_graduation_sell":  fees.PreGraduationSell,
		"post_graduation_sell": fees.PostGraduationSell,
	} {
		d["fees."+name+".platform_bps"] = r.PlatformBps
		d["fees."+name+".creator_bps"] = r.CreatorBps
		d["fees."+name+".auxiliary_bps"] = append([]uint16{}, r.AuxiliaryBps...)
	}
	return d
}

// Load reads the config file at path (JSON, YAML or TOML by extension) over
// the defaults. An empty path loads defaults and environment only.
// Environment variables use the LAUNCHPAD_ prefix with dots replaced by
// underscores, e.g. LAUNCHPAD_STORAGE_PATH.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if err := validateLog(&cfg.Log); err != nil {
		return err
	}
	if !cfg.Storage.InMemory && cfg.Storage.Path == "" {
		return errors.New("storage.path is required unless storage.in_memory is set")
	}
	if cfg.Engine.EventBuffer <= 0 {
		return errors.New("invalid engine.event_buffer")
	}
	if _, err := cfg.ProgramID(); err != nil {
		return err
	}
	if _, err := cfg.PlatformAuthority(); err != nil {
		return err
	}
	if err := cfg.FeeSchedule().Validate(); err != nil {
		return fmt.Errorf("invalid fees: %w", err)
	}
	return validateCurveDefaults(&cfg.CurveDefaults)
}

func validateLog(l *LogConfig) error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", l.Level)
	}
	if l.MaxSizeMB <= 0 {
		return errors.New("invalid log.max_size_mb")
	}
	if l.MaxAgeDays < 0 || l.MaxBackups < 0 {
		return errors.New("invalid log retention")
	}
	return nil
}

func validateCurveDefaults(d *CurveDefaults) error {
	switch {
	case d.VirtualSolReserves == 0:
		return errors.New("invalid curve_defaults.virtual_sol_reserves")
	case d.VirtualTokenReserves == 0:
		return errors.New("invalid curve_defaults.virtual_token_reserves")
	case d.InitialSupply == 0 || d.InitialSupply > d.VirtualTokenReserves:
		return errors.New("curve_defaults.initial_supply must be positive and at most virtual_token_reserves")
	case d.GraduationThreshold <= d.VirtualSolReserves:
		return errors.New("curve_defaults.graduation_threshold must exceed virtual_sol_reserves")
	}
	return nil
}

// ProgramID parses engine.program_id.
func (c *Config) ProgramID() (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(c.Engine.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid engine.program_id: %w", err)
	}
	return pk, nil
}

// PlatformAuthority parses engine.platform_authority. Empty means no
// authority: only creators can migrate.
func (c *Config) PlatformAuthority() (solana.PublicKey, error) {
	if c.Engine.PlatformAuthority == "" {
		return solana.PublicKey{}, nil
	}
	pk, err := solana.PublicKeyFromBase58(c.Engine.PlatformAuthority)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid engine.platform_authority: %w", err)
	}
	return pk, nil
}

// FeeSchedule converts the fees section.
func (c *Config) FeeSchedule() curve.FeeSchedule {
	return curve.FeeSchedule{
		PreGraduationBuy:   c.Fees.PreGraduationBuy.rates(),
		PostGraduationBuy:  c.Fees.PostGraduationBuy.rates(),
		PreGraduationSell:  c.Fees.PreGraduationSell.rates(),
		PostGraduationSell: c.Fees.PostGraduationSell.rates(),
	}
}

func (r FeeRow) rates() curve.FeeRates {
	return curve.FeeRates{
		PlatformBps:  r.PlatformBps,
		CreatorBps:   r.CreatorBps,
		AuxiliaryBps: append([]uint16(nil), r.AuxiliaryBps...),
	}
}
