package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/telesales-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	App       AppConfig              `yaml:"app" mapstructure:"app"`
	Rules     RulesConfig            `yaml:"rules" mapstructure:"rules"`
	Tier      TierConfig             `yaml:"tier" mapstructure:"tier"`
	Windows   []model.Window         `yaml:"windows" mapstructure:"windows"`
	Sources   []SourceConfig         `yaml:"sources" mapstructure:"sources"`
	Callers   []model.Caller         `yaml:"callers" mapstructure:"callers"`
	Blacklist []model.BlacklistEntry `yaml:"blacklist" mapstructure:"blacklist"`
	Holidays  []string               `yaml:"holidays" mapstructure:"holidays"` // YYYY-MM-DD
	Store     StoreConfig            `yaml:"store" mapstructure:"store"`
	Loader    LoaderConfig           `yaml:"loader" mapstructure:"loader"`
	Output    OutputConfig           `yaml:"output" mapstructure:"output"`
	Notify    NotifyConfig           `yaml:"notify" mapstructure:"notify"`
	Log       LogConfig              `yaml:"log" mapstructure:"log"`
}

// AppConfig configures run behavior.
type AppConfig struct {
	Timezone        string `yaml:"timezone" mapstructure:"timezone"`
	PerCallerTarget int    `yaml:"per_caller_target" mapstructure:"per_caller_target"`
	IncludeWeekends bool   `yaml:"include_weekends" mapstructure:"include_weekends"`
}

// Location resolves the configured timezone.
func (a AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "config: load timezone %q", a.Timezone)
	}
	return loc, nil
}

// RulesConfig toggles the eligibility filter rules. Disabling a rule removes
// it from the sequence entirely; it contributes zero drops.
type RulesConfig struct {
	DropBlacklist           bool `yaml:"drop_blacklist" mapstructure:"drop_blacklist"`
	DropCompiledToday       bool `yaml:"drop_compiled_today" mapstructure:"drop_compiled_today"`
	DropRedeemedToday       bool `yaml:"drop_redeemed_today" mapstructure:"drop_redeemed_today"`
	DropUnreachableRepeat   bool `yaml:"drop_unreachable_repeat" mapstructure:"drop_unreachable_repeat"`
	UnreachableMinCount     int  `yaml:"unreachable_min_count" mapstructure:"unreachable_min_count"`
	DropAnsweredThisMonth   bool `yaml:"drop_answered_this_month" mapstructure:"drop_answered_this_month"`
	DropNotInterestedMonth  bool `yaml:"drop_not_interested_this_month" mapstructure:"drop_not_interested_this_month"`
	DropInvalidNumber       bool `yaml:"drop_invalid_number" mapstructure:"drop_invalid_number"`
	DropNotOwnerAsBlacklist bool `yaml:"drop_not_owner_as_blacklist" mapstructure:"drop_not_owner_as_blacklist"`
	MinPhoneDigits          int  `yaml:"min_phone_digits" mapstructure:"min_phone_digits"`
}

// TierConfig configures the High-Value tier split.
type TierConfig struct {
	TopupThreshold float64 `yaml:"topup_threshold" mapstructure:"topup_threshold"`
	TierPrefix     string  `yaml:"tier_prefix" mapstructure:"tier_prefix"`
}

// SourceConfig enables a source and sets its target mix fraction.
type SourceConfig struct {
	Key       model.SourceKey `yaml:"key" mapstructure:"key"`
	Enabled   bool            `yaml:"enabled" mapstructure:"enabled"`
	MixWeight float64         `yaml:"mix_weight" mapstructure:"mix_weight"`
}

// EnabledSources returns the keys of enabled sources in declaration order.
func (c *Config) EnabledSources() []model.SourceKey {
	var out []model.SourceKey
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s.Key)
		}
	}
	return out
}

// RawMixWeights returns the configured weight per enabled source, as-is.
// Normalization and invalid-entry fallback happen in the allocation engine.
func (c *Config) RawMixWeights() map[model.SourceKey]float64 {
	out := make(map[model.SourceKey]float64)
	for _, s := range c.Sources {
		if s.Enabled {
			out[s.Key] = s.MixWeight
		}
	}
	return out
}

// StoreConfig configures the history database backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// LoaderConfig configures candidate pool loading.
type LoaderConfig struct {
	Mode                  string `yaml:"mode" mapstructure:"mode"` // "mock" or "postgres"
	PCDatabaseURL         string `yaml:"pc_database_url" mapstructure:"pc_database_url"`
	MobileDatabaseURL     string `yaml:"mobile_database_url" mapstructure:"mobile_database_url"`
	RedemptionDatabaseURL string `yaml:"redemption_database_url" mapstructure:"redemption_database_url"`
	RedemptionTimeColumn  string `yaml:"redemption_time_column" mapstructure:"redemption_time_column"`
	MockSeed              int64  `yaml:"mock_seed" mapstructure:"mock_seed"`
	MockPoolSize          int    `yaml:"mock_pool_size" mapstructure:"mock_pool_size"`
}

// OutputConfig configures the monthly workbook sink.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// NotifyConfig holds the per-tier Discord webhooks.
type NotifyConfig struct {
	WebhookHighValue string `yaml:"webhook_high_value" mapstructure:"webhook_high_value"`
	WebhookGeneral   string `yaml:"webhook_general" mapstructure:"webhook_general"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PerMinute        int    `yaml:"per_minute" mapstructure:"per_minute"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TELESALES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("app.timezone", "Asia/Bangkok")
	v.SetDefault("app.per_caller_target", 80)
	v.SetDefault("app.include_weekends", false)
	v.SetDefault("rules.drop_blacklist", true)
	v.SetDefault("rules.drop_compiled_today", true)
	v.SetDefault("rules.drop_redeemed_today", true)
	v.SetDefault("rules.drop_unreachable_repeat", true)
	v.SetDefault("rules.unreachable_min_count", 2)
	v.SetDefault("rules.drop_answered_this_month", true)
	v.SetDefault("rules.drop_not_interested_this_month", true)
	v.SetDefault("rules.drop_invalid_number", true)
	v.SetDefault("rules.drop_not_owner_as_blacklist", true)
	v.SetDefault("rules.min_phone_digits", 9)
	v.SetDefault("tier.topup_threshold", 100000)
	v.SetDefault("tier.tier_prefix", "A-")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "telesales.db")
	v.SetDefault("loader.mode", "mock")
	v.SetDefault("loader.redemption_time_column", "created_at")
	v.SetDefault("loader.mock_seed", 12345)
	v.SetDefault("loader.mock_pool_size", 40)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.prefix", "CBTH")
	v.SetDefault("notify.timeout_secs", 10)
	v.SetDefault("notify.per_minute", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Windows) == 0 {
		cfg.Windows = model.DefaultWindows()
	}
	if len(cfg.Sources) == 0 {
		for _, key := range model.Sources {
			cfg.Sources = append(cfg.Sources, SourceConfig{Key: key, Enabled: true, MixWeight: 0.5})
		}
	}
	cfg.Rules.UnreachableMinCount = clamp(cfg.Rules.UnreachableMinCount, 1, 10)
	if cfg.Output.Prefix == "" {
		cfg.Output.Prefix = "CBTH"
	}
}

// Validate surfaces configuration errors before any output is produced.
// Data-shape problems elsewhere degrade; these abort the run.
func (c *Config) Validate() error {
	if _, err := c.App.Location(); err != nil {
		return err
	}
	seen := make(map[int]string, len(c.Windows))
	for _, w := range c.Windows {
		if w.Label == "" {
			return eris.New("config: window with empty label")
		}
		if w.DayMin < 0 {
			return eris.Errorf("config: window %q has negative day_min", w.Label)
		}
		if w.DayMax != nil && *w.DayMax < w.DayMin {
			return eris.Errorf("config: window %q has day_max < day_min", w.Label)
		}
		if prev, dup := seen[w.Priority]; dup {
			return eris.Errorf("config: windows %q and %q share priority %d", prev, w.Label, w.Priority)
		}
		seen[w.Priority] = w.Label
	}
	for _, h := range c.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return eris.Wrapf(err, "config: parse holiday %q", h)
		}
	}
	return nil
}

// HolidayDates parses the configured holidays in the app timezone.
// Call after Validate; malformed entries are a configuration error there.
func (c *Config) HolidayDates(loc *time.Location) []time.Time {
	out := make([]time.Time, 0, len(c.Holidays))
	for _, h := range c.Holidays {
		t, err := time.ParseInLocation("2006-01-02", h, loc)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
