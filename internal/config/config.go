package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mind-engage/quizport/internal/ids"
	"github.com/mind-engage/quizport/internal/qti/export"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const envPrefix = "QUIZPORT"

type Config struct {
	Mode     Mode
	HTTPAddr string

	DB     DBConfig
	Blob   BlobConfig
	Auth   AuthConfig
	Log    LoggerConfig
	Export ExportConfig

	CORSOrigins []string
}

type DBConfig struct {
	Driver string // sqlite|postgres
	DSN    string
}

type BlobConfig struct {
	BasePath string
}

type AuthConfig struct {
	HMACSecret    string
	EnableLocal   bool
	AdminUser     string
	AdminPassHash string // bcrypt
}

type LoggerConfig struct {
	Level string
	Env   string
}

type ExportConfig struct {
	ScoringPolicy   string
	QuizType        string
	AllowedAttempts int
	ShuffleAnswers  bool
	FIBVariant      string
	IDScheme        string
}

// Options converts the export section into encoder options.
func (c ExportConfig) Options() export.Options {
	return export.Options{
		ScoringPolicy:   c.ScoringPolicy,
		QuizType:        c.QuizType,
		AllowedAttempts: c.AllowedAttempts,
		ShuffleAnswers:  c.ShuffleAnswers,
		FIBVariant:      export.FIBVariant(c.FIBVariant),
	}
}

// IDs returns the identifier factory for the configured scheme.
func (c ExportConfig) IDs() ids.Factory {
	return ids.FactoryFor(ids.Scheme(c.IDScheme))
}

func setDefaults(v *viper.Viper) {
	d := export.DefaultOptions()
	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "")
	v.SetDefault("blob.base_path", "./data")
	v.SetDefault("auth.hmac_secret", "dev-secret-change-me")
	v.SetDefault("auth.enable_local", true)
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_pass_hash", "") // empty disables password login
	v.SetDefault("cors.origins", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "development")
	v.SetDefault("export.scoring_policy", d.ScoringPolicy)
	v.SetDefault("export.quiz_type", d.QuizType)
	v.SetDefault("export.allowed_attempts", d.AllowedAttempts)
	v.SetDefault("export.shuffle_answers", d.ShuffleAnswers)
	v.SetDefault("export.fib_variant", string(d.FIBVariant))
	v.SetDefault("export.id_scheme", string(ids.SchemeUUID))
}

// Load reads quizport.yaml from the given directories (default "." and
// "./config") and applies QUIZPORT_* environment overrides. A missing file
// is not an error.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("quizport")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{
		Mode:     Mode(strings.ToLower(v.GetString("mode"))),
		HTTPAddr: v.GetString("http_addr"),
		DB: DBConfig{
			Driver: v.GetString("db.driver"),
			DSN:    v.GetString("db.dsn"),
		},
		Blob: BlobConfig{BasePath: v.GetString("blob.base_path")},
		Auth: AuthConfig{
			HMACSecret:    v.GetString("auth.hmac_secret"),
			EnableLocal:   v.GetBool("auth.enable_local"),
			AdminUser:     v.GetString("auth.admin_user"),
			AdminPassHash: v.GetString("auth.admin_pass_hash"),
		},
		Log: LoggerConfig{
			Level: v.GetString("log.level"),
			Env:   v.GetString("log.env"),
		},
		Export: ExportConfig{
			ScoringPolicy:   v.GetString("export.scoring_policy"),
			QuizType:        v.GetString("export.quiz_type"),
			AllowedAttempts: v.GetInt("export.allowed_attempts"),
			ShuffleAnswers:  v.GetBool("export.shuffle_answers"),
			FIBVariant:      v.GetString("export.fib_variant"),
			IDScheme:        v.GetString("export.id_scheme"),
		},
		CORSOrigins: stringList(v.Get("cors.origins")),
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported db.driver %q", c.DB.Driver)
	}
	switch export.FIBVariant(c.Export.FIBVariant) {
	case export.FIBShortAnswer, export.FIBMultipleBlanks:
	default:
		return fmt.Errorf("config: unknown export.fib_variant %q", c.Export.FIBVariant)
	}
	switch ids.Scheme(c.Export.IDScheme) {
	case ids.SchemeUUID, ids.SchemeULID, ids.SchemeSequence:
	default:
		return fmt.Errorf("config: unknown export.id_scheme %q", c.Export.IDScheme)
	}
	if c.Export.AllowedAttempts == 0 || c.Export.AllowedAttempts < -1 {
		return fmt.Errorf("config: export.allowed_attempts must be positive or -1, got %d", c.Export.AllowedAttempts)
	}
	if c.Mode == ModeOnline && c.Auth.HMACSecret == "dev-secret-change-me" {
		return errors.New("config: auth.hmac_secret must be set in online mode")
	}
	return nil
}

// stringList accepts a YAML list or a comma separated string.
func stringList(v any) []string {
	var parts []string
	switch t := v.(type) {
	case []string:
		parts = t
	case []any:
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
	case string:
		parts = strings.Split(t, ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
