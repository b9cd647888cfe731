package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	GeneralParams    GeneralParams
	HttpServerParams HttpServerParams
	MainDBParams     MainDBParams
	S3Params         S3Params
	RedisParams      RedisParams
	PresenceParams   PresenceParams
	RateLimitParams  RateLimitParams
}

type GeneralParams struct {
	Env       string
	SecretKey string
	Timezone  string
}

type HttpServerParams struct {
	Address        string
	Port           string
	AllowedOrigins []string
}

type MainDBParams struct {
	Username string
	Password string
	Name     string
	Port     int
	Host     string
	Timeout  int
	MaxConns int32
}

type S3Params struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
}

// RedisParams is optional. An empty address keeps change fan-out in process.
type RedisParams struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

type PresenceParams struct {
	ParticipantWindow time.Duration
	CursorWindow      time.Duration
}

type RateLimitParams struct {
	RPS   float64
	Burst int
}

type ConfigManager struct {
	v      *viper.Viper
	config *Config
}

// NewConfigManager reads the YAML file at configPath. APP_* environment
// variables override it, e.g. APP_MAIN_DB_PARAMS_DB_PASSWORD.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cm := &ConfigManager{v: v}

	if err := cm.loadConfig(); err != nil {
		return nil, err
	}

	return cm, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general_params.timezone", "Local")
	v.SetDefault("main_db_params.db_max_conns", 10)
	v.SetDefault("redis_params.prefix", "focus:")
	v.SetDefault("presence_params.participant_window", "30s")
	v.SetDefault("presence_params.cursor_window", "5s")
	v.SetDefault("rate_limit_params.rps", 20)
	v.SetDefault("rate_limit_params.burst", 40)
}

func (cm *ConfigManager) loadConfig() error {
	cm.config = &Config{
		GeneralParams: GeneralParams{
			Env:       cm.v.GetString("general_params.env"),
			SecretKey: cm.v.GetString("general_params.secret_key"),
			Timezone:  cm.v.GetString("general_params.timezone"),
		},
		HttpServerParams: HttpServerParams{
			Address:        cm.v.GetString("http_server_params.http_server_address"),
			Port:           cm.v.GetString("http_server_params.http_server_port"),
			AllowedOrigins: cm.v.GetStringSlice("http_server_params.allowed_origins"),
		},
		MainDBParams: MainDBParams{
			Username: cm.v.GetString("main_db_params.db_username"),
			Password: cm.v.GetString("main_db_params.db_password"),
			Name:     cm.v.GetString("main_db_params.db_name"),
			Port:     cm.v.GetInt("main_db_params.db_port"),
			Host:     cm.v.GetString("main_db_params.db_host"),
			Timeout:  cm.v.GetInt("main_db_params.db_timeout"),
			MaxConns: cm.v.GetInt32("main_db_params.db_max_conns"),
		},
		S3Params: S3Params{
			Endpoint:        cm.v.GetString("s3_params.endpoint"),
			AccessKeyID:     cm.v.GetString("s3_params.access_key_id"),
			SecretAccessKey: cm.v.GetString("s3_params.secret_access_key"),
			UseSSL:          cm.v.GetBool("s3_params.use_ssl"),
			BucketName:      cm.v.GetString("s3_params.bucket_name"),
		},
		RedisParams: RedisParams{
			Address:  cm.v.GetString("redis_params.address"),
			Password: cm.v.GetString("redis_params.password"),
			DB:       cm.v.GetInt("redis_params.db"),
			Prefix:   cm.v.GetString("redis_params.prefix"),
		},
		PresenceParams: PresenceParams{
			ParticipantWindow: cm.v.GetDuration("presence_params.participant_window"),
			CursorWindow:      cm.v.GetDuration("presence_params.cursor_window"),
		},
		RateLimitParams: RateLimitParams{
			RPS:   cm.v.GetFloat64("rate_limit_params.rps"),
			Burst: cm.v.GetInt("rate_limit_params.burst"),
		},
	}
	return nil
}

func (cm *ConfigManager) GetConfig() *Config {
	return cm.config
}

// GetDSN builds the pgx connection string.
func (db *MainDBParams) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=%d&sslmode=disable",
		db.Username,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
		db.Timeout,
	)
}

func (h *HttpServerParams) GetAddress() string {
	return fmt.Sprintf(
		"%s:%s",
		h.Address,
		h.Port,
	)
}

// Location resolves the timezone used for leaderboard periods.
func (g *GeneralParams) Location() (*time.Location, error) {
	if g.Timezone == "" || g.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(g.Timezone)
}

func (r *RedisParams) Enabled() bool {
	return r.Address != ""
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var errs []error
	require := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	g := c.GeneralParams
	require(g.SecretKey != "", "general: secret_key is required")
	require(g.Env == "dev" || g.Env == "prod" || g.Env == "test", "general: env %q is invalid, use dev/prod/test", g.Env)
	if _, err := g.Location(); err != nil {
		errs = append(errs, fmt.Errorf("general: timezone is invalid: %w", err))
	}

	require(c.HttpServerParams.Address != "", "http server: address is required")
	require(c.HttpServerParams.Port != "", "http server: port is required")

	db := c.MainDBParams
	require(db.Host != "", "main db: host is required")
	require(db.Username != "", "main db: username is required")
	require(db.Password != "", "main db: password is required")
	require(db.Port > 0, "main db: port is invalid")

	s3 := c.S3Params
	require(s3.Endpoint != "", "s3: endpoint is required")
	require(s3.AccessKeyID != "", "s3: access_key_id is required")
	require(s3.SecretAccessKey != "", "s3: secret_access_key is required")
	require(s3.BucketName != "", "s3: bucket_name is required")

	require(c.PresenceParams.ParticipantWindow > 0, "presence: participant_window must be positive")
	require(c.PresenceParams.CursorWindow > 0, "presence: cursor_window must be positive")

	require(c.RateLimitParams.RPS > 0 && c.RateLimitParams.Burst > 0, "rate limit: rps and burst must be positive")

	return errors.Join(errs...)
}
