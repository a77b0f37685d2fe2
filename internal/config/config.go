package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration envuelve time.Duration para poder escribir "15m" en el YAML.
type Duration time.Duration

// UnmarshalYAML parsea duraciones en formato de time.ParseDuration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std retorna la duración como time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config es la configuración completa del servidor.
// Se carga de YAML y se pisa con variables de entorno.
type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// Host base del servidor; audience por defecto de los access
		// tokens cuando la plataforma no registró homepage.
		HostURL string `yaml:"host_url"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Driver   string `yaml:"driver"` // "memory" | "redis"
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"cache"`

	JWT struct {
		Secret     string        `yaml:"secret"`
		AccessTTL  Duration `yaml:"access_ttl"`
		RefreshTTL Duration `yaml:"refresh_ttl"`
		CodeTTL    Duration `yaml:"code_ttl"`
	} `yaml:"jwt"`

	Auth struct {
		// RotateRefreshTokens habilita rotación: cada refresh revoca el
		// token presentado y emite uno nuevo. Default: off.
		RotateRefreshTokens bool `yaml:"rotate_refresh_tokens"`
		// HubPlatformID es la plataforma "hub": sus tokens no se confían
		// a ciegas y fuerzan lookup de membresía en vivo.
		HubPlatformID int64 `yaml:"hub_platform_id"`
		// PKCETTL es el TTL de los challenges cacheados.
		PKCETTL Duration `yaml:"pkce_ttl"`
		// SweepInterval es el intervalo del barrido de tokens vencidos.
		SweepInterval Duration `yaml:"sweep_interval"`
	} `yaml:"auth"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

// Load lee el YAML (si existe), aplica defaults y env overrides, y valida.
func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyDefaults setea defaults sanos para todo lo opcional.
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.HostURL == "" {
		c.Server.HostURL = "http://localhost:8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "soul"
	}
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = Duration(15 * time.Minute)
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = Duration(30 * 24 * time.Hour)
	}
	if c.JWT.CodeTTL == 0 {
		c.JWT.CodeTTL = Duration(time.Minute)
	}
	if c.Auth.PKCETTL == 0 {
		c.Auth.PKCETTL = Duration(5 * time.Minute)
	}
	if c.Auth.SweepInterval == 0 {
		c.Auth.SweepInterval = Duration(time.Hour)
	}
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvInt64(key string) (int64, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_HOST_URL"); ok {
		c.Server.HostURL = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("STORAGE_PG_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("STORAGE_PG_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}

	if v, ok := getEnvStr("CACHE_DRIVER"); ok {
		c.Cache.Driver = v
	}
	if v, ok := getEnvStr("CACHE_HOST"); ok {
		c.Cache.Host = v
	}
	if v, ok := getEnvInt("CACHE_PORT"); ok {
		c.Cache.Port = v
	}
	if v, ok := getEnvStr("CACHE_PASSWORD"); ok {
		c.Cache.Password = v
	}
	if v, ok := getEnvInt("CACHE_DB"); ok {
		c.Cache.DB = v
	}
	if v, ok := getEnvStr("CACHE_PREFIX"); ok {
		c.Cache.Prefix = v
	}

	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}
	if v, ok := getEnvDur("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = Duration(v)
	}
	if v, ok := getEnvDur("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = Duration(v)
	}
	if v, ok := getEnvDur("JWT_CODE_TTL"); ok {
		c.JWT.CodeTTL = Duration(v)
	}

	if v, ok := getEnvBool("AUTH_ROTATE_REFRESH_TOKENS"); ok {
		c.Auth.RotateRefreshTokens = v
	}
	if v, ok := getEnvInt64("AUTH_HUB_PLATFORM_ID"); ok {
		c.Auth.HubPlatformID = v
	}
	if v, ok := getEnvDur("AUTH_PKCE_TTL"); ok {
		c.Auth.PKCETTL = Duration(v)
	}
	if v, ok := getEnvDur("AUTH_SWEEP_INTERVAL"); ok {
		c.Auth.SweepInterval = Duration(v)
	}

	if v, ok := getEnvBool("FLAGS_MIGRATE"); ok {
		c.Flags.Migrate = v
	}
}

// Validate falla rápido al arranque si falta configuración requerida.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("config: jwt.secret is required (JWT_SECRET)")
	}
	if strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("config: storage.dsn is required (STORAGE_DSN)")
	}
	if c.Cache.Driver == "redis" && strings.TrimSpace(c.Cache.Host) == "" {
		return fmt.Errorf("config: cache.host is required for redis driver")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 || c.JWT.CodeTTL <= 0 {
		return fmt.Errorf("config: token TTLs must be positive")
	}
	return nil
}
