package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lovenav/internal/logger"
	"gopkg.in/yaml.v3"
)

// loadEnv читает .env только вне production (в контейнере/prod конфиг только из env).
func loadEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		path := dir + "/.env"
		f, err := os.Open(path)
		if err == nil {
			loadEnvFrom(f)
			f.Close()
			return
		}
		parent := strings.TrimSuffix(dir, "/")
		if idx := strings.LastIndex(parent, "/"); idx <= 0 {
			return
		} else {
			dir = parent[:idx]
			if dir == "" {
				dir = "/"
			}
		}
	}
}

func loadEnvFrom(f *os.File) {
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		if len(val) >= 2 && (val[0] == '"' && val[len(val)-1] == '"' || val[0] == '\'' && val[len(val)-1] == '\'') {
			val = val[1 : len(val)-1]
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// MongoConfig — настройки подключения к MongoDB (документная БД приложения).
type MongoConfig struct {
	URI      string `yaml:"mongodb_uri"`
	Database string `yaml:"mongodb_db"`
}

// RedisConfig — Redis (сессии, refresh-леджер, кеш погоды, LLM-задачи).
type RedisConfig struct {
	URL string `yaml:"url"`
}

// JWTConfig — подпись и время жизни токенов.
type JWTConfig struct {
	Secret               string `yaml:"secret"`
	Algorithm            string `yaml:"algorithm"`
	AccessExpireMinutes  int    `yaml:"access_token_expire_minutes"`
	RefreshExpireMinutes int    `yaml:"refresh_token_expire_minutes"`
	CookieSecure         bool   `yaml:"cookie_secure"`
}

// AccessTTL возвращает срок жизни access-токена.
func (j *JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.AccessExpireMinutes) * time.Minute
}

// RefreshTTL возвращает срок жизни refresh-токена.
func (j *JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshExpireMinutes) * time.Minute
}

// ExternalConfig — ключи внешних API (Kakao, OpenWeatherMap, Gemini).
type ExternalConfig struct {
	KakaoMapAppKey    string `yaml:"kakao_map_app_key"`
	KakaoRESTAPIKey   string `yaml:"kakao_rest_api_key"`
	OpenWeatherAPIKey string `yaml:"openweather_api_key"`
	GeminiAPIKey      string `yaml:"gemini_api_key"`
	GeminiModel       string `yaml:"gemini_model"`
}

// Config содержит настройки приложения.
// Приоритет: переменные окружения > YAML-файл > значения по умолчанию.
type Config struct {
	// Сервер
	ServerAddr   string        `yaml:"server_addr"`
	ReadTimeout  time.Duration `yaml:"-"`
	WriteTimeout time.Duration `yaml:"-"`
	IdleTimeout  time.Duration `yaml:"-"`

	// Префикс всех API-маршрутов (и path refresh-cookie: {APIPrefix}/auth).
	APIPrefix string `yaml:"api_prefix"`

	Mongo    MongoConfig    `yaml:"-"`
	Redis    RedisConfig    `yaml:"-"`
	JWT      JWTConfig      `yaml:"-"`
	External ExternalConfig `yaml:"-"`

	// CORS
	CORSAllowedOrigins string `yaml:"cors_allowed_origins"`

	// Логирование
	LogLevel string `yaml:"log_level"`

	// AdminEmail — email пользователя с доступом к /admin (пусто — /admin закрыт для всех).
	AdminEmail string `yaml:"admin_email"`
}

// defaultJWTSecret используется только в разработке; в production процесс не стартует с ним.
const defaultJWTSecret = "change-me"

// yamlConfig — промежуточная структура для парсинга YAML.
type yamlConfig struct {
	ServerAddr           string `yaml:"server_addr"`
	ReadTimeout          int    `yaml:"read_timeout"`
	WriteTimeout         int    `yaml:"write_timeout"`
	IdleTimeout          int    `yaml:"idle_timeout"`
	APIPrefix            string `yaml:"api_prefix"`
	CORSAllowedOrigins   string `yaml:"cors_allowed_origins"`
	LogLevel             string `yaml:"log_level"`
	AdminEmail           string `yaml:"admin_email"`
	AccessExpireMinutes  int    `yaml:"access_token_expire_minutes"`
	RefreshExpireMinutes int    `yaml:"refresh_token_expire_minutes"`
}

// Load загружает конфигурацию.
// Сначала подгружаются переменные из .env (если есть), затем YAML и env (env имеет приоритет).
func Load() *Config {
	loadEnv()
	// Значения по умолчанию
	yc := yamlConfig{
		ServerAddr:           ":8080",
		ReadTimeout:          15,
		WriteTimeout:         15,
		IdleTimeout:          60,
		APIPrefix:            "/api",
		CORSAllowedOrigins:   "http://localhost:5173,http://localhost:3000,http://localhost",
		LogLevel:             "info",
		AccessExpireMinutes:  15,
		RefreshExpireMinutes: 60 * 24 * 7,
	}

	// Загрузка конфигурации приложения: CONFIG_PATH → config/api.yaml
	appPaths := []string{os.Getenv("CONFIG_PATH"), "config/api.yaml"}
	for _, path := range appPaths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &yc); err != nil {
			logger.Errorf("config: ошибка парсинга %s: %v (используются значения по умолчанию)", path, err)
		} else {
			logger.Infof("config: загружен %s", path)
		}
		break
	}

	cfg := &Config{
		ServerAddr:   envStr("SERVER_ADDR", yc.ServerAddr),
		ReadTimeout:  time.Duration(envInt("READ_TIMEOUT", yc.ReadTimeout)) * time.Second,
		WriteTimeout: time.Duration(envInt("WRITE_TIMEOUT", yc.WriteTimeout)) * time.Second,
		IdleTimeout:  time.Duration(envInt("IDLE_TIMEOUT", yc.IdleTimeout)) * time.Second,
		APIPrefix:    envStr("API_PREFIX", yc.APIPrefix),
		Mongo: MongoConfig{
			URI:      envStr("MONGODB_URI", "mongodb://mongo:27017"),
			Database: envStr("MONGODB_DB", "datingapp"),
		},
		Redis: RedisConfig{URL: envStr("REDIS_URL", "redis://redis:6379/0")},
		JWT: JWTConfig{
			Secret:               envStr("JWT_SECRET_KEY", defaultJWTSecret),
			Algorithm:            envStr("JWT_ALGORITHM", "HS256"),
			AccessExpireMinutes:  envInt("ACCESS_TOKEN_EXPIRE_MINUTES", yc.AccessExpireMinutes),
			RefreshExpireMinutes: envInt("REFRESH_TOKEN_EXPIRE_MINUTES", yc.RefreshExpireMinutes),
			CookieSecure:         envBool("COOKIE_SECURE", false),
		},
		External: ExternalConfig{
			KakaoMapAppKey:    envStr("KAKAO_MAP_APP_KEY", ""),
			KakaoRESTAPIKey:   envStr("KAKAO_REST_API_KEY", ""),
			OpenWeatherAPIKey: envStr("OPENWEATHER_API_KEY", ""),
			GeminiAPIKey:      envStr("GEMINI_API_KEY", ""),
			GeminiModel:       envStr("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		CORSAllowedOrigins: envStr("CORS_ALLOWED_ORIGINS", yc.CORSAllowedOrigins),
		LogLevel:           envStr("LOG_LEVEL", yc.LogLevel),
		AdminEmail:         envStr("ADMIN_EMAIL", yc.AdminEmail),
	}

	if cfg.JWT.AccessExpireMinutes <= 0 {
		cfg.JWT.AccessExpireMinutes = 15
	}
	if cfg.JWT.RefreshExpireMinutes <= 0 {
		cfg.JWT.RefreshExpireMinutes = 60 * 24 * 7
	}

	if os.Getenv("APP_ENV") == "production" {
		if cfg.JWT.Secret == defaultJWTSecret {
			logger.Errorf("config: в production задайте JWT_SECRET_KEY (не используйте дефолт для разработки)")
			os.Exit(1)
		}
		if !cfg.JWT.CookieSecure {
			// Не роняем процесс — за TLS может отвечать прокси
			logger.Errorf("config: в production рекомендуется COOKIE_SECURE=true")
		}
	}

	return cfg
}

// CORSOriginsList разбирает CORS_ALLOWED_ORIGINS по запятым.
func (c *Config) CORSOriginsList() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AuthCookiePath возвращает path refresh-cookie: {APIPrefix}/auth.
func (c *Config) AuthCookiePath() string {
	return strings.TrimSuffix(c.APIPrefix, "/") + "/auth"
}

// envStr возвращает значение переменной окружения или fallback.
func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt возвращает числовое значение переменной окружения или fallback.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envBool возвращает булево значение переменной окружения или fallback.
func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
