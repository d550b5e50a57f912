package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	Log       LogConfig
	DB        DBConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Ledger    LedgerConfig
	Verifactu VerifactuConfig
	Archive   ArchiveConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// LogConfig nivel de log.
type LogConfig struct {
	Level string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
// Shards mapea nombre de base de datos de tenant → DSN (DB_SHARDS="eu=postgres://...,us=postgres://...").
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	Shards      map[string]string
	LockTimeout time.Duration // SET LOCAL lock_timeout en cada transacción de ledger
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig caché compartida para el bloqueo de acciones. Deshabilitado → solo caché en memoria.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LedgerConfig parámetros de concurrencia del ledger.
type LedgerConfig struct {
	JobDelayMin      time.Duration // retardo mínimo de jobs en segundo plano
	JobDelayMax      time.Duration
	JobRetries       int           // reintentos por job (como máximo 1 para pagos)
	ActionLockTTL    time.Duration // TTL base del candado de acciones masivas
	ActionLockMaxTTL time.Duration
}

// VerifactuConfig configuración del envío fiscal a la AEAT (España).
type VerifactuConfig struct {
	AppEnv             string // "dev" (simulado), "test" (preproducción AEAT), "prod"
	CertPath           string // .p12/.pfx o .pem
	CertKeyPath        string // llave PEM si CertPath es solo el certificado
	CertPassword       string
	SoftwareName       string
	SoftwareNIF        string
	SoftwareID         string
	SoftwareVersion    string
	InstallationNumber string
}

// ArchiveConfig almacenamiento S3 de los registros firmados.
type ArchiveConfig struct {
	Enabled   bool
	Bucket    string
	Region    string
	Endpoint  string // opcional: MinIO / LocalStack
	AccessKey string
	SecretKey string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, REDIS_ADDR, VERIFACTU_ENV, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	shards, err := parseShards(getString(v, "DB_SHARDS", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "invorya-ledger"),
		},
		Log: LogConfig{
			Level: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "invorya_ledger"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			Shards:      shards,
			LockTimeout: getDuration(v, "DB_LOCK_TIMEOUT", 5*time.Second),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Redis: RedisConfig{
			Enabled:  getBool(v, "REDIS_ENABLED", false),
			Addr:     getString(v, "REDIS_ADDR", "localhost:6379"),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		Ledger: LedgerConfig{
			JobDelayMin:      getDuration(v, "LEDGER_JOB_DELAY_MIN", 5*time.Second),
			JobDelayMax:      getDuration(v, "LEDGER_JOB_DELAY_MAX", 9*time.Second),
			JobRetries:       getInt(v, "LEDGER_JOB_RETRIES", 1),
			ActionLockTTL:    getDuration(v, "LEDGER_ACTION_LOCK_TTL", time.Second),
			ActionLockMaxTTL: getDuration(v, "LEDGER_ACTION_LOCK_MAX_TTL", 3*time.Second),
		},
		Verifactu: VerifactuConfig{
			AppEnv:             getString(v, "VERIFACTU_ENV", "dev"),
			CertPath:           getString(v, "VERIFACTU_CERT_PATH", ""),
			CertKeyPath:        getString(v, "VERIFACTU_CERT_KEY_PATH", ""),
			CertPassword:       getString(v, "VERIFACTU_CERT_PASSWORD", ""),
			SoftwareName:       getString(v, "VERIFACTU_SOFTWARE_NAME", "Invorya"),
			SoftwareNIF:        getString(v, "VERIFACTU_SOFTWARE_NIF", ""),
			SoftwareID:         getString(v, "VERIFACTU_SOFTWARE_ID", "IV"),
			SoftwareVersion:    getString(v, "VERIFACTU_SOFTWARE_VERSION", "1.0"),
			InstallationNumber: getString(v, "VERIFACTU_INSTALLATION_NUMBER", "1"),
		},
		Archive: ArchiveConfig{
			Enabled:   getBool(v, "ARCHIVE_ENABLED", false),
			Bucket:    getString(v, "ARCHIVE_S3_BUCKET", ""),
			Region:    getString(v, "ARCHIVE_S3_REGION", "eu-west-1"),
			Endpoint:  getString(v, "ARCHIVE_S3_ENDPOINT", ""),
			AccessKey: getString(v, "ARCHIVE_S3_ACCESS_KEY", ""),
			SecretKey: getString(v, "ARCHIVE_S3_SECRET_KEY", ""),
		},
	}

	if cfg.Ledger.JobDelayMax < cfg.Ledger.JobDelayMin {
		cfg.Ledger.JobDelayMax = cfg.Ledger.JobDelayMin
	}
	if cfg.Archive.Enabled && cfg.Archive.Bucket == "" {
		return nil, fmt.Errorf("config: ARCHIVE_S3_BUCKET es obligatorio con ARCHIVE_ENABLED")
	}
	return cfg, nil
}

// parseShards lee "nombre=dsn,nombre2=dsn2".
func parseShards(raw string) (map[string]string, error) {
	out := map[string]string{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}
	for _, part := range strings.Split(raw, ",") {
		name, dsn, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" || dsn == "" {
			return nil, fmt.Errorf("config: DB_SHARDS mal formado en %q", part)
		}
		out[name] = dsn
	}
	return out, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

// getDuration acepta "5s", "1500ms" o un entero en segundos.
func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	raw := strings.TrimSpace(v.GetString(key))
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
