package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
)

const (
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
	CacheBackendMemory   = "memory"
)

type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	LogLevel           logging.Level
	CORSAllowedOrigins []string
	SwaggerEnabled     bool

	DBURL                         string
	DBDisablePreparedBinaryResult bool
	CacheBackend                  string
	RedisAddr                     string
	RedisPassword                 string
	RedisDB                       int
	TournamentSeedPath            string
	QualifyingThirds              int

	StatsTTL           time.Duration
	StatsFallbackTTL   time.Duration
	StatsMaxAttempts   int
	StatsBackoffBase   time.Duration
	StatsMinInterval   time.Duration
	StatsRecentMatches int
	StatsWorkers       int

	APIFootballBaseURL             string
	APIFootballKey                 string
	APIFootballTimeout             time.Duration
	APIFootballCircuitEnabled      bool
	APIFootballCircuitFailureCount int
	APIFootballCircuitOpenTimeout  time.Duration
	APIFootballCircuitHalfOpenMax  int
	APIFootballLeagueID            int64
	APIFootballSeason              int
	FixtureSyncEnabled             bool

	AIBaseURL     string
	AIAPIKey      string
	AIModel       string
	AITimeout     time.Duration
	AITemperature float64
	AIRetryDelay  time.Duration
	AIMinInterval time.Duration
	AIConcurrency int

	FIFARankingEnabled     bool
	FIFARankingTTL         time.Duration
	FIFARankingMinInterval time.Duration

	SnapshotS3Enabled bool
	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKey       string
	S3SecretKey       string
	S3KeyPrefix       string

	SchedulerEnabled bool
	SchedulerSpec    string
	InternalJobToken string

	UptraceEnabled             bool
	UptraceDSN                 string
	PprofEnabled               bool
	PprofAddr                  string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}
	swaggerEnabled, err := strconv.ParseBool(getEnv("SWAGGER_ENABLED", swaggerDefault))
	if err != nil {
		return Config{}, fmt.Errorf("parse SWAGGER_ENABLED: %w", err)
	}

	readTimeout, err := getEnvAsPositiveDuration("APP_READ_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	writeTimeout, err := getEnvAsPositiveDuration("APP_WRITE_TIMEOUT", "60s")
	if err != nil {
		return Config{}, err
	}

	disablePreparedBinaryResult, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	cacheBackend, err := parseCacheBackend(getEnv("CACHE_BACKEND", CacheBackendPostgres))
	if err != nil {
		return Config{}, err
	}
	redisAddr := strings.TrimSpace(getEnv("REDIS_ADDR", "localhost:6379"))
	if cacheBackend == CacheBackendRedis && redisAddr == "" {
		return Config{}, fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND=redis")
	}
	redisDB, err := getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse REDIS_DB: %w", err)
	}
	if redisDB < 0 {
		return Config{}, fmt.Errorf("REDIS_DB must be >= 0")
	}

	qualifyingThirds, err := getEnvAsPositiveInt("TOURNAMENT_QUALIFYING_THIRDS", 8)
	if err != nil {
		return Config{}, err
	}

	statsTTL, err := getEnvAsPositiveDuration("STATS_TTL", "24h")
	if err != nil {
		return Config{}, err
	}
	statsFallbackTTL, err := getEnvAsPositiveDuration("STATS_FALLBACK_TTL", "1h")
	if err != nil {
		return Config{}, err
	}
	statsMaxAttempts, err := getEnvAsPositiveInt("STATS_MAX_ATTEMPTS", 3)
	if err != nil {
		return Config{}, err
	}
	statsBackoffBase, err := getEnvAsPositiveDuration("STATS_BACKOFF_BASE", "1s")
	if err != nil {
		return Config{}, err
	}
	statsMinInterval, err := getEnvAsPositiveDuration("STATS_MIN_INTERVAL", "500ms")
	if err != nil {
		return Config{}, err
	}
	statsRecentMatches, err := getEnvAsPositiveInt("STATS_RECENT_MATCHES", 10)
	if err != nil {
		return Config{}, err
	}
	statsWorkers, err := getEnvAsPositiveInt("STATS_WORKERS", 4)
	if err != nil {
		return Config{}, err
	}

	apiFootballTimeout, err := getEnvAsPositiveDuration("APIFOOTBALL_TIMEOUT", "5s")
	if err != nil {
		return Config{}, err
	}
	apiFootballCircuitEnabled, err := strconv.ParseBool(getEnv("APIFOOTBALL_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APIFOOTBALL_CIRCUIT_ENABLED: %w", err)
	}
	apiFootballCircuitFailureCount, err := getEnvAsPositiveInt("APIFOOTBALL_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, err
	}
	apiFootballCircuitOpenTimeout, err := getEnvAsPositiveDuration("APIFOOTBALL_CIRCUIT_OPEN_TIMEOUT", "15s")
	if err != nil {
		return Config{}, err
	}
	apiFootballCircuitHalfOpenMax, err := getEnvAsPositiveInt("APIFOOTBALL_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, err
	}
	apiFootballLeagueID, err := getEnvAsPositiveInt("APIFOOTBALL_LEAGUE_ID", 1)
	if err != nil {
		return Config{}, err
	}
	apiFootballSeason, err := getEnvAsPositiveInt("APIFOOTBALL_SEASON", 2026)
	if err != nil {
		return Config{}, err
	}
	fixtureSyncEnabled, err := strconv.ParseBool(getEnv("FIXTURE_SYNC_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FIXTURE_SYNC_ENABLED: %w", err)
	}

	aiTimeout, err := getEnvAsPositiveDuration("AI_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	aiTemperature, err := strconv.ParseFloat(getEnv("AI_TEMPERATURE", "0.7"), 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse AI_TEMPERATURE: %w", err)
	}
	if aiTemperature < 0 || aiTemperature > 2 {
		return Config{}, fmt.Errorf("AI_TEMPERATURE must be between 0 and 2")
	}
	aiRetryDelay, err := getEnvAsPositiveDuration("AI_RETRY_DELAY", "1s")
	if err != nil {
		return Config{}, err
	}
	aiMinInterval, err := getEnvAsPositiveDuration("AI_MIN_INTERVAL", "50ms")
	if err != nil {
		return Config{}, err
	}
	aiConcurrency, err := getEnvAsPositiveInt("AI_CONCURRENCY", 4)
	if err != nil {
		return Config{}, err
	}

	fifaRankingEnabled, err := strconv.ParseBool(getEnv("FIFA_RANKING_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FIFA_RANKING_ENABLED: %w", err)
	}
	fifaRankingTTL, err := getEnvAsPositiveDuration("FIFA_RANKING_TTL", "720h")
	if err != nil {
		return Config{}, err
	}
	fifaRankingMinInterval, err := getEnvAsPositiveDuration("FIFA_RANKING_MIN_INTERVAL", "2s")
	if err != nil {
		return Config{}, err
	}

	snapshotS3Enabled, err := strconv.ParseBool(getEnv("SNAPSHOT_S3_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SNAPSHOT_S3_ENABLED: %w", err)
	}
	s3Bucket := strings.TrimSpace(getEnv("S3_BUCKET", ""))
	s3Region := strings.TrimSpace(getEnv("S3_REGION", "us-east-1"))
	if snapshotS3Enabled {
		if s3Bucket == "" {
			return Config{}, fmt.Errorf("S3_BUCKET is required when SNAPSHOT_S3_ENABLED=true")
		}
		if s3Region == "" {
			return Config{}, fmt.Errorf("S3_REGION is required when SNAPSHOT_S3_ENABLED=true")
		}
	}

	schedulerEnabled, err := strconv.ParseBool(getEnv("SCHEDULER_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEDULER_ENABLED: %w", err)
	}
	schedulerSpec := strings.TrimSpace(getEnv("SCHEDULER_SPEC", "@every 6h"))

	internalJobToken := strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", ""))
	if appEnv != EnvDev && internalJobToken == "" {
		return Config{}, fmt.Errorf("INTERNAL_JOB_TOKEN is required when APP_ENV=%s", appEnv)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := getEnvAsPositiveDuration("PYROSCOPE_UPLOAD_RATE", "15s")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "worldcup-predictor-api"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		LogLevel:           parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SwaggerEnabled:     swaggerEnabled,

		DBURL:                         strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinaryResult: disablePreparedBinaryResult,
		CacheBackend:                  cacheBackend,
		RedisAddr:                     redisAddr,
		RedisPassword:                 getEnv("REDIS_PASSWORD", ""),
		RedisDB:                       redisDB,
		TournamentSeedPath:            strings.TrimSpace(getEnv("TOURNAMENT_SEED_PATH", "")),
		QualifyingThirds:              qualifyingThirds,

		StatsTTL:           statsTTL,
		StatsFallbackTTL:   statsFallbackTTL,
		StatsMaxAttempts:   statsMaxAttempts,
		StatsBackoffBase:   statsBackoffBase,
		StatsMinInterval:   statsMinInterval,
		StatsRecentMatches: statsRecentMatches,
		StatsWorkers:       statsWorkers,

		APIFootballBaseURL:             strings.TrimSpace(getEnv("APIFOOTBALL_BASE_URL", "https://v3.football.api-sports.io")),
		APIFootballKey:                 strings.TrimSpace(getEnv("APIFOOTBALL_KEY", "")),
		APIFootballTimeout:             apiFootballTimeout,
		APIFootballCircuitEnabled:      apiFootballCircuitEnabled,
		APIFootballCircuitFailureCount: apiFootballCircuitFailureCount,
		APIFootballCircuitOpenTimeout:  apiFootballCircuitOpenTimeout,
		APIFootballCircuitHalfOpenMax:  apiFootballCircuitHalfOpenMax,
		APIFootballLeagueID:            int64(apiFootballLeagueID),
		APIFootballSeason:              apiFootballSeason,
		FixtureSyncEnabled:             fixtureSyncEnabled,

		AIBaseURL:     strings.TrimSpace(getEnv("AI_BASE_URL", "https://generativelanguage.googleapis.com")),
		AIAPIKey:      strings.TrimSpace(getEnv("AI_API_KEY", "")),
		AIModel:       strings.TrimSpace(getEnv("AI_MODEL", "gemini-2.5-flash")),
		AITimeout:     aiTimeout,
		AITemperature: aiTemperature,
		AIRetryDelay:  aiRetryDelay,
		AIMinInterval: aiMinInterval,
		AIConcurrency: aiConcurrency,

		FIFARankingEnabled:     fifaRankingEnabled,
		FIFARankingTTL:         fifaRankingTTL,
		FIFARankingMinInterval: fifaRankingMinInterval,

		SnapshotS3Enabled: snapshotS3Enabled,
		S3Endpoint:        strings.TrimSpace(getEnv("S3_ENDPOINT", "")),
		S3Region:          s3Region,
		S3Bucket:          s3Bucket,
		S3AccessKey:       strings.TrimSpace(getEnv("S3_ACCESS_KEY", "")),
		S3SecretKey:       strings.TrimSpace(getEnv("S3_SECRET_KEY", "")),
		S3KeyPrefix:       strings.Trim(strings.TrimSpace(getEnv("S3_KEY_PREFIX", "snapshots")), "/"),

		SchedulerEnabled: schedulerEnabled,
		SchedulerSpec:    schedulerSpec,
		InternalJobToken: internalJobToken,

		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAppName:           strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", "worldcup-predictor-api")),
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsPositiveInt(key string, fallback int) (int, error) {
	out, err := getEnvAsInt(key, fallback)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func getEnvAsPositiveDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseCacheBackend(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case CacheBackendPostgres, CacheBackendRedis, CacheBackendMemory:
		return value, nil
	default:
		return "", fmt.Errorf("invalid CACHE_BACKEND %q: valid values are %s, %s, %s", v, CacheBackendPostgres, CacheBackendRedis, CacheBackendMemory)
	}
}
