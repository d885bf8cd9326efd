package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
	"time"

	"github.com/joho/godotenv" // optional .env loading for local runs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable (or the same key in the optional YAML file named
// by CONFIG_FILE).  Nested structs group the settings of optional backends.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBDriver       string // "mysql" or "sqlite"
	DBDSN          string // sqlite DSN; ignored for mysql
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	SentryDSN      string // error reporting; empty disables Sentry

	// WSAllowedOrigins lists the browser origins allowed to open /ws besides
	// the API's own host.  "*" allows any origin.
	WSAllowedOrigins []string

	Log      LogConfig
	Upload   UploadConfig
	Geo      GeoConfig
	Estimate EstimateConfig
	SMS      SMSConfig
	AMQP     AMQPConfig
}

// LogConfig selects the logrus level, formatter and sink.
type LogConfig struct {
	Level  string // debug|info|warn|error
	Format string // json|text
	Output string // stdout|stderr|<file path>
}

// UploadConfig selects where profile photos and license documents go.
type UploadConfig struct {
	Backend  string // local|s3
	Dir      string // local directory served under /uploads
	BaseURL  string // URL prefix stored in user rows for local files
	S3Bucket string
	S3Region string
	S3Domain string // optional public domain for S3 object URLs
	MaxBytes int64  // per-file upload limit
}

// GeoConfig configures city geocoding for trip estimates.
type GeoConfig struct {
	GoogleAPIKey string        // empty: built-in city table only
	CacheTTL     time.Duration // redis cache lifetime of geocoded cities
}

// EstimateConfig holds the price/duration model used by the estimate endpoints.
type EstimateConfig struct {
	BaseFare  float64 // flat part of the suggested price
	PerKM     float64 // price per great-circle kilometre
	SpeedKMH  float64 // assumed average speed
	BufferMin int     // minutes added to every duration estimate
}

// SMSConfig configures the phone verification sender.  Without Twilio
// credentials codes are written to the log instead of being sent.
type SMSConfig struct {
	TwilioAccountSID string
	TwilioAuthToken  string
	FromNumber       string
	CodeTTL          time.Duration
}

// AMQPConfig configures the activity event publisher and consumer.
type AMQPConfig struct {
	URL             string // empty disables publishing
	Queue           string
	ConsumerEnabled bool
	LogPath         string // file the consumer appends activity lines to
}

// Load reads configuration values and returns a Config.  A .env file in the
// working directory and the YAML file named by CONFIG_FILE are applied first;
// both only fill variables that are not already set in the environment.
// Required variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // absent .env is fine
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := ApplyFile(path); err != nil {
			log.Fatalf("config file %s: %v", path, err)
		}
	}

	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8080"),
		DBDriver:       strings.ToLower(envStr("DB_DRIVER", "mysql")),
		JWTSecret:      must("JWT_SECRET"),                     // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),        // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),      // TTL for refresh tokens in days
		BcryptCost:     envInt("BCRYPT_COST", 10),              // bcrypt cost factor
		SentryDSN:      os.Getenv("SENTRY_DSN"),

		WSAllowedOrigins: envList("WS_ALLOWED_ORIGINS"),
		Log: LogConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "json"),
			Output: envStr("LOG_OUTPUT", "stdout"),
		},
		Upload: UploadConfig{
			Backend:  strings.ToLower(envStr("UPLOAD_BACKEND", "local")),
			Dir:      envStr("UPLOAD_DIR", "uploads"),
			BaseURL:  envStr("UPLOAD_BASE_URL", "/uploads"),
			S3Bucket: os.Getenv("S3_BUCKET"),
			S3Region: envStr("S3_REGION", "us-east-1"),
			S3Domain: os.Getenv("S3_PUBLIC_DOMAIN"),
			MaxBytes: int64(envInt("UPLOAD_MAX_BYTES", 5<<20)),
		},
		Geo: GeoConfig{
			GoogleAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
			CacheTTL:     envDur("GEO_CACHE_TTL", 30*24*time.Hour),
		},
		Estimate: EstimateConfig{
			BaseFare:  envFloat("ESTIMATE_BASE_FARE", 2.0),
			PerKM:     envFloat("ESTIMATE_PER_KM", 0.1),
			SpeedKMH:  envFloat("ESTIMATE_SPEED_KMH", 80),
			BufferMin: envInt("ESTIMATE_BUFFER_MIN", 15),
		},
		SMS: SMSConfig{
			TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber:       os.Getenv("TWILIO_FROM_NUMBER"),
			CodeTTL:          envDur("PHONE_CODE_TTL", 10*time.Minute),
		},
		AMQP: AMQPConfig{
			URL:             amqpURL(),
			Queue:           envStr("ACTIVITY_QUEUE", "tripshare.activity"),
			ConsumerEnabled: envBool("ACTIVITY_CONSUMER_ENABLED", false),
			LogPath:         envStr("ACTIVITY_LOG_PATH", "logs/activity.log"),
		},
	}

	switch cfg.DBDriver {
	case "sqlite":
		cfg.DBDSN = envStr("DB_DSN", "file:tripshare.db?_pragma=foreign_keys(1)&_time_format=sqlite")
	case "mysql":
		cfg.DBUser = must("DB_USER")      // database user
		cfg.DBPass = os.Getenv("DB_PASS") // database password (empty allowed)
		cfg.DBHost = must("DB_HOST")      // database host
		cfg.DBPort = must("DB_PORT")      // database port
		cfg.DBName = must("DB_NAME")      // database name
	default:
		log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
	}
	if cfg.Upload.Backend == "s3" && cfg.Upload.S3Bucket == "" {
		log.Fatalf("missing required env var: S3_BUCKET (UPLOAD_BACKEND=s3)")
	}
	return cfg
}

// amqpURL keeps the RABBITMQ_URL / AMQP_URL aliases of the booking consumer.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envList splits a comma separated variable, dropping empty items.
func envList(k string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}
