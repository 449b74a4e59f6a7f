package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Env struct {
	AppAddr string `yaml:"appAddr" validate:"required"`
	GinMode string `yaml:"ginMode" validate:"omitempty,oneof=debug release test"`

	DBDriver    string `yaml:"dbDriver" validate:"required,oneof=mysql pgx"`
	DatabaseURL string `yaml:"databaseURL"`
	DBHost      string `yaml:"dbHost"`
	DBUser      string `yaml:"dbUser"`
	DBPassword  string `yaml:"dbPassword"`
	DBName      string `yaml:"dbName" validate:"required_without=DatabaseURL"`

	TimeZone string         `yaml:"timeZone"`
	Location *time.Location `yaml:"-" validate:"required"`

	JWTSecret   string   `yaml:"jwtSecret" validate:"required,min=16"`
	CORSOrigins []string `yaml:"corsOrigins"`

	EventsBackend string `yaml:"eventsBackend" validate:"oneof=log nats mqtt"`
	EventsPrefix  string `yaml:"eventsPrefix" validate:"required"`
	NATSURL       string `yaml:"natsURL" validate:"required_if=EventsBackend nats"`
	MQTTBroker    string `yaml:"mqttBroker" validate:"required_if=EventsBackend mqtt"`

	MetricsEnabled bool   `yaml:"metricsEnabled"`
	LogLevel       string `yaml:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat      string `yaml:"logFormat" validate:"oneof=console json"`
}

var validate = validator.New()

func defaults() Env {
	return Env{
		AppAddr:       ":8080",
		DBDriver:      "mysql",
		DBHost:        "127.0.0.1:3306",
		DBUser:        "root",
		DBName:        "schoolbus",
		JWTSecret:     "change-me-in-production-please",
		EventsBackend: "log",
		EventsPrefix:  "schoolbus",
		NATSURL:       "nats://127.0.0.1:4222",
		MQTTBroker:    "tcp://127.0.0.1:1883",
		LogLevel:      "info",
		LogFormat:     "console",
		CORSOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
	}
}

// LoadEnv builds the configuration from defaults, an optional YAML file named
// by SCHOOLBUS_CONFIG, then environment variables (.env included).
func LoadEnv() (Env, error) {
	// .env is optional
	_ = godotenv.Load()

	env := defaults()
	if path := strings.TrimSpace(os.Getenv("SCHOOLBUS_CONFIG")); path != "" {
		if err := loadYAML(path, &env); err != nil {
			return Env{}, err
		}
	}
	if err := applyOverrides(&env); err != nil {
		return Env{}, err
	}

	loc, err := loadLocation(env.TimeZone)
	if err != nil {
		return Env{}, err
	}
	env.Location = loc

	if err := validate.Struct(env); err != nil {
		return Env{}, fmt.Errorf("config validation failed: %w", err)
	}
	return env, nil
}

func loadYAML(path string, env *Env) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, env); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyOverrides(env *Env) error {
	setString(&env.AppAddr, "APP_ADDR")
	setString(&env.GinMode, "GIN_MODE")
	setString(&env.DBDriver, "DB_DRIVER")
	setString(&env.DatabaseURL, "DATABASE_URL")
	setString(&env.DBHost, "DB_HOST")
	setString(&env.DBUser, "DB_USER")
	setString(&env.DBPassword, "DB_PASSWORD")
	setString(&env.DBName, "DB_NAME")
	setString(&env.TimeZone, "TZ")
	setString(&env.JWTSecret, "JWT_SECRET")
	setString(&env.EventsBackend, "EVENTS_BACKEND")
	setString(&env.EventsPrefix, "EVENTS_PREFIX")
	setString(&env.NATSURL, "NATS_URL")
	setString(&env.MQTTBroker, "MQTT_BROKER")
	setString(&env.LogLevel, "LOG_LEVEL")
	setString(&env.LogFormat, "LOG_FORMAT")

	if v := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		env.CORSOrigins = splitCSV(v)
	}
	if v := strings.TrimSpace(os.Getenv("METRICS_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED: %q", v)
		}
		env.MetricsEnabled = b
	}
	env.DBDriver = strings.ToLower(env.DBDriver)
	env.EventsBackend = strings.ToLower(env.EventsBackend)
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitCSV(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ: %w", err)
	}
	return loc, nil
}
