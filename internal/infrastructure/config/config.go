package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Backend   BackendConfig
	Printer   PrinterConfig
	Preview   PreviewConfig
	Journal   JournalConfig
	HTTP      HTTPConfig
	Batch     BatchConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// BackendConfig holds settings for the inventory and auth REST backend
type BackendConfig struct {
	BaseURL            string
	AuthURL            string // defaults to BaseURL
	LoginPath          string
	LogoutPath         string
	PurchaseOrdersPath string
	LineItemsPath      string
	WarehousesPath     string
	StocksPath         string
	Timeout            time.Duration
	RetryCount         int
}

// PrinterConfig holds label printer settings
type PrinterConfig struct {
	Device          string
	Backend         string // auto, cups, simulated
	LPPath          string
	LPStatPath      string
	CancelPath      string
	CommandTimeout  time.Duration
	PollInterval    time.Duration
	MaxUnknownReads int
	SimulatedDelay  time.Duration
}

// PreviewConfig holds label preview rendering settings
type PreviewConfig struct {
	Endpoint          string
	DotsPerMM         int
	WidthMM           float64
	HeightMM          float64
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// JournalConfig holds reconciliation journal storage settings
type JournalConfig struct {
	Driver          string // sqlite, postgres
	Path            string // sqlite file
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	LogLevel        string
	SlowThreshold   time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	TrustedProxies  []string
	MaxBodyBytes    int64
	CORSOrigins     []string
	LoginRateLimit  int // login attempts per client per LoginRateWindow
	LoginRateWindow time.Duration
	SSEHeartbeat    time.Duration
}

// BatchConfig holds batch printing limits
type BatchConfig struct {
	MaxQuantity int
	NoticeLimit int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	ServiceName       string  // Service name for all signals
	Insecure          bool    // Use insecure (non-TLS) connection
	TracesEnabled     bool    // Push traces
	SamplingRatio     float64 // 0.0-1.0
	MetricsEnabled    bool    // Push metrics
	MetricsInterval   time.Duration
	LogsEnabled       bool   // Ship zap logs through the otelzap bridge
	LogsLevel         string // minimum level exported
	DBTraceEnabled    bool   // Trace journal statements (otelgorm)
	DBLogFullSQL      bool   // Include bound values in statement spans
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with LABEL_ prefix (e.g., LABEL_PRINTER_DEVICE)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/labelstation")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("LABEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Backend: BackendConfig{
			BaseURL:            v.GetString("backend.base_url"),
			AuthURL:            v.GetString("backend.auth_url"),
			LoginPath:          v.GetString("backend.login_path"),
			LogoutPath:         v.GetString("backend.logout_path"),
			PurchaseOrdersPath: v.GetString("backend.purchase_orders_path"),
			LineItemsPath:      v.GetString("backend.line_items_path"),
			WarehousesPath:     v.GetString("backend.warehouses_path"),
			StocksPath:         v.GetString("backend.stocks_path"),
			Timeout:            v.GetDuration("backend.timeout"),
			RetryCount:         v.GetInt("backend.retry_count"),
		},
		Printer: PrinterConfig{
			Device:          v.GetString("printer.device"),
			Backend:         v.GetString("printer.backend"),
			LPPath:          v.GetString("printer.lp_path"),
			LPStatPath:      v.GetString("printer.lpstat_path"),
			CancelPath:      v.GetString("printer.cancel_path"),
			CommandTimeout:  v.GetDuration("printer.command_timeout"),
			PollInterval:    v.GetDuration("printer.poll_interval"),
			MaxUnknownReads: v.GetInt("printer.max_unknown_reads"),
			SimulatedDelay:  v.GetDuration("printer.simulated_delay"),
		},
		Preview: PreviewConfig{
			Endpoint:          v.GetString("preview.endpoint"),
			DotsPerMM:         v.GetInt("preview.dots_per_mm"),
			WidthMM:           v.GetFloat64("preview.width_mm"),
			HeightMM:          v.GetFloat64("preview.height_mm"),
			Timeout:           v.GetDuration("preview.timeout"),
			RequestsPerSecond: v.GetFloat64("preview.requests_per_second"),
			Burst:             v.GetInt("preview.burst"),
		},
		Journal: JournalConfig{
			Driver:          v.GetString("journal.driver"),
			Path:            v.GetString("journal.path"),
			Host:            v.GetString("journal.host"),
			Port:            v.GetInt("journal.port"),
			User:            v.GetString("journal.user"),
			Password:        v.GetString("journal.password"),
			DBName:          v.GetString("journal.dbname"),
			SSLMode:         v.GetString("journal.sslmode"),
			MaxOpenConns:    v.GetInt("journal.max_open_conns"),
			MaxIdleConns:    v.GetInt("journal.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("journal.conn_max_lifetime"),
			LogLevel:        v.GetString("journal.log_level"),
			SlowThreshold:   v.GetDuration("journal.slow_threshold"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
			MaxBodyBytes:    v.GetInt64("http.max_body_bytes"),
			CORSOrigins:     v.GetStringSlice("http.cors_origins"),
			LoginRateLimit:  v.GetInt("http.login_rate_limit"),
			LoginRateWindow: v.GetDuration("http.login_rate_window"),
			SSEHeartbeat:    v.GetDuration("http.sse_heartbeat"),
		},
		Batch: BatchConfig{
			MaxQuantity: v.GetInt("batch.max_quantity"),
			NoticeLimit: v.GetInt("batch.notice_limit"),
		},
		Telemetry: TelemetryConfig{
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			TracesEnabled:     v.GetBool("telemetry.traces_enabled"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			LogsLevel:         v.GetString("telemetry.logs_level"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "labelstation"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8000"
	}
	if cfg.Backend.AuthURL == "" {
		cfg.Backend.AuthURL = cfg.Backend.BaseURL
	}
	if cfg.Backend.LoginPath == "" {
		cfg.Backend.LoginPath = "/api/ewms/login"
	}
	if cfg.Backend.LogoutPath == "" {
		cfg.Backend.LogoutPath = "/api/ewms/logout"
	}
	if cfg.Backend.PurchaseOrdersPath == "" {
		cfg.Backend.PurchaseOrdersPath = "/api/ewms/odoo/purchase-orders/active"
	}
	if cfg.Backend.LineItemsPath == "" {
		cfg.Backend.LineItemsPath = "/api/ewms/odoo/purchase-orders/items"
	}
	if cfg.Backend.WarehousesPath == "" {
		cfg.Backend.WarehousesPath = "/api/ewms/accurate/warehouses"
	}
	if cfg.Backend.StocksPath == "" {
		cfg.Backend.StocksPath = "/api/ewms/odoo/stocks/create"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 10 * time.Second
	}
	if cfg.Backend.RetryCount == 0 {
		cfg.Backend.RetryCount = 2
	}

	if cfg.Printer.Device == "" {
		cfg.Printer.Device = "ZD621R"
	}
	if cfg.Printer.Backend == "" {
		cfg.Printer.Backend = "auto"
	}
	if cfg.Printer.CommandTimeout == 0 {
		cfg.Printer.CommandTimeout = 5 * time.Second
	}
	if cfg.Printer.PollInterval == 0 {
		cfg.Printer.PollInterval = 500 * time.Millisecond
	}
	if cfg.Printer.MaxUnknownReads == 0 {
		cfg.Printer.MaxUnknownReads = 5
	}
	if cfg.Printer.SimulatedDelay == 0 {
		cfg.Printer.SimulatedDelay = time.Second
	}

	if cfg.Preview.Endpoint == "" {
		cfg.Preview.Endpoint = "https://api.labelary.com/v1/printers"
	}
	if cfg.Preview.DotsPerMM == 0 {
		cfg.Preview.DotsPerMM = 8
	}
	if cfg.Preview.WidthMM == 0 {
		cfg.Preview.WidthMM = 42
	}
	if cfg.Preview.HeightMM == 0 {
		cfg.Preview.HeightMM = 20
	}
	if cfg.Preview.Timeout == 0 {
		cfg.Preview.Timeout = 10 * time.Second
	}
	if cfg.Preview.RequestsPerSecond == 0 {
		cfg.Preview.RequestsPerSecond = 3 // Labelary free tier
	}
	if cfg.Preview.Burst == 0 {
		cfg.Preview.Burst = 1
	}

	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = "sqlite"
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = "labelstation.db"
	}
	if cfg.Journal.Host == "" {
		cfg.Journal.Host = "localhost"
	}
	if cfg.Journal.Port == 0 {
		cfg.Journal.Port = 5432
	}
	if cfg.Journal.User == "" {
		cfg.Journal.User = "postgres"
	}
	if cfg.Journal.DBName == "" {
		cfg.Journal.DBName = "labelstation"
	}
	if cfg.Journal.SSLMode == "" {
		cfg.Journal.SSLMode = "disable"
	}
	if cfg.Journal.MaxOpenConns == 0 {
		cfg.Journal.MaxOpenConns = 5
	}
	if cfg.Journal.MaxIdleConns == 0 {
		cfg.Journal.MaxIdleConns = 2
	}
	if cfg.Journal.ConnMaxLifetime == 0 {
		cfg.Journal.ConnMaxLifetime = 60
	}
	if cfg.Journal.LogLevel == "" {
		cfg.Journal.LogLevel = "warn"
	}
	if cfg.Journal.SlowThreshold == 0 {
		cfg.Journal.SlowThreshold = 200 * time.Millisecond
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// WriteTimeout stays 0 unless configured: batch event streams stay open for a whole batch
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 64 << 10
	}
	if cfg.HTTP.LoginRateLimit == 0 {
		cfg.HTTP.LoginRateLimit = 10
	}
	if cfg.HTTP.LoginRateWindow == 0 {
		cfg.HTTP.LoginRateWindow = time.Minute
	}
	if cfg.HTTP.SSEHeartbeat == 0 {
		cfg.HTTP.SSEHeartbeat = 15 * time.Second
	}

	if cfg.Batch.MaxQuantity == 0 {
		cfg.Batch.MaxQuantity = 999
	}
	if cfg.Batch.NoticeLimit == 0 {
		cfg.Batch.NoticeLimit = 50
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 15 * time.Second
	}
	if cfg.Telemetry.LogsLevel == "" {
		cfg.Telemetry.LogsLevel = "info"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Printer.Backend {
	case "auto", "cups", "simulated":
	default:
		return fmt.Errorf("printer.backend must be one of auto, cups, simulated, got %q", c.Printer.Backend)
	}
	if c.Printer.PollInterval <= 0 {
		return fmt.Errorf("printer.poll_interval must be positive")
	}
	if c.Printer.MaxUnknownReads < 1 {
		return fmt.Errorf("printer.max_unknown_reads must be at least 1")
	}
	if c.Printer.SimulatedDelay < 0 {
		return fmt.Errorf("printer.simulated_delay cannot be negative")
	}

	if c.Batch.MaxQuantity < 1 || c.Batch.MaxQuantity > 999 {
		return fmt.Errorf("batch.max_quantity must be between 1 and 999, got %d", c.Batch.MaxQuantity)
	}

	switch c.Journal.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("journal.driver must be sqlite or postgres, got %q", c.Journal.Driver)
	}
	if c.Journal.MaxIdleConns > c.Journal.MaxOpenConns {
		return fmt.Errorf("journal.max_idle_conns (%d) cannot exceed journal.max_open_conns (%d)",
			c.Journal.MaxIdleConns, c.Journal.MaxOpenConns)
	}

	if c.Preview.RequestsPerSecond < 0 {
		return fmt.Errorf("preview.requests_per_second cannot be negative")
	}

	for name, raw := range map[string]string{"backend.base_url": c.Backend.BaseURL, "backend.auth_url": c.Backend.AuthURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
		if c.App.Env == "production" && u.Scheme != "https" {
			return fmt.Errorf("%s must use https in production", name)
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.App.Env == "production" && c.Telemetry.DBLogFullSQL {
		return fmt.Errorf("telemetry.db_log_full_sql must be false in production to keep tag data out of traces")
	}

	return nil
}

// DSN returns the postgres connection string with properly escaped values
func (j *JournalConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(j.User, j.Password),
		Host:   fmt.Sprintf("%s:%d", j.Host, j.Port),
		Path:   j.DBName,
	}
	q := u.Query()
	q.Set("sslmode", j.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// IsProduction reports whether the application runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
