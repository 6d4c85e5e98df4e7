package config

import (
	"strings"

	"github.com/google/uuid"
)

// Keys used by sabnzbd.
const (
	Host        = "misc.host"
	Port        = "misc.port"
	HTTPSPort   = "misc.https_port"
	EnableHTTPS = "misc.enable_https"
	HTTPSCert   = "misc.https_cert"
	HTTPSKey    = "misc.https_key"
	APIKey      = "misc.api_key"
	AutoBrowser = "misc.auto_browser"
	DownloadDir = "misc.download_dir"

	LogLevel   = "logging.log_level"
	LogDir     = "logging.log_dir"
	LogSize    = "logging.max_log_size"
	LogBackups = "logging.log_backups"
	WebLogging = "logging.web_logging"

	Schedules = "scheduler.schedules"
)

// EnvPrefixName is the prefix of environment variables overriding settings.
const EnvPrefixName = "SABNZBD"

// Logging is the logging section.
type Logging struct {
	LogLevel   int    `mapstructure:"log_level"`
	LogDir     string `mapstructure:"log_dir"`
	MaxLogSize int64  `mapstructure:"max_log_size"`
	LogBackups int    `mapstructure:"log_backups"`
	WebLogging int    `mapstructure:"web_logging"`
}

// Misc is the misc section.
type Misc struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	HTTPSPort   int    `mapstructure:"https_port"`
	EnableHTTPS bool   `mapstructure:"enable_https"`
	HTTPSCert   string `mapstructure:"https_cert"`
	HTTPSKey    string `mapstructure:"https_key"`
	APIKey      string `mapstructure:"api_key"`
	AutoBrowser bool   `mapstructure:"auto_browser"`
	DownloadDir string `mapstructure:"download_dir"`
}

// SetDefaults registers the defaults of all sabnzbd settings and binds
// each of them to an environment variable.
func SetDefaults(s *Store) {
	defaults := map[string]interface{}{
		Host:        "",
		Port:        8080,
		HTTPSPort:   9090,
		EnableHTTPS: false,
		HTTPSCert:   "server.cert",
		HTTPSKey:    "server.key",
		APIKey:      "",
		AutoBrowser: true,
		DownloadDir: "incoming",
		LogLevel:    1,
		LogDir:      "logs",
		LogSize:     5 * 1024 * 1024,
		LogBackups:  5,
		WebLogging:  0,
		Schedules:   []string{},
	}
	for k, v := range defaults {
		s.SetDefault(k, v)
		s.BindEnv(k)
	}
}

// EnsureAPIKey generates and stores an API key if none is set.
func EnsureAPIKey(s *Store) string {
	key := s.GetString(APIKey)
	if key == "" {
		key = strings.ReplaceAll(uuid.NewString(), "-", "")
		s.Set(APIKey, key)
	}
	return key
}
