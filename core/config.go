package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
		LoginRatePerMinute        int
		LoginRateBurst            int
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only; ":memory:" for an in-memory database
	}

	ModelConfig struct {
		Path     string // explicit artifact path; tried before the default candidates
		FileName string
	}

	Config struct {
		Build          string
		Env            string
		Debug          bool
		TestMode       bool
		AppName        string
		SecretKey      string
		RollbarToken   string
		SendgridApiKey string
		FromEmail      string
		FromName       string
		FrontendURL    string // base of the links sent in emails
		WorkDir        string

		Server   ServerConfig
		Database DatabaseConfig
		Model    ModelConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.FromName, Address: c.FromEmail}
}

// NewConfig loads the configuration of the current environment (ENV: DEV by default, TEST, QA, PROD).
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	return newConfig(env, workDir())
}

func newConfig(env, wd string) *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Rapor")
	v.SetDefault("secretKey", "rk3b!u8x$0-hm2wq+7z)e@jy4l^d9c(5pvf&s1an=t6ogi")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("fromEmail", "noreply@localhost")
	v.SetDefault("fromName", "Rapor TPQ")
	v.SetDefault("frontendURL", "http://localhost:3000")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("server.loginRatePerMinute", 10)
	v.SetDefault("server.loginRateBurst", 5)

	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "rapor")
	v.SetDefault("database.user", "rapor")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", filepath.Join(wd, "rapor.db"))

	v.SetDefault("model.path", "")
	v.SetDefault("model.fileName", "student_model.json")

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Build:          v.GetString("build"),
		Env:            env,
		Debug:          v.GetBool("debug"),
		TestMode:       v.GetBool("testMode"),
		AppName:        v.GetString("appName"),
		SecretKey:      v.GetString("secretKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridApiKey: v.GetString("sendgridApiKey"),
		FromEmail:      v.GetString("fromEmail"),
		FromName:       v.GetString("fromName"),
		FrontendURL:    strings.TrimRight(v.GetString("frontendURL"), "/"),
		WorkDir:        wd,
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("server.passwordResetTimeoutDelta"),
			LoginRatePerMinute:        v.GetInt("server.loginRatePerMinute"),
			LoginRateBurst:            v.GetInt("server.loginRateBurst"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Model: ModelConfig{
			Path:     v.GetString("model.path"),
			FileName: v.GetString("model.fileName"),
		},
	}
}

// NewTestConfig returns the TEST configuration backed by an in-memory database.
func NewTestConfig() *Config {
	conf := newConfig("TEST", workDir())
	conf.Database.Engine = "sqlite"
	conf.Database.Path = ":memory:"
	return conf
}

func workDir() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return wd
}
