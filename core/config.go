package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName  string
		Env      string // DEV (default), TEST, QA, PROD
		Debug    bool
		TestMode bool
		Build    string

		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		// ParentPortalBaseURL is used when building outbound links in
		// notification payloads and email templates.
		ParentPortalBaseURL string

		Server    ServerConfig
		Database  DatabaseConfig
		Functions FunctionsConfig
	}

	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	// FunctionsConfig points at the external serverless-function surface
	// (cross-system sync, parent linking, notification dispatch).
	FunctionsConfig struct {
		BaseURL    string
		ServiceKey string
		Timeout    time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "SchoolOps")
	v.SetDefault("build", "dev")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("parentPortalBaseURL", "http://localhost:3000")
	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "schoolops")
	v.SetDefault("dbUser", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("functionsTimeout", 10*time.Second)

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:             v.GetString("appName"),
		Env:                 env,
		Debug:               v.GetBool("debug"),
		TestMode:            env == "TEST",
		Build:               v.GetString("build"),
		DefaultFromEmail:    mail.Address{Address: v.GetString("defaultFromEmail")},
		SendgridAPIKey:      v.GetString("sendgridAPIKey"),
		RollbarToken:        v.GetString("rollbarToken"),
		ParentPortalBaseURL: v.GetString("parentPortalBaseURL"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			DebugHost:       v.GetString("serverDebugHost"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Functions: FunctionsConfig{
			BaseURL:    v.GetString("functionsBaseURL"),
			ServiceKey: v.GetString("functionsServiceKey"),
			Timeout:    v.GetDuration("functionsTimeout"),
		},
	}

	if err := conf.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

func (c *Config) validate() error {
	checks := vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.AppName, "appName"),
		vala.StringNotEmpty(c.Database.Engine, "dbEngine"),
		vala.StringNotEmpty(c.Database.Name, "dbName"),
		vala.StringNotEmpty(c.Database.User, "dbUser"),
		vala.StringNotEmpty(c.Server.Host, "serverHost"),
	)
	if !c.Debug {
		checks = checks.Validate(
			vala.StringNotEmpty(c.SendgridAPIKey, "sendgridAPIKey"),
			vala.StringNotEmpty(c.Functions.BaseURL, "functionsBaseURL"),
			vala.StringNotEmpty(c.Functions.ServiceKey, "functionsServiceKey"),
		)
	}
	if err := checks.Check(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}
	return nil
}
