package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		StudentSessionDelta       time.Duration
		AccessLinkDelta           time.Duration
		VerificationCodeDelta     time.Duration
		PasswordResetTimeoutDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	Config struct {
		Env      string // DEV (default), TEST, QA, PROD
		Debug    bool
		TestMode bool
		Build    string
		AppName  string

		SecretKey          string
		FrontendBaseURL    string
		WorkDir            string
		DisplayTimezone    string // used for formatting only, never for instant comparison
		TeacherEmailDomain string // teacher accounts are restricted to this domain
		SendgridApiKey     string
		RollbarToken       string

		defaultFromEmail string
		Server           ServerConfig
		Database         DatabaseConfig
	}
)

func (s ServerConfig) Address() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

func (d DatabaseConfig) Address() string { return fmt.Sprintf("%s:%d", d.Host, d.Port) }

func (c Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

// NewConfig loads the app configuration from defaults, an optional
// config/.env.<env> file and environment variables prefixed with ENV.
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "Tathmini")
	conf.SetDefault("secretKey", "w3m+x)#*c2(#yg4h^$cegm2emy-poq5-wer)enb$+57=dz&uox")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("displayTimezone", "America/New_York")
	conf.SetDefault("teacherEmailDomain", "monmouth.edu")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")

	conf.SetDefault("serverHost", "0.0.0.0")
	conf.SetDefault("serverPort", 8000)
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("studentSessionDelta", 4*time.Hour)
	conf.SetDefault("accessLinkDelta", 4*time.Hour)
	conf.SetDefault("verificationCodeDelta", 10*time.Minute)
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	conf.SetDefault("databaseEngine", "postgres")
	conf.SetDefault("databaseName", "tathmini")
	conf.SetDefault("databaseUser", "")
	conf.SetDefault("databasePassword", "")
	conf.SetDefault("databaseAdminUser", "")
	conf.SetDefault("databaseAdminPassword", "")
	conf.SetDefault("databaseHost", "localhost")
	conf.SetDefault("databasePort", 5432)
	conf.SetDefault("databaseDisableTLS", true)

	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:      env,
		Debug:    conf.GetBool("debug"),
		TestMode: env == "TEST",
		Build:    conf.GetString("build"),
		AppName:  conf.GetString("appName"),

		SecretKey:          conf.GetString("secretKey"),
		FrontendBaseURL:    conf.GetString("frontendBaseURL"),
		WorkDir:            wd,
		DisplayTimezone:    conf.GetString("displayTimezone"),
		TeacherEmailDomain: conf.GetString("teacherEmailDomain"),
		SendgridApiKey:     conf.GetString("sendgridApiKey"),
		RollbarToken:       conf.GetString("rollbarToken"),
		defaultFromEmail:   conf.GetString("defaultFromEmail"),

		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			Port:                      conf.GetInt("serverPort"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
			StudentSessionDelta:       conf.GetDuration("studentSessionDelta"),
			AccessLinkDelta:           conf.GetDuration("accessLinkDelta"),
			VerificationCodeDelta:     conf.GetDuration("verificationCodeDelta"),
			PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("databaseEngine"),
			Name:          conf.GetString("databaseName"),
			User:          conf.GetString("databaseUser"),
			Password:      conf.GetString("databasePassword"),
			AdminUser:     conf.GetString("databaseAdminUser"),
			AdminPassword: conf.GetString("databaseAdminPassword"),
			Host:          conf.GetString("databaseHost"),
			Port:          conf.GetInt("databasePort"),
			DisableTLS:    conf.GetBool("databaseDisableTLS"),
		},
	}
}
