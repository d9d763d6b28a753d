package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Debug          bool
	TestMode       bool
	AppName        string
	AppURL         string
	SecretKey      string
	Env            string
	Build          string
	RollbarToken   string
	SendgridApiKey string

	DefaultFromEmail mail.Address

	// default admin account, seeded on start up
	Admin struct {
		Username string
		Email    string
		Password string
	}

	Server struct {
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		LoginRateLimit     float64 // requests per second, per client IP
		LoginRateBurst     int
	}

	Database DatabaseConfig

	Reminder struct {
		Hour            int
		Minute          int
		RefreshInterval time.Duration
		Disabled        bool
	}
}

type DatabaseConfig struct {
	Engine        string
	Host          string
	Port          string
	User          string
	Password      string
	AdminUser     string
	AdminPassword string
	Name          string
	DisableTLS    bool
}

// Address returns the host:port of the database server.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Todo-app")
	v.SetDefault("appURL", "http://localhost:8000")
	v.SetDefault("secretKey", "k2(vz!9m$q-4wd+r8o^t@h7#e5yfn0lx&j3b)c6ug*ps=a1i")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("adminUsername", "")
	v.SetDefault("adminEmail", "")
	v.SetDefault("adminPassword", "")

	v.SetDefault("serverHost", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("loginRateLimit", 1.0)
	v.SetDefault("loginRateBurst", 5)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbUser", "todoapp")
	v.SetDefault("dbPassword", "todoapp")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbName", "todoapp")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("reminderHour", 9)
	v.SetDefault("reminderMinute", 0)
	v.SetDefault("reminderRefreshInterval", 24*time.Hour)
	v.SetDefault("reminderDisabled", false)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := new(Config)
	conf.Debug = v.GetBool("debug")
	conf.TestMode = v.GetBool("testMode")
	conf.AppName = v.GetString("appName")
	conf.AppURL = strings.TrimRight(v.GetString("appURL"), "/")
	conf.SecretKey = v.GetString("secretKey")
	conf.Env = env
	conf.Build = v.GetString("build")
	conf.RollbarToken = v.GetString("rollbarToken")
	conf.SendgridApiKey = v.GetString("sendgridApiKey")
	conf.DefaultFromEmail = mail.Address{Name: conf.AppName, Address: v.GetString("defaultFromEmail")}

	conf.Admin.Username = v.GetString("adminUsername")
	conf.Admin.Email = v.GetString("adminEmail")
	conf.Admin.Password = v.GetString("adminPassword")

	conf.Server.Host = v.GetString("serverHost")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Server.LoginRateLimit = v.GetFloat64("loginRateLimit")
	conf.Server.LoginRateBurst = v.GetInt("loginRateBurst")

	conf.Database.Engine = v.GetString("dbEngine")
	conf.Database.Host = v.GetString("dbHost")
	conf.Database.Port = v.GetString("dbPort")
	conf.Database.User = v.GetString("dbUser")
	conf.Database.Password = v.GetString("dbPassword")
	conf.Database.AdminUser = v.GetString("dbAdminUser")
	conf.Database.AdminPassword = v.GetString("dbAdminPassword")
	conf.Database.Name = v.GetString("dbName")
	conf.Database.DisableTLS = v.GetBool("dbDisableTLS")

	conf.Reminder.Hour = v.GetInt("reminderHour")
	conf.Reminder.Minute = v.GetInt("reminderMinute")
	conf.Reminder.RefreshInterval = v.GetDuration("reminderRefreshInterval")
	conf.Reminder.Disabled = v.GetBool("reminderDisabled")

	return conf
}

// configDir returns the directory holding the .env files.
// CONFIG_DIR takes precedence over the "config" folder of the working directory.
func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return filepath.Join(wd, "config")
}
