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
	"github.com/spf13/viper"
)

const (
	EnvDev  = "DEV"
	EnvTest = "TEST"
	EnvQA   = "QA"
	EnvProd = "PROD"

	DBEngineMemory = "memory"

	BlobDriverVercel = "vercel"
	BlobDriverSFTP   = "sftp"
	BlobDriverMemory = "memory"
)

type (
	Config struct {
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		Env                       string
		Build                     string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration
		FrontendBaseURL           string
		WorkDir                   string

		Server    ServerConfig
		Database  DatabaseConfig
		Mail      MailConfig
		Gemini    GeminiConfig
		Blob      BlobConfig
		Redis     RedisConfig
		RateLimit RateLimitConfig
		Tracing   TracingConfig
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AllowOrigins              []string
	}

	DatabaseConfig struct {
		Engine        string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		Name          string
		DisableTLS    bool
	}

	MailConfig struct {
		SendgridApiKey   string
		DefaultFromEmail mail.Address
	}

	GeminiConfig struct {
		APIKey     string
		FlashModel string
		ProModel   string
		BaseURL    string
	}

	BlobConfig struct {
		Driver  string
		Token   string
		BaseURL string
		SFTP    SFTPConfig
	}

	SFTPConfig struct {
		Host                  string
		Port                  int
		User                  string
		Password              string
		RemoteDir             string
		PublicBaseURL         string
		InsecureIgnoreHostKey bool
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
	}

	RateLimitConfig struct {
		LoginPerMinute int
		ChatPerMinute  int
	}

	TracingConfig struct {
		Enabled  bool
		Endpoint string
	}

	// EnvStatus tells which settings the service needs are present.
	EnvStatus struct {
		Configured bool            `json:"configured"`
		Missing    []string        `json:"missing"`
		Details    map[string]bool `json:"details"`
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig reads the configuration from the environment.
// Variables are prefixed by the current env, e.g. DEV_DATABASE_NAME, PROD_GEMINI_API_KEY.
func NewConfig() *Config {
	conf := viper.New()

	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "Future Navigator")
	conf.SetDefault("secretKey", "w2n#u8r)9dk+4xq=zf&v1oj3(p!m)#*c7(#ly5g0^$hbe6t2qa")
	conf.SetDefault("build", "develop")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")

	conf.SetDefault("server.host", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)
	conf.SetDefault("server.allowOrigins", "*")

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.user", "navigator")
	conf.SetDefault("database.password", "navigator")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "navigator")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("mail.sendgridApiKey", "")
	conf.SetDefault("mail.defaultFromEmail", "Future Navigator <noreply@localhost>")

	conf.SetDefault("gemini.apiKey", "")
	conf.SetDefault("gemini.flashModel", "gemini-1.5-flash")
	conf.SetDefault("gemini.proModel", "gemini-1.5-pro")
	conf.SetDefault("gemini.baseURL", "https://generativelanguage.googleapis.com")

	conf.SetDefault("blob.driver", BlobDriverMemory)
	conf.SetDefault("blob.token", "")
	conf.SetDefault("blob.baseURL", "https://blob.vercel-storage.com")
	conf.SetDefault("blob.sftp.host", "")
	conf.SetDefault("blob.sftp.port", 22)
	conf.SetDefault("blob.sftp.user", "")
	conf.SetDefault("blob.sftp.password", "")
	conf.SetDefault("blob.sftp.remoteDir", "/uploads")
	conf.SetDefault("blob.sftp.publicBaseURL", "")
	conf.SetDefault("blob.sftp.insecureIgnoreHostKey", false)

	conf.SetDefault("redis.address", "")
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)

	conf.SetDefault("rateLimit.loginPerMinute", 10)
	conf.SetDefault("rateLimit.chatPerMinute", 30)

	conf.SetDefault("tracing.enabled", false)
	conf.SetDefault("tracing.endpoint", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = EnvDev
	case EnvTest:
		conf.SetDefault("testMode", true)
		conf.SetDefault("database.engine", DBEngineMemory)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(conf.GetString("mail.defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.mail.ParseAddress(%s): %v", conf.GetString("mail.defaultFromEmail"), err)
	}

	return &Config{
		Debug:                     conf.GetBool("debug"),
		TestMode:                  conf.GetBool("testMode"),
		AppName:                   conf.GetString("appName"),
		SecretKey:                 conf.GetString("secretKey"),
		Env:                       env,
		Build:                     conf.GetString("build"),
		RollbarToken:              conf.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		FrontendBaseURL:           conf.GetString("frontendBaseURL"),
		WorkDir:                   workDir,
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			AllowOrigins:              splitList(conf.GetString("server.allowOrigins")),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Mail: MailConfig{
			SendgridApiKey:   conf.GetString("mail.sendgridApiKey"),
			DefaultFromEmail: *fromEmail,
		},
		Gemini: GeminiConfig{
			APIKey:     conf.GetString("gemini.apiKey"),
			FlashModel: conf.GetString("gemini.flashModel"),
			ProModel:   conf.GetString("gemini.proModel"),
			BaseURL:    conf.GetString("gemini.baseURL"),
		},
		Blob: BlobConfig{
			Driver:  conf.GetString("blob.driver"),
			Token:   conf.GetString("blob.token"),
			BaseURL: conf.GetString("blob.baseURL"),
			SFTP: SFTPConfig{
				Host:                  conf.GetString("blob.sftp.host"),
				Port:                  conf.GetInt("blob.sftp.port"),
				User:                  conf.GetString("blob.sftp.user"),
				Password:              conf.GetString("blob.sftp.password"),
				RemoteDir:             conf.GetString("blob.sftp.remoteDir"),
				PublicBaseURL:         conf.GetString("blob.sftp.publicBaseURL"),
				InsecureIgnoreHostKey: conf.GetBool("blob.sftp.insecureIgnoreHostKey"),
			},
		},
		Redis: RedisConfig{
			Address:  conf.GetString("redis.address"),
			Password: conf.GetString("redis.password"),
			DB:       conf.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute: conf.GetInt("rateLimit.loginPerMinute"),
			ChatPerMinute:  conf.GetInt("rateLimit.chatPerMinute"),
		},
		Tracing: TracingConfig{
			Enabled:  conf.GetBool("tracing.enabled"),
			Endpoint: conf.GetString("tracing.endpoint"),
		},
	}
}

// EnvStatus reports the settings required outside of DEV/TEST.
func (c *Config) EnvStatus() EnvStatus {
	details := map[string]bool{
		"DATABASE":       c.Database.Engine == DBEngineMemory || (c.Database.Host != "" && c.Database.Name != ""),
		"GEMINI_API_KEY": c.Gemini.APIKey != "",
		"BLOB_TOKEN":     c.Blob.Driver != BlobDriverVercel || c.Blob.Token != "",
		"BLOB_SFTP":      c.Blob.Driver != BlobDriverSFTP || (c.Blob.SFTP.Host != "" && c.Blob.SFTP.User != ""),
		"REDIS":          c.Redis.Address != "",
	}
	missing := make([]string, 0)
	// gemini & redis are optional: the key may be stored in DB, rate limits fall back to memory
	for _, name := range []string{"DATABASE", "BLOB_TOKEN", "BLOB_SFTP"} {
		if !details[name] {
			missing = append(missing, name)
		}
	}
	return EnvStatus{
		Configured: len(missing) == 0,
		Missing:    missing,
		Details:    details,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) build=%s", c.AppName, c.Env, c.Build)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}
