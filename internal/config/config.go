package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config carries all runtime settings for the service. Values are read from
// a .env style file via viper; keys are camelCase.
type Config struct {
	HTTPPort    string
	ServiceName string
	LogLevel    int

	// Database
	DBDialect     string // "mysql" or "sqlite"
	MysqlAddress  string
	MysqlUser     string
	MysqlPassword string
	MysqlSchema   string
	SqlitePath    string

	// Redis
	RedisAddress  string
	RedisUsername string
	RedisPassword string

	// USSD
	SessionDuration time.Duration
	SaveUssdLogs    bool
	UssdLogsTable   string

	// External services
	WeatherAPIKey  string
	WeatherBaseURL string
	GroqAPIKey     string
	GroqBaseURL    string
	GroqModel      string

	// SMS (Africa's Talking)
	SMSUsername string
	SMSAPIKey   string
	SMSSenderID string
	SMSBaseURL  string

	// Auth
	JWTSecret     string
	TokenDuration time.Duration

	// Mail
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
}

// Load reads configuration from the given file.
func Load(configFile string) (*Config, error) {
	viper.SetConfigFile(configFile)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.SetDefault("serviceName", "chapfarm")
	viper.SetDefault("dbDialect", "mysql")
	viper.SetDefault("sessionDuration", "5m")
	viper.SetDefault("tokenDuration", "30m")
	viper.SetDefault("weatherBaseUrl", "https://api.weatherapi.com/v1")
	viper.SetDefault("groqBaseUrl", "https://api.groq.com/openai/v1")
	viper.SetDefault("groqModel", "llama3-8b-8192")
	viper.SetDefault("smsBaseUrl", "https://api.africastalking.com/version1")

	cfg := &Config{
		HTTPPort:        viper.GetString("httpPort"),
		ServiceName:     viper.GetString("serviceName"),
		LogLevel:        viper.GetInt("logLevel"),
		DBDialect:       viper.GetString("dbDialect"),
		MysqlAddress:    viper.GetString("mysqlAddress"),
		MysqlUser:       viper.GetString("mysqlUser"),
		MysqlPassword:   viper.GetString("mysqlPassword"),
		MysqlSchema:     viper.GetString("mysqlSchema"),
		SqlitePath:      viper.GetString("sqlitePath"),
		RedisAddress:    viper.GetString("redisAddress"),
		RedisUsername:   viper.GetString("redisUsername"),
		RedisPassword:   viper.GetString("redisPassword"),
		SessionDuration: viper.GetDuration("sessionDuration"),
		SaveUssdLogs:    viper.GetBool("saveUssdLogs"),
		UssdLogsTable:   viper.GetString("ussdLogsTable"),
		WeatherAPIKey:   viper.GetString("weatherApiKey"),
		WeatherBaseURL:  viper.GetString("weatherBaseUrl"),
		GroqAPIKey:      viper.GetString("groqApiKey"),
		GroqBaseURL:     viper.GetString("groqBaseUrl"),
		GroqModel:       viper.GetString("groqModel"),
		SMSUsername:     viper.GetString("smsUsername"),
		SMSAPIKey:       viper.GetString("smsApiKey"),
		SMSSenderID:     viper.GetString("smsSenderId"),
		SMSBaseURL:      viper.GetString("smsBaseUrl"),
		JWTSecret:       viper.GetString("jwtSecret"),
		TokenDuration:   viper.GetDuration("tokenDuration"),
		SMTPHost:        viper.GetString("smtpHost"),
		SMTPPort:        viper.GetInt("smtpPort"),
		SMTPUser:        viper.GetString("smtpUser"),
		SMTPPassword:    viper.GetString("smtpPassword"),
		MailFrom:        viper.GetString("mailFrom"),
	}

	switch {
	case cfg.HTTPPort == "":
		return nil, errors.New("missing http port")
	case cfg.JWTSecret == "":
		return nil, errors.New("missing jwt secret")
	case cfg.WeatherAPIKey == "":
		return nil, errors.New("missing weather api key")
	case cfg.GroqAPIKey == "":
		return nil, errors.New("missing groq api key")
	case cfg.DBDialect == "mysql" && cfg.MysqlAddress == "":
		return nil, errors.New("missing mysql address")
	case cfg.DBDialect == "sqlite" && cfg.SqlitePath == "":
		return nil, errors.New("missing sqlite path")
	}

	return cfg, nil
}
