package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted. Only
// fields present in the file override the current values.
type JsonConfig struct {
	HTTPAddr                          *string         `json:"http_addr"`
	HealthAddrGRPC                    *string         `json:"grpc_health_addr"`
	DatabaseDSN                       *string         `json:"database_dsn"`
	SecretKey                         *string         `json:"secret_key"`
	AccessTokenValidityDuration       *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration      *timex.Duration `json:"refresh_token_validity_duration"`
	ConfirmationTokenValidityDuration *timex.Duration `json:"confirmation_token_validity_duration"`
	FrontendURL                       *string         `json:"frontend_url"`
	RedisAddr                         *string         `json:"redis_addr"`
	MailtrapAPIURL                    *string         `json:"mailtrap_api_url"`
	MailtrapToken                     *string         `json:"mailtrap_token"`
	SenderEmail                       *string         `json:"sender_email"`
	SenderName                        *string         `json:"sender_name"`
	LogLevel                          *string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config (if any) into config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.HealthAddrGRPC, c.HealthAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.ConfirmationTokenValidityDuration, c.ConfirmationTokenValidityDuration)
	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.MailtrapAPIURL, c.MailtrapAPIURL)
	setString(&config.MailtrapToken, c.MailtrapToken)
	setString(&config.SenderEmail, c.SenderEmail)
	setString(&config.SenderName, c.SenderName)
	setString(&config.LogLevel, c.LogLevel)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
