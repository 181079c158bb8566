package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/contactbook/internal/flagx"
	"github.com/dmitrijs2005/contactbook/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
// Pointer fields distinguish "absent" from "zero" so a partial file only
// overrides what it names.
type JsonConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	EmailSecretKey              *string         `json:"email_secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	EmailTokenValidityDuration  *timex.Duration `json:"email_token_validity_duration"`
	PublicBaseURL               *string         `json:"public_base_url"`
	SMTPHost                    *string         `json:"smtp_host"`
	SMTPPort                    *int            `json:"smtp_port"`
	SMTPUser                    *string         `json:"smtp_user"`
	SMTPPassword                *string         `json:"smtp_password"`
	MailFrom                    *string         `json:"mail_from"`
	MailWorkers                 *int            `json:"mail_workers"`
	MailQueueSize               *int            `json:"mail_queue_size"`
	MailSendTimeout             *timex.Duration `json:"mail_send_timeout"`
	LogLevel                    *string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by the
// -c / -config flag into config. Without the flag nothing happens.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.EmailSecretKey, c.EmailSecretKey)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.SMTPHost, c.SMTPHost)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.LogLevel, c.LogLevel)

	setInt(&config.SMTPPort, c.SMTPPort)
	setInt(&config.MailWorkers, c.MailWorkers)
	setInt(&config.MailQueueSize, c.MailQueueSize)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.EmailTokenValidityDuration != nil {
		config.EmailTokenValidityDuration = c.EmailTokenValidityDuration.Duration
	}
	if c.MailSendTimeout != nil {
		config.MailSendTimeout = c.MailSendTimeout.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
