package shared

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

const (
	FIREBASE_STORE = "firebase"
	SQLITE_STORE   = "sqlite"

	SMSAPI_PROVIDER = "smsapi"
	TWILIO_PROVIDER = "twilio"

	// SMS_TOKEN_PLACEHOLDER is the value shipped in sample configs, sms is skipped while it's set
	SMS_TOKEN_PLACEHOLDER = "YOUR_SMSAPI_TOKEN_HERE"
	DEFAULT_SMS_URL       = "https://dashboard.smsapi.lk/api/v3/sms/send"
	DEFAULT_SMS_SENDER_ID = "MediBox"
)

type ServerConfig struct {
	Store    StoreConfig    `mapstructure:"store" validate:"required"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	Sqlite   SqliteConfig   `mapstructure:"sqlite"`
	SMS      SMSConfig      `mapstructure:"sms" validate:"required"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	Medibox  MediboxConfig  `mapstructure:"medibox" validate:"required"`
	Google   GoogleConfig   `mapstructure:"google"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=firebase sqlite"`
}

type FirebaseConfig struct {
	// DatabaseURL is the realtime database endpoint e.g. https://<project>-default-rtdb.firebaseio.com
	DatabaseURL     string `mapstructure:"databaseURL" validate:"omitempty,url"`
	CredentialsFile string `mapstructure:"credentialsFile"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase"`
	Dir        string `mapstructure:"dir"`
}

type SMSConfig struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=smsapi twilio"`
	URL      string `mapstructure:"url" validate:"omitempty,url"`
	Token    string `mapstructure:"token"`
	SenderID string `mapstructure:"senderId"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
}

type MediboxConfig struct {
	Cron     CronConfig     `mapstructure:"cron" validate:"required"`
	Listener ListenerConfig `mapstructure:"listener" validate:"required"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

type WatchConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Interval between polls of the device records e.g. "2s"
	Interval string `mapstructure:"interval"`
	// SweepCron re-checks triggers left set by a failed dispatch
	SweepCron string `mapstructure:"sweepCron"`
	Workers   int    `mapstructure:"workers" validate:"omitempty,min=1"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Bucket                    string      `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string      `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	SqliteBackupSchedule      string      `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync interface{} `mapstructure:"enableSqliteBackupAndSync"`
}

// BackupEnabled reports whether the sqlite db should be synced with google storage
func (s StorageConfig) BackupEnabled() bool {
	enabled, ok := s.EnableSqliteBackupAndSync.(bool)
	if ok {
		return enabled
	}

	str, ok := s.EnableSqliteBackupAndSync.(string)
	return ok && strings.EqualFold(str, "true")
}

// SMSConfigured is false while the sms credential is missing or left at its placeholder
func (s SMSConfig) SMSConfigured() bool {
	token := strings.TrimSpace(s.Token)
	return token != "" && token != SMS_TOKEN_PLACEHOLDER
}

// ApplyDefaults fills in optional values that have a sensible default
func (c *ServerConfig) ApplyDefaults() {
	if c.SMS.URL == "" {
		c.SMS.URL = DEFAULT_SMS_URL
	}
	if c.SMS.SenderID == "" {
		c.SMS.SenderID = DEFAULT_SMS_SENDER_ID
	}
	if c.Medibox.Watch.Interval == "" {
		c.Medibox.Watch.Interval = "2s"
	}
	if c.Medibox.Watch.SweepCron == "" {
		c.Medibox.Watch.SweepCron = "*/5 * * * *"
	}
	if c.Medibox.Watch.Workers == 0 {
		c.Medibox.Watch.Workers = 4
	}
}

// Validate checks struct tags & the rules that depend on the chosen store/sms provider
func (c *ServerConfig) Validate(validate *validator.Validate) error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var errs []string
	switch c.Store.Driver {
	case FIREBASE_STORE:
		if c.Firebase.DatabaseURL == "" {
			errs = append(errs, "firebase.databaseURL is required when store.driver is 'firebase'")
		}
	case SQLITE_STORE:
		if c.Sqlite.PassPhrase == "" {
			errs = append(errs, "sqlite.passPhrase is required when store.driver is 'sqlite'")
		}
	}

	switch enabled := c.Google.Storage.EnableSqliteBackupAndSync.(type) {
	case nil, bool:
	case string:
		if !strings.EqualFold(enabled, "true") && !strings.EqualFold(enabled, "false") {
			errs = append(errs, "google.storage.enableSqliteBackupAndSync should be true or false")
		}
	default:
		errs = append(errs, "google.storage.enableSqliteBackupAndSync should be true or false")
	}

	if c.SMS.Provider == TWILIO_PROVIDER &&
		(c.Twilio.AccountSid == "" || c.Twilio.AuthToken == "" || c.Twilio.MessagingServiceSid == "") {
		errs = append(errs, "twilio.accountSid, twilio.authToken & twilio.messagingServiceSid are required when sms.provider is 'twilio'")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid server config: %s", strings.Join(errs, "; "))
	}

	return nil
}
