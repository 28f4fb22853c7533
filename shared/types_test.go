package shared

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
)

func validConfig() ServerConfig {
	config := ServerConfig{
		Store:  StoreConfig{Driver: SQLITE_STORE},
		Sqlite: SqliteConfig{PassPhrase: "passphrase"},
		SMS:    SMSConfig{Provider: SMSAPI_PROVIDER, Token: "secret"},
		Medibox: MediboxConfig{
			Cron:     CronConfig{TimeZone: "Asia/Colombo"},
			Listener: ListenerConfig{Port: 3000},
		},
	}
	config.ApplyDefaults()
	return config
}

func TestApplyDefaults(t *testing.T) {
	config := validConfig()

	assert.Equal(t, DEFAULT_SMS_URL, config.SMS.URL)
	assert.Equal(t, "MediBox", config.SMS.SenderID)
	assert.Equal(t, "2s", config.Medibox.Watch.Interval)
	assert.Equal(t, "*/5 * * * *", config.Medibox.Watch.SweepCron)
	assert.Equal(t, 4, config.Medibox.Watch.Workers)
}

func TestValidate(t *testing.T) {
	validate := validator.New()

	cases := []struct {
		description string
		update      func(*ServerConfig)
		expectedErr string
	}{
		{
			description: "Should accept a complete sqlite config",
			update:      func(c *ServerConfig) {},
		},
		{
			description: "Should reject an unknown store driver",
			update:      func(c *ServerConfig) { c.Store.Driver = "postgres" },
			expectedErr: "Driver",
		},
		{
			description: "Should require a database url for the firebase store",
			update:      func(c *ServerConfig) { c.Store.Driver = FIREBASE_STORE },
			expectedErr: "firebase.databaseURL is required",
		},
		{
			description: "Should accept a firebase config with a database url",
			update: func(c *ServerConfig) {
				c.Store.Driver = FIREBASE_STORE
				c.Firebase.DatabaseURL = "https://medibox-default-rtdb.firebaseio.com"
			},
		},
		{
			description: "Should require a passphrase for the sqlite store",
			update:      func(c *ServerConfig) { c.Sqlite.PassPhrase = "" },
			expectedErr: "sqlite.passPhrase is required",
		},
		{
			description: "Should require twilio credentials for the twilio provider",
			update:      func(c *ServerConfig) { c.SMS.Provider = TWILIO_PROVIDER },
			expectedErr: "twilio.accountSid",
		},
		{
			description: "Should reject an invalid listener port",
			update:      func(c *ServerConfig) { c.Medibox.Listener.Port = 70000 },
			expectedErr: "Port",
		},
		{
			description: "Should reject a backup flag that isn't a boolean",
			update: func(c *ServerConfig) {
				c.Google.Storage = StorageConfig{
					Bucket:                    "medibox",
					Prefix:                    "medibox",
					SqliteBackupSchedule:      "0 * * * *",
					EnableSqliteBackupAndSync: "sometimes",
				}
			},
			expectedErr: "enableSqliteBackupAndSync",
		},
		{
			description: "Should require a bucket when sqlite backups are enabled",
			update: func(c *ServerConfig) {
				c.Google.Storage.EnableSqliteBackupAndSync = true
				c.Google.Storage.Prefix = "medibox"
				c.Google.Storage.SqliteBackupSchedule = "0 * * * *"
			},
			expectedErr: "Bucket",
		},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			config := validConfig()
			c.update(&config)

			err := config.Validate(validate)
			if c.expectedErr == "" {
				assert.Nil(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), c.expectedErr)
			}
		})
	}
}

func TestBackupEnabled(t *testing.T) {
	assert.False(t, StorageConfig{}.BackupEnabled())
	assert.True(t, StorageConfig{EnableSqliteBackupAndSync: true}.BackupEnabled())
	assert.True(t, StorageConfig{EnableSqliteBackupAndSync: "TRUE"}.BackupEnabled())
	assert.False(t, StorageConfig{EnableSqliteBackupAndSync: "no"}.BackupEnabled())
}

func TestSMSConfigured(t *testing.T) {
	assert.True(t, SMSConfig{Token: "secret"}.SMSConfigured())
	assert.False(t, SMSConfig{Token: ""}.SMSConfigured())
	assert.False(t, SMSConfig{Token: SMS_TOKEN_PLACEHOLDER}.SMSConfigured())
}
