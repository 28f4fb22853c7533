package config

// SERVER_YML is written to dev/config/server.yml the first time the server runs with --dev.
// It uses the encrypted sqlite store & no-op delivery channels, so no cloud credentials are needed.
const SERVER_YML = `
medibox:
  cron:
    timeZone: "Asia/Colombo"
  listener:
    port: 3000
  watch:
    enabled: true
    interval: "2s"
    sweepCron: "*/5 * * * *"
    workers: 4

store:
  driver: sqlite

sqlite:
  passPhrase: passphrase
  dir:

firebase:
  databaseURL:
  credentialsFile:

sms:
  provider: smsapi
  url: "https://dashboard.smsapi.lk/api/v3/sms/send"
  token: YOUR_SMSAPI_TOKEN_HERE
  senderId: MediBox

twilio:
  accountSid:
  authToken:
  messagingServiceSid:

google:
  storage:
    bucket: "medibox"
    prefix: "medibox-dev"
    sqliteBackupSchedule: "*/30 * * * *"
    enableSqliteBackupAndSync: false
  applicationCredentials:
`
