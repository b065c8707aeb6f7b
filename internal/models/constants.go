package models

const (
	SyncTaskUpsert = "upsert"
	SyncTaskDelete = "delete"
)

const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// DefaultTimezone is used when app.timezone is empty.
	DefaultTimezone = "Local"

	// WorkerQueueSize размер in-memory очереди воркера
	WorkerQueueSize = 128

	// DefaultRateLimitRPS запросов в секунду на клиента API
	DefaultRateLimitRPS = 10

	// DefaultRateLimitBurst допустимый всплеск запросов
	DefaultRateLimitBurst = 5

	// SheetsCacheTTL время жизни кэша строк Google Sheets
	SheetsCacheTTL = 60 * 60 // 1 час в секундах
)
