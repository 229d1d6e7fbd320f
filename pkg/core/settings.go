package core

// Settings represents the runtime configuration shared by notifiers
type Settings struct {
	Symbols  []string         // Symbols shown by price commands
	Telegram TelegramSettings // Telegram notification settings
	Kafka    KafkaSettings    // Trade event publishing
}

// TelegramSettings holds configuration for Telegram integration
type TelegramSettings struct {
	Enabled bool   // Whether Telegram notifications are enabled
	Token   string // Telegram bot token
	Users   []int  // List of authorized user IDs
}

// KafkaSettings holds configuration for the trade event publisher
type KafkaSettings struct {
	Enabled bool
	Brokers []string
	Topic   string
}
