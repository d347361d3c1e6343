package constants

import "time"

const (
	AppName           = "hearth"
	Version           = "v0.3.0"
	DefaultConfigDir  = "~/.config/hearth"
	DefaultConfigFile = "config.toml"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Storage drivers
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"

	// File names inside the data directory
	SQLiteFileName   = "hearth.db"
	BoltFileName     = "hearth.bolt"
	FallbackFileName = "fallback.json"
	LockFileName     = "hearth.lock"
	LogDirName       = "logs"
	LogFileName      = "hearth.log"

	// CanonicalRecordID is the single durable record holding the whole dataset.
	CanonicalRecordID = "familyData"
	// MigrationMarkerID is written once legacy fallback data has been imported.
	MigrationMarkerID = "familyData:migrated"

	// Fallback store keys
	FallbackDataKey        = "familyData"
	FallbackLastUpdatedKey = "familyData:lastUpdated"
	FlagKeyPrefix          = "flag:"
	FlagWelcomeShown       = "welcomeShown"

	// SchemaVersion is the version stamped on records written by this build.
	// Version 0 is the legacy shape without graduation fields.
	SchemaVersion = 1

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "hearth-"

	// Durable writer
	WriteTimeout = 5 * time.Second
)
