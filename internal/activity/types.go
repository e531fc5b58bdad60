package activity

import (
	"context"
	"time"
)

// Category tags a ledger entry with the subsystem that produced it.
type Category string

// Ledger categories.
const (
	CategoryLights     Category = "lights"
	CategoryClimate    Category = "climate"
	CategorySecurity   Category = "security"
	CategoryCameras    Category = "cameras"
	CategoryIrrigation Category = "irrigation"
	CategorySensors    Category = "sensors"
	CategorySystem     Category = "system"
	CategoryAlert      Category = "alert"
	CategoryNetwork    Category = "network"
	CategoryBroker     Category = "broker"
)

// DefaultCapacity is the number of entries the ledger retains.
const DefaultCapacity = 10

// Entry is one line of the activity ledger.
type Entry struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Category  Category  `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// Alert is an active warning condition. Key is the dedup key.
type Alert struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Archive receives a copy of every recorded entry and raised alert.
type Archive interface {
	ArchiveEntry(ctx context.Context, entry Entry) error
	ArchiveAlert(ctx context.Context, alert Alert) error
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// archiveTimeout bounds a single archive write.
const archiveTimeout = 2 * time.Second
