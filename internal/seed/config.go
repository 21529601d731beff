package seed

import (
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
)

// Config holds configuration for a seed run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Sales      int           // Number of sales to generate
	Clients    int           // Number of distinct clients the sales are spread over
	Duplicates int           // Sales resubmitted with their original Idempotency-Key
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for the board to catch up
	Seed       int64         // Generator seed; equal seeds give equal sales
	OutputFile string        // Output file for generated sales
	Verbose    bool          // Enable verbose logging
}

// Sale is one generated submission.
type Sale struct {
	Key   string          `json:"idempotency_key"`
	Input model.SaleInput `json:"sale"`
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Created    int
	Duplicate  int
	Failed     int
	BoardRows  int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Verified   bool
	SkipReason string
}
