package service

import (
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/dedupe"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted = types.ErrNoBoard
	ErrInFlight   = dedupe.ErrInFlight
)
