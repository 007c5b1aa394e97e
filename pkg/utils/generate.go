package utils

import (
	"strings"

	"github.com/google/uuid"
)

// ==================== UUID ====================

func GenerateUUID() uuid.UUID {
	return uuid.New()
}

// ==================== BOOKING CODE ====================

// GenerateBookingCode creates the human-facing code printed on tickets.
// Format: EVT + 8 uppercase hex chars, e.g. EVT3FA91C07.
func GenerateBookingCode() string {
	return "EVT" + strings.ToUpper(uuid.New().String()[:8])
}
