package queue

import (
	"fmt"
	"strings"
)

// RetryMessage is the broker payload for one registration retry dispatch.
// Attempt counts queue-level deliveries of this task, starting at 0.
type RetryMessage struct {
	FailedRegistrationID string `json:"failedRegistrationId"`
	DomainName           string `json:"domainName,omitempty"`
	CorrelationID        string `json:"correlationId,omitempty"`
	Attempt              int    `json:"attempt"`
}

func (m RetryMessage) Validate() error {
	if strings.TrimSpace(m.FailedRegistrationID) == "" {
		return fmt.Errorf("failedRegistrationId is required")
	}
	if m.Attempt < 0 {
		return fmt.Errorf("attempt must be >= 0")
	}
	return nil
}
