package enums

import "fmt"

// QuoteStatus tracks the lifecycle of a quote.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusDraft,
	QuoteStatusSent,
	QuoteStatusAccepted,
	QuoteStatusRejected,
}

// IsValid reports whether the value matches the canonical quote status set.
func (s QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseQuoteStatus converts raw input into QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}
