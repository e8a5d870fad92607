package billing

import "fmt"

// Status mirrors the billing provider's subscription status vocabulary.
type Status string

const (
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusUnpaid            Status = "unpaid"
	StatusPaused            Status = "paused"
)

var knownStatuses = map[Status]struct{}{
	StatusIncomplete:        {},
	StatusIncompleteExpired: {},
	StatusTrialing:          {},
	StatusActive:            {},
	StatusPastDue:           {},
	StatusCanceled:          {},
	StatusUnpaid:            {},
	StatusPaused:            {},
}

// ParseStatus accepts only statuses the provider can report.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := knownStatuses[st]; !ok {
		return "", fmt.Errorf("unknown subscription status %q", s)
	}
	return st, nil
}

// Live reports whether the subscription still entitles the customer.
func (s Status) Live() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue:
		return true
	}
	return false
}
