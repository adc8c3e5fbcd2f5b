// Package payment talks to the card processor that collects checkout totals.
package payment

import "context"

const StatusSucceeded = "succeeded"

type IntentRequest struct {
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountMinor  int64
	Currency     string
	Metadata     map[string]string
}

func (i *Intent) Succeeded() bool { return i.Status == StatusSucceeded }

type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}
