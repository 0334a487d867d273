package types

import (
	ierr "github.com/andariego/andariego/internal/errors"
)

// Status is a type for the lifecycle status of a resource in the database.
// Any changes to this type should be reflected in the database schema by running migrations
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

// SubscriptionStatus is the billing lifecycle status of an agency subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPaused    SubscriptionStatus = "PAUSED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

func (s SubscriptionStatus) Validate() error {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusPaused, SubscriptionStatusCancelled:
		return nil
	}
	return ierr.NewError("invalid subscription status").
		WithHintf("Subscription status %s is not supported", s).
		Mark(ierr.ErrValidation)
}

// ChargeStatus is the collection state of a charge
type ChargeStatus string

const (
	ChargeStatusReady     ChargeStatus = "READY"
	ChargeStatusPaid      ChargeStatus = "PAID"
	ChargeStatusFailed    ChargeStatus = "FAILED"
	ChargeStatusCancelled ChargeStatus = "CANCELLED"
)

// ChargeKind distinguishes recurring anchor charges from one-off charges
type ChargeKind string

const (
	ChargeKindRecurring ChargeKind = "RECURRING"
	ChargeKindOneOff    ChargeKind = "ONE_OFF"
)

// ReconciliationStatus tracks whether a charge has been matched against bank movements
type ReconciliationStatus string

const (
	ReconciliationStatusPending  ReconciliationStatus = "PENDING"
	ReconciliationStatusMatched  ReconciliationStatus = "MATCHED"
	ReconciliationStatusManual   ReconciliationStatus = "MANUAL"
	ReconciliationStatusWriteOff ReconciliationStatus = "WRITE_OFF"
)

// AttemptStatus is the state of a single scheduled collection attempt
type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "PENDING"
	AttemptStatusSucceeded AttemptStatus = "SUCCEEDED"
	AttemptStatusFailed    AttemptStatus = "FAILED"
	AttemptStatusSkipped   AttemptStatus = "SKIPPED"
)

// CollectionChannel is the rail a collection attempt goes out on
type CollectionChannel string

const (
	CollectionChannelDirectDebit CollectionChannel = "DIRECT_DEBIT"
	CollectionChannelCard        CollectionChannel = "CARD"
	CollectionChannelTransfer    CollectionChannel = "TRANSFER"
)

func (c CollectionChannel) Validate() error {
	switch c {
	case CollectionChannelDirectDebit, CollectionChannelCard, CollectionChannelTransfer:
		return nil
	}
	return ierr.NewError("invalid collection channel").
		WithHintf("Collection channel %s is not supported", c).
		Mark(ierr.ErrValidation)
}

// PaymentMethodStatus is the lifecycle state of a payment method on file
type PaymentMethodStatus string

const (
	PaymentMethodStatusActive   PaymentMethodStatus = "ACTIVE"
	PaymentMethodStatusPending  PaymentMethodStatus = "PENDING"
	PaymentMethodStatusInactive PaymentMethodStatus = "INACTIVE"
)

// PaymentMethodType defines how a charge is intended to be collected
type PaymentMethodType string

const (
	PaymentMethodTypeDirectDebit  PaymentMethodType = "DIRECT_DEBIT"
	PaymentMethodTypeCard         PaymentMethodType = "CARD"
	PaymentMethodTypeBankTransfer PaymentMethodType = "BANK_TRANSFER"
)

// CollectionChannel maps a payment method type to the channel its attempts use
func (t PaymentMethodType) CollectionChannel() CollectionChannel {
	switch t {
	case PaymentMethodTypeCard:
		return CollectionChannelCard
	case PaymentMethodTypeBankTransfer:
		return CollectionChannelTransfer
	default:
		return CollectionChannelDirectDebit
	}
}

// FxType identifies the reference exchange rate series used for settlement
type FxType string

const (
	// FxTypeReference is the wholesale reference rate series (ARS per USD)
	FxTypeReference FxType = "REFERENCE"
	FxTypeCard      FxType = "CARD"
)

// RunMode is the deployment mode of the process
type RunMode string

const (
	ModeLocal RunMode = "local"
	ModeProd  RunMode = "prod"
)

// LogLevel is the logging level for the application
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
