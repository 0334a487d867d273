package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex chg_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	UUID_PREFIX_SUBSCRIPTION   = "sub"
	UUID_PREFIX_BILLING_CYCLE  = "bc"
	UUID_PREFIX_CHARGE         = "chg"
	UUID_PREFIX_CHARGE_ATTEMPT = "att"
	UUID_PREFIX_PAYMENT_METHOD = "pm"
	UUID_PREFIX_AUDIT_EVENT    = "evt"
)
