package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChargeKey(t *testing.T) {
	g := NewGenerator()

	assert.Equal(t, "17-2024-04-01", g.ChargeKey(17, "2024-04-01"))
	assert.Equal(t, "1-2024-12-31", g.ChargeKey(1, "2024-12-31"))

	// deterministic: same inputs always collide on the same key
	assert.Equal(t, g.ChargeKey(17, "2024-04-01"), g.ChargeKey(17, "2024-04-01"))

	// distinct agency or date means distinct key
	assert.NotEqual(t, g.ChargeKey(17, "2024-04-01"), g.ChargeKey(18, "2024-04-01"))
	assert.NotEqual(t, g.ChargeKey(17, "2024-04-01"), g.ChargeKey(17, "2024-05-01"))
}

func TestValidateChargeKey(t *testing.T) {
	g := NewGenerator()

	assert.True(t, g.ValidateChargeKey(17, "2024-04-01", "17-2024-04-01"))
	assert.False(t, g.ValidateChargeKey(17, "2024-04-01", "17-2024-05-01"))
	assert.False(t, g.ValidateChargeKey(18, "2024-04-01", "17-2024-04-01"))
}
