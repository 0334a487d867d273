package charge

import (
	"testing"
	"time"

	"github.com/andariego/andariego/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "AB-17-000042", FormatNumber(17, 42))
	assert.Equal(t, "AB-1-000001", FormatNumber(1, 1))
	// the sequence is zero-padded but not truncated
	assert.Equal(t, "AB-3-1000000", FormatNumber(3, 1000000))
}

func TestFormatLabel(t *testing.T) {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)

	april := time.Date(2024, 4, 1, 0, 0, 0, 0, loc)
	assert.Equal(t, "Suscripción Abril 2024", FormatLabel(april, loc))

	december := time.Date(2023, 12, 15, 0, 0, 0, 0, loc)
	assert.Equal(t, "Suscripción Diciembre 2023", FormatLabel(december, loc))

	// the month is read in the subscription's zone, not the instant's zone:
	// 2024-05-01T01:00Z is still April 30 in Buenos Aires
	edge := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, "Suscripción Abril 2024", FormatLabel(edge, loc))
}

func validCharge() *Charge {
	return &Charge{
		ID:             "chg_1",
		AgencyID:       1,
		SubscriptionID: "sub_1",
		CycleID:        "bc_1",
		IdempotencyKey: "1-2024-04-01",
		AmountDueARS:   decimal.NewFromInt(96800),
		Channel:        types.CollectionChannelDirectDebit,
	}
}

func TestChargeValidate(t *testing.T) {
	assert.NoError(t, validCharge().Validate())

	c := validCharge()
	c.AgencyID = 0
	assert.Error(t, c.Validate())

	c = validCharge()
	c.IdempotencyKey = ""
	assert.Error(t, c.Validate())

	c = validCharge()
	c.CycleID = ""
	assert.Error(t, c.Validate())

	c = validCharge()
	c.AmountDueARS = decimal.NewFromInt(-1)
	assert.Error(t, c.Validate())

	c = validCharge()
	c.Channel = "CASH"
	assert.Error(t, c.Validate())
}

func TestChargeAttemptValidate(t *testing.T) {
	valid := &ChargeAttempt{
		ID:            "att_1",
		ChargeID:      "chg_1",
		AttemptNumber: 1,
		Channel:       types.CollectionChannelDirectDebit,
		ScheduledFor:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, valid.Validate())

	a := *valid
	a.ChargeID = ""
	assert.Error(t, a.Validate())

	a = *valid
	a.AttemptNumber = 0
	assert.Error(t, a.Validate())

	a = *valid
	a.ScheduledFor = time.Time{}
	assert.Error(t, a.Validate())
}
