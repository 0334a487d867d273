package paymentmethod

import (
	"testing"

	"github.com/andariego/andariego/internal/types"
	"github.com/stretchr/testify/assert"
)

func method(id string, methodType types.PaymentMethodType, status types.PaymentMethodStatus, isDefault bool) *PaymentMethod {
	return &PaymentMethod{
		ID:           id,
		MethodType:   methodType,
		MethodStatus: status,
		IsDefault:    isDefault,
	}
}

func TestUsable(t *testing.T) {
	assert.True(t, method("pm_1", types.PaymentMethodTypeCard, types.PaymentMethodStatusActive, false).Usable())
	assert.True(t, method("pm_2", types.PaymentMethodTypeCard, types.PaymentMethodStatusPending, false).Usable())
	assert.False(t, method("pm_3", types.PaymentMethodTypeCard, types.PaymentMethodStatusInactive, false).Usable())
}

func TestPreferredForCollection(t *testing.T) {
	tests := []struct {
		name    string
		methods []*PaymentMethod
		wantID  string
	}{
		{
			name:    "nothing on file",
			methods: nil,
			wantID:  "",
		},
		{
			name: "default usable wins",
			methods: []*PaymentMethod{
				method("pm_1", types.PaymentMethodTypeCard, types.PaymentMethodStatusActive, false),
				method("pm_2", types.PaymentMethodTypeDirectDebit, types.PaymentMethodStatusActive, true),
			},
			wantID: "pm_2",
		},
		{
			name: "default unusable falls through to first usable",
			methods: []*PaymentMethod{
				method("pm_1", types.PaymentMethodTypeCard, types.PaymentMethodStatusInactive, true),
				method("pm_2", types.PaymentMethodTypeDirectDebit, types.PaymentMethodStatusActive, false),
			},
			wantID: "pm_2",
		},
		{
			name: "pending counts as usable",
			methods: []*PaymentMethod{
				method("pm_1", types.PaymentMethodTypeDirectDebit, types.PaymentMethodStatusPending, false),
			},
			wantID: "pm_1",
		},
		{
			name: "all inactive still records an instrument",
			methods: []*PaymentMethod{
				method("pm_1", types.PaymentMethodTypeCard, types.PaymentMethodStatusInactive, false),
				method("pm_2", types.PaymentMethodTypeDirectDebit, types.PaymentMethodStatusInactive, true),
			},
			wantID: "pm_1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PreferredForCollection(tt.methods)
			if tt.wantID == "" {
				assert.Nil(t, got)
				return
			}
			assert.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}
