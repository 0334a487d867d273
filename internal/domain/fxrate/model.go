package fxrate

import (
	"time"

	"github.com/andariego/andariego/internal/types"
	"github.com/shopspring/decimal"
)

// FxRate is one quote of the reference exchange rate series. The series is
// externally ingested reference data; the anchor engine only reads it.
type FxRate struct {
	// Insertion-ordered identifier; the tie-break when two quotes share a date
	ID int64 `db:"id" json:"id"`
	// The fx_type identifies the rate series
	FxType types.FxType `db:"fx_type" json:"fx_type"`
	// The rate_date is the zone-local day this quote applies to, at midnight
	RateDate time.Time `db:"rate_date" json:"rate_date"`
	// ARS per one USD
	ArsPerUsd decimal.Decimal `db:"ars_per_usd" json:"ars_per_usd"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// DateKey renders the quote's zone-local YYYY-MM-DD key
func (r *FxRate) DateKey(loc *time.Location) string {
	return types.DateKey(r.RateDate, loc)
}
