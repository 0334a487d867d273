package dto

import (
	"testing"

	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestRunAnchorRequestValidate(t *testing.T) {
	t.Run("empty request is valid", func(t *testing.T) {
		req := &RunAnchorRequest{}
		assert.NoError(t, req.Validate())
	})

	t.Run("agency filter is deduplicated and sorted", func(t *testing.T) {
		req := &RunAnchorRequest{AgencyIDs: []int64{7, 3, 7, 1}}
		assert.NoError(t, req.Validate())
		assert.Equal(t, []int64{1, 3, 7}, req.AgencyIDs)
	})

	t.Run("non-positive agency id is rejected", func(t *testing.T) {
		req := &RunAnchorRequest{AgencyIDs: []int64{1, 0}}
		err := req.Validate()
		assert.Error(t, err)
		assert.True(t, ierr.IsValidation(err))

		req = &RunAnchorRequest{AgencyIDs: []int64{-4}}
		assert.Error(t, req.Validate())
	})

	t.Run("scoped actor requires a filter", func(t *testing.T) {
		req := &RunAnchorRequest{ActorAgencyID: 5}
		err := req.Validate()
		assert.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("scoped actor bound to its own agency", func(t *testing.T) {
		req := &RunAnchorRequest{ActorAgencyID: 5, AgencyIDs: []int64{5}}
		assert.NoError(t, req.Validate())

		req = &RunAnchorRequest{ActorAgencyID: 5, AgencyIDs: []int64{5, 6}}
		err := req.Validate()
		assert.Error(t, err)
		assert.True(t, ierr.Is(err, ierr.ErrPermissionDenied))
	})
}

func TestRunAnchorSummaryHasErrors(t *testing.T) {
	s := &RunAnchorSummary{}
	assert.False(t, s.HasErrors())

	s.Errors = append(s.Errors, RunAnchorError{AgencyID: 1, Message: "boom"})
	assert.True(t, s.HasErrors())
}
