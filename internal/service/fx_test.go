package service

import (
	"testing"
	"time"

	"github.com/andariego/andariego/internal/domain/fxrate"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/testutil"
	"github.com/andariego/andariego/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type FxResolverTestSuite struct {
	testutil.BaseServiceTestSuite
	store *testutil.InMemoryFxRateStore
	loc   *time.Location
}

func TestFxResolverTestSuite(t *testing.T) {
	suite.Run(t, new(FxResolverTestSuite))
}

func (s *FxResolverTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.store = s.GetStores().FxRateRepo.(*testutil.InMemoryFxRateStore)
	s.loc = s.GetConfig().Billing.DefaultLocation()
}

func (s *FxResolverTestSuite) addRate(dateKey string, rate string) {
	date, err := types.ParseDateKey(dateKey, s.loc)
	s.Require().NoError(err)
	s.store.Add(&fxrate.FxRate{
		FxType:    types.FxTypeReference,
		RateDate:  date,
		ArsPerUsd: decimal.RequireFromString(rate),
	})
}

func (s *FxResolverTestSuite) newResolver() *FxResolver {
	return NewFxResolver(s.store, types.FxTypeReference, s.loc)
}

func (s *FxResolverTestSuite) TestExactQuote() {
	s.addRate("2024-01-05", "820.50")

	rate, err := s.newResolver().Resolve(s.GetContext(), "2024-01-05", false)
	s.NoError(err)
	s.Equal("2024-01-05", rate.DateKey(s.loc))
	s.True(rate.ArsPerUsd.Equal(decimal.RequireFromString("820.50")))
}

func (s *FxResolverTestSuite) TestMissingQuoteWithoutFallback() {
	s.addRate("2024-01-01", "800")

	_, err := s.newResolver().Resolve(s.GetContext(), "2024-01-05", false)
	s.Error(err)
	s.True(ierr.Is(err, fxrate.ErrRateMissing))
}

func (s *FxResolverTestSuite) TestFallbackReportsActualRateDate() {
	s.addRate("2024-01-01", "800")

	rate, err := s.newResolver().Resolve(s.GetContext(), "2024-01-05", true)
	s.NoError(err)
	// the returned rate carries the date it was quoted for, not the
	// requested one, so fallback staleness stays visible downstream
	s.Equal("2024-01-01", rate.DateKey(s.loc))
	s.True(rate.ArsPerUsd.Equal(decimal.NewFromInt(800)))
}

func (s *FxResolverTestSuite) TestFallbackPrefersLatestPriorQuote() {
	s.addRate("2023-12-28", "780")
	s.addRate("2024-01-02", "805")
	s.addRate("2024-01-01", "800")

	rate, err := s.newResolver().Resolve(s.GetContext(), "2024-01-05", true)
	s.NoError(err)
	s.Equal("2024-01-02", rate.DateKey(s.loc))
}

func (s *FxResolverTestSuite) TestFallbackSameDateTieBreaksOnInsertionOrder() {
	s.addRate("2024-01-01", "800")
	s.addRate("2024-01-01", "801")

	rate, err := s.newResolver().Resolve(s.GetContext(), "2024-01-05", true)
	s.NoError(err)
	s.True(rate.ArsPerUsd.Equal(decimal.NewFromInt(801)), "latest inserted quote wins a same-date tie")
}

func (s *FxResolverTestSuite) TestEmptySeriesWithFallback() {
	_, err := s.newResolver().Resolve(s.GetContext(), "2024-01-05", true)
	s.Error(err)
	s.True(ierr.Is(err, fxrate.ErrNoRateAvailable))
}

func (s *FxResolverTestSuite) TestFutureOnlySeriesWithFallback() {
	s.addRate("2024-02-01", "850")

	_, err := s.newResolver().Resolve(s.GetContext(), "2024-01-05", true)
	s.Error(err)
	s.True(ierr.Is(err, fxrate.ErrNoRateAvailable))
}

func (s *FxResolverTestSuite) TestResolvedRatesAreCachedForTheRun() {
	s.addRate("2024-01-05", "820")

	resolver := s.newResolver()
	first, err := resolver.Resolve(s.GetContext(), "2024-01-05", false)
	s.Require().NoError(err)

	// wipe the store: a cached resolution must not go back to it
	s.store.Clear()

	second, err := resolver.Resolve(s.GetContext(), "2024-01-05", false)
	s.NoError(err)
	s.Equal(first, second)

	// a fresh resolver has no cache and sees the empty series
	_, err = s.newResolver().Resolve(s.GetContext(), "2024-01-05", false)
	s.Error(err)
}

func (s *FxResolverTestSuite) TestFailedLookupsAreNotCached() {
	resolver := s.newResolver()

	_, err := resolver.Resolve(s.GetContext(), "2024-01-05", false)
	s.Error(err)

	// the quote arrives late; the resolver must pick it up
	s.addRate("2024-01-05", "820")
	rate, err := resolver.Resolve(s.GetContext(), "2024-01-05", false)
	s.NoError(err)
	s.True(rate.ArsPerUsd.Equal(decimal.NewFromInt(820)))
}

func (s *FxResolverTestSuite) TestInvalidDateKey() {
	_, err := s.newResolver().Resolve(s.GetContext(), "05-01-2024", false)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
