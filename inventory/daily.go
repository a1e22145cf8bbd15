package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jonwraymond/gridops/observe"
	"github.com/jonwraymond/gridops/store"
)

// IncrementDailyCoins credits every living user's coin balance by amount
// in one store write, skipping rows whose physical status carries the
// deceased marker. Rows are re-read from the store first so the credit
// applies to current balances, not cached ones. Returns the number of
// users credited.
func (s *Service) IncrementDailyCoins(ctx context.Context, amount int) (int, error) {
	if amount == 0 {
		return 0, nil
	}

	ctx, span := s.tracer.StartSpan(ctx, observe.OpMeta{Component: "inventory", Op: "daily_coins"})

	records, err := s.loadUserData(ctx, true)
	if err != nil {
		s.tracer.EndSpan(span, err)
		return 0, fmt.Errorf("daily coins: %w", err)
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	credited := make([]UserRecord, 0, len(records))
	data := make([]store.ValueRange, 0, len(records))
	for _, id := range ids {
		rec := records[id]
		if rec.HasStatus(s.config.DeceasedMarker) {
			continue
		}

		rec.Coins += amount
		if rec.Coins < 0 {
			rec.Coins = 0
		}
		credited = append(credited, rec)
		data = append(data, store.ValueRange{
			Range:  s.layout.RowRange(rec.Row),
			Values: [][]string{formatRow(rec)},
		})
	}

	if len(data) == 0 {
		s.tracer.EndSpan(span, nil)
		return 0, nil
	}

	if err := s.store.BatchUpdate(ctx, data); err != nil {
		s.tracer.EndSpan(span, err)
		return 0, fmt.Errorf("daily coins: %w", err)
	}

	for _, rec := range credited {
		s.writeThrough(ctx, rec)
	}

	s.logger.Info(ctx, "daily coins credited",
		observe.F("users", len(credited)),
		observe.F("amount", amount),
	)
	s.tracer.EndSpan(span, nil)
	return len(credited), nil
}
