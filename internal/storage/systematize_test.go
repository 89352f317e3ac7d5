package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/foundry-forecast/internal/model"
)

func TestTrimLeadingZeros(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	mustSave(t, store, false,
		obs("Units Sold", "P1", day(2024, 1, 1), 0),
		obs("Units Sold", "P1", day(2024, 2, 1), 0),
		obs("Units Sold", "P1", day(2024, 3, 1), 5),
		obs("Units Sold", "P1", day(2024, 4, 1), 0),
		obs("Units Sold", "P2", day(2024, 1, 1), 0),
		obs("Units Sold", "P3", day(2024, 1, 1), 4),
	)

	deleted, err := store.TrimLeadingZeros(ctx, "Units Sold")
	if err != nil {
		t.Fatalf("TrimLeadingZeros failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Deleted %d rows, want 3", deleted)
	}

	p1, _ := store.Series(ctx, "Units Sold", "P1")
	if !equalFloats(values(p1), []float64{5, 0}) {
		t.Errorf("P1 = %v, want interior zero kept", values(p1))
	}
	p2, _ := store.Series(ctx, "Units Sold", "P2")
	if len(p2) != 0 {
		t.Errorf("All-zero product kept %d rows", len(p2))
	}
	p3, _ := store.Series(ctx, "Units Sold", "P3")
	if len(p3) != 1 {
		t.Errorf("P3 lost rows: %v", p3)
	}
}

func TestRediscretize(t *testing.T) {
	observations := []model.Observation{
		obs("Stock", "P1", day(2024, 1, 22), 30),
		obs("Stock", "P1", day(2024, 1, 8), 10),
		obs("Stock", "P1", day(2024, 1, 15), 20),
		obs("Stock", "P1", day(2024, 2, 5), 7),
	}

	tests := []struct {
		reduction model.Reduction
		want      []float64
	}{
		{reduction: model.ReductionSum, want: []float64{60, 7}},
		{reduction: model.ReductionAverage, want: []float64{20, 7}},
		{reduction: model.ReductionFirst, want: []float64{10, 7}},
	}

	for _, tt := range tests {
		t.Run(string(tt.reduction), func(t *testing.T) {
			store := createTestStorage(t)
			ctx := context.Background()
			mustSave(t, store, false, observations...)

			written, err := store.Rediscretize(ctx, "Stock", tt.reduction)
			if err != nil {
				t.Fatalf("Rediscretize failed: %v", err)
			}
			if written != 2 {
				t.Errorf("Wrote %d monthly rows, want 2", written)
			}

			monthly, err := store.MonthlySeries(ctx, "Stock", "P1")
			if err != nil {
				t.Fatalf("MonthlySeries failed: %v", err)
			}
			if len(monthly) != 2 || !monthly[0].Date.Equal(day(2024, 1, 1)) || !monthly[1].Date.Equal(day(2024, 2, 1)) {
				t.Fatalf("Unexpected monthly dates: %+v", monthly)
			}
			if !equalFloats(values(monthly), tt.want) {
				t.Errorf("Monthly values = %v, want %v", values(monthly), tt.want)
			}
		})
	}
}

func TestRediscretize_ReplacesWholesale(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	mustSave(t, store, false, obs("Stock", "P1", day(2024, 1, 8), 10))
	if _, err := store.Rediscretize(ctx, "Stock", model.ReductionSum); err != nil {
		t.Fatalf("Rediscretize failed: %v", err)
	}

	mustSave(t, store, true, obs("Stock", "P1", day(2024, 1, 8), 4))
	if _, err := store.Rediscretize(ctx, "Stock", model.ReductionSum); err != nil {
		t.Fatalf("Rediscretize failed: %v", err)
	}

	monthly, _ := store.MonthlySeries(ctx, "Stock", "P1")
	if !equalFloats(values(monthly), []float64{4}) {
		t.Errorf("Monthly values = %v, want [4]", values(monthly))
	}

	if _, err := store.Rediscretize(ctx, "Stock", model.Reduction("median")); !errors.Is(err, ErrInvalidReduction) {
		t.Errorf("Expected ErrInvalidReduction, got %v", err)
	}
}

func TestSystematize(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	mustSave(t, store, false,
		obs("Units Sold", "P1", day(2024, 1, 3), 0),
		obs("Units Sold", "P1", day(2024, 2, 3), 4),
		obs("Units Sold", "P1", day(2024, 2, 10), 6),
		obs("Balance On Hand", "P1", day(2024, 2, 3), 50),
		obs("Balance On Hand", "P1", day(2024, 2, 10), 40),
	)

	results, err := store.Systematize(ctx, map[string]model.Reduction{
		"balance_on_hand": model.ReductionFirst,
	}, model.ReductionSum)
	if err != nil {
		t.Fatalf("Systematize failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Got %d results, want 2", len(results))
	}

	sold, _ := store.MonthlySeries(ctx, "Units Sold", "P1")
	if !equalFloats(values(sold), []float64{10}) {
		t.Errorf("units_sold_monthly = %v, want [10] after trimming January", values(sold))
	}
	onHand, _ := store.MonthlySeries(ctx, "Balance On Hand", "P1")
	if !equalFloats(values(onHand), []float64{50}) {
		t.Errorf("balance_on_hand_monthly = %v, want [50]", values(onHand))
	}

	if _, err := store.Systematize(ctx, nil, model.Reduction("")); !errors.Is(err, ErrInvalidReduction) {
		t.Errorf("Expected ErrInvalidReduction, got %v", err)
	}
}
