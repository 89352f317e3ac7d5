package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/foundry-forecast/internal/common"
)

func TestImports(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	first, err := store.AddImport(ctx, "/data/sales.csv", at, "yyyy-mm-dd")
	if err != nil {
		t.Fatalf("AddImport failed: %v", err)
	}
	second, err := store.AddImport(ctx, "/data/stock.xlsx", at.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("AddImport failed: %v", err)
	}
	if second <= first {
		t.Errorf("Import ids not increasing: %d then %d", first, second)
	}

	records, err := store.Imports(ctx)
	if err != nil {
		t.Fatalf("Imports failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Got %d imports, want 2", len(records))
	}
	if records[0].ID != second || records[1].Location != "/data/sales.csv" || records[1].DateFormat != "yyyy-mm-dd" {
		t.Errorf("Unexpected import log: %+v", records)
	}
	if !records[1].ImportedAt.Equal(at) {
		t.Errorf("ImportedAt = %v, want %v", records[1].ImportedAt, at)
	}
}

func keyNumber(t *testing.T, key string) int {
	t.Helper()
	if !strings.HasPrefix(key, "TEMP-") {
		t.Fatalf("Key %q has no TEMP- prefix", key)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(key, "TEMP-"))
	if err != nil {
		t.Fatalf("Key %q is not numbered: %v", key, err)
	}
	return n
}

func TestIssueProvisionalKey(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	a, err := store.IssueProvisionalKey(ctx, "SKU-A")
	if err != nil {
		t.Fatalf("IssueProvisionalKey failed: %v", err)
	}
	b, err := store.IssueProvisionalKey(ctx, "SKU-B")
	if err != nil {
		t.Fatalf("IssueProvisionalKey failed: %v", err)
	}
	again, err := store.IssueProvisionalKey(ctx, "SKU-A")
	if err != nil {
		t.Fatalf("IssueProvisionalKey failed: %v", err)
	}

	if keyNumber(t, b) <= keyNumber(t, a) {
		t.Errorf("Keys not increasing: %s then %s", a, b)
	}
	if again != a {
		t.Errorf("Repeated identifier got %s, want %s", again, a)
	}

	queue, err := store.MissingBases(ctx, false)
	if err != nil {
		t.Fatalf("MissingBases failed: %v", err)
	}
	if len(queue) != 2 || queue[0].Basis != "SKU-A" || queue[0].Provisional != a {
		t.Errorf("Unexpected queue: %+v", queue)
	}
}

func TestResolveMissingBasis(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	key, err := store.IssueProvisionalKey(ctx, "SKU-X")
	if err != nil {
		t.Fatalf("IssueProvisionalKey failed: %v", err)
	}
	mustSave(t, store, false,
		obs("Units Sold", key, day(2024, 1, 1), 5),
		obs("Units Sold", key, day(2024, 2, 1), 6),
		obs("Units Sold", "WIDGET-1", day(2024, 1, 1), 100),
	)

	moved, err := store.ResolveMissingBasis(ctx, key, "WIDGET-1")
	if err != nil {
		t.Fatalf("ResolveMissingBasis failed: %v", err)
	}
	if moved != 2 {
		t.Errorf("Moved %d rows, want 2", moved)
	}

	series, _ := store.Series(ctx, "Units Sold", "WIDGET-1")
	if !equalFloats(values(series), []float64{105, 6}) {
		t.Errorf("WIDGET-1 = %v, want [105 6]", values(series))
	}
	leftover, _ := store.Series(ctx, "Units Sold", key)
	if len(leftover) != 0 {
		t.Errorf("Provisional rows left behind: %v", leftover)
	}

	open, _ := store.MissingBases(ctx, false)
	if len(open) != 0 {
		t.Errorf("Resolved entry still open: %+v", open)
	}
	resolved, err := store.ResolvedBases(ctx)
	if err != nil {
		t.Fatalf("ResolvedBases failed: %v", err)
	}
	if resolved["SKU-X"] != "WIDGET-1" {
		t.Errorf("ResolvedBases = %v", resolved)
	}
}

func TestResolveMissingBasis_Errors(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	if _, err := store.ResolveMissingBasis(ctx, "WIDGET-9", "WIDGET-1"); !errors.Is(err, ErrInvalidProvisional) {
		t.Errorf("Expected ErrInvalidProvisional, got %v", err)
	}
	if _, err := store.ResolveMissingBasis(ctx, "TEMP-42", "WIDGET-1"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUnmatchedHeaders(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for _, h := range []string{"Region", "Mystery", "Region"} {
		if err := store.RecordUnmatchedHeader(ctx, h); err != nil {
			t.Fatalf("RecordUnmatchedHeader failed: %v", err)
		}
	}

	headers, err := store.UnmatchedHeaders(ctx)
	if err != nil {
		t.Fatalf("UnmatchedHeaders failed: %v", err)
	}
	if len(headers) != 2 {
		t.Fatalf("Got %d headers, want 2", len(headers))
	}
	if headers[0].Header != "Region" || headers[0].SeenCount != 2 {
		t.Errorf("Most seen header = %+v, want Region seen twice", headers[0])
	}
	if headers[0].LastSeen.Before(headers[0].FirstSeen) {
		t.Errorf("LastSeen before FirstSeen: %+v", headers[0])
	}

	if err := store.DismissUnmatchedHeader(ctx, "Region"); err != nil {
		t.Fatalf("DismissUnmatchedHeader failed: %v", err)
	}
	if err := store.DismissUnmatchedHeader(ctx, "Region"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second dismiss, got %v", err)
	}
}
