package ingest

import (
	"context"
	"time"
)

type aliasMap map[string]string

func (m aliasMap) LookupAlias(alias string) (string, bool) {
	v, ok := m[alias]
	return v, ok
}

type productMap map[string]string

func (m productMap) LookupProduct(raw string) (string, bool) {
	v, ok := m[raw]
	return v, ok
}

type headerLog struct {
	headers []string
}

func (h *headerLog) RecordUnmatchedHeader(_ context.Context, header string) error {
	h.headers = append(h.headers, header)
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testAliases() aliasMap {
	return aliasMap{
		"sku":         BasisName,
		"product":     BasisName,
		"date":        DateName,
		"week ending": DateName,
		"notes":       IgnoreName,
		"store #":     MissingName,
		"unitssold":   "Units Sold",
		"units sold":  "Units Sold",
		"on hand":     "Balance On Hand",
		"on order":    "Balance On Order",
	}
}
