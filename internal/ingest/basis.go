package ingest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// ProvisionalPrefix starts every provisional product key.
const ProvisionalPrefix = "TEMP-"

// ProductLookup resolves a raw identifier (SKU or product code) to a
// canonical product key.
type ProductLookup interface {
	LookupProduct(raw string) (string, bool)
}

// ProvisionalIssuer hands out placeholder keys for identifiers that failed
// resolution and queues them for manual linking. Issuing twice for the same
// identifier returns the same key.
type ProvisionalIssuer interface {
	IssueProvisionalKey(ctx context.Context, raw string) (string, error)
}

// ProvisionalKey formats the placeholder key for sequence number n.
func ProvisionalKey(n int64) string {
	return ProvisionalPrefix + strconv.FormatInt(n, 10)
}

// Counter is an in-memory ProvisionalIssuer scoped to one ingestion run.
type Counter struct {
	issued map[string]string
	queue  []string
	last   int64
	mu     sync.Mutex
}

// NewCounter creates a counter whose first key follows last.
func NewCounter(last int64) *Counter {
	return &Counter{
		issued: make(map[string]string),
		last:   last,
	}
}

// IssueProvisionalKey implements ProvisionalIssuer.
func (c *Counter) IssueProvisionalKey(_ context.Context, raw string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key, ok := c.issued[raw]; ok {
		return key, nil
	}
	c.last++
	key := ProvisionalKey(c.last)
	c.issued[raw] = key
	c.queue = append(c.queue, raw)
	return key, nil
}

// Queue returns the identifiers awaiting manual linking, in issue order.
func (c *Counter) Queue() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queue...)
}

// Last returns the most recently issued sequence number.
func (c *Counter) Last() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// BasisResolver maps raw identifiers to product keys.
type BasisResolver struct {
	products ProductLookup
	issuer   ProvisionalIssuer
}

// NewBasisResolver creates a resolver.
func NewBasisResolver(products ProductLookup, issuer ProvisionalIssuer) *BasisResolver {
	return &BasisResolver{
		products: products,
		issuer:   issuer,
	}
}

// Resolve replaces each identifier in basis with its product key. An
// unknown identifier is replaced with a provisional key instead of failing;
// the returned map holds raw identifier to provisional key. Only a failing
// issuer produces an error.
func (r *BasisResolver) Resolve(ctx context.Context, basis []string) (map[string]string, error) {
	provisional := make(map[string]string)
	for i, raw := range basis {
		if product, ok := r.products.LookupProduct(raw); ok {
			basis[i] = product
			continue
		}
		if key, ok := provisional[raw]; ok {
			basis[i] = key
			continue
		}
		key, err := r.issuer.IssueProvisionalKey(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to issue provisional key for %q: %w", raw, err)
		}
		provisional[raw] = key
		basis[i] = key
	}
	return provisional, nil
}
