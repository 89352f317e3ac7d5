package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/foundry-forecast/internal/datetemplate"
)

// Canonical names with special meaning in the alias table.
const (
	BasisName   = "Basis"
	IgnoreName  = "Ignore"
	MissingName = "Missing"
	DateName    = "Date"
)

// TagKind classifies an input column.
type TagKind int

const (
	// TagMissing marks a column that matched nothing.
	TagMissing TagKind = iota
	// TagIgnore marks a column the alias table says to drop.
	TagIgnore
	// TagBasis marks the product identifier column.
	TagBasis
	// TagDate marks the column holding each row's date.
	TagDate
	// TagPeriod marks a column whose header is itself a date.
	TagPeriod
	// TagVariable marks a column holding a known variable.
	TagVariable
)

func (k TagKind) String() string {
	switch k {
	case TagIgnore:
		return IgnoreName
	case TagBasis:
		return BasisName
	case TagDate:
		return DateName
	case TagPeriod:
		return "Period"
	case TagVariable:
		return "Variable"
	default:
		return MissingName
	}
}

// ColumnTag is the classification of one header cell.
type ColumnTag struct {
	Period   time.Time
	Header   string
	Variable string
	Index    int
	Kind     TagKind
}

// Label is the text written for the column in a normalized table.
func (t ColumnTag) Label() string {
	switch t.Kind {
	case TagVariable:
		return t.Variable
	case TagPeriod:
		return t.Period.Format("2006-01-02")
	default:
		return t.Kind.String()
	}
}

// AliasLookup resolves lower-cased header text to a canonical variable name.
type AliasLookup interface {
	LookupAlias(alias string) (string, bool)
}

// HeaderRecorder queues unrecognized header text for curation.
type HeaderRecorder interface {
	RecordUnmatchedHeader(ctx context.Context, header string) error
}

// HeaderMatcher classifies header cells against the alias table, falling
// back to reading the header as a date.
type HeaderMatcher struct {
	aliases  AliasLookup
	template *datetemplate.Template
	recorder HeaderRecorder
}

// NewHeaderMatcher creates a matcher. template and recorder may be nil.
func NewHeaderMatcher(aliases AliasLookup, template *datetemplate.Template, recorder HeaderRecorder) *HeaderMatcher {
	return &HeaderMatcher{
		aliases:  aliases,
		template: template,
		recorder: recorder,
	}
}

// Match classifies every header cell. It never fails: an unmatched cell is
// tagged Missing and handed to the recorder.
func (m *HeaderMatcher) Match(ctx context.Context, header []string) []ColumnTag {
	tags := make([]ColumnTag, len(header))
	for i, raw := range header {
		text := strings.TrimSpace(raw)
		tag := ColumnTag{Index: i, Header: raw}

		if canonical, ok := m.aliases.LookupAlias(strings.ToLower(text)); ok {
			switch canonical {
			case BasisName:
				tag.Kind = TagBasis
			case IgnoreName:
				tag.Kind = TagIgnore
			case MissingName:
				tag.Kind = TagMissing
			case DateName:
				tag.Kind = TagDate
			default:
				tag.Kind = TagVariable
				tag.Variable = canonical
			}
			tags[i] = tag
			continue
		}

		if m.template != nil {
			if period, err := m.template.Parse(text); err == nil {
				tag.Kind = TagPeriod
				tag.Period = period
				tags[i] = tag
				continue
			}
		}

		tag.Kind = TagMissing
		tags[i] = tag
		m.record(ctx, text)
	}
	return tags
}

func (m *HeaderMatcher) record(ctx context.Context, header string) {
	if m.recorder == nil || header == "" {
		return
	}
	if err := m.recorder.RecordUnmatchedHeader(ctx, header); err != nil {
		slog.Warn("Failed to record unmatched header",
			"header", header,
			"error", err)
	}
}
