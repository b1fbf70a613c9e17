package knowledge

import (
	"fmt"
	"strings"
	"time"
)

// SourceType records the provenance of a knowledge entry.
type SourceType string

const (
	// SourceManual marks entries added by hand.
	SourceManual SourceType = "manual"

	// SourceImport marks entries created by bulk import.
	SourceImport SourceType = "import"

	// SourceAPI marks entries created through tool integrations.
	SourceAPI SourceType = "api"
)

// fullIDLength is the length of a complete entry ID (hyphenated UUID).
// Shorter strings are treated as partial IDs during lookup.
const fullIDLength = 36

// tagSeparator joins tags into a single metadata value. A tag may therefore
// not contain it.
const tagSeparator = ","

// Metadata keys reserved for entry fields. Caller metadata under these keys
// is not round-trippable and is dropped at encode time.
const (
	metaKeyProject   = "project"
	metaKeyCreatedAt = "created_at"
	metaKeyUpdatedAt = "updated_at"
	metaKeyTags      = "tags"
	metaKeySource    = "source"
)

// Entry is one retrievable unit of knowledge. Entries are immutable after
// creation; UpdatedAt always equals CreatedAt today and is kept for forward
// compatibility with in-place edits.
type Entry struct {
	// ID is the globally unique entry identifier (36-char hyphenated UUID).
	ID string

	// Content is the raw text supplied by the caller; it is also the
	// string that was embedded.
	Content string

	// Project is the owning project name.
	Project string

	// Tags are short labels for categorization; may be empty.
	Tags []string

	// Source records how the entry was created.
	Source SourceType

	// CreatedAt and UpdatedAt are both set to the insertion instant.
	CreatedAt time.Time
	UpdatedAt time.Time

	// Metadata carries open string-keyed extension data. It round-trips
	// through storage unchanged.
	Metadata map[string]string
}

// ProjectInfo summarizes one project. TotalEntries and LastUpdated are
// derived from live entries on every call, never cached.
type ProjectInfo struct {
	// Name is the human-chosen project name.
	Name string

	// TotalEntries is the number of live entries.
	TotalEntries int

	// CreatedAt is the project creation time.
	CreatedAt time.Time

	// LastUpdated is the newest entry UpdatedAt, nil when the project is
	// empty.
	LastUpdated *time.Time
}

// SearchResult is a read-only projection of one search hit.
type SearchResult struct {
	Entry Entry

	// Score is 1 - cosine distance. It is reported unclamped, so values
	// can fall outside [0,1] if the backend metric is unbounded.
	Score float64

	// Rank is the 1-based position among kept results.
	Rank int
}

// CollectionKey converts a project name to its canonical collection name:
// lowercase, spaces and hyphens replaced with underscores, "project_"
// prefix. The mapping is a pure function of the name.
func CollectionKey(project string) string {
	canonical := strings.ToLower(project)
	canonical = strings.ReplaceAll(canonical, "-", "_")
	canonical = strings.ReplaceAll(canonical, " ", "_")
	return "project_" + canonical
}

// ValidateContent rejects empty entry content.
func ValidateContent(content string) error {
	if content == "" {
		return fmt.Errorf("%w: content cannot be empty", ErrValidation)
	}
	return nil
}

// ValidateTags rejects empty tags and tags containing the separator.
func ValidateTags(tags []string) error {
	for _, tag := range tags {
		if tag == "" {
			return fmt.Errorf("%w: tag cannot be empty", ErrValidation)
		}
		if strings.Contains(tag, tagSeparator) {
			return fmt.Errorf("%w: tag %q must not contain %q", ErrValidation, tag, tagSeparator)
		}
	}
	return nil
}

// ToStoreMetadata serializes the entry to the flat string map stored beside
// its vector. Tags are joined with the separator; timestamps are RFC3339
// with nanoseconds. Extension metadata is flattened alongside, except keys
// that would shadow a reserved field.
func (e *Entry) ToStoreMetadata() map[string]string {
	m := map[string]string{
		metaKeyProject:   e.Project,
		metaKeyCreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
		metaKeyUpdatedAt: e.UpdatedAt.Format(time.RFC3339Nano),
		metaKeyTags:      strings.Join(e.Tags, tagSeparator),
		metaKeySource:    string(e.Source),
	}
	for k, v := range e.Metadata {
		if _, reserved := m[k]; reserved {
			continue
		}
		m[k] = v
	}
	return m
}

// EntryFromStore is the inverse of ToStoreMetadata. It is total for any map
// the forward conversion produces and tolerates hand-authored or legacy
// records: missing tags become empty, a missing or unknown source becomes
// manual, missing timestamps become now.
func EntryFromStore(id, content string, metadata map[string]string) Entry {
	entry := Entry{
		ID:        id,
		Content:   content,
		Project:   metadata[metaKeyProject],
		Tags:      parseTags(metadata[metaKeyTags]),
		Source:    parseSource(metadata[metaKeySource]),
		CreatedAt: parseTimestamp(metadata[metaKeyCreatedAt]),
		UpdatedAt: parseTimestamp(metadata[metaKeyUpdatedAt]),
		Metadata:  map[string]string{},
	}
	for k, v := range metadata {
		switch k {
		case metaKeyProject, metaKeyCreatedAt, metaKeyUpdatedAt, metaKeyTags, metaKeySource:
		default:
			entry.Metadata[k] = v
		}
	}
	return entry
}

func parseTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, tagSeparator)
}

func parseSource(raw string) SourceType {
	switch SourceType(raw) {
	case SourceManual, SourceImport, SourceAPI:
		return SourceType(raw)
	default:
		return SourceManual
	}
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Now().UTC()
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Now().UTC()
	}
	return ts
}
