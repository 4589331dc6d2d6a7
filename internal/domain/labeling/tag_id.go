package labeling

import (
	"fmt"
	"time"
)

const (
	// TagIDLength is the length of a tag identifier: YYMMDD + HHMMSS + 4 digit sequence
	TagIDLength = 16
	// MaxTagsPerBatch is the largest batch the 4 digit sequence can address
	MaxTagsPerBatch = 10000

	tagStampLayout = "060102150405"
)

// TagID is the unique identifier printed on a label and encoded into its RFID chip
type TagID string

// String returns the string representation of TagID
func (t TagID) String() string {
	return string(t)
}

// Sequence returns the 4 digit batch sequence suffix
func (t TagID) Sequence() string {
	if len(t) != TagIDLength {
		return ""
	}
	return string(t[12:])
}

// TagGenerator produces batches of tag identifiers from a single clock reading
type TagGenerator struct {
	now func() time.Time
}

// NewTagGenerator creates a TagGenerator. A nil clock defaults to time.Now.
func NewTagGenerator(now func() time.Time) *TagGenerator {
	if now == nil {
		now = time.Now
	}
	return &TagGenerator{now: now}
}

// Generate returns count identifiers sharing one generation instant.
// Uniqueness comes from the zero padded index, not from clock resolution.
func (g *TagGenerator) Generate(count int) []TagID {
	return GenerateTagIDs(g.now(), count)
}

// GenerateTagIDs builds count identifiers for the given instant
func GenerateTagIDs(at time.Time, count int) []TagID {
	if count <= 0 {
		return []TagID{}
	}
	stamp := at.Format(tagStampLayout)
	ids := make([]TagID, count)
	for i := range count {
		ids[i] = TagID(fmt.Sprintf("%s%04d", stamp, i))
	}
	return ids
}
