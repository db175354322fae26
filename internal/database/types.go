package database

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FeatureVector is a fixed-length face descriptor produced by an extractor.
type FeatureVector []float64

// Dim returns the vector dimensionality.
func (v FeatureVector) Dim() int {
	return len(v)
}

// Float32 converts the vector for use with float32 index structures.
func (v FeatureVector) Float32() []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Sample is a single enrolled face capture.
type Sample struct {
	Vector     FeatureVector `json:"encoding"`
	CapturedAt Timestamp     `json:"timestamp"`
	ImagePath  string        `json:"image_path"`
	ID         string        `json:"sample_id"`
}

// UserRecord holds every sample enrolled for one user.
type UserRecord struct {
	UserID         string    `json:"user_id"`
	Samples        []Sample  `json:"face_encodings"`
	EnrollmentDate Timestamp `json:"enrollment_date"`
	SampleCount    int       `json:"sample_count"`
}

// Dim returns the dimensionality of the record's samples, or 0 for an empty record.
func (r *UserRecord) Dim() int {
	if len(r.Samples) == 0 {
		return 0
	}
	return r.Samples[0].Vector.Dim()
}

// Clone returns a deep copy so snapshots never share vector storage.
func (r *UserRecord) Clone() *UserRecord {
	out := *r
	out.Samples = make([]Sample, len(r.Samples))
	for i, s := range r.Samples {
		s.Vector = append(FeatureVector(nil), s.Vector...)
		out.Samples[i] = s
	}
	return &out
}

// ExportEnvelope is the portable form of a single enrollment record.
type ExportEnvelope struct {
	UserID     string      `json:"user_id"`
	UserData   *UserRecord `json:"user_data"`
	ExportedAt Timestamp   `json:"exported_at"`
	Version    string      `json:"version"`
}

// CurrentExportVersion is written into every export envelope.
const CurrentExportVersion = "1.0"

// Timestamp is an ISO-8601 instant. Records written by older tooling carry no
// zone offset, so parsing accepts both forms and assumes UTC when absent.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// NewTimestamp wraps t, normalized to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// ParseTimestamp parses any supported ISO-8601 layout.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON writes RFC 3339 with sub-second precision.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts zone-less timestamps as well as RFC 3339.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UserDistance is a per-user entry of a match distance table.
type UserDistance struct {
	UserID   string
	SampleID string
	Distance float64
}
