// Package export renders the dataset for use outside the app: a flat CSV of
// every entry and a JSON envelope carrying summary metadata alongside the
// full dataset. ParseImport reads either JSON shape back.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/julianstephens/hearth/internal/analytics"
	"github.com/julianstephens/hearth/internal/models"
)

// CSVTimeFormat is the layout of the date column.
const CSVTimeFormat = "2006-01-02 15:04"

var csvHeader = []string{"type", "member", "date", "content", "details"}

// DateRange spans the first and last active dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Metadata summarizes an exported dataset.
type Metadata struct {
	ExportDate    time.Time  `json:"exportDate"`
	TotalEntries  int        `json:"totalEntries"`
	UniqueDays    int        `json:"uniqueDays"`
	DateRange     *DateRange `json:"dateRange"`
	FamilyMembers int        `json:"familyMembers"`
}

// Envelope is the JSON export document.
type Envelope struct {
	Metadata   Metadata       `json:"metadata"`
	FamilyData models.AppData `json:"familyData"`
}

// CSV writes one row per entry, oldest first. Dates are rendered in loc.
// Entries whose member no longer exists keep an empty member column.
func CSV(w io.Writer, d models.AppData, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range d.Entries() {
		name := ""
		if m, ok := d.Member(e.MemberID); ok {
			name = m.Name
		}
		row := []string{string(e.Type), name, e.Date.In(loc).Format(CSVTimeFormat), e.Content, e.Details}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for entry %s: %w", e.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// NewEnvelope builds the JSON export document as of now. Active days are
// counted in now's location.
func NewEnvelope(d models.AppData, now time.Time) Envelope {
	data := d.Clone()
	data.Normalize()

	dates := analytics.ActivityDates(&data, now.Location())
	meta := Metadata{
		ExportDate:    now,
		TotalEntries:  data.EntryCount(),
		UniqueDays:    len(dates),
		FamilyMembers: len(data.FamilyMembers),
	}
	if len(dates) > 0 {
		meta.DateRange = &DateRange{Start: dates[0], End: dates[len(dates)-1]}
	}
	return Envelope{Metadata: meta, FamilyData: data}
}

// JSON writes the export envelope as indented JSON.
func JSON(w io.Writer, d models.AppData, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewEnvelope(d, now)); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

type envelopeProbe struct {
	Metadata   json.RawMessage `json:"metadata"`
	FamilyData json.RawMessage `json:"familyData"`
}

// ParseImport decodes an import document. Both the export envelope and a bare
// dataset are accepted.
func ParseImport(raw []byte) (models.AppData, error) {
	var probe envelopeProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return models.AppData{}, fmt.Errorf("failed to parse import: %w", err)
	}
	if len(probe.FamilyData) > 0 && string(probe.FamilyData) != "null" {
		raw = probe.FamilyData
	}

	data, _, err := models.DecodeAppData(raw)
	if err != nil {
		return models.AppData{}, err
	}
	return data, nil
}
