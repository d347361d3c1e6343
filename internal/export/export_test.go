package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/hearth/internal/models"
)

func sampleData(t *testing.T) models.AppData {
	t.Helper()
	day1 := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 20, 15, 0, 0, time.UTC)

	d := models.AppData{
		FamilyMembers: []models.FamilyMember{
			{ID: "m1", Name: "Ada", Avatar: "🦊", Color: "#f00"},
			{ID: "m2", Name: "Ben", Avatar: "🐻", Color: "#0f0"},
		},
		MoodEntries: []models.MoodEntry{
			{ID: "e1", MemberID: "m1", Date: day1, Emoji: "😀", Color: "yellow", Note: "sunny"},
		},
		ReflectionEntries: []models.ReflectionEntry{
			{ID: "e2", MemberID: "m2", Date: day2, FeelChoice: "calm", NeedChoice: "rest", NextChoice: "read"},
		},
		GratitudeEntries: []models.GratitudeEntry{
			{ID: "e3", MemberID: "gone", Date: day2.Add(time.Minute), Text: "pancakes, with syrup"},
		},
	}
	d.Normalize()
	return d
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sampleData(t), time.UTC))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"type", "member", "date", "content", "details"}, rows[0])
	assert.Equal(t, []string{"mood", "Ada", "2026-03-01 09:30", "😀", "yellow; sunny"}, rows[1])
	assert.Equal(t, []string{"reflection", "Ben", "2026-03-03 20:15", "calm", "need: rest; next: read"}, rows[2])
	assert.Equal(t, []string{"gratitude", "", "2026-03-03 20:16", "pancakes, with syrup", ""}, rows[3])
}

func TestCSVUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sampleData(t), tokyo))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04 05:15", rows[2][2])
}

func TestCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, models.AppData{}, nil))
	assert.Equal(t, "type,member,date,content,details\n", buf.String())
}

func TestNewEnvelope(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env := NewEnvelope(sampleData(t), now)

	assert.Equal(t, now, env.Metadata.ExportDate)
	assert.Equal(t, 3, env.Metadata.TotalEntries)
	assert.Equal(t, 2, env.Metadata.UniqueDays)
	assert.Equal(t, 2, env.Metadata.FamilyMembers)
	require.NotNil(t, env.Metadata.DateRange)
	assert.Equal(t, DateRange{Start: "2026-03-01", End: "2026-03-03"}, *env.Metadata.DateRange)
}

func TestNewEnvelopeEmpty(t *testing.T) {
	env := NewEnvelope(models.AppData{}, time.Now())
	assert.Nil(t, env.Metadata.DateRange)
	assert.Zero(t, env.Metadata.TotalEntries)
	assert.NotNil(t, env.FamilyData.MoodEntries)
}

func TestJSONRoundTripsThroughParseImport(t *testing.T) {
	data := sampleData(t)
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, data, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))

	var generic map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &generic))
	assert.Contains(t, generic, "metadata")
	assert.Contains(t, generic, "familyData")

	parsed, err := ParseImport(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, data.FamilyMembers, parsed.FamilyMembers)
	require.Len(t, parsed.MoodEntries, 1)
	assert.Equal(t, "e1", parsed.MoodEntries[0].ID)
	assert.True(t, data.MoodEntries[0].Date.Equal(parsed.MoodEntries[0].Date))
}

func TestParseImportBareDataset(t *testing.T) {
	raw := []byte(`{"familyMembers":[{"id":"m1","name":"Ada"}],"moodEntries":[{"id":"e1","memberId":"m1","date":"2026-03-01T09:30:00Z","emoji":"😀"}]}`)

	parsed, err := ParseImport(raw)
	require.NoError(t, err)
	require.Len(t, parsed.FamilyMembers, 1)
	require.Len(t, parsed.MoodEntries, 1)
	assert.NotNil(t, parsed.GratitudeEntries)
}

func TestParseImportRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not json", "[1,2]", `{"familyData": 7}`} {
		_, err := ParseImport([]byte(raw))
		assert.Error(t, err, "input %q", raw)
	}
}
