package doctors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDoctorsRoster(t *testing.T) {
	list, err := SeedDoctors()
	require.NoError(t, err)
	require.Len(t, list, 5)

	dir := NewMemoryDirectory(list)
	gupta, err := dir.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Rajesh Gupta", gupta.Name)
	assert.Equal(t, Cardiologist, gupta.Specialization)
	assert.True(t, gupta.WorksOn(time.Monday))
	assert.False(t, gupta.WorksOn(time.Tuesday))
}

func TestNameMatches(t *testing.T) {
	tests := []struct {
		doctor string
		query  string
		want   bool
	}{
		{"Dr. Rajesh Gupta", "Gupta", true},
		{"Dr. Rajesh Gupta", "dr. rajesh gupta", true},
		{"Dr. Rajesh Gupta", "Doctor Rajesh", true},
		{"Dr. Priya Sharma", "Priya Sharma please", true},
		{"Dr. Priya Sharma", "Patel", false},
		{"Dr. Priya Sharma", "  ", false},
		{"Dr Drishti Kapoor", "Drishti", true},
		{"Dr. Vikram Pillai", "Dr", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, NameMatches(tt.doctor, tt.query))
		})
	}
}

func TestStripTitleNeedsWordBoundary(t *testing.T) {
	tests := map[string]string{
		"Dr. Rajesh Gupta": "Rajesh Gupta",
		"dr.rajesh":        "rajesh",
		"Dr Rajesh":        "Rajesh",
		"Doctor Rajesh":    "Rajesh",
		"Dravid":           "Dravid",
		"Drishti Patel":    "Drishti Patel",
		"Doctorow":         "Doctorow",
		"dr":               "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, stripTitle(in))
		})
	}
}

func TestMemoryDirectoryLookups(t *testing.T) {
	dir := NewMemoryDirectory([]Doctor{
		{ID: 1, Name: "Dr. Zed Heart", Specialization: Cardiologist, Available: true},
		{ID: 2, Name: "Dr. Amy Heart", Specialization: Cardiologist, Available: true},
		{ID: 3, Name: "Dr. Off Duty", Specialization: Cardiologist, Available: false},
		{ID: 4, Name: "Dr. Bone", Specialization: Orthopedic, Available: true},
	})
	ctx := context.Background()

	cardio, err := dir.FindBySpecialization(ctx, Cardiologist)
	require.NoError(t, err)
	require.Len(t, cardio, 2)
	assert.Equal(t, "Dr. Amy Heart", cardio[0].Name, "results are name-sorted")

	available, err := dir.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 3)

	doc, err := dir.FindByName(ctx, "bone")
	require.NoError(t, err)
	assert.Equal(t, int64(4), doc.ID)

	_, err = dir.FindByName(ctx, "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = dir.FindByID(ctx, 99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestScheduleWindow(t *testing.T) {
	start, end, err := ScheduleEntry{Day: "Monday", StartTime: "09:30", EndTime: "17:00"}.Window()
	require.NoError(t, err)
	assert.Equal(t, 570, start)
	assert.Equal(t, 1020, end)

	_, _, err = ScheduleEntry{StartTime: "nine", EndTime: "17:00"}.Window()
	assert.Error(t, err)
}
