package trip

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewRequest_Valid(t *testing.T) {
	r, err := NewRequest("  Paris ", "Tokyo", day("2025-04-01"), day("2025-04-05"), "food, culture")
	require.NoError(t, err)

	assert.Equal(t, "Paris", r.Origin())
	assert.Equal(t, "Tokyo", r.Destination())
	assert.Equal(t, "food, culture", r.Interests())
	assert.Equal(t, "2025-04-01", r.DateFrom())
	assert.Equal(t, "2025-04-05", r.DateTo())
	assert.Equal(t, 5, r.Days())
	assert.Equal(t, "Travel_Plan_Tokyo_2025-04-01.txt", r.FileName())
	assert.NoError(t, r.Validate())
}

func TestNewRequest_TruncatesToDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	dep := time.Date(2025, 4, 1, 23, 30, 0, 0, loc)
	ret := time.Date(2025, 4, 2, 0, 15, 0, 0, loc)

	r, err := NewRequest("Paris", "Tokyo", dep, ret, "food")
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01", r.DateFrom())
	assert.Equal(t, "2025-04-02", r.DateTo())
}

func TestNewRequest_RejectsDateOrder(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
	}{
		{"same day", "2025-04-01", "2025-04-01"},
		{"return before departure", "2025-04-05", "2025-04-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest("Paris", "Tokyo", day(tt.from), day(tt.to), "food")
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, MessageDateOrder, ve.Message)
		})
	}
}

func TestNewRequest_RejectsMissingFields(t *testing.T) {
	_, err := NewRequest(" ", "Tokyo", day("2025-04-01"), day("2025-04-05"), "")
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, MessageMissingFields, ve.Message)
	assert.Equal(t, []string{"origin", "interests"}, ve.Fields)
}

func TestZeroRequestIsInvalid(t *testing.T) {
	var r Request
	assert.True(t, IsValidationError(r.Validate()))
}

func TestFileNameSanitizesDestination(t *testing.T) {
	r, err := NewRequest("Paris", "Rio/de \"Janeiro\"", day("2025-04-01"), day("2025-04-05"), "beaches")
	require.NoError(t, err)
	assert.Equal(t, "Travel_Plan_Rio_de Janeiro_2025-04-01.txt", r.FileName())
}

func TestParse(t *testing.T) {
	now := day("2025-03-15")

	r, err := Parse("Paris", "Tokyo", "2025-04-01", "2025-04-05", "food", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01", r.DateFrom())

	_, err = Parse("Paris", "", "2025-04-01", "", "food", now)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, MessageMissingFields, ve.Message)
	assert.Equal(t, []string{"destination", "return date"}, ve.Fields)

	_, err = Parse("Paris", "Tokyo", "2025-04-05", "2025-04-01", "food", now)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, MessageDateOrder, ve.Message)
}

func TestParseDate_HumanReadable(t *testing.T) {
	now := day("2025-03-15")

	got, err := ParseDate("1 April 2025", "departure date", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01", got.Format(DateLayout))
}

func TestParseDate_Garbage(t *testing.T) {
	_, err := ParseDate("not a date at all", "departure date", day("2025-03-15"))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}
