package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		kind   Kind
		ranges []Range
	}{
		{
			name:   "meridiem on both sides",
			text:   "11:30 AM – 10:00 PM",
			kind:   Scheduled,
			ranges: []Range{{Open: 690, Close: 1320}},
		},
		{
			name:   "close-only meridiem keeps same meridiem when ordered",
			text:   "12:00 – 3:00 PM",
			kind:   Scheduled,
			ranges: []Range{{Open: 720, Close: 900}},
		},
		{
			name:   "close-only meridiem falls back to opposite meridiem",
			text:   "10:00 – 2:00 PM",
			kind:   Scheduled,
			ranges: []Range{{Open: 600, Close: 840}},
		},
		{
			name:   "close-only meridiem compares minutes not just hours",
			text:   "3:30 – 3:45 PM",
			kind:   Scheduled,
			ranges: []Range{{Open: 930, Close: 945}},
		},
		{
			name:   "close-only meridiem defaults to same meridiem when nothing orders",
			text:   "6:00 – 1:00 AM",
			kind:   Scheduled,
			ranges: []Range{{Open: 360, Close: 60}},
		},
		{
			name:   "24 hour overnight wrap",
			text:   "22:00~02:00",
			kind:   Scheduled,
			ranges: []Range{{Open: 1320, Close: 120}},
		},
		{
			name:   "next day marker",
			text:   "17:00〜翌2:00",
			kind:   Scheduled,
			ranges: []Range{{Open: 1020, Close: 120}},
		},
		{
			name:   "past-midnight hour folds into the day",
			text:   "18:00~26:00",
			kind:   Scheduled,
			ranges: []Range{{Open: 1080, Close: 120}},
		},
		{
			name:   "full-width digits and tilde",
			text:   "１１：３０～２２：００",
			kind:   Scheduled,
			ranges: []Range{{Open: 690, Close: 1320}},
		},
		{
			name:   "narrow no-break and thin spaces",
			text:   "11:30\u202fAM\u2009–\u20092:30\u202fPM",
			kind:   Scheduled,
			ranges: []Range{{Open: 690, Close: 870}},
		},
		{
			name: "split service keeps source order",
			text: "Monday: 11:30 AM – 2:30 PM, 5:00 – 10:00 PM",
			kind: Scheduled,
			ranges: []Range{
				{Open: 690, Close: 870},
				{Open: 1020, Close: 1320},
			},
		},
		{
			name:   "bad clause does not abort siblings",
			text:   "lunch 11:00~14:00, ask the staff",
			kind:   Scheduled,
			ranges: []Range{{Open: 660, Close: 840}},
		},
		{
			name: "open 24 hours",
			text: "Open 24 hours",
			kind: AlwaysOpen,
		},
		{
			name: "closed literal",
			text: "  closed ",
			kind: ClosedToday,
		},
		{
			name: "closed with extra text is not the literal",
			text: "Closed for renovation",
			kind: Unknown,
		},
		{
			name: "gibberish",
			text: "call ahead!!",
			kind: Unknown,
		},
		{
			name: "empty",
			text: "",
			kind: Unknown,
		},
		{
			name: "out of range minutes",
			text: "25:99~30:00",
			kind: Unknown,
		},
		{
			name: "invalid 12 hour reading",
			text: "13:00 PM – 2:00 PM",
			kind: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.ranges, got.Ranges)
		})
	}
}

func TestRangeContains(t *testing.T) {
	day := Range{Open: 690, Close: 870}
	assert.True(t, day.Contains(690))
	assert.True(t, day.Contains(869))
	assert.False(t, day.Contains(870))
	assert.False(t, day.Contains(100))

	night := Range{Open: 1320, Close: 120}
	require.True(t, night.Wraps())
	assert.True(t, night.Contains(30))
	assert.True(t, night.Contains(1400))
	assert.False(t, night.Contains(120))
	assert.False(t, night.Contains(600))
}

func TestStatusAt(t *testing.T) {
	split := "11:30 AM – 2:30 PM, 5:00 – 10:00 PM"

	tests := []struct {
		name   string
		text   string
		minute int
		want   Status
	}{
		{"overnight range after midnight", "22:00~02:00", 30, Status{IsOpen: true, Label: "Open · til 02:00"}},
		{"overnight range before opening", "22:00~02:00", 720, Status{IsOpen: false, Label: "Closed · Opens 22:00"}},
		{"inside lunch", split, 720, Status{IsOpen: true, Label: "Open · til 14:30"}},
		{"close is exclusive", split, 870, Status{IsOpen: false, Label: "Closed · Opens 17:00"}},
		{"between services", split, 900, Status{IsOpen: false, Label: "Closed · Opens 17:00"}},
		{"after last service reopens tomorrow", split, 1380, Status{IsOpen: false, Label: "Closed · Opens 11:30"}},
		{"overlapping ranges first in source order wins", "10:00~22:00, 12:00~14:00", 780, Status{IsOpen: true, Label: "Open · til 22:00"}},
		{"always open", "Open 24 hours", 200, Status{IsOpen: true, Label: "Open 24 hours"}},
		{"closed today", "Closed", 200, Status{IsOpen: false, Label: "Closed today"}},
		{"unknown renders nothing", "see website", 200, Status{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.text).StatusAt(tt.minute))
		})
	}
}

func TestOpenStatusUsesWallClock(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 30, 0, 0, time.UTC)
	assert.Equal(t, Status{IsOpen: true, Label: "Open · til 02:00"}, OpenStatus("22:00~02:00", now))

	now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, Status{IsOpen: false, Label: "Closed · Opens 22:00"}, OpenStatus("22:00~02:00", now))
}

func TestMealTimes(t *testing.T) {
	tests := []struct {
		text   string
		lunch  bool
		dinner bool
	}{
		{"11:00~14:00", true, false},
		{"17:00~23:00", false, true},
		{"18:00~02:00", false, true},
		{"15:00~16:30", false, false},
		{"11:30 AM – 2:30 PM, 5:00 – 10:00 PM", true, true},
		{"Open 24 hours", true, true},
		{"Closed", false, false},
		{"no idea", true, true},
		{"", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.lunch, ServesLunch(tt.text), "lunch")
			assert.Equal(t, tt.dinner, ServesDinner(tt.text), "dinner")
		})
	}
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "00:00", FormatMinutes(0))
	assert.Equal(t, "09:05", FormatMinutes(545))
	assert.Equal(t, "23:59", FormatMinutes(1439))
	assert.Equal(t, "02:00", FormatMinutes(1560))
}
