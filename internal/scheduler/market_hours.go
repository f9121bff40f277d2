package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MarketHoursService answers whether US equities are trading. The research
// cycle runs only inside a conservative core window: 10:00-15:00 ET on
// non-holiday weekdays, skipping the open and close auctions where quotes
// are noisiest.
type MarketHoursService struct {
	location *time.Location
	now      func() time.Time
	log      zerolog.Logger

	mu       sync.Mutex
	holidays map[int]map[string]bool // year -> "2006-01-02" -> closed
}

// Core trading window, Eastern time
const (
	openHour  = 10
	closeHour = 15
)

// NewMarketHoursService creates a new US market hours service
func NewMarketHoursService(log zerolog.Logger) *MarketHoursService {
	return NewMarketHoursServiceAt(time.Now, log)
}

// NewMarketHoursServiceAt creates the service with an injected clock
func NewMarketHoursServiceAt(now func() time.Time, log zerolog.Logger) *MarketHoursService {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
		log.Warn().Err(err).Msg("Eastern timezone unavailable, using UTC")
	}

	return &MarketHoursService{
		location: loc,
		now:      now,
		log:      log.With().Str("component", "market_hours").Logger(),
		holidays: make(map[int]map[string]bool),
	}
}

// IsMarketOpen reports whether the core trading window is active now
func (s *MarketHoursService) IsMarketOpen() bool {
	now := s.now().In(s.location)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}
	if s.isHoliday(now) {
		return false
	}

	return now.Hour() >= openHour && now.Hour() < closeHour
}

func (s *MarketHoursService) isHoliday(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	year := t.Year()
	set, ok := s.holidays[year]
	if !ok {
		set = marketHolidays(year, s.location)
		s.holidays[year] = set
	}
	return set[t.Format("2006-01-02")]
}

// marketHolidays builds the NYSE/NASDAQ full-day closures for a year.
// Fixed-date holidays falling on a Saturday are observed the Friday before,
// on a Sunday the Monday after.
func marketHolidays(year int, loc *time.Location) map[string]bool {
	days := []time.Time{
		observed(time.Date(year, 1, 1, 0, 0, 0, 0, loc)),   // New Year's Day
		nthWeekday(year, 1, time.Monday, 3, loc),           // MLK Day
		nthWeekday(year, 2, time.Monday, 3, loc),           // Presidents Day
		goodFriday(year, loc),
		lastWeekday(year, 5, time.Monday, loc),             // Memorial Day
		observed(time.Date(year, 6, 19, 0, 0, 0, 0, loc)),  // Juneteenth
		observed(time.Date(year, 7, 4, 0, 0, 0, 0, loc)),   // Independence Day
		nthWeekday(year, 9, time.Monday, 1, loc),           // Labor Day
		nthWeekday(year, 11, time.Thursday, 4, loc),        // Thanksgiving
		observed(time.Date(year, 12, 25, 0, 0, 0, 0, loc)), // Christmas
	}

	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[d.Format("2006-01-02")] = true
	}
	return set
}

func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}

// nthWeekday returns the nth given weekday of the month
func nthWeekday(year int, month time.Month, day time.Weekday, n int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(day) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the last given weekday of the month
func lastWeekday(year int, month time.Month, day time.Weekday, loc *time.Location) time.Time {
	last := time.Date(year, month+1, 1, 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	offset := (int(last.Weekday()) - int(day) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// goodFriday is two days before Easter Sunday, per the Gauss computus
func goodFriday(year int, loc *time.Location) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	return easter.AddDate(0, 0, -2)
}

// MarketStatus is the reportable state of the market gate
type MarketStatus struct {
	IsOpen   bool   `json:"is_open"`
	Timezone string `json:"timezone"`
}

// Status returns the current market status
func (s *MarketHoursService) Status() MarketStatus {
	return MarketStatus{
		IsOpen:   s.IsMarketOpen(),
		Timezone: s.location.String(),
	}
}
