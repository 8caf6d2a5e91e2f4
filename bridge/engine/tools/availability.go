package tools

import (
	"context"
	"encoding/json"
	"time"
)

// Business hours at the clinic, Europe/Madrid time: Monday to Friday
// 08:00-12:00 and 14:00-18:00, Saturday 08:00-12:00, closed Sundays and
// Spanish national holidays.

// AvailabilityResult tells the model whether a human advisor can take over
// right now.
type AvailabilityResult struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// AvailabilityTool determines customer-service availability. It is a pure
// function of the clock, the weekday, and the holiday calendar; Now is
// injectable for tests.
type AvailabilityTool struct {
	Now      func() time.Time
	location *time.Location
}

func NewAvailabilityTool() *AvailabilityTool {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		loc = time.UTC
	}
	return &AvailabilityTool{Now: time.Now, location: loc}
}

func (t *AvailabilityTool) Name() string { return "is_customer_service_available" }

func (t *AvailabilityTool) Description() string {
	return "Checks whether customer service is currently available at the clinic. " +
		"Use it when the visitor asks to speak with an advisor, whether support " +
		"is open, or anything about attention hours."
}

func (t *AvailabilityTool) Schema() []byte { return []byte(AvailabilitySchema) }

func (t *AvailabilityTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	now := t.Now().In(t.location)
	available := t.openAt(now)

	msg := "El servicio de atención al cliente no está disponible en este momento."
	if available {
		msg = "El servicio de atención al cliente está disponible actualmente."
	}
	return AvailabilityResult{Available: available, Message: msg}, nil
}

func (t *AvailabilityTool) openAt(now time.Time) bool {
	if now.Weekday() == time.Sunday || isSpanishHoliday(now) {
		return false
	}

	// Closing minutes are inclusive: at exactly 12:00 and 18:00 the desk
	// still answers.
	minutes := now.Hour()*60 + now.Minute()
	morning := minutes >= 8*60 && minutes <= 12*60
	afternoon := minutes >= 14*60 && minutes <= 18*60

	switch now.Weekday() {
	case time.Saturday:
		return morning
	default:
		return morning || afternoon
	}
}

// isSpanishHoliday covers the national fixed-date holidays plus Good Friday.
func isSpanishHoliday(now time.Time) bool {
	type md struct {
		m time.Month
		d int
	}
	fixed := []md{
		{time.January, 1},   // Año Nuevo
		{time.January, 6},   // Epifanía
		{time.May, 1},       // Día del Trabajo
		{time.August, 15},   // Asunción
		{time.October, 12},  // Fiesta Nacional
		{time.November, 1},  // Todos los Santos
		{time.December, 6},  // Constitución
		{time.December, 8},  // Inmaculada
		{time.December, 25}, // Navidad
	}
	for _, h := range fixed {
		if now.Month() == h.m && now.Day() == h.d {
			return true
		}
	}

	goodFriday := easterSunday(now.Year(), now.Location()).AddDate(0, 0, -2)
	return now.Month() == goodFriday.Month() && now.Day() == goodFriday.Day()
}

// easterSunday computes Gregorian Easter via the anonymous algorithm.
func easterSunday(year int, loc *time.Location) time.Time {
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
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}
