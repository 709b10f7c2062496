package templates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var dayNames = map[time.Weekday]string{
	time.Sunday:    "Minggu",
	time.Monday:    "Senin",
	time.Tuesday:   "Selasa",
	time.Wednesday: "Rabu",
	time.Thursday:  "Kamis",
	time.Friday:    "Jumat",
	time.Saturday:  "Sabtu",
}

var monthNames = map[time.Month]string{
	time.January:   "Januari",
	time.February:  "Februari",
	time.March:     "Maret",
	time.April:     "April",
	time.May:       "Mei",
	time.June:      "Juni",
	time.July:      "Juli",
	time.August:    "Agustus",
	time.September: "September",
	time.October:   "Oktober",
	time.November:  "November",
	time.December:  "Desember",
}

// Renderer substitutes date/time placeholders using the Jakarta wall clock.
// Unknown placeholders pass through unchanged.
type Renderer struct {
	loc *time.Location
	now func() time.Time
}

func NewRenderer() *Renderer {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.FixedZone("WIB", 7*3600)
	}
	return &Renderer{loc: loc, now: time.Now}
}

// NewRendererAt returns a renderer with a fixed clock. Used by tests.
func NewRendererAt(now func() time.Time) *Renderer {
	r := NewRenderer()
	r.now = now
	return r
}

// Render replaces {{DAY}}, {{DATE}}, {{TIME}}, {{DATETIME}}, {{STAMP}},
// {{UNIQUE}} and {{EPOCH}} at the moment of the call.
func (r *Renderer) Render(text string) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	now := r.now().In(r.loc)
	day := dayNames[now.Weekday()]
	date := fmt.Sprintf("%d %s %d", now.Day(), monthNames[now.Month()], now.Year())
	clock := now.Format("15:04") + " WIB"
	stamp := now.Format("20060102150405")

	replacer := strings.NewReplacer(
		"{{DAY}}", day,
		"{{DATE}}", date,
		"{{TIME}}", clock,
		"{{DATETIME}}", fmt.Sprintf("%s, %s %s", day, date, clock),
		"{{STAMP}}", stamp,
		"{{UNIQUE}}", stamp,
		"{{EPOCH}}", strconv.FormatInt(now.Unix(), 10),
	)
	return replacer.Replace(text)
}

// Clock returns the renderer's current Jakarta time. The mention processor
// uses it for the duplicate-content timestamp suffix.
func (r *Renderer) Clock() time.Time {
	return r.now().In(r.loc)
}
