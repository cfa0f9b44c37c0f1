package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/goodtune/worktime/internal/analytics"
)

//go:embed templates
var templateFS embed.FS

// timeString renders a second count the way the page shows durations:
// "H:MM" once a full hour is reached, whole minutes below that.
func timeString(seconds int64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}

	minutes := seconds / 60
	hours := minutes / 60
	if hours > 0 {
		return fmt.Sprintf("%s%d:%02d", sign, hours, minutes%60)
	}
	return sign + strconv.FormatInt(minutes, 10)
}

// formatSeconds renders a duration per the numbers parameter: raw
// seconds for "values", a timestring otherwise.
func formatSeconds(seconds int64, numbers string) string {
	if numbers == "values" {
		return strconv.FormatInt(seconds, 10)
	}
	return timeString(seconds)
}

// formatRatio renders a ratio for display. Nil means no data yet.
func formatRatio(r *analytics.Ratio) string {
	if r == nil {
		return ""
	}
	if r.Infinite {
		return "∞"
	}
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

// parseTemplates loads the page templates with the helpers they use.
func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"timespanLabel": timespanLabel,
	}
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// timespanLabel names a trailing window for the ratio table. Zero means
// the whole era.
func timespanLabel(timespan int64) string {
	if timespan == 0 {
		return "all"
	}
	return timeString(timespan)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writePlain renders the summary as line-oriented plain text, one fact
// per line, easy to grep from a shell.
func writePlain(w http.ResponseWriter, summary *Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "era %s\n", summary.Era.Name)
	if summary.CurrentMode != "" {
		fmt.Fprintf(&b, "status %s %s\n", summary.CurrentMode, summary.CurrentTime)
	} else {
		b.WriteString("status none\n")
	}
	for _, row := range summary.Elapsed {
		fmt.Fprintf(&b, "elapsed %s %s\n", row.Mode, row.Time)
	}
	for _, row := range summary.Ratios {
		text := row.Text
		if text == "" {
			text = "none"
		}
		fmt.Fprintf(&b, "ratio %s %s %s\n", summary.RatioLabel, timespanLabel(row.Timespan), text)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := fmt.Fprint(w, b.String())
	return err
}
