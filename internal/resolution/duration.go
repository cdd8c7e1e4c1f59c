package resolution

import (
	"strconv"
	"strings"
)

const (
	msPerMinute = int64(60 * 1000)
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// Breakdown is an elapsed time split into whole days, hours and minutes.
type Breakdown struct {
	Days    int64 `json:"days" yaml:"days"`
	Hours   int64 `json:"hours" yaml:"hours"`
	Minutes int64 `json:"minutes" yaml:"minutes"`
}

// Decompose floors a millisecond span into days, remaining hours and
// remaining minutes. Non-positive spans yield a zero Breakdown.
func Decompose(ms int64) Breakdown {
	if ms <= 0 {
		return Breakdown{}
	}
	return Breakdown{
		Days:    ms / msPerDay,
		Hours:   (ms % msPerDay) / msPerHour,
		Minutes: (ms % msPerHour) / msPerMinute,
	}
}

// String renders the breakdown in Spanish, e.g. "1 día, 1 hora y 5 minutos".
// Minutes are always shown when days and hours are both zero.
func (b Breakdown) String() string {
	var sb strings.Builder
	if b.Days > 0 {
		sb.WriteString(countNoun(b.Days, "día", "días"))
		if b.Hours > 0 || b.Minutes > 0 {
			sb.WriteString(", ")
		}
	}
	if b.Hours > 0 {
		sb.WriteString(countNoun(b.Hours, "hora", "horas"))
		if b.Minutes > 0 {
			sb.WriteString(" y ")
		}
	}
	if b.Minutes > 0 || (b.Days == 0 && b.Hours == 0) {
		sb.WriteString(countNoun(b.Minutes, "minuto", "minutos"))
	}
	return sb.String()
}

func countNoun(n int64, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return strconv.FormatInt(n, 10) + " " + plural
}
