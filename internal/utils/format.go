package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatNumber renders n with two decimals, a comma as decimal separator and
// spaces between thousands: 1234567.5 -> "1 234 567,50".
func FormatNumber(n float64) string {
	neg := n < 0
	n = math.Abs(n)
	s := strconv.FormatFloat(n, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}

// FormatPrice renders a listing price in its currency. A missing price means
// the seller quotes on request.
func FormatPrice(price *float64, currency string) string {
	if price == nil {
		return "Price on request"
	}
	n := FormatNumber(*price)
	switch currency {
	case "USD":
		return "$" + n
	case "EUR":
		return "€" + n
	default:
		return n + " ₽"
	}
}

// FormatSalary renders a jobs salary range.
func FormatSalary(from, to *float64, currency string) string {
	switch {
	case from != nil && to != nil:
		return FormatPrice(from, currency) + " – " + FormatPrice(to, currency)
	case from != nil:
		return "from " + FormatPrice(from, currency)
	case to != nil:
		return "up to " + FormatPrice(to, currency)
	}
	return "By agreement"
}

// TimeAgo is a coarse relative time for listings and feeds.
func TimeAgo(t, now time.Time) string {
	seconds := int(now.Sub(t).Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute") + " ago"
	case seconds < 86400:
		return plural(seconds/3600, "hour") + " ago"
	case seconds < 2592000:
		return plural(seconds/86400, "day") + " ago"
	case seconds < 31536000:
		return plural(seconds/2592000, "month") + " ago"
	}
	return plural(seconds/31536000, "year") + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
