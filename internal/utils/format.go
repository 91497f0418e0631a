package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatCurrency renders an amount as a dollar string with thousands
// separators and two decimals, e.g. 1234.5 -> "$1,234.50".
func FormatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	whole := int64(amount)
	cents := int64((amount-float64(whole))*100 + 0.5)
	if cents >= 100 {
		whole++
		cents -= 100
	}

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents)
}

// FormatBareAmount renders an amount as a plain numeric string with no
// currency formatting, e.g. 1234.5 -> "1234.5".
func FormatBareAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// FormatLongDate renders a date in long human form, e.g. "January 5, 2024"
func FormatLongDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// NormalizeKey upper-cases a data field name so custom fields resolve as
// placeholder tokens without new code.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
