package quote

import (
    "fmt"
    "math"
)

// NotAvailable is the display sentinel for missing numeric values.
const NotAvailable = "N/A"

// FormatPrice renders a price with two decimals, or "N/A" when nil.
func FormatPrice(v *float64) string {
    if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
        return NotAvailable
    }
    return fmt.Sprintf("%.2f", *v)
}

// FormatCompact renders a large value with a K/M/B/T magnitude suffix and
// two decimals. Nil and zero both render as "N/A": a zero market cap is an
// upstream placeholder, not a real figure.
func FormatCompact(v *float64) string {
    if v == nil || *v == 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
        return NotAvailable
    }
    abs := math.Abs(*v)
    switch {
    case abs >= 1e12:
        return fmt.Sprintf("%.2fT", *v/1e12)
    case abs >= 1e9:
        return fmt.Sprintf("%.2fB", *v/1e9)
    case abs >= 1e6:
        return fmt.Sprintf("%.2fM", *v/1e6)
    case abs >= 1e3:
        return fmt.Sprintf("%.2fK", *v/1e3)
    }
    return fmt.Sprintf("%.2f", *v)
}

// FormatPercent renders a percent change with sign and two decimals.
func FormatPercent(v *float64) string {
    if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
        return NotAvailable
    }
    return fmt.Sprintf("%+.2f%%", *v)
}

// Float is a convenience for building optional numeric fields.
func Float(v float64) *float64 { return &v }
