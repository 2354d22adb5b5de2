package traffic

// SeverityColor returns the display color for a severity level.
func SeverityColor(s Severity) string {
	switch s {
	case SeverityHigh:
		return "#D32F2F"
	case SeverityMedium:
		return "#FF9800"
	case SeverityLow:
		return "#FFC107"
	default:
		return "#9E9E9E"
	}
}

// SeverityIcon returns the display icon for a severity level.
func SeverityIcon(s Severity) string {
	switch s {
	case SeverityHigh:
		return "🔴"
	case SeverityMedium:
		return "🟠"
	case SeverityLow:
		return "🟡"
	default:
		return "⚪"
	}
}
