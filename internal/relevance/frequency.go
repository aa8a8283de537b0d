package relevance

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// ChangeFrequency maps days since the last modification to a crawl hint.
func ChangeFrequency(ageDays int) Frequency {
	switch {
	case ageDays <= WeekDays:
		return Daily
	case ageDays <= MonthDays:
		return Weekly
	case ageDays <= QuarterDays:
		return Monthly
	default:
		return Yearly
	}
}
