package config

import cron "github.com/robfig/cron/v3"

// cronParser accepts the 6-field (seconds-granularity) expressions spec.md
// requires for ScheduledTask.Schedule.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// ValidateCron reports whether expr parses as a 6-field cron schedule.
func ValidateCron(expr string) error {
	_, err := cronParser.Parse(expr)
	return err
}
