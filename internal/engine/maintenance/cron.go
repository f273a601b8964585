package maintenance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"Vigil/internal/backend/models"

	"github.com/robfig/cron/v3"
)

var ErrInvalidCron = errors.New("invalid cron expression")

// пять полей: минута, час, день месяца, месяц, день недели
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCron проверяет выражение при сохранении окна обслуживания
func ValidateCron(expr string) error {
	_, err := parseCron(expr, "")
	return err
}

// parseCron разбирает выражение в таймзоне tz. День недели 7 принимается как воскресенье
func parseCron(expr, tz string) (cron.Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("%w: expected 5 fields, got %d", ErrInvalidCron, len(fields))
	}
	fields[4] = normalizeDow(fields[4])

	spec := strings.Join(fields, " ")
	if tz != "" {
		spec = "CRON_TZ=" + tz + " " + spec
	}

	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return schedule, nil
}

func normalizeDow(field string) string {
	parts := strings.Split(field, ",")
	for i, part := range parts {
		rng, step, stepped := strings.Cut(part, "/")
		switch {
		case part == "7":
			parts[i] = "0"
		case strings.HasSuffix(rng, "-7") && stepped:
			if expanded, ok := expandDowStep(strings.TrimSuffix(rng, "-7"), step); ok {
				parts[i] = expanded
			}
		case strings.HasSuffix(part, "-7"):
			from := strings.TrimSuffix(part, "-7")
			if from == "7" {
				parts[i] = "0"
			} else {
				parts[i] = from + "-6,0"
			}
		}
	}
	return strings.Join(parts, ",")
}

// expandDowStep раскрывает a-7/s в явный список, 7 становится 0
func expandDowStep(from, step string) (string, bool) {
	start, err := strconv.Atoi(from)
	if err != nil || start < 0 || start > 7 {
		return "", false
	}
	n, err := strconv.Atoi(step)
	if err != nil || n < 1 {
		return "", false
	}

	days := make([]string, 0, 8)
	for d := start; d <= 7; d += n {
		days = append(days, strconv.Itoa(d%7))
	}
	return strings.Join(days, ","), true
}
