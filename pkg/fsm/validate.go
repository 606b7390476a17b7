package fsm

import "strconv"

// ValidateReminderDay accepts a base-10, all-digit day of month in [1,31].
func ValidateReminderDay(s string) (int, bool) {
	if !allDigits(s) {
		return 0, false
	}
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, false
	}
	return day, true
}

// ValidateReminderTime accepts exactly four digits HHMM with HH<24 and MM<60.
func ValidateReminderTime(s string) bool {
	if len(s) != 4 || !allDigits(s) {
		return false
	}
	hh, _ := strconv.Atoi(s[:2])
	mm, _ := strconv.Atoi(s[2:])
	return hh < 24 && mm < 60
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
