package level

import (
	"fmt"
)

// Level is the price classification of a single hour.
type Level int

const (
	Unavailable Level = iota
	Cheap
	CheapestHour
	CheapestHours
	CheapTime
	MostExpensiveHour
	MostExpensiveHours
	Normal
	Expensive

	levelCount
)

var levelCodes = [levelCount]string{
	Unavailable:        "unavailable",
	Cheap:              "cheap",
	CheapestHour:       "cheapest_hour",
	CheapestHours:      "cheapest_hours",
	CheapTime:          "cheap_time",
	MostExpensiveHour:  "most_expensive_hour",
	MostExpensiveHours: "most_expensive_hours",
	Normal:             "normal",
	Expensive:          "expensive",
}

// String returns the stable machine code of the level.
func (l Level) String() string {
	if l < 0 || l >= levelCount {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelCodes[l]
}

// Text returns the display text of the level in the given language.
func (l Level) Text(language string) string {
	return LabelsFor(language).Text(l)
}

// MarshalText encodes the level as its code.
func (l Level) MarshalText() ([]byte, error) {
	if l < 0 || l >= levelCount {
		return nil, fmt.Errorf("unknown level %d", int(l))
	}
	return []byte(levelCodes[l]), nil
}

// UnmarshalText decodes a level code.
func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Parse maps a level code back to its Level.
func Parse(code string) (Level, error) {
	for i, c := range levelCodes {
		if c == code {
			return Level(i), nil
		}
	}
	return Unavailable, fmt.Errorf("unknown level code %q", code)
}
