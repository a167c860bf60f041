package enrich

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"voyage/internal/domain"
)

// Day metadata keys excluded from time-keyed activity iteration.
const (
	dateKey     = "date"
	districtKey = "district"
)

// DecodeDay normalizes one raw day value into a flat ordered activity
// list. The planner emits days in three shapes: a plain array, an object
// wrapping an "activities" array, or an object keyed by time labels.
// Unrecognized shapes decode to zero activities rather than failing.
func DecodeDay(raw json.RawMessage) domain.DayPayload {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return domain.DayPayload{
			Shape:      domain.DayShapeList,
			Activities: decodeActivityList(list),
		}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return domain.DayPayload{Shape: domain.DayShapeUnknown}
	}

	payload := domain.DayPayload{
		Date:     decodeString(obj[dateKey]),
		District: decodeString(obj[districtKey]),
	}

	if activitiesRaw, ok := obj["activities"]; ok {
		payload.Shape = domain.DayShapeWrapper
		var wrapped []json.RawMessage
		if err := json.Unmarshal(activitiesRaw, &wrapped); err == nil {
			payload.Activities = decodeActivityList(wrapped)
		}
		return payload
	}

	// Time-keyed shape: every key except the metadata keys is a time
	// label paired with its activity. Labels sort ascending so the day
	// keeps a stable chronological order.
	payload.Shape = domain.DayShapeTimeKeyed
	times := make([]string, 0, len(obj))
	for key := range obj {
		if key == dateKey || key == districtKey {
			continue
		}
		times = append(times, key)
	}
	sort.Strings(times)

	for _, t := range times {
		activity := decodeActivity(obj[t])
		activity.Time = t
		payload.Activities = append(payload.Activities, activity)
	}
	return payload
}

func decodeActivityList(list []json.RawMessage) []domain.RawActivity {
	activities := make([]domain.RawActivity, 0, len(list))
	for _, item := range list {
		activities = append(activities, decodeActivity(item))
	}
	return activities
}

// decodeActivity accepts either a bare string ("Museum") or an activity
// object. Anything else is stringified so no entry is silently dropped.
func decodeActivity(raw json.RawMessage) domain.RawActivity {
	if len(raw) == 0 {
		return domain.RawActivity{}
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return domain.RawActivity{Title: name}
	}

	var activity domain.RawActivity
	if err := json.Unmarshal(raw, &activity); err == nil {
		return activity
	}

	return domain.RawActivity{Title: strings.TrimSpace(string(raw))}
}

func decodeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// isDayKey reports whether a top-level itinerary key holds day data.
// Anything without "day" in it is metadata and excluded from iteration.
func isDayKey(key string) bool {
	return strings.Contains(strings.ToLower(key), "day")
}

// sortedDayKeys returns the itinerary's day keys in display order:
// numeric suffix ascending ("Day 1" < "Day 2" < "Day 10"), lexical for
// keys without one.
func sortedDayKeys(itinerary domain.RawItinerary) []string {
	keys := make([]string, 0, len(itinerary))
	for key := range itinerary {
		if isDayKey(key) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, iOK := dayNumber(keys[i])
		nj, jOK := dayNumber(keys[j])
		if iOK && jOK && ni != nj {
			return ni < nj
		}
		if iOK != jOK {
			return iOK
		}
		return keys[i] < keys[j]
	})
	return keys
}

func dayNumber(key string) (int, bool) {
	fields := strings.Fields(key)
	for i := len(fields) - 1; i >= 0; i-- {
		if n, err := strconv.Atoi(strings.Trim(fields[i], ":")); err == nil {
			return n, true
		}
	}
	return 0, false
}

// defaultTimeSlot synthesizes a time label for activities without one:
// 09:00 plus two hours per position in the day.
func defaultTimeSlot(index int) string {
	return fmt.Sprintf("%02d:00", 9+index*2)
}

// guessCategory infers a coarse activity category from its name.
func guessCategory(name string) string {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "cafe", "coffee", "caffè"):
		return "cafe"
	case containsAny(lower, "restaurant", "ristorante", "trattoria", "osteria", "lunch", "dinner"):
		return "restaurant"
	case containsAny(lower, "museum", "gallery"):
		return "museum"
	case containsAny(lower, "park", "garden"):
		return "park"
	case containsAny(lower, "shopping", "market"):
		return "shopping"
	case strings.Contains(lower, "beach"):
		return "beach"
	case containsAny(lower, "church", "cathedral"):
		return "landmark"
	default:
		return "attraction"
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
