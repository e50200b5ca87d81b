package pricing

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

type RuleType string

const (
	RulePercentage RuleType = "percentage"
	RuleFixed      RuleType = "fixed"
)

type Rule struct {
	Type  RuleType `json:"type"`
	Value float64  `json:"value"`
}

// DayRules is keyed by the 1-based day index within a counting scope.
type DayRules map[int]Rule

// IntervalRules is keyed by course interval id.
type IntervalRules map[uint]DayRules

const globalScope = "global"

// ResolveRules normalizes the course's legacy discount blob and its active
// interval discounts into day-indexed rule tables.
func ResolveRules(course Course) (DayRules, IntervalRules) {
	return legacyDayRules(course.LegacyDiscounts), intervalDayRules(course.Intervals)
}

func intervalDayRules(intervals []Interval) IntervalRules {
	out := IntervalRules{}
	for _, interval := range intervals {
		discounts := make([]IntervalDiscount, 0, len(interval.Discounts))
		for _, d := range interval.Discounts {
			if d.Active {
				discounts = append(discounts, d)
			}
		}
		if len(discounts) == 0 {
			continue
		}
		sort.SliceStable(discounts, func(i, j int) bool {
			return discounts[i].MinDays < discounts[j].MinDays
		})

		rules := DayRules{}
		for _, d := range discounts {
			ruleType := RulePercentage
			if d.DiscountType == "fixed_amount" {
				ruleType = RuleFixed
			}
			rules[d.MinDays] = Rule{Type: ruleType, Value: d.DiscountValue}
		}
		out[interval.ID] = rules
	}
	return out
}

// legacyDayRules accepts a list of entries, an object of entries, a single
// entry, or any of those encoded once more as a JSON string. Anything else
// yields no rules.
func legacyDayRules(raw []byte) DayRules {
	rules := DayRules{}
	for _, entry := range legacyEntries(raw) {
		day, ok := legacyDay(entry)
		if !ok || day <= 0 {
			continue
		}
		rule, ok := legacyRule(entry)
		if !ok {
			continue
		}
		rules[day] = rule
	}
	return rules
}

func legacyEntries(raw []byte) []map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	if s, ok := decoded.(string); ok {
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil
		}
	}

	var entries []map[string]any
	switch v := decoded.(type) {
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				entries = append(entries, m)
			}
		}
	case map[string]any:
		if _, ok := v["day"]; ok {
			return []map[string]any{v}
		}
		if _, ok := v["date"]; ok {
			return []map[string]any{v}
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sortKeys(keys)
		for _, k := range keys {
			if m, ok := v[k].(map[string]any); ok {
				entries = append(entries, m)
			}
		}
	}
	return entries
}

// sortKeys orders numeric keys numerically, then the rest lexically.
func sortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})
}

// legacyDay takes the first of date, day that holds an integer.
func legacyDay(entry map[string]any) (int, bool) {
	for _, key := range []string{"date", "day"} {
		f, ok := ToFloat(entry[key])
		if !ok || f != float64(int(f)) {
			continue
		}
		return int(f), true
	}
	return 0, false
}

func legacyRule(entry map[string]any) (Rule, bool) {
	if t, ok := entry["type"]; ok {
		if value, ok := ToFloat(entry["discount"]); ok {
			ruleType := RulePercentage
			if isFixedMarker(t) {
				ruleType = RuleFixed
			}
			return Rule{Type: ruleType, Value: value}, true
		}
	}
	for _, key := range []string{"discount", "percentage", "reduccion"} {
		if value, ok := ToFloat(entry[key]); ok {
			return Rule{Type: RulePercentage, Value: value}, true
		}
	}
	return Rule{}, false
}

func isFixedMarker(t any) bool {
	if n, ok := ToFloat(t); ok {
		return n == 2
	}
	s, _ := t.(string)
	return s == "fixed" || s == "fixed_amount"
}

// PriceForDate applies the interval rule for dayIndex if one exists, else the
// global rule, else returns basePrice.
func PriceForDate(basePrice float64, intervalID *uint, dayIndex int, global DayRules, intervals IntervalRules) float64 {
	if intervalID != nil {
		if rule, ok := intervals[*intervalID][dayIndex]; ok {
			return applyRule(basePrice, rule)
		}
	}
	if rule, ok := global[dayIndex]; ok {
		return applyRule(basePrice, rule)
	}
	return basePrice
}

func applyRule(basePrice float64, rule Rule) float64 {
	base := dec(basePrice)
	value := dec(rule.Value)

	var price decimal.Decimal
	switch rule.Type {
	case RuleFixed:
		price = base.Sub(value)
	default:
		price = base.Sub(base.Mul(value).Div(decimal.NewFromInt(100)))
	}
	return nonNegative(price).InexactFloat64()
}

// TotalForFlexibleCollective charges every distinct non-cancelled date once.
// Day indices are counted per interval, with dates outside any interval
// sharing the global counter.
func TotalForFlexibleCollective(course Course, lines []BookingLine) float64 {
	dates := distinctDates(lines)
	if len(dates) == 0 {
		return 0
	}

	global, intervals := ResolveRules(course)
	counters := map[string]int{}
	total := decimal.Zero
	for _, line := range dates {
		intervalID := line.IntervalID()
		scope := globalScope
		if intervalID != nil {
			scope = strconv.FormatUint(uint64(*intervalID), 10)
		}
		counters[scope]++

		price := PriceForDate(course.Price, intervalID, counters[scope], global, intervals)
		total = total.Add(dec(price))
	}
	return round2(total)
}

// distinctDates keeps the first non-cancelled line per calendar date, sorted
// by date.
func distinctDates(lines []BookingLine) []BookingLine {
	seen := map[string]bool{}
	out := make([]BookingLine, 0, len(lines))
	for _, line := range lines {
		if line.Cancelled() {
			continue
		}
		key := line.Date.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, line)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
