package dataset

import (
	"slices"
	"time"
)

// Calendar holds the seasonal conventions used for feature flags.
// The defaults follow a South Asian retail calendar and are meant to be overridden.
type Calendar struct {
	HolidayMonths []time.Month `json:"holiday_months"`
	SummerMonths  []time.Month `json:"summer_months"`
}

func DefaultCalendar() Calendar {
	return Calendar{
		HolidayMonths: []time.Month{time.January, time.April, time.October, time.November, time.December},
		SummerMonths:  []time.Month{time.March, time.April, time.May, time.June},
	}
}

func (c Calendar) IsHoliday(m time.Month) bool {
	return slices.Contains(c.HolidayMonths, m)
}

func (c Calendar) IsSummer(m time.Month) bool {
	return slices.Contains(c.SummerMonths, m)
}
