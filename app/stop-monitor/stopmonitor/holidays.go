package stopmonitor

import (
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"time"
)

//transitHolidayCalendar holds the holidays on which the agency runs its Sunday schedule
type transitHolidayCalendar struct {
	calendar *cal.BusinessCalendar
	location *time.Location
}

//makeTransitHolidayCalendar builds transitHolidayCalendar, dates are evaluated in location
func makeTransitHolidayCalendar(location *time.Location) *transitHolidayCalendar {
	if location == nil {
		location = time.Local
	}
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(
		us.NewYear,
		us.MemorialDay,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return &transitHolidayCalendar{calendar: calendar, location: location}
}

//isHolidayService returns true if at falls on a Sunday or an observed holiday
func (t *transitHolidayCalendar) isHolidayService(at time.Time) bool {
	local := at.In(t.location)
	if local.Weekday() == time.Sunday {
		return true
	}
	_, observed, _ := t.calendar.IsHoliday(local)
	return observed
}
