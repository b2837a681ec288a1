package processor

import (
	"errors"
	"fmt"
	"time"
)

var ErrOutOfRange = errors.New("取值超出范围")

// Weekday 0=周一 ... 6=周日
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayLabels = [...]string{"Mon", "Tues", "Wed", "Thurs", "Fri", "Sat", "Sun"}

// Weekdays 按周一到周日排列
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayOf 将time.Weekday(周日为0)转换为周一为0的序号
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayLabels[d]
}

// WeekdayLabel 序号转标签，超出0-6返回错误
func WeekdayLabel(i int) (string, error) {
	d := Weekday(i)
	if !d.Valid() {
		return "", fmt.Errorf("weekday %d: %w", i, ErrOutOfRange)
	}
	return d.String(), nil
}

// ParseWeekday 标签转序号
func ParseWeekday(label string) (Weekday, bool) {
	for i, l := range weekdayLabels {
		if l == label {
			return Weekday(i), true
		}
	}
	return 0, false
}

// Month 1=一月 ... 12=十二月
type Month int

var monthLabels = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Months 按日历顺序排列
var Months = func() []Month {
	ms := make([]Month, 12)
	for i := range ms {
		ms[i] = Month(i + 1)
	}
	return ms
}()

func (m Month) Valid() bool { return m >= 1 && m <= 12 }

func (m Month) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Month(%d)", int(m))
	}
	return monthLabels[m-1]
}

func MonthLabel(i int) (string, error) {
	m := Month(i)
	if !m.Valid() {
		return "", fmt.Errorf("month %d: %w", i, ErrOutOfRange)
	}
	return m.String(), nil
}

func ParseMonth(label string) (Month, bool) {
	for i, l := range monthLabels {
		if l == label {
			return Month(i + 1), true
		}
	}
	return 0, false
}

// DayPart 时段，按小时划分的左闭右开区间
type DayPart int

const (
	Morning   DayPart = iota // [0,10)
	Afternoon                // [10,15)
	Evening                  // [15,19)
	Night                    // [19,24)
)

var dayPartLabels = [...]string{"Morning", "Afternoon", "Evening", "Night"}

// dayPartBins 区间边界，与 dayPartLabels 一一对应
var dayPartBins = [...]int{0, 10, 15, 19, 24}

var DayParts = []DayPart{Morning, Afternoon, Evening, Night}

func (p DayPart) Valid() bool { return p >= Morning && p <= Night }

func (p DayPart) String() string {
	if !p.Valid() {
		return fmt.Sprintf("DayPart(%d)", int(p))
	}
	return dayPartLabels[p]
}

// DayPartOf 小时分段，不在[0,24)内返回false
func DayPartOf(hour int) (DayPart, bool) {
	for i := 0; i < len(dayPartLabels); i++ {
		if hour >= dayPartBins[i] && hour < dayPartBins[i+1] {
			return DayPart(i), true
		}
	}
	return 0, false
}

func ParseDayPart(label string) (DayPart, bool) {
	for i, l := range dayPartLabels {
		if l == label {
			return DayPart(i), true
		}
	}
	return 0, false
}
