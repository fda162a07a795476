package service

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"supporting-smart-system/internal/model"
)

// ── iCalendar 读写 ──────────────────────────────────────────
//
// 导出：每条维护日程一个 VEVENT，UID 为 event-{id}@{host}
// 导入：只取 SUMMARY/DTSTART/DTEND/DESCRIPTION，不展开 RRULE
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize = 5 * 1024 * 1024 // 5MB
	icsProductID   = "-//Supporting Smart System//Maintenance Schedule//EN"
)

// BuildCalendar 将日程序列化为 iCalendar 文本
func BuildCalendar(events []model.CalendarEvent, host string, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)

	for _, ev := range events {
		vev := cal.AddEvent(fmt.Sprintf("event-%d@%s", ev.ID, host))
		vev.SetDtStampTime(stamp)
		vev.SetStartAt(ev.StartDate)
		vev.SetEndAt(ev.EndDate)
		vev.SetSummary(ev.Title)
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		vev.AddProperty(ics.ComponentPropertyCategories, ev.Type)
		if ev.EquipmentID != nil && *ev.EquipmentID != "" {
			vev.SetLocation(*ev.EquipmentID)
		}
	}
	return cal.Serialize()
}

// ParseCalendar 解析 iCalendar 内容为日程（未写入）
// 缺少 SUMMARY 或 DTSTART 的 VEVENT 被跳过；没有 DTEND 时按 DURATION 或 1 小时补齐
func ParseCalendar(r io.Reader, eventType string, equipmentID *string, createdBy string) ([]model.CalendarEvent, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(r, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	var result []model.CalendarEvent
	for _, vev := range cal.Events() {
		ev, ok := parseVEvent(vev)
		if !ok {
			continue
		}
		ev.Type = eventType
		ev.EquipmentID = equipmentID
		ev.CreatedBy = createdBy
		result = append(result, ev)
	}
	return result, nil
}

func parseVEvent(vev *ics.VEvent) (model.CalendarEvent, bool) {
	summary := vev.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return model.CalendarEvent{}, false
	}

	start, err := parseICSDateTime(vev, ics.ComponentPropertyDtStart)
	if err != nil {
		return model.CalendarEvent{}, false
	}
	end, err := parseICSDateTime(vev, ics.ComponentPropertyDtEnd)
	if err != nil {
		end = start.Add(time.Hour)
		if dur := vev.GetProperty(ics.ComponentPropertyDuration); dur != nil {
			if d, ok := parseICSDuration(dur.Value); ok {
				end = start.Add(d)
			}
		}
	}
	if !end.After(start) {
		return model.CalendarEvent{}, false
	}

	ev := model.CalendarEvent{
		Title:     strings.TrimSpace(summary.Value),
		StartDate: start,
		EndDate:   end,
	}
	if desc := vev.GetProperty(ics.ComponentPropertyDescription); desc != nil {
		ev.Description = strings.TrimSpace(desc.Value)
	}
	return ev, true
}

// parseICSDateTime 解析 DTSTART/DTEND；浮动时间与 TZID 时间统一转为 UTC
func parseICSDateTime(vev *ics.VEvent, prop ics.ComponentProperty) (time.Time, error) {
	p := vev.GetProperty(prop)
	if p == nil {
		return time.Time{}, fmt.Errorf("missing property %s", prop)
	}

	loc := time.UTC
	for k, v := range p.ICalParameters {
		if strings.EqualFold(k, "TZID") && len(v) > 0 {
			if tz, err := time.LoadLocation(v[0]); err == nil {
				loc = tz
			}
		}
	}

	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		t, err := time.ParseInLocation(layout, p.Value, loc)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", p.Value)
}

// parseICSDuration 支持 PnW / PnDTnHnMnS 形式
func parseICSDuration(v string) (time.Duration, bool) {
	v = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(v)), "+")
	if !strings.HasPrefix(v, "P") {
		return 0, false
	}
	v = v[1:]

	var (
		total  time.Duration
		num    strings.Builder
		inTime bool
	)
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			num.WriteRune(r)
			continue
		case r == 'T':
			inTime = true
			continue
		}
		n, err := strconv.Atoi(num.String())
		if err != nil {
			return 0, false
		}
		num.Reset()

		switch {
		case r == 'W':
			total += time.Duration(n) * 7 * 24 * time.Hour
		case r == 'D':
			total += time.Duration(n) * 24 * time.Hour
		case r == 'H' && inTime:
			total += time.Duration(n) * time.Hour
		case r == 'M' && inTime:
			total += time.Duration(n) * time.Minute
		case r == 'S' && inTime:
			total += time.Duration(n) * time.Second
		default:
			return 0, false
		}
	}
	return total, total > 0
}
