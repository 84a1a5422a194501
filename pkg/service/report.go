package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"
)

// ErrReportFailed error fired when the transfer query behind the report fails
var ErrReportFailed = errors.New("Report failed")

// UserWeekStats summarizes one user's transfers inside one ISO week.
type UserWeekStats struct {
	Email              string `json:"email"`
	PercentageInternal string `json:"percentageInternal"`
	PercentageExternal string `json:"percentageExternal"`
}

// Report maps ISO week number to user id to that user's stats for the week.
type Report map[int]map[string]UserWeekStats

type weekUserGroup struct {
	email    string
	internal int
	external int
}

// Report implements Service. It aggregates transfers inside the inclusive
// [from, to] window by ISO week and user, classifying each transfer as
// internal when the destination account belongs to the initiating user.
func (ts transferService) Report(ctx context.Context, from, to *time.Time) (Report, error) {
	rows, err := ts.repository.FindTransfers(ctx, from, to)
	if err != nil {
		return nil, ErrReportFailed
	}

	type groupKey struct {
		week   int
		userID string
	}
	groups := make(map[groupKey]*weekUserGroup)
	for _, row := range rows {
		_, week := row.CreatedAt.ISOWeek()
		key := groupKey{week: week, userID: row.UserID}
		group, ok := groups[key]
		if !ok {
			group = &weekUserGroup{email: row.Email}
			groups[key] = group
		}
		if row.DestOwnerID == row.UserID {
			group.internal++
		} else {
			group.external++
		}
	}

	report := make(Report)
	for key, group := range groups {
		users, ok := report[key.week]
		if !ok {
			users = make(map[string]UserWeekStats)
			report[key.week] = users
		}
		total := group.internal + group.external
		users[key.userID] = UserWeekStats{
			Email:              group.email,
			PercentageInternal: percentage(group.internal, total),
			PercentageExternal: percentage(group.external, total),
		}
	}
	return report, nil
}

// percentage formats part/total as a rounded integer percentage. A zero total
// yields "0%" rather than faulting.
func percentage(part, total int) string {
	if total == 0 {
		return "0%"
	}
	rounded := int(math.Round(float64(part*100) / float64(total)))
	return strconv.Itoa(rounded) + "%"
}
