package lifecycle

import (
	"time"

	"campus-eats/internal/model"
)

// Summary is the staff dashboard header: queue sizes and today's throughput.
type Summary struct {
	Pending        int `json:"pending"`
	Preparing      int `json:"preparing"`
	Ready          int `json:"ready"`
	CompletedToday int `json:"completedToday"`
	CancelledToday int `json:"cancelledToday"`
}

// Summarize counts orders per queue. "Today" is the calendar day of now in
// now's location, judged by the order's last update.
func Summarize(orders []model.Order, now time.Time) Summary {
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	var s Summary
	for _, o := range orders {
		switch o.Status {
		case model.StatusPending:
			s.Pending++
		case model.StatusPreparing:
			s.Preparing++
		case model.StatusReady:
			s.Ready++
		case model.StatusCompleted:
			if !o.UpdatedAt.Before(startOfDay) {
				s.CompletedToday++
			}
		case model.StatusCancelled:
			if !o.UpdatedAt.Before(startOfDay) {
				s.CancelledToday++
			}
		}
	}
	return s
}
