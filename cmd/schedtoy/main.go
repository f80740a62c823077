package main

import (
	"fmt"
	"time"

	"github.com/fluentdeck/srs_engine/internal/scheduler"
)

// Some experimentation code to eyeball scheduling transitions.
func main() {
	now := time.Now()
	card := scheduler.NewCard(1, 1, scheduler.Forward, now)

	ratings := []scheduler.Rating{
		scheduler.Good, scheduler.Good, scheduler.Good,
		scheduler.Failed, scheduler.Good, scheduler.Easy,
	}

	for _, r := range ratings {
		next, entry, err := scheduler.Schedule(card, r, now)
		if err != nil {
			fmt.Println("error", err)
			return
		}
		fmt.Println("----")
		fmt.Println("rated", r)
		fmt.Println("state", entry.StateBefore, "->", entry.StateAfter)
		fmt.Println("interval", next.IntervalDays, "ease", next.Ease)
		fmt.Println("due", next.Due)

		card = next
		// Jump the clock to the due time so the next rating is on schedule.
		now = next.Due
	}
}
