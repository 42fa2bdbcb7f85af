package mailer

import (
	"time"
)

func deadlineTimeout(deadline time.Time) time.Duration {
	d := time.Until(deadline)
	if d <= 0 {
		return time.Millisecond
	}
	return d
}
