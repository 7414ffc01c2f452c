package signup

import "time"

// deadlineJoin waits for the hint message to join an authorization code that
// arrived alone. It is armed at most once per attempt; when it fires, the
// coordinator exchanges with whatever hints it has, unless the exchange latch
// closed in the meantime.
type deadlineJoin struct {
	attemptID string
	timer     Timer
}

func armJoin(clock Clock, delay time.Duration, attemptID string, fire func(attemptID string)) *deadlineJoin {
	return &deadlineJoin{
		attemptID: attemptID,
		timer:     clock.AfterFunc(delay, func() { fire(attemptID) }),
	}
}

// armedFor reports whether the join belongs to attemptID.
func (j *deadlineJoin) armedFor(attemptID string) bool {
	return j != nil && j.attemptID == attemptID
}

func (j *deadlineJoin) disarm() {
	if j != nil {
		j.timer.Stop()
	}
}
