package fog

import "time"

// BuildJob is one pending cell population request.
type BuildJob struct {
	Key        CellKey
	EnqueuedAt time.Time
}

// BuildQueue is a plain FIFO of build jobs. Enqueue is unconditional:
// duplicate jobs for the same key are allowed and resolved lazily when the
// queue drains (an already-cached key is a free no-op there). Deduplicating
// here would cost a set and complicate ordering across enqueue sources.
type BuildQueue struct {
	jobs []BuildJob
}

func NewBuildQueue() *BuildQueue {
	return &BuildQueue{}
}

func (q *BuildQueue) Enqueue(k CellKey, now time.Time) {
	q.jobs = append(q.jobs, BuildJob{Key: k, EnqueuedAt: now})
}

func (q *BuildQueue) Len() int { return len(q.jobs) }

// Pop removes and returns the oldest job.
func (q *BuildQueue) Pop() (BuildJob, bool) {
	if len(q.jobs) == 0 {
		return BuildJob{}, false
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true
}
