package rafflequeue

// UpkeepJob is the periodic draw-eligibility poll. It carries no arguments;
// the worker reads the live round state when it runs.
type UpkeepJob struct{}

// Kind returns the job type identifier for River
func (UpkeepJob) Kind() string { return "raffle_upkeep" }
