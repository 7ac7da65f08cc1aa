package tasks

// TaskSchedulerInterface is what the HTTP layer needs from the poll loop.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	GetStatus() Status
}
