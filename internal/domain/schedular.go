package domain

import "context"

// MaintenanceTask is a recurring server-side job run by the Schedular.
type MaintenanceTask struct {
	Name     string
	Schedule string // cron spec, e.g. "@every 15m"
	Run      func(ctx context.Context) error
}

type Schedular interface {
	Start(ctx context.Context) error
	Stop()

	AddTask(task MaintenanceTask) error
	RemoveTask(name string) error
}
