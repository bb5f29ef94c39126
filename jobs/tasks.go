package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStateSync mirrors the latest ledger snapshot to the remote store.
	TaskStateSync = "state:sync"
	// TaskSessionsPurge drops expired session audit rows.
	TaskSessionsPurge = "sessions:purge"
)

// NewStateSyncTask constructs a sync task. It carries no payload: the worker
// always mirrors the latest snapshot, so any pending sync subsumes the ones
// enqueued before it.
func NewStateSyncTask() *asynq.Task {
	return asynq.NewTask(TaskStateSync, nil)
}

// NewSessionsPurgeTask constructs a purge task for the cron scheduler.
func NewSessionsPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskSessionsPurge, nil)
}
