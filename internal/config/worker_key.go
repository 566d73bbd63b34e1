package config

type WorkerKeyStruct struct {
	PersistSnapshotsQueue string
	ActivityEventsQueue   string
	RevisionPruneQueue    string
}

var WorkerKey = &WorkerKeyStruct{
	PersistSnapshotsQueue: "persist_snapshots_queue",
	ActivityEventsQueue:   "activity_events_queue",
	RevisionPruneQueue:    "revision_prune_queue",
}
