package ports

// PauseState is the advisory soft-pause flag. Only the self-reporting task
// reads it; ingestion never does.
type PauseState interface {
	IsPaused() bool
}

type ControlService interface {
	PauseState
	SetPaused(paused bool)
}
