package systems

// ProgressSink receives the aggregate completion ratio of every fetch
// registered with a FetchSystem.
type ProgressSink interface {
	SetProgress(fraction float64)
}

// ProgressFunc adapts a plain function to a ProgressSink.
type ProgressFunc func(fraction float64)

func (f ProgressFunc) SetProgress(fraction float64) { f(fraction) }
