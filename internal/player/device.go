package player

// Status is what a playback device reports about the media it has loaded.
// DidFinish is set only when playback reached the end on its own, never for a
// user pause or for media replaced by a new Load.
type Status struct {
	PositionSeconds float64 `json:"position_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	IsPlaying       bool    `json:"is_playing"`
	DidFinish       bool    `json:"did_finish"`
}

// Device is an external playback engine. Commands may complete
// asynchronously; the device reports ground truth through the OnStatus
// callback, from any goroutine.
type Device interface {
	Load(locator string) error
	Play() error
	Pause() error
	Seek(positionSeconds float64) error
	OnStatus(fn func(Status))
}
