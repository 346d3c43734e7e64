// Package player keeps playback state for one listener and drives an
// external Device.
package player

import (
	"sync"

	"github.com/himanishpuri/VTuneDNA/internal/model"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
)

// Track is a queued or playing song.
type Track struct {
	SongID   uint    `json:"song_id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Locator  string  `json:"locator"`
	Duration float64 `json:"duration"`
}

func TrackFromSong(s model.SongView) Track {
	return Track{
		SongID:   s.ID,
		Title:    s.Title,
		Artist:   s.ArtistName(),
		Locator:  s.VideoURL,
		Duration: float64(s.Duration),
	}
}

// Snapshot is a copy of the controller state. Current, IsPlaying, Position
// and Duration are the requested values, updated as soon as a command is
// issued. Confirmed is the last status the device reported for the current
// track and is nil until the device reports after a Play.
type Snapshot struct {
	Current    *Track  `json:"current"`
	IsPlaying  bool    `json:"is_playing"`
	Position   float64 `json:"position"`
	Duration   float64 `json:"duration"`
	Queue      []Track `json:"queue"`
	QueueIndex int     `json:"queue_index"`
	Confirmed  *Status `json:"confirmed,omitempty"`
}

type Option func(*Controller)

// WithPlayListener registers fn to run after every Play, outside the lock.
func WithPlayListener(fn func(Track)) Option {
	return func(c *Controller) { c.onPlay = fn }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller owns playback state. All methods are safe for concurrent use.
// Device command failures are logged and never returned.
type Controller struct {
	dev    Device
	log    *logger.Logger
	onPlay func(Track)

	mu        sync.Mutex
	current   *Track
	playing   bool
	position  float64
	duration  float64
	queue     []Track
	index     int
	confirmed *Status
}

func NewController(dev Device, opts ...Option) *Controller {
	c := &Controller{dev: dev, log: logger.Named("player")}
	for _, opt := range opts {
		opt(c)
	}
	dev.OnStatus(c.handleStatus)
	return c
}

// Play replaces the current track and starts it from the beginning.
func (c *Controller) Play(t Track) {
	c.mu.Lock()
	cur := t
	c.current = &cur
	c.position = 0
	c.duration = t.Duration
	c.playing = true
	c.confirmed = nil
	c.mu.Unlock()

	if err := c.dev.Load(t.Locator); err != nil {
		c.log.Warnf("load %q failed: %v", t.Locator, err)
	}
	if err := c.dev.Play(); err != nil {
		c.log.Warnf("play failed: %v", err)
	}

	if c.onPlay != nil {
		c.onPlay(t)
	}
}

func (c *Controller) Pause() {
	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()

	if err := c.dev.Pause(); err != nil {
		c.log.Warnf("pause failed: %v", err)
	}
}

func (c *Controller) Resume() {
	c.mu.Lock()
	c.playing = true
	c.mu.Unlock()

	if err := c.dev.Play(); err != nil {
		c.log.Warnf("resume failed: %v", err)
	}
}

func (c *Controller) SeekTo(position float64) {
	if position < 0 {
		position = 0
	}
	c.mu.Lock()
	c.position = position
	c.mu.Unlock()

	if err := c.dev.Seek(position); err != nil {
		c.log.Warnf("seek to %.1fs failed: %v", position, err)
	}
}

// PlayNext advances the queue index with wraparound and plays that track. It
// does nothing on an empty queue.
func (c *Controller) PlayNext() {
	c.step(1)
}

// PlayPrevious moves the queue index back with wraparound and plays that
// track. It does nothing on an empty queue.
func (c *Controller) PlayPrevious() {
	c.step(-1)
}

func (c *Controller) step(delta int) {
	c.mu.Lock()
	n := len(c.queue)
	if n == 0 {
		c.mu.Unlock()
		return
	}
	c.index = ((c.index+delta)%n + n) % n
	next := c.queue[c.index]
	c.mu.Unlock()

	c.Play(next)
}

// AddToQueue appends t without touching the current track.
func (c *Controller) AddToQueue(t Track) {
	c.mu.Lock()
	c.queue = append(c.queue, t)
	c.mu.Unlock()
}

// ClearQueue empties the queue and resets the index. The current track keeps
// playing.
func (c *Controller) ClearQueue() {
	c.mu.Lock()
	c.queue = nil
	c.index = 0
	c.mu.Unlock()
}

// PlayQueueAt points the queue index at i and plays that track. It reports
// false when i is out of range.
func (c *Controller) PlayQueueAt(i int) bool {
	c.mu.Lock()
	if i < 0 || i >= len(c.queue) {
		c.mu.Unlock()
		return false
	}
	c.index = i
	t := c.queue[i]
	c.mu.Unlock()

	c.Play(t)
	return true
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		IsPlaying:  c.playing,
		Position:   c.position,
		Duration:   c.duration,
		Queue:      append([]Track(nil), c.queue...),
		QueueIndex: c.index,
	}
	if c.current != nil {
		cur := *c.current
		s.Current = &cur
	}
	if c.confirmed != nil {
		st := *c.confirmed
		s.Confirmed = &st
	}
	return s
}

// handleStatus reconciles a device report into the state and auto-advances
// when the device says the track ended naturally.
func (c *Controller) handleStatus(st Status) {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	confirmed := st
	c.confirmed = &confirmed
	c.position = st.PositionSeconds
	if st.DurationSeconds > 0 {
		c.duration = st.DurationSeconds
	}
	c.playing = st.IsPlaying && !st.DidFinish
	c.mu.Unlock()

	if st.DidFinish {
		c.PlayNext()
	}
}
