// Package device provides playback devices for the player controller.
package device

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/himanishpuri/VTuneDNA/internal/config"
	"github.com/himanishpuri/VTuneDNA/internal/player"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
	"github.com/wildeyedskies/go-mpv/mpv"
)

var errClosed = errors.New("mpv device closed")

// engine is the part of *mpv.Mpv the device drives.
type engine interface {
	Command(cmd []string) error
	GetProperty(name string, format mpv.Format) (interface{}, error)
}

// MPV plays locators through libmpv. Status is reported from a poll loop
// while media is loaded, and once with DidFinish when mpv ends a file that
// was not replaced by a later Load.
type MPV struct {
	eng     engine
	wait    func() *mpv.Event
	destroy func()
	poll    time.Duration
	log     *logger.Logger

	mu        sync.Mutex
	onStatus  func(player.Status)
	loaded    bool
	replacing int
	last      player.Status
	closed    bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ player.Device = (*MPV)(nil)

// NewMPV starts an mpv instance configured from cfg.
func NewMPV(ctx context.Context, cfg config.PlayerConfig) (*MPV, error) {
	m := mpv.Create()

	m.SetOptionString("audio-display", "no")
	if cfg.AudioOnly {
		m.SetOptionString("video", "no")
	}
	m.SetOptionString("ytdl", "yes")
	if cfg.Volume > 0 {
		m.SetOptionString("volume", strconv.Itoa(cfg.Volume))
	}
	m.ObserveProperty(0, "cache-buffering-state", mpv.FORMAT_INT64)

	if err := m.Initialize(); err != nil {
		m.TerminateDestroy()
		return nil, fmt.Errorf("failed to initialize mpv: %w", err)
	}

	d := newMPV(m, func() *mpv.Event { return m.WaitEvent(1) }, func() {
		m.Command([]string{"quit"})
		m.TerminateDestroy()
	}, cfg.PollInterval)
	d.start(ctx)
	return d, nil
}

func newMPV(eng engine, wait func() *mpv.Event, destroy func(), poll time.Duration) *MPV {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &MPV{
		eng:     eng,
		wait:    wait,
		destroy: destroy,
		poll:    poll,
		log:     logger.Named("mpv"),
	}
}

func (d *MPV) start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(2)
	go d.eventLoop(ctx)
	go d.pollLoop(ctx)
}

func (d *MPV) OnStatus(fn func(player.Status)) {
	d.mu.Lock()
	d.onStatus = fn
	d.mu.Unlock()
}

// Load replaces whatever is loaded with locator. The END_FILE mpv emits for
// the replaced file is swallowed.
func (d *MPV) Load(locator string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return errClosed
	}
	wasLoaded := d.loaded
	if wasLoaded {
		d.replacing++
	}
	d.loaded = true
	d.last = player.Status{}
	d.mu.Unlock()

	if err := d.eng.Command([]string{"loadfile", locator, "replace"}); err != nil {
		d.mu.Lock()
		if wasLoaded {
			d.replacing--
		}
		d.loaded = wasLoaded
		d.mu.Unlock()
		return fmt.Errorf("loadfile %s: %w", locator, err)
	}
	return nil
}

func (d *MPV) Play() error {
	return d.command("set", "pause", "no")
}

func (d *MPV) Pause() error {
	return d.command("set", "pause", "yes")
}

func (d *MPV) Seek(positionSeconds float64) error {
	return d.command("seek", strconv.FormatFloat(positionSeconds, 'f', 3, 64), "absolute")
}

func (d *MPV) command(args ...string) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return errClosed
	}
	return d.eng.Command(args)
}

// Close stops the loops and destroys the mpv instance.
func (d *MPV) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	if d.destroy != nil {
		d.destroy()
	}
}

func (d *MPV) eventLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		e := d.wait()
		if e == nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		switch e.Event_Id {
		case mpv.EVENT_END_FILE:
			d.handleEndFile()
		case mpv.EVENT_SHUTDOWN:
			d.log.Info("mpv shut down")
			return
		}
	}
}

func (d *MPV) handleEndFile() {
	d.mu.Lock()
	if d.replacing > 0 {
		d.replacing--
		d.mu.Unlock()
		return
	}
	if !d.loaded {
		d.mu.Unlock()
		return
	}
	d.loaded = false
	st := player.Status{
		PositionSeconds: d.last.DurationSeconds,
		DurationSeconds: d.last.DurationSeconds,
		DidFinish:       true,
	}
	fn := d.onStatus
	d.mu.Unlock()

	d.log.Debug("file finished")
	if fn != nil {
		fn(st)
	}
}

func (d *MPV) pollLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.report()
		}
	}
}

// report reads mpv's properties and forwards them while media is loaded.
func (d *MPV) report() {
	d.mu.Lock()
	loaded := d.loaded
	d.mu.Unlock()
	if !loaded {
		return
	}

	idle, err := d.flag("idle-active")
	if err != nil || idle {
		return
	}
	paused, err := d.flag("pause")
	if err != nil {
		return
	}
	pos := d.double("time-pos")
	dur := d.double("duration")

	st := player.Status{PositionSeconds: pos, DurationSeconds: dur, IsPlaying: !paused}

	d.mu.Lock()
	if !d.loaded {
		d.mu.Unlock()
		return
	}
	d.last = st
	fn := d.onStatus
	d.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

func (d *MPV) flag(name string) (bool, error) {
	v, err := d.eng.GetProperty(name, mpv.FORMAT_FLAG)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// double returns 0 for properties mpv has not populated yet.
func (d *MPV) double(name string) float64 {
	v, err := d.eng.GetProperty(name, mpv.FORMAT_DOUBLE)
	if err != nil {
		return 0
	}
	f, _ := v.(float64)
	return f
}
