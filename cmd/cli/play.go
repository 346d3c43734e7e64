package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/himanishpuri/VTuneDNA/internal/auth"
	"github.com/himanishpuri/VTuneDNA/internal/config"
	"github.com/himanishpuri/VTuneDNA/internal/device"
	"github.com/himanishpuri/VTuneDNA/internal/player"
	"github.com/himanishpuri/VTuneDNA/internal/service"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
)

func handlePlay(ctx context.Context, cfg *config.Config, args []string) error {
	log := logger.Named("play")

	if len(args) < 1 {
		fmt.Println("Usage: vtunedna play <song_id> [--user <id>] [--related <n>]")
		os.Exit(1)
	}
	songID, err := parseSongID(args[0])
	if err != nil {
		return err
	}
	playCmd := flag.NewFlagSet("play", flag.ExitOnError)
	userID := playCmd.Uint("user", 0, "Record play history for this user ID (0 disables history)")
	relatedCount := playCmd.Int("related", cfg.Player.RelatedQueue, "Related songs queued after the requested one")
	playCmd.Parse(args[1:])

	db, svc, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	song, err := svc.GetSong(ctx, songID)
	if err != nil {
		return err
	}
	if song == nil {
		return fmt.Errorf("song %d not found", songID)
	}

	queue := []player.Track{player.TrackFromSong(*song)}
	if *relatedCount > 0 {
		related, err := svc.RelatedSongs(ctx, songID, *relatedCount)
		if err != nil {
			return fmt.Errorf("failed to resolve related songs: %w", err)
		}
		for _, s := range related {
			queue = append(queue, player.TrackFromSong(s))
		}
	}

	dev, err := device.NewMPV(ctx, cfg.Player)
	if err != nil {
		return err
	}
	defer dev.Close()

	var identity *auth.Identity
	if *userID > 0 {
		identity = &auth.Identity{UserID: *userID}
	}
	ctrl := player.NewController(dev,
		player.WithLogger(log),
		player.WithPlayListener(historyRecorder(ctx, svc, identity, log)),
	)

	for _, t := range queue {
		ctrl.AddToQueue(t)
	}
	fmt.Printf("\n📻 Queued %d track(s). Commands: n(ext) p(rev) pause resume seek <sec> status q(uit)\n", len(queue))
	ctrl.PlayQueueAt(0)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n👋 Stopping playback")
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin closed; keep playing until interrupted
				lines = nil
				continue
			}
			if quit := runPlayCommand(ctrl, strings.Fields(line)); quit {
				return nil
			}
		}
	}
}

// historyRecorder returns a play listener that appends every started track
// to the listener's history. It is a no-op without an identity.
func historyRecorder(ctx context.Context, svc *service.CatalogService, id *auth.Identity, log *logger.Logger) func(player.Track) {
	return func(t player.Track) {
		fmt.Printf("▶️  %s - %s (%s)\n", t.Title, t.Artist, formatClock(t.Duration))
		if id == nil {
			return
		}
		if err := svc.AddHistory(ctx, id, t.SongID); err != nil {
			log.Warnf("failed to record history for song %d: %v", t.SongID, err)
		}
	}
}

func runPlayCommand(ctrl *player.Controller, fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "n", "next":
		ctrl.PlayNext()
	case "p", "prev":
		ctrl.PlayPrevious()
	case "pause":
		ctrl.Pause()
	case "resume", "play":
		ctrl.Resume()
	case "seek":
		if len(fields) < 2 {
			fmt.Println("Usage: seek <seconds>")
			return false
		}
		pos, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			fmt.Printf("❌ Invalid position %q\n", fields[1])
			return false
		}
		ctrl.SeekTo(pos)
	case "status", "s":
		printSnapshot(ctrl.Snapshot())
	case "q", "quit", "exit":
		return true
	default:
		fmt.Printf("Unknown command: %s\n", fields[0])
	}
	return false
}

func printSnapshot(s player.Snapshot) {
	if s.Current == nil {
		fmt.Println("⏹  Nothing playing")
		return
	}
	state := "⏸"
	if s.IsPlaying {
		state = "▶️"
	}
	fmt.Printf("%s %s - %s [%s / %s] track %d of %d\n",
		state, s.Current.Title, s.Current.Artist,
		formatClock(s.Position), formatClock(s.Duration), s.QueueIndex+1, len(s.Queue))
}
