package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/VTuneDNA/internal/auth"
	"github.com/himanishpuri/VTuneDNA/internal/config"
	"github.com/himanishpuri/VTuneDNA/internal/ingest"
	"github.com/himanishpuri/VTuneDNA/internal/model"
	"github.com/himanishpuri/VTuneDNA/internal/seed"
	"github.com/himanishpuri/VTuneDNA/internal/service"
	"github.com/himanishpuri/VTuneDNA/internal/storage"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
	"github.com/himanishpuri/VTuneDNA/pkg/utils"
)

// Global flags
var (
	configPath string
	envFile    string
	dbPath     string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to config.toml (default: search $HOME/.config/vtunedna and .)")
	flag.StringVar(&envFile, "env", ".env", "Path to a .env file loaded before the environment is read")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database (overrides database.path)")
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	log := logger.GetLogger()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyLogging(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, rest := args[0], args[1:]
	log.Debugf("Executing command: %s", command)

	switch command {
	case "seed":
		err = handleSeed(ctx, cfg, rest)
	case "ingest":
		err = handleIngest(ctx, cfg, rest)
	case "list":
		err = handleList(ctx, cfg, rest)
	case "related":
		err = handleRelated(ctx, cfg, rest)
	case "genres":
		err = handleGenres(ctx, cfg)
	case "token":
		err = handleToken(cfg, rest)
	case "play":
		err = handlePlay(ctx, cfg, rest)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("❌ %v\n", err)
		log.Errorf("%s failed: %v", command, err)
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(config.WithConfigFile(configPath), config.WithEnvFile(envFile)).Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

// openCatalog opens the configured database and wraps it in the catalog
// service.
func openCatalog(cfg *config.Config) (*storage.DBClient, *service.CatalogService, error) {
	db, err := storage.NewDBClient(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, service.NewCatalogService(db), nil
}

func parseSongID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid song ID %q", arg)
	}
	return uint(id), nil
}

func handleSeed(ctx context.Context, cfg *config.Config, args []string) error {
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	reset := seedCmd.Bool("reset", false, "Delete every catalog and user row before seeding")
	file := seedCmd.String("file", "", "YAML catalog to load instead of the built-in one")
	seedCmd.Parse(args)

	var (
		catalog *seed.Catalog
		err     error
	)
	if *file != "" {
		if !utils.FileExists(*file) {
			return fmt.Errorf("catalog file %s does not exist", *file)
		}
		catalog, err = seed.LoadFile(*file)
	} else {
		catalog, err = seed.Default()
	}
	if err != nil {
		return err
	}

	db, _, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := seed.Apply(ctx, db, catalog, *reset)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	fmt.Printf("\n✅ Seeded database %s\n", cfg.Database.Path)
	fmt.Printf("   VTubers: %d\n", res.VTubers)
	fmt.Printf("   Tags:    %d\n", res.Tags)
	fmt.Printf("   Songs:   %d added, %d already present\n", res.Songs, res.Skipped)
	return nil
}

func handleIngest(ctx context.Context, cfg *config.Config, args []string) error {
	ingestCmd := flag.NewFlagSet("ingest", flag.ExitOnError)
	providerName := ingestCmd.String("provider", cfg.Ingest.Provider, "Search provider: youtube or ytdlp")
	maxResults := ingestCmd.Int("max", cfg.Ingest.MaxResults, "Videos fetched per query")
	delay := ingestCmd.Duration("delay", cfg.Ingest.Delay, "Pause between queries")
	cover := ingestCmd.String("covers-of", "", "Ingest covers of this original song instead of the queries")
	ingestCmd.Parse(args)

	cfg.Ingest.Provider = *providerName
	cfg.Ingest.MaxResults = *maxResults
	cfg.Ingest.Delay = *delay

	queries := ingestCmd.Args()
	switch {
	case *cover != "":
		queries = []string{ingest.CoverQuery(*cover)}
	case len(queries) == 0:
		queries = cfg.Ingest.Queries
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries given and ingest.queries is empty")
	}

	provider, err := ingest.NewProvider(cfg)
	if err != nil {
		return err
	}

	db, _, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("🔎 Ingesting %d quer%s via %s\n", len(queries), plural(len(queries), "y", "ies"), cfg.Ingest.Provider)
	rep, err := ingest.NewIngester(provider, db, cfg.Ingest).Run(ctx, queries)
	fmt.Printf("\n%s %s\n", statusMark(err), rep)
	return err
}

func handleList(ctx context.Context, cfg *config.Config, args []string) error {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	limit := listCmd.Int("limit", 20, "Songs to show")
	offset := listCmd.Int("offset", 0, "Songs to skip")
	genre := listCmd.String("genre", "", "Only list this genre")
	query := listCmd.String("q", "", "Search titles and original songs")
	listCmd.Parse(args)

	db, svc, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var songs []model.SongView
	if *genre != "" || *query != "" {
		songs, err = svc.SearchSongs(ctx, model.SongFilter{Query: *query, Genre: *genre, Limit: *limit, Offset: *offset})
	} else {
		songs, err = svc.ListSongs(ctx, *limit, *offset)
	}
	if err != nil {
		return fmt.Errorf("failed to list songs: %w", err)
	}

	if len(songs) == 0 {
		fmt.Println("\n📭 No songs in database")
		return nil
	}
	fmt.Printf("\n📚 Found %d song(s):\n\n", len(songs))
	printSongs(songs)
	return nil
}

func handleRelated(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: vtunedna related <song_id> [--limit <n>]")
		os.Exit(1)
	}
	songID, err := parseSongID(args[0])
	if err != nil {
		return err
	}
	relatedCmd := flag.NewFlagSet("related", flag.ExitOnError)
	limit := relatedCmd.Int("limit", 10, "Related songs to show (1-50)")
	relatedCmd.Parse(args[1:])

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

	related, err := svc.RelatedSongs(ctx, songID, *limit)
	if err != nil {
		return fmt.Errorf("failed to resolve related songs: %w", err)
	}

	fmt.Printf("\n🎵 \"%s\" by %s\n", song.Title, artist(*song))
	if len(related) == 0 {
		fmt.Println("\n📭 No related songs")
		return nil
	}
	fmt.Printf("\n🔗 %d related song(s):\n\n", len(related))
	printSongs(related)
	return nil
}

func handleGenres(ctx context.Context, cfg *config.Config) error {
	db, svc, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	genres, err := svc.Genres(ctx)
	if err != nil {
		return fmt.Errorf("failed to list genres: %w", err)
	}
	if len(genres) == 0 {
		fmt.Println("\n📭 No songs in database")
		return nil
	}
	fmt.Println("\n🎼 Genres:")
	for _, g := range genres {
		fmt.Printf("   %-12s %s\n", g.Genre, humanize.Comma(g.Count))
	}
	return nil
}

func handleToken(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: vtunedna token <user_id>")
		os.Exit(1)
	}
	userID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || userID == 0 {
		return fmt.Errorf("invalid user ID %q", args[0])
	}

	authn := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	token, err := authn.Issue(uint(userID))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func printSongs(songs []model.SongView) {
	for i, song := range songs {
		fmt.Printf("%d. \"%s\" by %s (ID: %d)\n", i+1, song.Title, artist(song), song.ID)
		fmt.Printf("   Genre: %s", song.Genre)
		if song.OriginalSong != nil {
			fmt.Printf(" | Original: %s", *song.OriginalSong)
		}
		fmt.Println()
		if song.Duration > 0 {
			fmt.Printf("   Duration: %d:%02d", song.Duration/60, song.Duration%60)
		} else {
			fmt.Print("   Duration: -")
		}
		fmt.Printf(" | Views: %s | Uploaded %s\n", humanize.Comma(song.ViewCount), humanize.Time(song.UploadDate))
		fmt.Printf("   %s\n\n", song.VideoURL)
	}
}

func artist(s model.SongView) string {
	if name := s.ArtistName(); name != "" {
		return name
	}
	return "Unknown Artist"
}

func statusMark(err error) string {
	if err != nil {
		return "⚠️"
	}
	return "✅"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func formatClock(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func printUsage() {
	fmt.Println("VTuneDNA - VTuber music catalog CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --config <path>    Path to config.toml (env prefix: VTUNE_)")
	fmt.Println("  --env <path>       .env file loaded before the environment (default: .env)")
	fmt.Println("  --db <path>        Path to SQLite database (overrides database.path)")
	fmt.Println("\nUsage:")
	fmt.Println("  vtunedna [global-options] seed [--reset] [--file <catalog.yaml>]")
	fmt.Println("  vtunedna [global-options] ingest [--provider youtube|ytdlp] [--max <n>] [--delay <d>] [--covers-of <title>] [query ...]")
	fmt.Println("  vtunedna [global-options] list [--limit <n>] [--offset <n>] [--genre <genre>] [--q <text>]")
	fmt.Println("  vtunedna [global-options] related <song_id> [--limit <n>]")
	fmt.Println("  vtunedna [global-options] genres")
	fmt.Println("  vtunedna [global-options] token <user_id>")
	fmt.Println("  vtunedna [global-options] play <song_id> [--user <id>] [--related <n>]")
	fmt.Println("\nExamples:")
	fmt.Println("  # Load the built-in sample catalog into a fresh database")
	fmt.Println("  vtunedna --db vtunedna.sqlite3 seed --reset")
	fmt.Println()
	fmt.Println("  # Pull covers from YouTube without an API key")
	fmt.Println("  vtunedna ingest --provider ytdlp \"ホロライブ 歌ってみた\"")
	fmt.Println()
	fmt.Println("  # Play a song followed by its related songs, recording history for user 1")
	fmt.Println("  vtunedna play 6 --user 1")
}
