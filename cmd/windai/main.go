package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"google.golang.org/genai"

	"github.com/anawil7349-cpu/my-wind-ai/internal/agent"
	"github.com/anawil7349-cpu/my-wind-ai/internal/analysis"
	"github.com/anawil7349-cpu/my-wind-ai/internal/api"
	"github.com/anawil7349-cpu/my-wind-ai/internal/models"
	"github.com/anawil7349-cpu/my-wind-ai/internal/notes"
	"github.com/anawil7349-cpu/my-wind-ai/internal/rtdb"
	"github.com/anawil7349-cpu/my-wind-ai/internal/telemetry"
)

type CLI struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,help='optional .env file to load'"`

	Port        string `kong:"default='5000',env='PORT',help='HTTP server port'"`
	DatabaseURL string `kong:"name=database-url,env='DATABASE_URL',help='Realtime Database base URL'"`
	Credentials string `kong:"env='FIREBASE_CREDENTIALS',help='service-account JSON, inline or @/path/to/key.json'"`

	GeminiAPIKey   string   `kong:"name=gemini-api-key,env='GEMINI_API_KEY',help='API key for the model service'"`
	Models         []string `kong:"env='MODEL_CANDIDATES',help='candidate model ids in priority order'"`
	AnswerLanguage string   `kong:"default='Thai',env='ANSWER_LANGUAGE',help='language the agent answers in'"`

	MemoryFile         string   `kong:"default='ai_memory.json',env='MEMORY_FILE',help='remembered-facts file'"`
	AllowedOrigins     []string `kong:"env='ALLOWED_ORIGINS',help='CORS origins, default *'"`
	RequireCredentials bool     `kong:"env='REQUIRE_CREDENTIALS',help='fail at startup when database credentials are missing'"`
	NoRefresh          bool     `kong:"name=no-refresh,help='skip the initial history sync (for local dev)'"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("windai"),
		kong.Description("conversational analytics agent for a wind charger"),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	creds, err := loadCredentials(cli.Credentials)
	if err != nil {
		log.Fatalf("credentials: %v", err)
	}
	if len(creds) == 0 && cli.RequireCredentials {
		log.Fatal("database credentials required (--credentials / FIREBASE_CREDENTIALS)")
	}

	var fetcher telemetry.Fetcher
	if client, err := rtdb.New(ctx, cli.DatabaseURL, creds); err != nil {
		log.Printf("database disabled: %v", err)
		fetcher = noDatabase{}
	} else {
		log.Printf("database connected: %s", cli.DatabaseURL)
		fetcher = client
	}

	store := telemetry.NewStore(fetcher)
	probe := telemetry.NewProbe(fetcher)
	executor := analysis.NewExecutor(func() []models.TelemetryRecord {
		return store.Snapshot().Records
	})
	book := notes.Load(cli.MemoryFile)

	var gen agent.Generator
	if cli.GeminiAPIKey == "" {
		log.Print("model service disabled: GEMINI_API_KEY not set")
	} else {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cli.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			log.Printf("model service disabled: %v", err)
		} else {
			gen = client.Models
		}
	}

	selector := agent.NewSelector(agent.GenProber{Gen: gen}, cli.Models, "")
	orch := agent.NewOrchestrator(gen, selector, store, probe, executor, book, agent.Config{
		AnswerLanguage: cli.AnswerLanguage,
	})

	if !cli.NoRefresh {
		log.Println(store.Refresh(ctx))
	}

	server := api.NewServer(orch, store, cli.Port, cli.AllowedOrigins)
	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// loadCredentials accepts inline JSON or an @-prefixed file path.
func loadCredentials(spec string) ([]byte, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	if strings.HasPrefix(spec, "@") {
		return os.ReadFile(strings.TrimPrefix(spec, "@"))
	}
	return []byte(spec), nil
}

// noDatabase stands in when no database URL is configured; every read
// degrades to the documented status strings instead of crashing.
type noDatabase struct{}

func (noDatabase) FetchHistory(ctx context.Context) ([]rtdb.KeyedSample, error) {
	return nil, errors.New("database not configured")
}

func (noDatabase) FetchLatest(ctx context.Context) (models.RawSample, error) {
	return nil, errors.New("database not configured")
}
