package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/avanse/counselor/agent/contract"
	counselorx "github.com/avanse/counselor/agent/counselor"
	gatewayx "github.com/avanse/counselor/agent/gateway"
	keypoolx "github.com/avanse/counselor/agent/keypool"
	leadx "github.com/avanse/counselor/agent/lead"
	providerx "github.com/avanse/counselor/agent/provider"
	sinkx "github.com/avanse/counselor/agent/sink"
	configx "github.com/avanse/counselor/pkg/config"
	logx "github.com/avanse/counselor/pkg/logger"
)

const greeting = "Hello! I'm your Avanse Education Expert.\n" +
	"I can help you with Universities, Visas, and Loans. To get started, may I know your Name and Target Country?"

type AppConfig struct {
	GeminiAPIKeys     []string `envconfig:"GEMINI_API_KEYS" split_words:"true"`
	OpenAIAPIKeys     []string `envconfig:"OPENAI_API_KEYS" split_words:"true"`
	OpenRouterAPIKeys []string `envconfig:"OPENROUTER_API_KEYS" split_words:"true"`

	Sink    string `envconfig:"SINK" split_words:"true" default:"sheets"`
	CSVPath string `envconfig:"CSV_PATH" split_words:"true" default:"leads.csv"`
}

func main() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	appCfg := configx.MustNew[AppConfig]("")
	counselorCfg := configx.MustNew[counselorx.Config]("COUNSELOR")

	provider, err := contractx.ParseProvider(counselorCfg.Provider)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid provider configuration")
	}

	ctx := context.Background()

	pool := keypoolx.FromConfig(map[contractx.Provider][]string{
		contractx.ProviderGemini:     appCfg.GeminiAPIKeys,
		contractx.ProviderOpenAI:     appCfg.OpenAIAPIKeys,
		contractx.ProviderOpenRouter: appCfg.OpenRouterAPIKeys,
	})

	adapters := []contractx.Adapter{
		providerx.NewGemini(*configx.MustNew[providerx.GeminiConfig]("GEMINI")),
		providerx.NewOpenAI(*configx.MustNew[providerx.OpenAIConfig]("OPENAI")),
		providerx.NewOpenRouter(*configx.MustNew[providerx.OpenRouterConfig]("OPENROUTER")),
	}

	gw := gatewayx.New(pool, adapters, *configx.MustNew[gatewayx.Config]("GATEWAY"))

	sink, err := buildSink(ctx, appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("sink initialization failed")
	}

	svc := counselorx.New(gw, sink, provider, counselorCfg.Model)
	runChat(ctx, svc)
}

func buildSink(ctx context.Context, cfg *AppConfig) (contractx.Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Sink)) {
	case "postgres":
		pg := sinkx.NewPostgres(*configx.MustNew[sinkx.PostgresConfig]("POSTGRES"))
		if err := pg.Init(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	case "csv":
		return sinkx.NewCSV(cfg.CSVPath)
	default:
		fallback, err := sinkx.NewCSV(cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		return sinkx.NewSheets(ctx, *configx.MustNew[sinkx.SheetsConfig]("SHEETS"), fallback), nil
	}
}

// runChat is a minimal terminal front end; the production UI talks to the
// same Service.
func runChat(ctx context.Context, svc *counselorx.Service) {
	session := leadx.NewSession()

	fmt.Println(greeting)
	printSuggestions(counselorx.InitialSuggestions)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			return
		}

		result := svc.HandleTurn(ctx, session, text)

		fmt.Println(result.Answer)
		for _, c := range result.Citations {
			fmt.Printf("  [source] %s <%s>\n", c.Title, c.URL)
		}
		for _, v := range result.VideoLinks {
			fmt.Printf("  [video] %s\n", v)
		}
		printSuggestions(result.SuggestedReplies)
	}
}

func printSuggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Printf("  (suggested: %s)\n", strings.Join(suggestions, " | "))
}
