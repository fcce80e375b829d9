package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fdadevices/openfda-agent/internal/agent"
	"github.com/fdadevices/openfda-agent/internal/catalog"
	"github.com/fdadevices/openfda-agent/internal/config"
	"github.com/fdadevices/openfda-agent/internal/extract"
	"github.com/fdadevices/openfda-agent/internal/llm/openai"
	"github.com/fdadevices/openfda-agent/internal/resolver"
	"github.com/fdadevices/openfda-agent/internal/retrieve"
	"github.com/fdadevices/openfda-agent/internal/session"
	"github.com/fdadevices/openfda-agent/internal/tool"
	"github.com/fdadevices/openfda-agent/internal/tool/openfda"
	"github.com/fdadevices/openfda-agent/internal/tool/resolvers"
	"github.com/fdadevices/openfda-agent/internal/transport"
)

// sessionCacheTTL bounds how long the session store's in-process cache
// keeps a document warm between turns of this CLI's REPL loop.
const sessionCacheTTL = 30 * time.Minute

func main() {
	config.LoadEnv()

	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║       openFDA Device Agent            ║")
	fmt.Println("║   GUDID + classifications + recalls   ║")
	fmt.Println("╚══════════════════════════════════════╝")

	llmClient, err := openai.NewClientFromEnv()
	if err != nil {
		log.Fatalf("❌ Failed to initialize LLM client: %v", err)
	}
	fmt.Printf("🤖 LLM: %s (provider=%s)\n", settings.LLMModel, settings.LLMProvider)

	fdaClient := transport.NewClient(settings.OpenFDAAPIKey, settings.OpenFDATimeoutSecs, settings.OpenFDAMaxRetries)

	catalogDB, err := catalog.Open(settings.CatalogDBPath)
	if err != nil {
		log.Fatalf("❌ Failed to open device catalog at %q: %v", settings.CatalogDBPath, err)
	}
	defer catalogDB.Close()
	deviceResolver := catalog.NewDeviceResolver(catalogDB)
	firmResolver := catalog.NewFirmResolver(catalogDB)
	fmt.Printf("📂 Catalog: %s\n", settings.CatalogDBPath)

	regions, err := config.LoadRegionTable(settings.RegionsConfigPath)
	if err != nil {
		log.Fatalf("❌ Failed to load region table: %v", err)
	}
	states, err := config.LoadStateTable()
	if err != nil {
		log.Fatalf("❌ Failed to load state table: %v", err)
	}

	registrationsTool := openfda.NewRegistrationsTool(fdaClient)
	manufacturerResolver := resolver.NewManufacturerResolver(registrationsTool, firmResolver)
	locationResolver := resolver.NewLocationResolver(fdaClient, regions, states)

	registry := tool.NewRegistry()
	registry.Register(openfda.NewClassificationsTool(fdaClient))
	registry.Register(openfda.NewClearancesTool(fdaClient))
	registry.Register(openfda.NewPMATool(fdaClient))
	registry.Register(openfda.NewRecallsTool(fdaClient))
	registry.Register(openfda.NewEventsTool(fdaClient))
	registry.Register(openfda.NewUDITool(fdaClient))
	registry.Register(registrationsTool)
	registry.Register(openfda.NewProbeCountTool(fdaClient))
	resolvers.Register(registry, deviceResolver, manufacturerResolver, locationResolver)

	ctx := context.Background()
	if err := registry.InitAll(ctx); err != nil {
		log.Fatalf("❌ Failed to initialize tools: %v", err)
	}
	defer registry.CloseAll()
	fmt.Printf("🛠️  Tools: %d registered\n", len(registry.List()))

	retriever, err := retrieve.New(ctx, llmClient)
	if err != nil {
		log.Fatalf("❌ Failed to build retriever: %v", err)
	}
	fmt.Println("📚 Retriever: endpoint documentation corpus indexed")

	extractor := extract.NewExtractor(llmClient, regions, retriever)

	storePath := strings.TrimPrefix(settings.SessionStoreURL, "file:")
	store, err := session.Open(storePath, sessionCacheTTL)
	if err != nil {
		log.Fatalf("❌ Failed to open session store at %q: %v", storePath, err)
	}
	defer store.Close()
	fmt.Printf("💬 Sessions: %s\n", storePath)

	controller := agent.NewController(settings, store, llmClient, retriever, extractor, registry)

	sessionID := uuid.New().String()
	fmt.Printf("🆔 Session: %s\n", sessionID)
	fmt.Println("Ask a question about FDA device data (510(k), PMA, recalls, adverse events, classifications, UDI, registrations). Ctrl-D to exit.")

	runREPL(ctx, controller, sessionID)
}

// runREPL reads one question per line from stdin, runs a full agent turn,
// and prints the answer plus a short provenance/usage trailer.
func runREPL(ctx context.Context, controller *agent.Controller, sessionID string) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			fmt.Println("\n👋 Goodbye.")
			return
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "/new" {
			sessionID = uuid.New().String()
			fmt.Printf("🆔 New session: %s\n", sessionID)
			continue
		}

		resp, err := controller.Ask(ctx, sessionID, question)
		if err != nil {
			fmt.Printf("⚠️  %v\n", err)
			continue
		}

		fmt.Println()
		fmt.Println(resp.Answer)
		fmt.Printf("\n[cost this session: $%.4f / $%.2f cap, %d requests]\n",
			resp.Usage.TotalCostUSD, resp.Usage.LimitUSD, resp.Usage.RequestCount)
	}
}
