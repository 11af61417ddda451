package main

import (
	"context"
	"errors"
	"fmt"

	"asha/internal/browser"
	"asha/internal/config"
	"asha/internal/embedding"
	"asha/internal/guard"
	"asha/internal/knowledge"
	"asha/internal/llm"
	"asha/internal/logging"
	"asha/internal/responder"
	"asha/internal/safety"
	"asha/internal/search"
	"asha/internal/store"

	"go.uber.org/zap"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds every long-lived component. Fields are nil when the command
// did not ask for them.
type app struct {
	cfg       *config.Config
	store     *store.VectorStore
	ingester  *knowledge.Ingester
	llm       llm.Client
	search    search.Searcher
	herkey    *browser.HerKey
	sessions  *browser.SessionManager
	safety    *safety.Pipeline
	guard     *guard.Validator
	responder *responder.Responder
}

// newKnowledgeApp opens the embedding engine and vector store.
func newKnowledgeApp(ctx context.Context, c *config.Config) (*app, error) {
	a := &app{cfg: c}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// newListingsApp wires only the HerKey scraper.
func newListingsApp(c *config.Config) *app {
	a := &app{cfg: c}
	a.openListings()
	return a
}

// newChatApp wires the full responder.
func newChatApp(ctx context.Context, c *config.Config) (*app, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &app{cfg: c}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	var err error
	a.llm, err = llm.NewClient(ctx, llm.Config{
		Provider:    c.LLM.Provider,
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		BaseURL:     c.LLM.BaseURL,
		Temperature: c.LLM.Temperature,
		Timeout:     c.GetLLMTimeout(),
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.search, err = search.New(search.Config{
		Provider:  c.Search.Provider,
		APIKey:    c.Search.APIKey,
		Engine:    c.Search.Engine,
		Country:   c.Search.Country,
		Language:  c.Search.Language,
		CacheTTL:  c.GetSearchCacheTTL(),
		RateLimit: c.Search.RateLimit,
		Burst:     c.Search.Burst,
		Timeout:   c.GetSearchTimeout(),
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	if c.Scraper.Enabled {
		a.openListings()
	}

	if c.Safety.Enabled {
		if a.safety, err = newSafetyPipeline(c); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	if c.Guard.Enabled {
		rules, err := guard.LoadRules(c.Guard.RulesFile)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		if a.guard, err = guard.NewValidator(rules, c.Guard.FallbackFile); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	deps := responder.Deps{
		LLM:       a.llm,
		Documents: a.store,
		Keywords:  llm.NewKeywordExtractor(a.llm),
		Safety:    a.safety,
	}
	if a.search != nil {
		deps.Web = a.search
	}
	if a.herkey != nil {
		deps.Listings = a.herkey
	}
	if a.guard != nil {
		deps.Guard = a.guard
	}

	a.responder, err = responder.New(deps, responder.Options{
		TopK:      c.Store.TopK,
		MaxJobs:   c.Scraper.MaxJobs,
		MaxEvents: c.Scraper.MaxEvents,
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	logging.Boot("Responder ready: llm=%s store=%s", a.llm.Name(), c.Store.Path)
	return a, nil
}

func newSafetyPipeline(c *config.Config) (*safety.Pipeline, error) {
	rules, err := safety.LoadRules(c.Safety.RulesFile)
	if err != nil {
		return nil, err
	}
	return safety.NewPipeline(rules)
}

func (a *app) openStore(ctx context.Context) error {
	c := a.cfg
	ec := embedding.DefaultConfig()
	setIfNotEmpty(&ec.Provider, c.Embedding.Provider)
	ec.GenAIAPIKey = c.Embedding.APIKey
	setIfNotEmpty(&ec.OllamaEndpoint, c.Embedding.OllamaEndpoint)
	setIfNotEmpty(&ec.OllamaModel, c.Embedding.OllamaModel)
	setIfNotEmpty(&ec.GenAIModel, c.Embedding.Model)
	setIfNotEmpty(&ec.TaskType, c.Embedding.TaskType)

	engine, err := embedding.NewEngine(ctx, ec)
	if err != nil {
		return fmt.Errorf("failed to create embedding engine: %w", err)
	}

	a.store, err = store.Open(ctx, store.Options{
		Driver:    c.Store.Driver,
		Path:      c.Store.Path,
		BatchSize: c.Embedding.BatchSize,
	}, engine)
	if err != nil {
		return err
	}

	splitter, err := knowledge.NewSplitter(c.Knowledge.ChunkSize, c.Knowledge.ChunkOverlap)
	if err != nil {
		a.store.Close()
		return err
	}
	a.ingester = knowledge.NewIngester(splitter, a.store)
	return nil
}

func (a *app) openListings() {
	c := a.cfg
	var renderer browser.Renderer
	if c.Scraper.Mode == "static" {
		renderer = browser.NewStaticRenderer(c.GetScrapeFetchTimeout())
	} else {
		bc := browser.DefaultConfig()
		bc.DebuggerURL = c.Scraper.DebuggerURL
		bc.ChromeBin = c.Scraper.ChromeBin
		bc.Headless = c.Scraper.Headless
		if len(c.Scraper.ChromeFlags) > 0 {
			bc.Flags = c.Scraper.ChromeFlags
		}
		bc.WaitTimeout = c.GetScrapeWaitTimeout()
		bc.SettleDelay = c.GetScrapeSettleDelay()
		a.sessions = browser.NewSessionManager(bc)
		renderer = a.sessions
	}

	a.herkey = browser.NewHerKey(browser.HerKeyConfig{
		JobsURL:   c.Scraper.JobsURL,
		EventsURL: c.Scraper.EventsURL,
		CacheTTL:  c.GetScrapeCacheTTL(),
		Timeout:   c.GetScrapeFetchTimeout(),
	}, renderer)
	logging.Boot("HerKey scraper ready (renderer=%s)", renderer.Name())
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ingestIfEmpty loads the PDF directory when the store has no chunks yet.
func (a *app) ingestIfEmpty(ctx context.Context) error {
	n, err := a.store.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logging.Boot("Knowledge base has %d chunks, skipping ingest", n)
		return nil
	}
	res, err := a.ingester.IngestDir(ctx, a.cfg.Knowledge.PDFDir)
	if errors.Is(err, knowledge.ErrNoDocuments) {
		logging.Get(logging.CategoryBoot).Warn("No PDFs found in %s; answers will rely on web and listings only", a.cfg.Knowledge.PDFDir)
		return nil
	}
	if err != nil {
		return err
	}
	logging.Boot("Ingested %d chunks from %d files", res.Chunks, res.Files)
	return nil
}

// Close releases the browser and database.
func (a *app) Close(ctx context.Context) {
	if a.sessions != nil {
		if err := a.sessions.Shutdown(ctx); err != nil && logger != nil {
			logger.Warn("Browser shutdown failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && logger != nil {
			logger.Warn("Store close failed", zap.Error(err))
		}
	}
}
