// Package logging provides config-driven categorized logging for Asha.
// Every category shares one zap core; a category can be switched off in
// config, in which case its logger is a no-op.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Boot/initialization
	CategoryAPI       Category = "api"       // Outbound API calls
	CategoryLLM       Category = "llm"       // LLM completions
	CategoryEmbedding Category = "embedding" // Embedding engine
	CategoryStore     Category = "store"     // Vector store
	CategoryKnowledge Category = "knowledge" // PDF ingestion and watcher
	CategorySearch    Category = "search"    // Web search
	CategoryBrowser   Category = "browser"   // Browser automation, scraping
	CategorySafety    Category = "safety"    // Bias, safety and inclusive-language passes
	CategoryGuard     Category = "guard"     // Output validation
	CategoryResponder Category = "responder" // Chat turn orchestration
	CategoryServer    Category = "server"    // HTTP server
	CategoryMCP       Category = "mcp"       // MCP tool server
)

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // console, json
	Categories map[string]bool `yaml:"categories"`
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	cfg     Config
	loggers = make(map[Category]*Logger)
)

// Initialize builds the shared zap logger from config and returns it so the
// caller can Sync it on exit.
func Initialize(c Config) (*zap.Logger, error) {
	var zc zap.Config
	if strings.EqualFold(c.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(ParseLevel(c.Level))
	zc.DisableStacktrace = true

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	SetBase(l, c)
	Get(CategoryBoot).Debug("logging initialized: level=%s format=%s", c.Level, c.Format)
	return l, nil
}

// SetBase swaps the shared zap logger. Tests use it with an observer core.
func SetBase(l *zap.Logger, c Config) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	base = l
	cfg = c
	loggers = make(map[Category]*Logger)
}

// Base returns the shared zap logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if cfg.Categories == nil {
		return true
	}
	enabled, ok := cfg.Categories[string(category)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar().With("category", string(category)),
	}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a logger carrying extra structured key-value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes the shared logger.
func Sync() {
	_ = Base().Sync()
}

// =============================================================================
// CATEGORY HELPERS
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func API(format string, args ...interface{})       { Get(CategoryAPI).Info(format, args...) }
func APIDebug(format string, args ...interface{})  { Get(CategoryAPI).Debug(format, args...) }
func LLM(format string, args ...interface{})       { Get(CategoryLLM).Info(format, args...) }
func LLMDebug(format string, args ...interface{})  { Get(CategoryLLM).Debug(format, args...) }

func Embedding(format string, args ...interface{})      { Get(CategoryEmbedding).Info(format, args...) }
func EmbeddingDebug(format string, args ...interface{}) { Get(CategoryEmbedding).Debug(format, args...) }
func Store(format string, args ...interface{})          { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{})     { Get(CategoryStore).Debug(format, args...) }
func Knowledge(format string, args ...interface{})      { Get(CategoryKnowledge).Info(format, args...) }
func KnowledgeDebug(format string, args ...interface{}) { Get(CategoryKnowledge).Debug(format, args...) }
func Search(format string, args ...interface{})         { Get(CategorySearch).Info(format, args...) }
func SearchDebug(format string, args ...interface{})    { Get(CategorySearch).Debug(format, args...) }

func Browser(format string, args ...interface{})      { Get(CategoryBrowser).Info(format, args...) }
func BrowserDebug(format string, args ...interface{}) { Get(CategoryBrowser).Debug(format, args...) }
func BrowserWarn(format string, args ...interface{})  { Get(CategoryBrowser).Warn(format, args...) }

func Safety(format string, args ...interface{})         { Get(CategorySafety).Info(format, args...) }
func SafetyDebug(format string, args ...interface{})    { Get(CategorySafety).Debug(format, args...) }
func Guard(format string, args ...interface{})          { Get(CategoryGuard).Info(format, args...) }
func GuardWarn(format string, args ...interface{})      { Get(CategoryGuard).Warn(format, args...) }
func Responder(format string, args ...interface{})      { Get(CategoryResponder).Info(format, args...) }
func ResponderDebug(format string, args ...interface{}) { Get(CategoryResponder).Debug(format, args...) }
func ResponderWarn(format string, args ...interface{})  { Get(CategoryResponder).Warn(format, args...) }
func Server(format string, args ...interface{})         { Get(CategoryServer).Info(format, args...) }
func ServerDebug(format string, args ...interface{})    { Get(CategoryServer).Debug(format, args...) }
func MCP(format string, args ...interface{})            { Get(CategoryMCP).Info(format, args...) }

// =============================================================================
// TIMERS
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s slow: %v (threshold %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
