package agent

import (
	"fmt"
	"os"
	"strconv"

	"github.com/agentgraph/agentgraph/graph"
	"github.com/agentgraph/agentgraph/graph/emit"
	"github.com/agentgraph/agentgraph/graph/model"
	anthropicmodel "github.com/agentgraph/agentgraph/graph/model/anthropic"
	googlemodel "github.com/agentgraph/agentgraph/graph/model/google"
	openaimodel "github.com/agentgraph/agentgraph/graph/model/openai"
	"github.com/agentgraph/agentgraph/graph/tool"
)

// Config assembles an Invoker.
//
// Only Model is required; everything else has a working default:
// no checkpointing, the built-in capability registry with no database
// handle, no emitters, no metrics, DefaultMaxHops.
type Config struct {
	// Model handles planner and executor chat calls.
	Model model.ChatModel

	// Store acquires a checkpoint store per run. Nil disables
	// checkpointing (and History/Latest).
	Store StoreOpener

	// Registry resolves the capability set. Nil uses the built-ins.
	Registry *tool.Registry

	// Deps gates capability availability, e.g. a database handle for
	// the data-lookup tools.
	Deps tool.Deps

	// Emitters receive run events.
	Emitters []emit.Emitter

	// Metrics records run, node, and tool counters.
	Metrics *graph.Metrics

	// MaxHops bounds node executions per run. Zero uses
	// graph.DefaultMaxHops.
	MaxHops int

	// TolerateCheckpointLoss downgrades checkpoint write failures to
	// warnings.
	TolerateCheckpointLoss bool
}

func (c *Config) applyDefaults() {
	if c.Registry == nil {
		c.Registry = tool.NewRegistry()
	}
}

// ConfigFromEnv builds a Config from environment variables:
//
//	AGENT_MODEL_PROVIDER  - "openai" (default), "anthropic", or "google"
//	AGENT_MODEL_NAME      - provider model name (provider default if empty)
//	OPENAI_API_KEY        - API key for the openai provider
//	ANTHROPIC_API_KEY     - API key for the anthropic provider
//	GOOGLE_API_KEY        - API key for the google provider
//	AGENT_SQLITE_PATH     - SQLite checkpoint database path (optional)
//	MYSQL_DSN             - MySQL checkpoint DSN (optional, wins over SQLite)
//	AGENT_MAX_HOPS        - hop bound per run (optional)
//
// The selected provider's API key must be set.
func ConfigFromEnv() (Config, error) {
	var cfg Config

	provider := os.Getenv("AGENT_MODEL_PROVIDER")
	if provider == "" {
		provider = "openai"
	}
	modelName := os.Getenv("AGENT_MODEL_NAME")

	switch provider {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return cfg, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		cfg.Model = openaimodel.NewChatModel(key, modelName)
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return cfg, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
		cfg.Model = anthropicmodel.NewChatModel(key, modelName)
	case "google":
		key := os.Getenv("GOOGLE_API_KEY")
		if key == "" {
			return cfg, fmt.Errorf("GOOGLE_API_KEY environment variable not set")
		}
		cfg.Model = googlemodel.NewChatModel(key, modelName)
	default:
		return cfg, fmt.Errorf("unknown AGENT_MODEL_PROVIDER: %s", provider)
	}

	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		cfg.Store = MySQLStoreOpener(dsn)
	} else if path := os.Getenv("AGENT_SQLITE_PATH"); path != "" {
		cfg.Store = SQLiteStoreOpener(path)
	}

	if raw := os.Getenv("AGENT_MAX_HOPS"); raw != "" {
		hops, err := strconv.Atoi(raw)
		if err != nil || hops <= 0 {
			return cfg, fmt.Errorf("invalid AGENT_MAX_HOPS: %s", raw)
		}
		cfg.MaxHops = hops
	}

	return cfg, nil
}
