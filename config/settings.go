package config

import (
	"errors"
	"time"

	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/engine"
)

// Engine builds the decision thresholds from ENGINE_* variables over the
// tuned defaults.
func Engine() (engine.Config, error) {
	cfg := engine.DefaultConfig()

	floats := []struct {
		key string
		dst *float64
	}{
		{"ENGINE_KEYWORD_BOOST", &cfg.KeywordBoost},
		{"ENGINE_RELEVANCE_THRESHOLD", &cfg.RelevanceThreshold},
		{"ENGINE_NO_KEYWORD_THRESHOLD", &cfg.NoKeywordThreshold},
		{"ENGINE_DOMINANCE_THRESHOLD", &cfg.DominanceThreshold},
		{"ENGINE_READMIT_RELAX", &cfg.ReadmitRelax},
		{"ENGINE_READMIT_PENALTY", &cfg.ReadmitPenalty},
		{"ENGINE_MIN_SENTIMENT_PROB", &cfg.MinSentimentProb},
		{"ENGINE_MARGIN_THRESHOLD", &cfg.MarginThreshold},
		{"ENGINE_KEYWORD_MARGIN_RELAX", &cfg.KeywordMarginRelax},
	}

	var errs []error
	for _, f := range floats {
		v, err := getFloat(f.key, *f.dst)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*f.dst = v
	}

	parallel, err := getInt("ENGINE_MAX_PARALLEL", cfg.MaxParallel)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MaxParallel = parallel

	if err := errors.Join(errs...); err != nil {
		return engine.Config{}, err
	}
	return cfg, cfg.Validate()
}

// Classifier selects and configures the scorer backend from
// CLASSIFIER_BACKEND (hugot, remote, openai).
func Classifier() (classifier.Settings, error) {
	maxTokens, err := getInt("CLASSIFIER_MAX_SEQUENCE_TOKENS", classifier.DefaultMaxSequenceTokens)
	if err != nil {
		return classifier.Settings{}, err
	}
	timeout, err := getDuration("REMOTE_SCORER_TIMEOUT", 10*time.Second)
	if err != nil {
		return classifier.Settings{}, err
	}
	retries, err := getInt("REMOTE_SCORER_MAX_RETRIES", 3)
	if err != nil {
		return classifier.Settings{}, err
	}

	return classifier.Settings{
		Backend: getEnv("CLASSIFIER_BACKEND", classifier.BackendHugot),
		Hugot: classifier.HugotOptions{
			ModelPath:         getEnv("HUGOT_MODEL_PATH", "./models/aspect-pair"),
			Labels:            getList("HUGOT_LABELS"),
			Separator:         getEnv("HUGOT_PAIR_SEPARATOR", classifier.DefaultPairSeparator),
			MaxSequenceTokens: maxTokens,
		},
		Remote: classifier.RemoteOptions{
			Endpoint:          getEnv("REMOTE_SCORER_ENDPOINT", ""),
			HealthEndpoint:    getEnv("REMOTE_SCORER_HEALTH_ENDPOINT", ""),
			Timeout:           timeout,
			MaxRetries:        retries,
			MaxSequenceTokens: maxTokens,
			TokenURL:          getEnv("REMOTE_SCORER_TOKEN_URL", ""),
			ClientID:          getEnv("REMOTE_SCORER_CLIENT_ID", ""),
			ClientSecret:      getEnv("REMOTE_SCORER_CLIENT_SECRET", ""),
			Scopes:            getList("REMOTE_SCORER_SCOPES"),
		},
		OpenAI: classifier.OpenAIOptions{
			APIKey:            getEnv("OPENAI_API_KEY", ""),
			Model:             getEnv("OPENAI_MODEL", ""),
			BaseURL:           getEnv("OPENAI_BASE_URL", ""),
			MaxSequenceTokens: maxTokens,
		},
	}, nil
}

const (
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
)

type StoreSettings struct {
	Backend     string
	SQLitePath  string
	DynamoTable string
	AWSRegion   string
	AWSEndpoint string
}

func Store() StoreSettings {
	return StoreSettings{
		Backend:     getEnv("STORE_BACKEND", StoreSQLite),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/feedback.db"),
		DynamoTable: getEnv("DYNAMODB_TABLE", "FeedbackAspects"),
		AWSRegion:   getEnv("AWS_REGION", "us-west-2"),
		AWSEndpoint: getEnv("AWS_ENDPOINT", ""),
	}
}

type ValkeySettings struct {
	Addr     string
	Password string
	TLS      bool
	// TTL bounds both the processed-id set and cached results.
	TTL time.Duration
}

// Valkey returns the dedup/cache settings. An empty Addr disables the
// cache.
func Valkey() (ValkeySettings, error) {
	ttl, err := getDuration("VALKEY_TTL", 24*time.Hour)
	if err != nil {
		return ValkeySettings{}, err
	}
	return ValkeySettings{
		Addr:     getEnv("VALKEY_INIT_ADDRESS", ""),
		Password: getEnv("VALKEY_PASSWORD", ""),
		TLS:      getBool("VALKEY_TLS"),
		TTL:      ttl,
	}, nil
}

// CatalogPath is the aspect catalog override; empty means the embedded
// catalog.
func CatalogPath() string {
	return getEnv("ASPECT_CATALOG_PATH", "")
}
