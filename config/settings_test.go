package config

import (
	"testing"
	"time"

	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineDefaults(t *testing.T) {
	cfg, err := Engine()
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig(), cfg)
}

func TestEngineOverrides(t *testing.T) {
	t.Setenv("ENGINE_RELEVANCE_THRESHOLD", "0.6")
	t.Setenv("ENGINE_MARGIN_THRESHOLD", " 0.08 ")
	t.Setenv("ENGINE_MAX_PARALLEL", "2")

	cfg, err := Engine()
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.RelevanceThreshold)
	assert.Equal(t, 0.08, cfg.MarginThreshold)
	assert.Equal(t, 2, cfg.MaxParallel)
	assert.Equal(t, engine.DefaultConfig().KeywordBoost, cfg.KeywordBoost)
}

func TestEngineRejectsBadValues(t *testing.T) {
	t.Run("unparsable", func(t *testing.T) {
		t.Setenv("ENGINE_KEYWORD_BOOST", "lots")
		t.Setenv("ENGINE_MAX_PARALLEL", "many")
		_, err := Engine()
		require.Error(t, err)
		assert.ErrorContains(t, err, "ENGINE_KEYWORD_BOOST")
		assert.ErrorContains(t, err, "ENGINE_MAX_PARALLEL")
	})

	t.Run("out of range", func(t *testing.T) {
		t.Setenv("ENGINE_DOMINANCE_THRESHOLD", "1.5")
		_, err := Engine()
		assert.ErrorIs(t, err, engine.ErrInvalidConfig)
	})
}

func TestClassifierSettings(t *testing.T) {
	t.Setenv("CLASSIFIER_BACKEND", "remote")
	t.Setenv("REMOTE_SCORER_ENDPOINT", "http://scorer:8080/score")
	t.Setenv("REMOTE_SCORER_TIMEOUT", "3s")
	t.Setenv("REMOTE_SCORER_SCOPES", "score, health ,")
	t.Setenv("HUGOT_LABELS", "none,negative,neutral,positive")

	s, err := Classifier()
	require.NoError(t, err)
	assert.Equal(t, classifier.BackendRemote, s.Backend)
	assert.Equal(t, "http://scorer:8080/score", s.Remote.Endpoint)
	assert.Equal(t, 3*time.Second, s.Remote.Timeout)
	assert.Equal(t, []string{"score", "health"}, s.Remote.Scopes)
	assert.Equal(t, classifier.DefaultMaxSequenceTokens, s.Remote.MaxSequenceTokens)
	assert.Len(t, s.Hugot.Labels, 4)
	assert.Equal(t, classifier.DefaultPairSeparator, s.Hugot.Separator)
}

func TestValkeySettings(t *testing.T) {
	t.Setenv("VALKEY_TTL", "bogus")
	_, err := Valkey()
	assert.Error(t, err)

	t.Setenv("VALKEY_TTL", "1h")
	t.Setenv("VALKEY_TLS", "true")
	s, err := Valkey()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.TTL)
	assert.True(t, s.TLS)
}

func TestStoreDefaults(t *testing.T) {
	s := Store()
	assert.Equal(t, StoreSQLite, s.Backend)
	assert.NotEmpty(t, s.DynamoTable)
}
