package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBaseConfig() *Config {
	cfg := defaults()
	cfg.Database.Path = "./data/db.sqlite"
	cfg.Indexer.RootPath = "."
	return cfg
}

func TestDefaults_ContextGenerationAndVectorStore(t *testing.T) {
	cfg := defaults()
	assert.Equal(t, float32(1.5), cfg.ContextGeneration.PriorityWeightHigh)
	assert.Equal(t, float32(1.0), cfg.ContextGeneration.PriorityWeightMedium)
	assert.Equal(t, float32(0.7), cfg.ContextGeneration.PriorityWeightLow)
	assert.Equal(t, float32(0.7), cfg.ContextGeneration.ScoreThreshold)
	assert.Equal(t, 8000, cfg.ContextGeneration.DefaultMaxTokens)
	assert.Equal(t, "hybrid", cfg.ContextGeneration.DefaultStrategy)

	assert.Equal(t, "memory", cfg.VectorStore.Backend)
	assert.True(t, cfg.VectorStore.UseHNSW)
	assert.True(t, cfg.VectorStore.UseFTS5)
}

func TestValidate_Repositories(t *testing.T) {
	t.Run("accepts a well-formed repository", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.Repositories = []RepositoryConfig{
			{Name: "docs", CloneURL: "https://example.com/docs.git", Priority: "high"},
		}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.Repositories = []RepositoryConfig{{CloneURL: "https://example.com/docs.git"}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.Repositories = []RepositoryConfig{
			{Name: "docs", CloneURL: "https://example.com/a.git"},
			{Name: "docs", CloneURL: "https://example.com/b.git"},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate repository name")
	})

	t.Run("rejects empty clone url", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.Repositories = []RepositoryConfig{{Name: "docs"}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "clone URL cannot be empty")
	})

	t.Run("rejects invalid auth mode", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.Repositories = []RepositoryConfig{{Name: "docs", CloneURL: "https://example.com/docs.git", Auth: "oauth"}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid auth mode")
	})

	t.Run("requires token when auth is token", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.Repositories = []RepositoryConfig{{Name: "docs", CloneURL: "https://example.com/docs.git", Auth: "token"}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token cannot be empty")
	})

	t.Run("requires ssh key path when auth is ssh", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.Repositories = []RepositoryConfig{{Name: "docs", CloneURL: "https://example.com/docs.git", Auth: "ssh"}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ssh key path cannot be empty")
	})

	t.Run("rejects invalid priority", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.Repositories = []RepositoryConfig{{Name: "docs", CloneURL: "https://example.com/docs.git", Priority: "urgent"}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid priority")
	})
}

func TestValidate_ContextGeneration(t *testing.T) {
	t.Run("rejects out-of-range score threshold", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.ContextGeneration.ScoreThreshold = 1.5
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "score threshold")
	})

	t.Run("rejects negative max tokens", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.ContextGeneration.DefaultMaxTokens = -1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max tokens")
	})

	t.Run("rejects invalid strategy", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.ContextGeneration.DefaultStrategy = "fuzzy"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid context generation default strategy")
	})
}

func TestValidate_VectorStore(t *testing.T) {
	t.Run("rejects invalid backend", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.VectorStore.Backend = "redis"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid vector store backend")
	})

	t.Run("requires path when backend is sqlite", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.VectorStore.Backend = "sqlite"
		cfg.VectorStore.Path = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vector store path cannot be empty")
	})

	t.Run("accepts sqlite backend with path", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.VectorStore.Backend = "sqlite"
		cfg.VectorStore.Path = "./data/vectors.db"
		assert.NoError(t, cfg.Validate())
	})
}

func TestMerge_Domain(t *testing.T) {
	base := defaults()
	base.Repositories = []RepositoryConfig{{Name: "base-repo", CloneURL: "https://example.com/base.git"}}

	override := &Config{
		Project: ProjectConfig{Name: "docsyncer"},
		Repositories: []RepositoryConfig{
			{Name: "override-repo", CloneURL: "https://example.com/override.git"},
		},
		ContextGeneration: ContextGenerationConfig{DefaultMaxTokens: 4000},
		VectorStore:       VectorStoreConfig{Backend: "sqlite", Path: "./data/vectors.db"},
	}

	result := merge(base, override)

	assert.Equal(t, "docsyncer", result.Project.Name)
	require.Len(t, result.Repositories, 1)
	assert.Equal(t, "override-repo", result.Repositories[0].Name, "override replaces the base repository list wholesale")
	assert.Equal(t, 4000, result.ContextGeneration.DefaultMaxTokens)
	assert.Equal(t, float32(1.5), result.ContextGeneration.PriorityWeightHigh, "unset override fields keep the base value")
	assert.Equal(t, "sqlite", result.VectorStore.Backend)
	assert.Equal(t, "./data/vectors.db", result.VectorStore.Path)
}

func TestLoadEnv_Domain(t *testing.T) {
	t.Setenv("CONEXUS_PROJECT_NAME", "my-docs")
	t.Setenv("CONEXUS_CONTEXT_MAX_TOKENS", "12000")
	t.Setenv("CONEXUS_CONTEXT_STRATEGY", "keyword")
	t.Setenv("CONEXUS_VECTOR_STORE_BACKEND", "sqlite")
	t.Setenv("CONEXUS_VECTOR_STORE_PATH", "/tmp/vectors.db")

	cfg := loadEnv(defaults())

	assert.Equal(t, "my-docs", cfg.Project.Name)
	assert.Equal(t, 12000, cfg.ContextGeneration.DefaultMaxTokens)
	assert.Equal(t, "keyword", cfg.ContextGeneration.DefaultStrategy)
	assert.Equal(t, "sqlite", cfg.VectorStore.Backend)
	assert.Equal(t, "/tmp/vectors.db", cfg.VectorStore.Path)
}
