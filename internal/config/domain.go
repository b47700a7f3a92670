package config

// ProjectConfig identifies the project this instance serves documentation
// for, surfaced in MCP resource descriptions and REST status responses.
type ProjectConfig struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// RepositoryConfig declares one repository GitSync should track. Priority
// and Category feed ContextGenerator's re-ranking; Paths/Exclude are glob
// filters applied while walking or diffing the repository tree.
type RepositoryConfig struct {
	Name         string            `json:"name" yaml:"name"`
	CloneURL     string            `json:"clone_url" yaml:"clone_url"`
	Branch       string            `json:"branch" yaml:"branch"`
	Auth         string            `json:"auth" yaml:"auth"` // "none" | "token" | "ssh"
	Token        string            `json:"token" yaml:"token"`
	SSHKeyPath   string            `json:"ssh_key_path" yaml:"ssh_key_path"`
	Paths        []string          `json:"paths" yaml:"paths"`
	Exclude      []string          `json:"exclude" yaml:"exclude"`
	Priority     string            `json:"priority" yaml:"priority"` // "high" | "medium" | "low"
	Category     string            `json:"category" yaml:"category"`
	SyncInterval string            `json:"sync_interval" yaml:"sync_interval"` // duration string, e.g. "15m"; "0" or "" disables scheduled sync
	Metadata     map[string]string `json:"metadata" yaml:"metadata"`
}

// ContextGenerationConfig tunes ContextGenerator's re-ranking and token
// budgeting. Zero values fall back to contextgen's own package defaults.
type ContextGenerationConfig struct {
	PriorityWeightHigh   float32 `json:"priority_weight_high" yaml:"priority_weight_high"`
	PriorityWeightMedium float32 `json:"priority_weight_medium" yaml:"priority_weight_medium"`
	PriorityWeightLow    float32 `json:"priority_weight_low" yaml:"priority_weight_low"`
	ScoreThreshold       float32 `json:"score_threshold" yaml:"score_threshold"`
	DefaultMaxTokens     int     `json:"default_max_tokens" yaml:"default_max_tokens"`
	DefaultStrategy      string  `json:"default_strategy" yaml:"default_strategy"` // "semantic" | "keyword" | "hybrid"
}

// VectorStoreConfig selects and tunes the VectorIndex backend.
type VectorStoreConfig struct {
	Backend  string `json:"backend" yaml:"backend"` // "memory" | "sqlite"
	Path     string `json:"path" yaml:"path"`        // sqlite database file
	UseHNSW  bool   `json:"use_hnsw" yaml:"use_hnsw"`
	UseFTS5  bool   `json:"use_fts5" yaml:"use_fts5"`
}

func defaultContextGeneration() ContextGenerationConfig {
	return ContextGenerationConfig{
		PriorityWeightHigh:   1.5,
		PriorityWeightMedium: 1.0,
		PriorityWeightLow:    0.7,
		ScoreThreshold:       0.7,
		DefaultMaxTokens:     8000,
		DefaultStrategy:      "hybrid",
	}
}

func defaultVectorStore() VectorStoreConfig {
	return VectorStoreConfig{
		Backend: "memory",
		Path:    "./data/vectors.db",
		UseHNSW: true,
		UseFTS5: true,
	}
}

var validAuthModes = []string{"none", "token", "ssh"}
var validPriorities = []string{"high", "medium", "low"}
var validStrategies = []string{"semantic", "keyword", "hybrid"}
var validBackends = []string{"memory", "sqlite"}
