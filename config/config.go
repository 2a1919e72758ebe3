package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration parameters read from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"8000"`

	// Admin password for the dashboard's admin-gated views (access logs, users).
	AdminPassword string `envconfig:"ADMIN_PASSWORD" required:"true"`

	// Allowed CORS origins for the React dashboard, comma separated.
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`

	ArxivBaseURL string `envconfig:"ARXIV_BASE_URL" default:"https://export.arxiv.org/api/query"`
	Ar5ivBaseURL string `envconfig:"AR5IV_BASE_URL" default:"https://ar5iv.labs.arxiv.org"`

	SemanticScholarBaseURL string `envconfig:"SEMANTIC_SCHOLAR_BASE_URL" default:"https://api.semanticscholar.org/graph/v1"`
	SemanticScholarAPIKey  string `envconfig:"SEMANTIC_SCHOLAR_API_KEY"`

	OpenAlexBaseURL string `envconfig:"OPENALEX_BASE_URL" default:"https://api.openalex.org"`
	OpenAlexMailto  string `envconfig:"OPENALEX_MAILTO" default:"contact@example.com"`

	HuggingFaceBaseURL string `envconfig:"HUGGINGFACE_BASE_URL" default:"https://huggingface.co/api/daily_papers"`

	// External AI CLI used for the Korean summaries.
	SummarizerCommand        string `envconfig:"SUMMARIZER_COMMAND" default:"claude"`
	SummarizerTimeoutSeconds int    `envconfig:"SUMMARIZER_TIMEOUT_SECONDS" default:"300"`
	SummarizerMaxRetries     int    `envconfig:"SUMMARIZER_MAX_RETRIES" default:"3"`

	// Nightly citation-count refresh.
	CitationRefreshSchedule string `envconfig:"CITATION_REFRESH_SCHEDULE" default:"0 4 * * *"`
	CitationRefreshEnabled  bool   `envconfig:"CITATION_REFRESH_ENABLED" default:"true"`
}

// DSN returns the data source name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
