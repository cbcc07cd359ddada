package models

import "gopkg.in/yaml.v3"

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// OCR config
	OCR OCRConfig `yaml:"ocr"`

	// Extraction backend: "ocr" (default, local heuristics) or "ai"
	ExtractionBackend string `yaml:"extraction_backend"`

	// AI config (only used when extraction_backend is "ai")
	AI AIConfig `yaml:"ai"`

	// Sheets config
	Sheets SheetsConfig `yaml:"sheets"`
}

// OCRConfig represents recognition-specific configuration
type OCRConfig struct {
	// Language is the tesseract language pack, e.g. "fra+eng"
	Language string `yaml:"language"`

	// MaxPages bounds embedded-text extraction and rasterization for
	// paginated documents
	MaxPages int `yaml:"max_pages"`

	// RenderDPI is the rasterization resolution for scanned pages
	RenderDPI int `yaml:"render_dpi"`

	// SkipQualityGate disables the blur/exposure check entirely
	SkipQualityGate bool `yaml:"skip_quality_gate"`

	// Rules overrides the field extraction keyword tables. It is kept
	// as a raw node so this package stays import-free of the extractor;
	// tables omitted here keep the shipped defaults.
	Rules yaml.Node `yaml:"rules,omitempty"`
}

// AIConfig represents AI provider configuration
type AIConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	Gemini GeminiConfig `yaml:"gemini"`

	// Default provider: "openai" or "gemini"
	DefaultProvider string `yaml:"default_provider"`
}

// OpenAIConfig for OpenAI/Azure OpenAI
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// SheetsConfig for the Google Sheets sink
type SheetsConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Defaults fills unset fields with working values.
func (c *Config) Defaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "fra+eng"
	}
	if c.OCR.MaxPages == 0 {
		c.OCR.MaxPages = 3
	}
	if c.OCR.RenderDPI == 0 {
		c.OCR.RenderDPI = 300
	}
	if c.ExtractionBackend == "" {
		c.ExtractionBackend = "ocr"
	}
}
