package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/invoicetosheet/ocr-service/api"
	"github.com/invoicetosheet/ocr-service/internal/auth"
	"github.com/invoicetosheet/ocr-service/internal/db"
	"github.com/invoicetosheet/ocr-service/internal/models"
	"github.com/invoicetosheet/ocr-service/internal/storage"
)

func main() {
	setupLogging()

	if err := auth.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth")
	}

	if err := db.Init(); err != nil {
		log.Warn().Err(err).Msg("database not available, running without persistence")
	} else {
		defer db.Close()
	}

	if err := storage.Init(); err != nil {
		log.Warn().Err(err).Msg("object storage not available, originals will not be archived")
	}

	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	handler, err := api.NewHandler(config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build handler")
	}
	router := handler.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	log.Info().
		Str("addr", addr).
		Str("backend", config.ExtractionBackend).
		Str("language", config.OCR.Language).
		Bool("database", db.Pool != nil).
		Bool("storage", storage.Client != nil).
		Msg("starting invoice extraction service")

	if err := http.ListenAndServe(addr, auth.Middleware(router)); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func setupLogging() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}
	if os.Getenv("LOG_PRETTY") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func loadConfig(path string) (*models.Config, error) {
	var config models.Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment variables override the file.
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if backend := os.Getenv("EXTRACTION_BACKEND"); backend != "" {
		config.ExtractionBackend = backend
	}
	if language := os.Getenv("OCR_LANGUAGE"); language != "" {
		config.OCR.Language = language
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.AI.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.AI.OpenAI.Model = model
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.AI.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.AI.Gemini.Model = model
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		config.AI.DefaultProvider = provider
	}
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		config.Sheets.ClientID = clientID
	}
	if clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET"); clientSecret != "" {
		config.Sheets.ClientSecret = clientSecret
	}

	config.Defaults()
	return &config, nil
}
