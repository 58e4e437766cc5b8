//go:build integration

package integration

import (
	"testing"

	"github.com/joho/godotenv"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/model"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	_ = godotenv.Load("../../.env")
	cfg, err := config.Load("../../config/config.toml")
	if err != nil {
		t.Logf("Config not found, using default: %v", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	return cfg
}

func sampleInput() model.Input {
	return model.Input{
		Topic: "machine learning",
		Sources: []model.Source{
			{Title: "Intro to Machine Learning", URL: "https://example.org/ml",
				Content: "Machine learning models learn from training data. Gradient descent fits the model."},
			{Title: "Training Models", URL: "https://example.org/training",
				Content: "In machine learning, training data feeds gradient descent, which minimizes the loss function of a model."},
			{Title: "Loss Functions", URL: "https://example.org/loss",
				Content: "The loss function scores a model. Gradient descent follows the loss function."},
			{Title: "Databases", URL: "https://example.org/db",
				Content: "A relational database stores rows. SQL queries a relational database."},
			{Title: "SQL Primer", URL: "https://example.org/sql",
				Content: "SQL reads a relational database table by table."},
		},
		Nodes: []model.ExtractedNode{
			{Label: "machine learning", Kind: model.KindConcept, Frequency: 2},
			{Label: "gradient descent", Kind: model.KindConcept, Frequency: 3},
			{Label: "training data", Kind: model.KindConcept, Frequency: 2},
			{Label: "loss function", Kind: model.KindConcept, Frequency: 2},
			{Label: "relational database", Kind: model.KindConcept, Frequency: 2},
			{Label: "SQL", Kind: model.KindEntity, Frequency: 2},
		},
	}
}
