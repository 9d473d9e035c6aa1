// Package assistant answers shopping questions about the catalog using a
// generative model. It keeps no state beyond each session's conversation log.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eppla/storefront/internal/metrics"
	"github.com/eppla/storefront/internal/types"
)

const (
	// NoRecommendationText is returned when the model answers with nothing
	NoRecommendationText = "I'm sorry, I'm having trouble providing a recommendation right now."
	// UnavailableText is returned when the model cannot be reached
	UnavailableText = "I'm sorry, I'm having trouble connecting to the showroom right now."

	systemInstruction = "Be helpful, professional, and focus on selling high-end ergonomic solutions."
)

// ErrEmptyQuery rejects a blank question
var ErrEmptyQuery = errors.New("query is empty")

// Config holds assistant configuration
type Config struct {
	APIKey       string        `mapstructure:"api_key"`
	AdviceModel  string        `mapstructure:"advice_model"`
	SEOModel     string        `mapstructure:"seo_model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxInventory int           `mapstructure:"max_inventory"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

// DefaultConfig returns the default assistant configuration
func DefaultConfig() Config {
	return Config{
		AdviceModel:  "gemini-1.5-pro",
		SEOModel:     "gemini-1.5-flash",
		Timeout:      30 * time.Second,
		MaxInventory: 200,
		HistoryLimit: 50,
	}
}

// Reply is the assistant's answer to one query
type Reply struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// SEOContent is generated search metadata for a product
type SEOContent struct {
	MetaTitle       string   `json:"metaTitle"`
	MetaDescription string   `json:"metaDescription"`
	Keywords        []string `json:"keywords"`
}

// Advisor turns catalog snapshots and questions into prompts
type Advisor struct {
	gen     Generator
	config  Config
	metrics *metrics.Recorder
}

// NewAdvisor creates an advisor. A nil generator disables it: every query
// gets the unavailable text.
func NewAdvisor(gen Generator, config Config) *Advisor {
	defaults := DefaultConfig()
	if config.AdviceModel == "" {
		config.AdviceModel = defaults.AdviceModel
	}
	if config.SEOModel == "" {
		config.SEOModel = defaults.SEOModel
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxInventory <= 0 {
		config.MaxInventory = defaults.MaxInventory
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = defaults.HistoryLimit
	}
	return &Advisor{gen: gen, config: config, metrics: metrics.NewRecorder()}
}

// Enabled reports whether a model is configured
func (a *Advisor) Enabled() bool {
	return a.gen != nil
}

// Config returns the effective configuration
func (a *Advisor) Config() Config {
	return a.config
}

type inventoryEntry struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// AdvicePrompt renders the advice prompt for query over products
func AdvicePrompt(query string, products []types.Product, limit int) (string, error) {
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	inventory := make([]inventoryEntry, len(products))
	for i, p := range products {
		inventory[i] = inventoryEntry{Name: p.Name, Category: p.Category, Price: p.Price.Float()}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(inventory); err != nil {
		return "", err
	}
	data := bytes.TrimSpace(buf.Bytes())
	return fmt.Sprintf("You are a professional interior designer for EpplaGrafeiou.gr. Help the user choose from these products: %s. User query: %s", data, query), nil
}

// Advise answers query using the given catalog snapshot. Model failures are
// not returned as errors; the reply carries friendly fallback text instead.
func (a *Advisor) Advise(ctx context.Context, query string, snapshot []types.Product) (Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Reply{}, ErrEmptyQuery
	}
	if a.gen == nil {
		a.metrics.RecordAssistant("disabled")
		return Reply{Text: UnavailableText, Fallback: true}, nil
	}

	prompt, err := AdvicePrompt(query, snapshot, a.config.MaxInventory)
	if err != nil {
		return Reply{}, fmt.Errorf("build prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	text, err := a.gen.Generate(ctx, Prompt{Model: a.config.AdviceModel, System: systemInstruction, Text: prompt})
	switch {
	case errors.Is(err, ErrEmptyResponse):
		a.metrics.RecordAssistant("fallback")
		return Reply{Text: NoRecommendationText, Fallback: true}, nil
	case err != nil:
		a.metrics.RecordAssistant("fallback")
		log.Warn().Err(err).Msg("Assistant request failed")
		return Reply{Text: UnavailableText, Fallback: true}, nil
	}

	a.metrics.RecordAssistant("answered")
	return Reply{Text: strings.TrimSpace(text)}, nil
}

// Ask runs Advise and records both sides in conv
func (a *Advisor) Ask(ctx context.Context, conv *Conversation, query string, snapshot []types.Product) (Reply, error) {
	reply, err := a.Advise(ctx, query, snapshot)
	if err != nil {
		return reply, err
	}
	conv.Append(RoleUser, strings.TrimSpace(query))
	conv.Append(RoleAssistant, reply.Text)
	return reply, nil
}

// GenerateSEO produces search metadata for a product
func (a *Advisor) GenerateSEO(ctx context.Context, name, category string) (*SEOContent, error) {
	if a.gen == nil {
		return nil, errors.New("assistant is disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Generate high-conversion SEO meta title, description, and keywords for an office furniture product named %q in category %q. Focus on ranking first on Google for office furniture in Greece (EpplaGrafeiou.gr).`, name, category)
	text, err := a.gen.Generate(ctx, Prompt{Model: a.config.SEOModel, Text: prompt, Schema: seoSchema})
	if err != nil {
		return nil, fmt.Errorf("seo generation: %w", err)
	}

	var seo SEOContent
	if err := json.Unmarshal([]byte(text), &seo); err != nil {
		return nil, fmt.Errorf("seo generation: decode response: %w", err)
	}
	return &seo, nil
}
