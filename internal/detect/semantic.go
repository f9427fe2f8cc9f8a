package detect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"policyguard/internal/config"
	"policyguard/internal/llm"
	"policyguard/internal/metrics"
	"policyguard/internal/page"
)

const systemPrompt = `You are a STRICT AdSense policy auditor. ONLY flag clear, serious violations.
Return valid JSON:
{
  "violations": [
    {
      "type": "Adult|Gambling|Scam|Fake|Harmful|Hate|Copyright|Misleading",
      "excerpt": "short quote",
      "confidence": 0.95
    }
  ],
  "summary": "Brief explanation",
  "suggestions": ["Remove adult content", "Fix misleading claims"]
}

STRICT RULES:
- ONLY flag if 100% sure, DO NOT GUESS
- IGNORE: General topics, educational content, news, opinions
- IGNORE: Mild language, neutral descriptions
- Return empty arrays if no clear violations

FLAG ONLY IF:
- Explicit sexual content or nudity
- Gambling/betting promotion
- Scams/fraud schemes
- Fake software/downloads
- Harmful/deceptive practices
- Hate speech or violence promotion
- Copyright infringement (pirated content)
- Misleading offers or false promises
- Get-rich-quick schemes
- Illegal activities promotion

SPECIAL ATTENTION:
- "Free download", "cracked", "torrent", "full version" phrases for ILLEGAL content
- Affiliate links for questionable products
- Promotions of illegal activities

Example violations:
BAD: "Download free cracked software here"
OK: "Learn about software development"
BAD: "Get rich quick with this method"
OK: "Financial planning tips"
`

// Classifier labels page text. Implementations never return an error:
// every failure is folded into the Analysis summary.
type Classifier interface {
	Classify(ctx context.Context, text, url string) Analysis
	// Enabled reports whether pages are actually sent to a model.
	Enabled() bool
}

// SemanticOptions tunes the request sent for each page.
type SemanticOptions struct {
	Provider            llm.Provider
	Model               string
	Temperature         float64
	MaxTokens           int
	MaxChars            int
	ConfidenceThreshold float64
	Logger              *slog.Logger
}

// SemanticDetector is the configured classifier backed by an llm.Client.
type SemanticDetector struct {
	client llm.Client
	opts   SemanticOptions
	logger *slog.Logger
}

// NewSemanticDetector wraps client. Zero options fall back to the values
// the prompt was tuned with.
func NewSemanticDetector(client llm.Client, opts SemanticOptions) *SemanticDetector {
	if opts.Temperature == 0 {
		opts.Temperature = 0.1
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 800
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = 16000
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = 0.8
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticDetector{client: client, opts: opts, logger: logger}
}

func (d *SemanticDetector) Enabled() bool { return true }

// Classify runs the prefilter and, when the text is not obviously safe,
// asks the model for a verdict.
func (d *SemanticDetector) Classify(ctx context.Context, text, url string) Analysis {
	provider := string(d.opts.Provider)

	if IsSafe(text) {
		metrics.RecordLLMClassify(provider, d.opts.Model, "safe_skip")
		d.logger.Debug("semantic analysis skipped", "url", url, "reason", "safe content")
		return emptyAnalysis(SummarySafe)
	}

	start := time.Now()
	resp, err := d.client.Complete(ctx, llm.ChatRequest{
		System:      systemPrompt,
		User:        fmt.Sprintf("URL: %s\n\nCONTENT:\n%s", url, page.Truncate(text, d.opts.MaxChars)),
		Temperature: d.opts.Temperature,
		MaxTokens:   d.opts.MaxTokens,
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		metrics.RecordLLMClassify(provider, d.opts.Model, "error")
		d.logger.Warn("semantic analysis failed", "url", url, "error", err, "latency_ms", latency)
		return emptyAnalysis(SummaryAIError)
	}

	analysis, dropped, err := d.decode(resp.Content)
	if err != nil {
		metrics.RecordLLMClassify(provider, d.opts.Model, "error")
		d.logger.Warn("semantic analysis returned unusable output",
			"url", url, "error", err, "response_chars", len(resp.Content))
		return emptyAnalysis(SummaryAIError)
	}

	metrics.RecordLLMClassify(provider, d.opts.Model, "ok")
	d.logger.Info("semantic analysis complete",
		"url", url,
		"latency_ms", latency,
		"tokens", resp.TotalTokens,
		"response_chars", len(resp.Content),
		"violations", len(analysis.Violations),
		"filtered", dropped,
	)
	return analysis
}

type rawAnalysis struct {
	Violations  json.RawMessage `json:"violations"`
	Summary     json.RawMessage `json:"summary"`
	Suggestions json.RawMessage `json:"suggestions"`
}

type rawViolation struct {
	Type       string     `json:"type"`
	Excerpt    string     `json:"excerpt"`
	Confidence confidence `json:"confidence"`
}

// confidence accepts a JSON number or a numeric string such as "0.95".
type confidence float64

func (c *confidence) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*c = confidence(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("confidence %q: %w", s, err)
	}
	*c = confidence(n)
	return nil
}

// decode parses a model reply. Entries that are not objects, carry an
// unknown type, or fall at or below the confidence threshold are dropped
// and counted. A reply without any JSON object is an empty verdict.
func (d *SemanticDetector) decode(content string) (Analysis, int, error) {
	var raw rawAnalysis
	if err := llm.DecodeJSONObject(content, &raw); err != nil {
		if errors.Is(err, llm.ErrNoJSONObject) {
			return emptyAnalysis(""), 0, nil
		}
		return Analysis{}, 0, err
	}

	out := emptyAnalysis("")
	dropped := 0

	var entries []json.RawMessage
	if len(raw.Violations) > 0 && json.Unmarshal(raw.Violations, &entries) != nil {
		entries = nil
	}
	for _, entry := range entries {
		var rv rawViolation
		if err := json.Unmarshal(entry, &rv); err != nil {
			dropped++
			continue
		}
		t, ok := ParseType(rv.Type)
		score := float64(rv.Confidence)
		if !ok || score <= d.opts.ConfidenceThreshold {
			dropped++
			continue
		}
		out.Violations = append(out.Violations, Violation{Type: t, Excerpt: rv.Excerpt, Confidence: score})
	}

	if len(raw.Summary) > 0 {
		var s string
		if json.Unmarshal(raw.Summary, &s) == nil {
			out.Summary = s
		}
	}

	var suggestions []json.RawMessage
	if len(raw.Suggestions) > 0 && json.Unmarshal(raw.Suggestions, &suggestions) == nil {
		for _, item := range suggestions {
			var s string
			if json.Unmarshal(item, &s) == nil && s != "" {
				out.Suggestions = append(out.Suggestions, s)
			}
		}
	}

	return out, dropped, nil
}

type disabled struct{}

// Disabled returns the classifier used when no model credentials exist.
// Every page is reported as not analyzed.
func Disabled() Classifier { return disabled{} }

func (disabled) Enabled() bool { return false }

func (disabled) Classify(context.Context, string, string) Analysis {
	metrics.RecordLLMClassify("none", "", "disabled")
	return emptyAnalysis(SummaryAPIKeyMissing)
}

// NewClassifierFromConfig builds the configured classifier, or Disabled
// when the selected provider has no API key. An unknown provider is an
// error.
func NewClassifierFromConfig(cfg *config.Config, logger *slog.Logger) (Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, provider, model, err := llm.NewClientFromConfig(cfg, "", "")
	if errors.Is(err, llm.ErrNotConfigured) {
		logger.Warn("semantic analysis disabled", "provider", provider, "reason", err)
		return Disabled(), nil
	}
	if err != nil {
		return nil, err
	}

	logger.Info("semantic analysis enabled", "provider", provider, "model", model)
	return NewSemanticDetector(client, SemanticOptions{
		Provider:            provider,
		Model:               model,
		Temperature:         cfg.LLM.Temperature,
		MaxTokens:           cfg.LLM.MaxTokens,
		MaxChars:            cfg.Scan.ContextChars,
		ConfidenceThreshold: cfg.LLM.ConfidenceThreshold,
		Logger:              logger,
	}), nil
}
