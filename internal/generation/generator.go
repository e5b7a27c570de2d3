// Package generation turns retrieved policy context into structured
// claim decisions and direct answers, using Gemini when available and
// falling back to OpenAI.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go"
)

// ErrNoProvider is returned when neither Gemini nor OpenAI is configured.
var ErrNoProvider = errors.New("no generation provider available")

// DefaultLogsDir is where raw model output is dumped when parsing fails.
const DefaultLogsDir = "logs"

// Diagnostic file names for unparseable model output.
const (
	structuredQueryErrorFile = "structured_query_error.txt"
	finalResponseErrorFile   = "final_response_error.txt"
)

// provider is a single-turn text generation backend.
type provider interface {
	generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64, jsonOutput bool) (string, error)
	modelName() string
}

// Config holds generator configuration. At least one of OpenAIClient
// and GeminiAPIKey should be set; with neither, every call degrades to
// its documented fallback value.
type Config struct {
	// OpenAIClient enables the OpenAI backend when non-nil.
	OpenAIClient *openai.Client

	// OpenAIModel overrides the default chat model (gpt-4o).
	OpenAIModel string

	// GeminiAPIKey enables the Gemini backend when non-empty.
	GeminiAPIKey string

	// GeminiModel overrides the default Gemini model (gemini-1.5-flash).
	GeminiModel string

	// LogsDir is where diagnostic dumps are written (default: logs).
	LogsDir string

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Status reports which backends are configured and which one is active.
type Status struct {
	ActiveProvider  string `json:"active_provider"`
	OpenAIAvailable bool   `json:"openai_available"`
	GeminiAvailable bool   `json:"gemini_available"`
	OpenAIModel     string `json:"openai_model,omitempty"`
	GeminiModel     string `json:"gemini_model,omitempty"`
}

// Generator produces structured decisions and answers over retrieved
// chunks. Gemini is preferred when both backends are configured.
type Generator struct {
	openai  *openaiProvider
	gemini  *geminiClient
	active  provider
	name    string
	logsDir string
	logger  *slog.Logger
}

// New creates a generator from the given configuration. A generator
// with no backends is still usable; its methods return fallback values
// instead of failing.
func New(cfg Config) *Generator {
	if cfg.LogsDir == "" {
		cfg.LogsDir = DefaultLogsDir
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	g := &Generator{
		logsDir: cfg.LogsDir,
		logger:  cfg.Logger,
	}

	if cfg.OpenAIClient != nil {
		g.openai = newOpenAIProvider(cfg.OpenAIClient, cfg.OpenAIModel)
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := newGeminiClient(GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			cfg.Logger.Warn("gemini initialization failed", "error", err)
		} else {
			g.gemini = gemini
		}
	}

	switch {
	case g.gemini != nil:
		g.active = g.gemini
		g.name = "gemini"
		g.logger.Info("using gemini for generation", "model", g.gemini.modelName())
	case g.openai != nil:
		g.active = g.openai
		g.name = "openai"
		g.logger.Info("using openai for generation", "model", g.openai.modelName())
	default:
		g.logger.Warn("no generation backends configured, responses will be degraded")
	}

	return g
}

// Status reports backend availability.
func (g *Generator) Status() Status {
	s := Status{
		ActiveProvider:  g.name,
		OpenAIAvailable: g.openai != nil,
		GeminiAvailable: g.gemini != nil,
	}
	if g.openai != nil {
		s.OpenAIModel = g.openai.modelName()
	}
	if g.gemini != nil {
		s.GeminiModel = g.gemini.modelName()
	}
	return s
}

func (g *Generator) call(ctx context.Context, systemPrompt, userPrompt string, temperature float64, jsonOutput bool) (string, error) {
	if g.active == nil {
		return "", ErrNoProvider
	}
	return g.active.generate(ctx, systemPrompt, userPrompt, temperature, jsonOutput)
}

const extractSystemPrompt = "You are an expert at extracting structured information from text and returning it as JSON."

const extractPromptTemplate = `Extract the following fields from the user query: age, gender, medical_procedure, location, policy_duration_months.
User Query: "%s"
Return a valid JSON object with the extracted fields. If a field is not present, its value should be null.
Example:
{
    "age": 46,
    "gender": "male",
    "medical_procedure": "knee surgery",
    "location": "Pune",
    "policy_duration_months": 3
}
Only return the JSON object. Do not include any explanation or narration.`

// ExtractStructuredQuery pulls claim fields out of a raw query. It
// never fails: on any API or parse error the raw output is dumped to
// the logs directory and an empty StructuredQuery is returned.
func (g *Generator) ExtractStructuredQuery(ctx context.Context, query string) StructuredQuery {
	raw, err := g.call(ctx, extractSystemPrompt, fmt.Sprintf(extractPromptTemplate, query), 0.0, true)
	if err != nil {
		g.logger.Error("structured query extraction call failed", "error", err)
		return StructuredQuery{}
	}

	var sq StructuredQuery
	if err := g.parseJSON(raw, &sq); err != nil {
		g.logger.Error("failed to parse structured query", "error", err)
		g.writeDiagnostic(structuredQueryErrorFile, raw)
		return StructuredQuery{}
	}
	return sq
}

const responseSystemPrompt = "You are an insurance claim evaluation expert who provides responses in JSON format."

const responsePromptTemplate = `You are an insurance claim evaluation expert. Based on the user's claim details and the provided policy document clauses, please make a decision.

**User Claim Details:**
%s

**Retrieved Policy Clauses:**
%s

**Your Task:**
1. Analyze: Review the user's claim against the policy clauses.
2. Decide: Approve or Reject.
3. Justify: Explain with specific clause references.
4. Amount: Include amount if applicable, or null.
5. Format: Return a JSON with:
{
    "decision": "<Approved/Rejected>",
    "amount": "<approved amount or null>",
    "justification": "<Detailed explanation with clause references>",
    "sources": [
        {
            "chunk": "<Text of clause used>",
            "source": "<source filename>",
            "confidence": <confidence score>
        }
    ]
}

Only return the JSON object. Do not include any explanation or narration.`

// GenerateResponse evaluates a claim against retrieved policy clauses.
// It never fails: API errors yield a Decision of "Error" and parse
// errors a Decision of "Unable to process", with the raw output dumped
// to the logs directory.
func (g *Generator) GenerateResponse(ctx context.Context, query StructuredQuery, chunks []Source) FinalResponse {
	prompt := fmt.Sprintf(responsePromptTemplate, query.details(), formatContext(chunks))

	raw, err := g.call(ctx, responseSystemPrompt, prompt, 0.1, true)
	if err != nil {
		g.logger.Error("response generation call failed", "error", err)
		return FinalResponse{
			Decision:      "Error",
			Justification: fmt.Sprintf("API call failed: %v", err),
			Sources:       []Source{},
		}
	}

	var resp FinalResponse
	if err := g.parseJSON(raw, &resp); err != nil {
		g.logger.Error("failed to parse final response", "error", err)
		g.writeDiagnostic(finalResponseErrorFile, raw)
		return FinalResponse{
			Decision:      "Unable to process",
			Justification: "Error in response generation. Please try again.",
			Sources:       []Source{},
		}
	}
	if resp.Sources == nil {
		resp.Sources = []Source{}
	}
	return resp
}

const directSystemPrompt = "You are a helpful assistant that answers questions based on provided document content."

const directPromptTemplate = `Based on the following document content, please answer this question: "%s"

**Document Content:**
%s

**Instructions:**
1. Answer the question based only on the provided document content
2. If the information is not available in the content, say so clearly
3. Be concise but thorough
4. Reference specific parts of the document when possible

Please provide a clear and helpful answer.`

// AnswerDirectQuestion answers a question in free text from the
// retrieved context. Errors degrade to an explanatory string.
func (g *Generator) AnswerDirectQuestion(ctx context.Context, question string, chunks []Source) string {
	prompt := fmt.Sprintf(directPromptTemplate, question, formatContext(chunks))

	answer, err := g.call(ctx, directSystemPrompt, prompt, 0.1, false)
	if err != nil {
		g.logger.Error("direct answer call failed", "error", err)
		return fmt.Sprintf("Unable to generate response: %v", err)
	}
	return strings.TrimSpace(answer)
}

// parseJSON extracts the first JSON object from raw model output and
// unmarshals it into v.
func (g *Generator) parseJSON(raw string, v any) error {
	block, err := extractFirstJSONBlock(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return fmt.Errorf("unmarshal model output: %w", err)
	}
	return nil
}

// writeDiagnostic dumps raw model output for offline inspection.
// Best-effort: failures are logged and swallowed.
func (g *Generator) writeDiagnostic(name, raw string) {
	if err := os.MkdirAll(g.logsDir, 0o755); err != nil {
		g.logger.Warn("failed to create logs directory", "error", err)
		return
	}
	path := filepath.Join(g.logsDir, name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		g.logger.Warn("failed to write diagnostic file", "path", path, "error", err)
	}
}

// details renders the extracted fields as indented JSON, omitting
// fields the model could not find.
func (q StructuredQuery) details() string {
	fields := map[string]any{}
	if q.Age != nil {
		fields["age"] = *q.Age
	}
	if q.Gender != nil {
		fields["gender"] = *q.Gender
	}
	if q.MedicalProcedure != nil {
		fields["medical_procedure"] = *q.MedicalProcedure
	}
	if q.Location != nil {
		fields["location"] = *q.Location
	}
	if q.PolicyDurationMonths != nil {
		fields["policy_duration_months"] = *q.PolicyDurationMonths
	}

	out, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

// formatContext renders retrieved chunks as a prompt context block.
func formatContext(chunks []Source) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("Source: %s\nContent: %s", c.Source, c.Chunk)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
