package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/peekwez/docai/constants"
	"github.com/peekwez/docai/internal/common"
)

// correctionFormat asks the model to repair its previous invalid turn.
const correctionFormat = `The previous response failed validation: %v
Respond with a corrected JSON object that conforms to the schema. Return ONLY the JSON object.`

// Extraction is a validated model answer plus its usage metadata.
type Extraction struct {
	Result   json.RawMessage
	Usage    Usage
	Model    string
	Attempts int
}

// SchemaExtractor calls the model and mechanically verifies the answer
// against the schema before treating it as structured data. On validation
// failure it re-issues the call with corrective feedback, up to the attempt
// limit. Attempts are strictly sequential: each retry depends on the
// previous invalid output.
type SchemaExtractor struct {
	chat        ChatCompleter
	maxAttempts int
	log         *slog.Logger
}

func NewSchemaExtractor(chat ChatCompleter, maxAttempts int, logger *slog.Logger) *SchemaExtractor {
	if maxAttempts <= 0 {
		maxAttempts = constants.MaxExtractAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SchemaExtractor{chat: chat, maxAttempts: maxAttempts, log: logger}
}

// Extract runs the validate-and-retry loop. Transport errors propagate
// immediately; only validation failures consume attempts. After exhausting
// attempts the last InvalidData failure is returned.
func (e *SchemaExtractor) Extract(ctx context.Context, definition json.RawMessage, messages []Message, model string) (*Extraction, error) {
	conversation := make([]Message, len(messages))
	copy(conversation, messages)

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		start := time.Now()
		resp, err := e.chat.Complete(ctx, ChatRequest{
			Model:       model,
			Messages:    conversation,
			Seed:        constants.Seed,
			Temperature: constants.Temperature,
			MaxTokens:   constants.MaxOutputTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("model call (attempt %d): %w", attempt, err)
		}

		result, verr := ParseAndValidate(definition, resp.Content)
		if verr == nil {
			e.log.Info("extract.ok",
				"model", model,
				"attempt", attempt,
				"total_tokens", resp.Usage.TotalTokens,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return &Extraction{
				Result:   result,
				Usage:    resp.Usage,
				Model:    model,
				Attempts: attempt,
			}, nil
		}

		// A broken schema cannot be fixed by better model output.
		if de, ok := common.AsDomain(verr); ok && de.Name == common.ErrNameInvalidSchemaDefinition {
			return nil, verr
		}

		e.log.Warn("extract.invalid_data",
			"model", model,
			"attempt", attempt,
			"error", verr,
		)
		lastErr = verr

		// Feed the invalid turn back so the model can correct itself.
		conversation = append(conversation,
			AssistantMessage(resp.Content),
			UserText(fmt.Sprintf(correctionFormat, verr)),
		)
	}

	if _, ok := common.AsDomain(lastErr); ok {
		return nil, lastErr
	}
	return nil, common.InvalidData("model output failed validation", lastErr)
}
