package llm

import (
	"encoding/json"
	"fmt"
)

// RequestParams is the typed view over a turn's raw request_params JSONB map.
// The map survives on Turn/TurnBlock as-is (for persistence and replay); this
// struct is a parsed convenience view used by the streaming pipeline.
type RequestParams struct {
	Model       *string          `json:"model,omitempty"`
	Provider    *string          `json:"provider,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	Thinking    *bool            `json:"thinking,omitempty"`
	System      *string          `json:"system,omitempty"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
}

// ValidateRequestParams performs structural validation on the raw request_params
// map before it is parsed into a RequestParams struct. It rejects unknown shapes
// early so a malformed request fails before any state mutation.
func ValidateRequestParams(raw map[string]interface{}) error {
	if raw == nil {
		return nil
	}

	if v, ok := raw["temperature"]; ok {
		f, ok := toFloat64(v)
		if !ok {
			return fmt.Errorf("temperature must be a number")
		}
		if f < 0 || f > 2 {
			return fmt.Errorf("temperature must be between 0 and 2")
		}
	}

	if v, ok := raw["max_tokens"]; ok {
		f, ok := toFloat64(v)
		if !ok || f <= 0 {
			return fmt.Errorf("max_tokens must be a positive number")
		}
	}

	if v, ok := raw["tools"]; ok {
		if _, ok := v.([]interface{}); !ok {
			return fmt.Errorf("tools must be an array")
		}
	}

	return nil
}

// GetRequestParamStruct parses the raw request_params map into a typed
// RequestParams struct, validating it has already occurred via ValidateRequestParams.
func GetRequestParamStruct(raw map[string]interface{}) (*RequestParams, error) {
	if raw == nil {
		return &RequestParams{}, nil
	}

	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request_params: %w", err)
	}

	var params RequestParams
	if err := json.Unmarshal(jsonBytes, &params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request_params: %w", err)
	}

	return &params, nil
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
