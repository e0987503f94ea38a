package streaming

import (
	"testing"

	"turnengine/internal/config"
	llmModels "turnengine/internal/domain/models/llm"
)

// TestEnvironmentGatingForTools verifies that tools are only allowed in dev/test environments
func TestEnvironmentGatingForTools(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		toolCount   int // Number of tools in params
		shouldBlock bool
	}{
		{
			name:        "dev environment allows tools",
			environment: "dev",
			toolCount:   1,
			shouldBlock: false,
		},
		{
			name:        "test environment allows tools",
			environment: "test",
			toolCount:   1,
			shouldBlock: false,
		},
		{
			name:        "prod environment blocks tools",
			environment: "prod",
			toolCount:   1,
			shouldBlock: true,
		},
		{
			name:        "prod environment allows no tools",
			environment: "prod",
			toolCount:   0,
			shouldBlock: false,
		},
		{
			name:        "dev environment allows no tools",
			environment: "dev",
			toolCount:   0,
			shouldBlock: false,
		},
		{
			name:        "staging environment blocks tools",
			environment: "staging",
			toolCount:   1,
			shouldBlock: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &Service{
				config: &config.Config{
					Environment: tt.environment,
				},
			}

			params := &llmModels.RequestParams{
				Tools: make([]llmModels.ToolDefinition, tt.toolCount),
			}

			err := svc.validateToolsEnvironment(params)
			shouldBlock := err != nil

			if shouldBlock != tt.shouldBlock {
				t.Errorf("environment gating mismatch: got shouldBlock=%v (err=%v), want shouldBlock=%v", shouldBlock, err, tt.shouldBlock)
			}
		})
	}
}
