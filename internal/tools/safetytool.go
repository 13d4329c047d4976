package tools

import (
	"context"

	"github.com/evihealth/evi/internal/safety"
)

func safetyProtocolTool() *Tool {
	return &Tool{
		Name: NameSafetyProtocol,
		Description: "Trigger the emergency safety protocol when the user's message " +
			"indicates immediate danger to life.",
		InputSchema: map[string]any{
			"message": map[string]any{"type": "string", "description": "The user's message that triggered the protocol"},
		},
		Run: func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{
				"protocol": "emergency",
				"message":  strArg(args, "message"),
				"response": safety.EmergencyResponse,
			}, nil
		},
	}
}
