package backend

import (
	"context"
	"encoding/json"
	"net/http"
)

// ScriptPersonas returns the active script-writing personas.
func (c *Client) ScriptPersonas(ctx context.Context) ([]ScriptPersona, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/personas/script", nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[ScriptPersona](c.log, "personas/script", raw), nil
}

// VoicePersonas returns the active TTS voice personas.
func (c *Client) VoicePersonas(ctx context.Context) ([]VoicePersona, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/personas/voice", nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[VoicePersona](c.log, "personas/voice", raw), nil
}
