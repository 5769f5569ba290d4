package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// TTSProviders returns the backend's TTS engines keyed by provider name.
func (c *Client) TTSProviders(ctx context.Context) (map[string]TTSProvider, error) {
	var body struct {
		Providers map[string]TTSProvider `json:"providers"`
	}
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/tts/providers", nil, nil, &body); err != nil {
		return nil, err
	}
	if body.Providers == nil {
		body.Providers = map[string]TTSProvider{}
	}
	return body.Providers, nil
}

// ProviderEmotions lists the TTS styles a provider can speak in.
func (c *Client) ProviderEmotions(ctx context.Context, provider string) ([]string, error) {
	var body struct {
		Emotions json.RawMessage `json:"supported_emotions"`
	}
	path := dashboardPrefix + "/tts/emotions/" + url.PathEscape(provider)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &body); err != nil {
		return nil, err
	}
	return decodeList[string](c.log, "supported_emotions", body.Emotions), nil
}

func (c *Client) TestTTS(ctx context.Context, req TTSTestRequest) (*TTSTestResult, error) {
	var res TTSTestResult
	if err := c.do(ctx, http.MethodPost, dashboardPrefix+"/tts/test", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GenerateMP3 submits a synthesis job. The backend answers as soon as the job
// is accepted; completion is observed by polling the scripts.
func (c *Client) GenerateMP3(ctx context.Context, req MP3Request) (*MP3Ack, error) {
	var ack MP3Ack
	if err := c.do(ctx, http.MethodPost, dashboardPrefix+"/mp3/generate", nil, req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *Client) MP3Status(ctx context.Context, scriptID int64) (*MP3Status, error) {
	var body struct {
		ScriptID    int64           `json:"script_id"`
		ScriptTitle string          `json:"script_title"`
		HasMP3      bool            `json:"has_mp3"`
		Files       json.RawMessage `json:"mp3_files"`
	}
	if err := c.do(ctx, http.MethodGet, idPath(dashboardPrefix+"/mp3/status", scriptID), nil, nil, &body); err != nil {
		return nil, err
	}
	return &MP3Status{
		ScriptID:    body.ScriptID,
		ScriptTitle: body.ScriptTitle,
		HasMP3:      body.HasMP3,
		Files:       decodeList[MP3File](c.log, "mp3_files", body.Files),
	}, nil
}
