package backend

import (
	"context"
	"encoding/json"
	"net/http"
)

const scriptsPath = dashboardPrefix + "/scripts"

// ListScripts returns the scripts of one product, newest first as the backend orders them.
func (c *Client) ListScripts(ctx context.Context, productID int64) ([]Script, error) {
	var body struct {
		Scripts json.RawMessage `json:"scripts"`
	}
	if err := c.do(ctx, http.MethodGet, idPath(productsPath, productID, "scripts"), nil, nil, &body); err != nil {
		return nil, err
	}
	return decodeList[Script](c.log, "scripts", body.Scripts), nil
}

func (c *Client) GetScript(ctx context.Context, id int64) (*Script, error) {
	var s Script
	if err := c.do(ctx, http.MethodGet, idPath(scriptsPath, id), nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateScript sends the edit as-is. Callers are responsible for the lock check.
func (c *Client) UpdateScript(ctx context.Context, id int64, update ScriptUpdate) (*Script, error) {
	var s Script
	if err := c.do(ctx, http.MethodPut, idPath(scriptsPath, id), nil, update, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) DeleteScript(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath(scriptsPath, id), nil, nil, nil)
}

// DeleteScriptMP3 removes the script's MP3 and unlocks it for editing.
func (c *Client) DeleteScriptMP3(ctx context.Context, id int64) (*DeleteMP3Result, error) {
	var res DeleteMP3Result
	if err := c.do(ctx, http.MethodDelete, idPath(scriptsPath, id, "mp3"), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GenerateScripts asks the backend AI for new scripts and returns them.
func (c *Client) GenerateScripts(ctx context.Context, req GenerateScriptsRequest) ([]Script, error) {
	var body struct {
		Scripts json.RawMessage `json:"scripts"`
	}
	if err := c.do(ctx, http.MethodPost, scriptsPath+"/generate-ai", nil, req, &body); err != nil {
		return nil, err
	}
	return decodeList[Script](c.log, "scripts", body.Scripts), nil
}

func (c *Client) CreateManualScript(ctx context.Context, req ManualScriptRequest) (*Script, error) {
	var s Script
	if err := c.do(ctx, http.MethodPost, scriptsPath+"/manual", nil, req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DuplicateScript copies a script into a new, editable draft.
func (c *Client) DuplicateScript(ctx context.Context, id int64) (*Script, error) {
	var s Script
	if err := c.do(ctx, http.MethodPost, idPath(scriptsPath, id, "duplicate"), nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
