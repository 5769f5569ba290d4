package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
)

// ListVideos returns the generated videos, newest first.
func (c *Client) ListVideos(ctx context.Context) ([]Video, error) {
	var body struct {
		Videos json.RawMessage `json:"videos"`
	}
	if err := c.do(ctx, http.MethodGet, videoPrefix+"/list-videos", nil, nil, &body); err != nil {
		return nil, err
	}
	return decodeList[Video](c.log, "videos", body.Videos), nil
}

// GenerateVideo renders a video synchronously. A 2xx answer with
// success=false is reported as an error.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	var res VideoResult
	if err := c.do(ctx, http.MethodPost, videoPrefix+"/generate", nil, req, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "video generation failed"
		}
		return &res, errors.New(msg)
	}
	return &res, nil
}

// PlayVideo pushes a video to the display server.
func (c *Client) PlayVideo(ctx context.Context, filename string) error {
	return c.do(ctx, http.MethodPost, videoPrefix+"/play-video/"+url.PathEscape(filename), nil, nil, nil)
}

func (c *Client) DeleteVideo(ctx context.Context, filename string) error {
	return c.do(ctx, http.MethodDelete, videoPrefix+"/delete-video/"+url.PathEscape(filename), nil, nil, nil)
}

// DisplayStatus reports whether the display server is running.
func (c *Client) DisplayStatus(ctx context.Context) (*DisplayStatus, error) {
	var body struct {
		Success       bool   `json:"success"`
		Error         string `json:"error"`
		ServiceStatus struct {
			DisplayStatus
			DisplayConfig struct {
				Port int `json:"port"`
			} `json:"display_config"`
		} `json:"service_status"`
	}
	if err := c.do(ctx, http.MethodGet, displayPrefix+"/status", nil, nil, &body); err != nil {
		return nil, err
	}
	if !body.Success && body.Error != "" {
		return nil, errors.New(body.Error)
	}
	status := body.ServiceStatus.DisplayStatus
	if status.Port == 0 {
		status.Port = body.ServiceStatus.DisplayConfig.Port
	}
	return &status, nil
}

// StartDisplayServer asks the backend to launch the display server.
func (c *Client) StartDisplayServer(ctx context.Context) error {
	return c.displayCommand(ctx, "/start-server")
}

func (c *Client) StopDisplayServer(ctx context.Context) error {
	return c.displayCommand(ctx, "/stop-server")
}

func (c *Client) displayCommand(ctx context.Context, path string) error {
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, displayPrefix+path, nil, nil, &body); err != nil {
		return err
	}
	if !body.Success {
		msg := body.Error
		if msg == "" {
			msg = body.Message
		}
		if msg == "" {
			msg = "display server command failed"
		}
		return errors.New(msg)
	}
	return nil
}
