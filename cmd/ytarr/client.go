package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client wraps HTTP calls to the ytarr server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new ytarr API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) put(path string, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	req, err := http.NewRequest(http.MethodPut, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// API response types (mirror server types)

type SourceResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	Handle      string    `json:"handle,omitempty"`
	PlaylistID  string    `json:"playlist_id,omitempty"`
	MaxVideos   *int      `json:"max_videos,omitempty"`
	MaxAgeDays  *int      `json:"max_age_days,omitempty"`
	LastChecked time.Time `json:"last_checked"`
	MediaDir    string    `json:"media_dir"`
	VideoCount  int       `json:"video_count"`
}

type SourceRequest struct {
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Handle     string `json:"handle,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
	MaxVideos  *int   `json:"max_videos,omitempty"`
	MaxAgeDays *int   `json:"max_age_days,omitempty"`
}

type SettingsResponse struct {
	ServerAddress         string `json:"server_address"`
	CheckIntervalMinutes  int    `json:"check_interval_minutes"`
	MediaPath             string `json:"media_path"`
	Paused                bool   `json:"background_tasks_paused"`
	MaintainManifestCache bool   `json:"maintain_manifest_cache"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Sources int    `json:"sources"`
	Paused  bool   `json:"background_tasks_paused"`
}

type HistoryRecord struct {
	ID         int64     `json:"id"`
	SourceID   string    `json:"source_id"`
	SourceName string    `json:"source_name"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	NewVideos  int       `json:"new_videos"`
	Error      string    `json:"error,omitempty"`
}

// API methods

func (c *Client) Status() (*StatusResponse, error) {
	var status StatusResponse
	if err := c.get("/api/v1/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Sources() ([]SourceResponse, error) {
	var sources []SourceResponse
	if err := c.get("/api/v1/sources", &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func (c *Client) AddSource(req SourceRequest) (*SourceResponse, error) {
	var src SourceResponse
	if err := c.post("/api/v1/sources", req, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

func (c *Client) UpdateSource(id string, req SourceRequest) (*SourceResponse, error) {
	var src SourceResponse
	if err := c.put("/api/v1/sources/"+id, req, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

func (c *Client) DeleteSource(id string) error {
	return c.delete("/api/v1/sources/" + id)
}

func (c *Client) ResetSource(id string) error {
	return c.post("/api/v1/sources/"+id+"/reset", nil, nil)
}

func (c *Client) TriggerSync(id string) error {
	return c.post("/api/v1/sources/"+id+"/sync", nil, nil)
}

func (c *Client) Settings() (*SettingsResponse, error) {
	var settings SettingsResponse
	if err := c.get("/api/v1/settings", &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (c *Client) History(sourceID string, limit int) ([]HistoryRecord, error) {
	params := url.Values{}
	if sourceID != "" {
		params.Set("source", sourceID)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	path := "/api/v1/history"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var records []HistoryRecord
	if err := c.get(path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FindSource resolves a user-supplied reference to a tracked source. An
// exact id match is tried first, then fuzzy name lookup on the server.
func (c *Client) FindSource(ref string) (*SourceResponse, error) {
	var src SourceResponse
	if err := c.get("/api/v1/sources/"+url.PathEscape(ref), &src); err == nil {
		return &src, nil
	}
	if err := c.get("/api/v1/sources/find?q="+url.QueryEscape(ref), &src); err != nil {
		return nil, fmt.Errorf("no source matching %q: %w", ref, err)
	}
	return &src, nil
}
