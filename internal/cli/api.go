package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/soyeahso/swarmdeck/internal/config"
)

// apiBase resolves the hub's HTTP base URL from the --hub flag or config.
func apiBase(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://127.0.0.1:%d", cfg.Hub.Port), nil
}

var apiClient = &http.Client{Timeout: 10 * time.Second}

// apiRequest performs an HTTP call against the hub API and decodes the
// JSON response into out when out is non-nil. Non-2xx responses surface
// the hub's error message.
func apiRequest(method, url string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := apiClient.Do(req)
	if err != nil {
		return fmt.Errorf("is the hub running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("hub returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("hub returned %d", resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
