package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

type apiClient struct {
	baseURL string
	token   string
}

// call sends body as JSON and decodes the response into out when it is not nil.
// The status must equal want.
func (c apiClient) call(t *testing.T, method, path string, body any, want int, out any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode %s %s: %v", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		t.Fatalf("build %s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s %s: %v", method, path, err)
	}
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, want, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
}

func (c apiClient) register(t *testing.T, username, password string) (userID string) {
	t.Helper()

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	c.call(t, http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"password": password,
	}, http.StatusCreated, &resp)
	if resp.Token == "" || resp.User.ID == "" {
		t.Fatalf("register %s: missing token or user id", username)
	}
	return resp.User.ID
}

func (c apiClient) login(t *testing.T, username, password string) string {
	t.Helper()

	var resp struct {
		Token string `json:"token"`
	}
	c.call(t, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, http.StatusOK, &resp)
	if resp.Token == "" {
		t.Fatalf("login %s: missing token", username)
	}
	return resp.Token
}

func progressPath(userID string, sectionID ...string) string {
	path := fmt.Sprintf("/users/%s/progress", userID)
	if len(sectionID) > 0 {
		path += "/" + sectionID[0]
	}
	return path
}
