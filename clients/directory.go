package clients

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DirectoryClientWrapper looks up contact tokens for requesters and
// technicians by their directory reference.
type DirectoryClientWrapper interface {
	GetContact(ref string) (*Contact, error)
}

// Contact holds the delivery endpoints for one person.
type Contact struct {
	Ref       string `json:"ref"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	PushToken string `json:"push_token"`
}

// DirectoryClient implements DirectoryClientWrapper against the directory
// service's HTTP API.
type DirectoryClient struct {
	BaseURL string
	client  *http.Client
}

// NewDirectoryClient creates and returns a new instance of DirectoryClient.
func NewDirectoryClient(baseURL string) *DirectoryClient {
	return &DirectoryClient{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetContact fetches contact tokens for a directory reference.
func (d *DirectoryClient) GetContact(ref string) (*Contact, error) {
	resp, err := d.client.Get(fmt.Sprintf("%s/contacts/%s", d.BaseURL, ref))
	if err != nil {
		return nil, fmt.Errorf("directory service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory service returned status %d", resp.StatusCode)
	}

	var contact Contact
	if err := json.Unmarshal(body, &contact); err != nil {
		return nil, fmt.Errorf("failed to parse directory response: %w", err)
	}
	return &contact, nil
}
