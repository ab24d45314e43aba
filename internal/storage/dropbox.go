package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"captioner-backend/internal/config"
)

const (
	dropboxAPIBase     = "https://api.dropboxapi.com"
	dropboxContentBase = "https://content.dropboxapi.com"
	dropboxTokenURL    = "https://api.dropbox.com/oauth2/token"

	// Template used to attach captions to files as Dropbox properties.
	captionTemplateName = "PhotoTags"
	captionFieldName    = "caption"

	dropboxTimeout = 10 * time.Second
)

// DropboxStorage stores photos in a Dropbox folder, authenticating with the
// OAuth2 refresh-token flow. Endpoint URLs are fields so tests can point the
// client at a local server.
type DropboxStorage struct {
	appKey       string
	appSecret    string
	refreshToken string
	basePath     string

	APIBase     string
	ContentBase string
	TokenURL    string

	client *http.Client

	// mu guards the lazily initialized token and templateID; the client is
	// shared across request goroutines.
	mu         sync.Mutex
	token      string
	templateID string
}

func NewDropboxStorage(cfg *config.Config) *DropboxStorage {
	basePath := cfg.DropboxRootPath
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return &DropboxStorage{
		appKey:       cfg.DropboxAppKey,
		appSecret:    cfg.DropboxAppSecret,
		refreshToken: cfg.DropboxRefreshToken,
		basePath:     basePath,
		APIBase:      dropboxAPIBase,
		ContentBase:  dropboxContentBase,
		TokenURL:     dropboxTokenURL,
		client:       &http.Client{Timeout: dropboxTimeout},
	}
}

// accessToken returns the cached access token, exchanging the refresh token
// for a fresh one when the cache is empty. The whole check-and-refresh runs
// under the lock so concurrent callers trigger a single exchange.
func (s *DropboxStorage) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}
	if s.appKey == "" || s.appSecret == "" || s.refreshToken == "" {
		return "", ErrMissingCredentials
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {s.refreshToken},
		"client_id":     {s.appKey},
		"client_secret": {s.appSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", &BackendError{Backend: "dropbox", Op: "token", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &BackendError{Backend: "dropbox", Op: "token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &BackendError{Backend: "dropbox", Op: "token",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &BackendError{Backend: "dropbox", Op: "token", Err: err}
	}
	if payload.AccessToken == "" {
		return "", &BackendError{Backend: "dropbox", Op: "token",
			Err: fmt.Errorf("no access token in response")}
	}
	s.token = payload.AccessToken
	return s.token, nil
}

// invalidateToken drops the cached token if it still matches the one a call
// just failed with, so the next attempt refreshes.
func (s *DropboxStorage) invalidateToken(stale string) {
	s.mu.Lock()
	if s.token == stale {
		s.token = ""
	}
	s.mu.Unlock()
}

// apiPost sends a JSON RPC call to the api host and decodes the response.
// An expired access token (401) is refreshed and the call retried once.
func (s *DropboxStorage) apiPost(ctx context.Context, op, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &BackendError{Backend: "dropbox", Op: op, Err: err}
	}

	for attempt := 0; ; attempt++ {
		token, err := s.accessToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIBase+path,
			bytes.NewReader(payload))
		if err != nil {
			return &BackendError{Backend: "dropbox", Op: op, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return &BackendError{Backend: "dropbox", Op: op, Err: err}
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			s.invalidateToken(token)
			continue
		}

		err = decodeAPIResponse(resp, op, out)
		resp.Body.Close()
		return err
	}
}

func decodeAPIResponse(resp *http.Response, op string, out any) error {
	if resp.StatusCode == http.StatusConflict {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(resp.Body)
		return &BackendError{Backend: "dropbox", Op: op,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, text)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &BackendError{Backend: "dropbox", Op: op, Err: err}
	}
	return nil
}

type dropboxEntry struct {
	Tag         string `json:".tag"`
	PathDisplay string `json:"path_display"`
}

type dropboxListResult struct {
	Entries []dropboxEntry `json:"entries"`
	Cursor  string         `json:"cursor"`
	HasMore bool           `json:"has_more"`
}

// ListPhotos lists image files under the configured root, recursively,
// following list_folder/continue pagination.
func (s *DropboxStorage) ListPhotos(ctx context.Context) ([]string, error) {
	var result dropboxListResult
	err := s.apiPost(ctx, "list", "/2/files/list_folder",
		map[string]any{"path": s.basePath, "recursive": true}, &result)
	if err != nil {
		return nil, err
	}

	keys := collectImageKeys(nil, result.Entries)
	for result.HasMore {
		var next dropboxListResult
		err := s.apiPost(ctx, "list", "/2/files/list_folder/continue",
			map[string]any{"cursor": result.Cursor}, &next)
		if err != nil {
			return nil, err
		}
		keys = collectImageKeys(keys, next.Entries)
		result = next
	}
	return keys, nil
}

func collectImageKeys(keys []string, entries []dropboxEntry) []string {
	for _, entry := range entries {
		if entry.Tag != "file" || !IsImageKey(entry.PathDisplay) {
			continue
		}
		keys = append(keys, strings.TrimPrefix(entry.PathDisplay, "/"))
	}
	return keys
}

// contentPost sends a content-endpoint call (download/upload style, with the
// JSON arg in the Dropbox-API-Arg header). Like apiPost it refreshes and
// retries once when the access token has expired.
func (s *DropboxStorage) contentPost(ctx context.Context, op, path string, arg any, body []byte) ([]byte, error) {
	argJSON, err := json.Marshal(arg)
	if err != nil {
		return nil, &BackendError{Backend: "dropbox", Op: op, Err: err}
	}

	for attempt := 0; ; attempt++ {
		token, err := s.accessToken(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ContentBase+path,
			bytes.NewReader(body))
		if err != nil {
			return nil, &BackendError{Backend: "dropbox", Op: op, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Dropbox-API-Arg", string(argJSON))
		if body != nil {
			req.Header.Set("Content-Type", "application/octet-stream")
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, &BackendError{Backend: "dropbox", Op: op, Err: err}
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			s.invalidateToken(token)
			continue
		}

		data, err := readContentResponse(resp, op)
		resp.Body.Close()
		return data, err
	}
}

func readContentResponse(resp *http.Response, op string) ([]byte, error) {
	if resp.StatusCode == http.StatusConflict {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(resp.Body)
		return nil, &BackendError{Backend: "dropbox", Op: op,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, text)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BackendError{Backend: "dropbox", Op: op, Err: err}
	}
	return data, nil
}

func (s *DropboxStorage) GetPhoto(ctx context.Context, key string) ([]byte, error) {
	return s.contentPost(ctx, "download", "/2/files/download",
		map[string]string{"path": "/" + key}, nil)
}

func (s *DropboxStorage) SavePhoto(ctx context.Context, key string, data []byte) (string, error) {
	path := "/" + key
	_, err := s.contentPost(ctx, "upload", "/2/files/upload",
		map[string]any{"path": path, "mode": "overwrite"}, data)
	if err != nil {
		return "", err
	}
	return path, nil
}

func (s *DropboxStorage) DeletePhoto(ctx context.Context, key string) error {
	return s.apiPost(ctx, "delete", "/2/files/delete_v2",
		map[string]string{"path": "/" + key}, nil)
}

// propertyTemplateID resolves the PhotoTags property template id, caching it
// after the first lookup. Resolution runs outside the lock since apiPost
// takes it for the token.
func (s *DropboxStorage) propertyTemplateID(ctx context.Context) (string, error) {
	s.mu.Lock()
	id := s.templateID
	s.mu.Unlock()
	if id != "" {
		return id, nil
	}

	var listed struct {
		TemplateIDs []string `json:"template_ids"`
	}
	err := s.apiPost(ctx, "caption", "/2/file_properties/templates/list_for_user",
		map[string]any{}, &listed)
	if err != nil {
		return "", err
	}
	for _, id := range listed.TemplateIDs {
		var tmpl struct {
			Name string `json:"name"`
		}
		err := s.apiPost(ctx, "caption", "/2/file_properties/templates/get_for_user",
			map[string]string{"template_id": id}, &tmpl)
		if err != nil {
			return "", err
		}
		if tmpl.Name == captionTemplateName {
			s.mu.Lock()
			s.templateID = id
			s.mu.Unlock()
			return id, nil
		}
	}
	return "", &BackendError{Backend: "dropbox", Op: "caption",
		Err: fmt.Errorf("property template %q not found", captionTemplateName)}
}

// GetCaption reads the caption property attached to a stored photo.
// ErrNotFound means the file has no caption (or no property group).
func (s *DropboxStorage) GetCaption(ctx context.Context, key string) (string, error) {
	templateID, err := s.propertyTemplateID(ctx)
	if err != nil {
		return "", err
	}

	var meta struct {
		PropertyGroups []struct {
			TemplateID string `json:"template_id"`
			Fields     []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"property_groups"`
	}
	err = s.apiPost(ctx, "caption", "/2/files/get_metadata",
		map[string]any{
			"path":                    "/" + key,
			"include_property_groups": map[string]any{".tag": "filter_some", "filter_some": []string{templateID}},
		}, &meta)
	if err != nil {
		return "", err
	}

	for _, group := range meta.PropertyGroups {
		if group.TemplateID != templateID {
			continue
		}
		for _, field := range group.Fields {
			if field.Name == captionFieldName {
				return field.Value, nil
			}
		}
	}
	return "", ErrNotFound
}

// SetCaption writes the caption property, adding the group when the file
// does not carry one yet.
func (s *DropboxStorage) SetCaption(ctx context.Context, key, caption string) error {
	templateID, err := s.propertyTemplateID(ctx)
	if err != nil {
		return err
	}

	group := map[string]any{
		"template_id": templateID,
		"fields": []map[string]string{
			{"name": captionFieldName, "value": caption},
		},
	}
	body := map[string]any{"path": "/" + key, "property_groups": []any{group}}

	err = s.apiPost(ctx, "caption", "/2/file_properties/properties/overwrite", body, nil)
	if errors.Is(err, ErrNotFound) {
		return s.apiPost(ctx, "caption", "/2/file_properties/properties/add", body, nil)
	}
	return err
}

func (s *DropboxStorage) DeleteCaption(ctx context.Context, key string) error {
	templateID, err := s.propertyTemplateID(ctx)
	if err != nil {
		return err
	}
	return s.apiPost(ctx, "caption", "/2/file_properties/properties/remove",
		map[string]any{"path": "/" + key, "property_template_ids": []string{templateID}}, nil)
}

var (
	_ PhotoStorage = (*DropboxStorage)(nil)
	_ CaptionStore = (*DropboxStorage)(nil)
)
