package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"captioner-backend/internal/config"

	"github.com/spf13/cobra"
)

const (
	authorizeURL = "https://www.dropbox.com/oauth2/authorize"
	tokenURL     = "https://api.dropbox.com/oauth2/token"
	apiBase      = "https://api.dropboxapi.com"

	templateName        = "PhotoTags"
	templateDescription = "Stores photo captions for the Captioner app."
)

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	root := &cobra.Command{
		Use:   "dropbox-setup",
		Short: "One-time Dropbox provisioning for the Captioner backend",
	}
	root.AddCommand(refreshTokenCommand())
	root.AddCommand(createTemplateCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// refreshTokenCommand walks the OAuth2 authorization-code flow and prints
// the long-lived refresh token for .env.
func refreshTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-token",
		Short: "Obtain a Dropbox OAuth2 refresh token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DropboxAppKey == "" || cfg.DropboxAppSecret == "" {
				return fmt.Errorf("DROPBOX_APP_KEY and DROPBOX_APP_SECRET must be set")
			}

			query := url.Values{
				"client_id":         {cfg.DropboxAppKey},
				"response_type":     {"code"},
				"token_access_type": {"offline"},
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Open this URL in a browser and authorize the app:\n\n  %s?%s\n\n",
				authorizeURL, query.Encode())
			fmt.Fprint(cmd.OutOrStdout(), "Paste the authorization code: ")

			reader := bufio.NewReader(cmd.InOrStdin())
			code, err := reader.ReadString('\n')
			if err != nil && err != io.EOF {
				return fmt.Errorf("read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			form := url.Values{
				"grant_type":    {"authorization_code"},
				"code":          {code},
				"client_id":     {cfg.DropboxAppKey},
				"client_secret": {cfg.DropboxAppSecret},
			}
			resp, err := client.PostForm(tokenURL, form)
			if err != nil {
				return fmt.Errorf("exchange code: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("exchange code: status %d: %s", resp.StatusCode, body)
			}

			var payload struct {
				RefreshToken string `json:"refresh_token"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return fmt.Errorf("decode token response: %w", err)
			}
			if payload.RefreshToken == "" {
				return fmt.Errorf("no refresh token in response")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nDROPBOX_REFRESH_TOKEN=%s\n", payload.RefreshToken)
			return nil
		},
	}
}

// createTemplateCommand creates the PhotoTags file-properties template used
// to store captions. Idempotent: an existing template of the same name is
// left alone.
func createTemplateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create-template",
		Short: "Create the PhotoTags property template",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := accessToken(cfg)
			if err != nil {
				return err
			}

			exists, err := templateExists(token)
			if err != nil {
				return err
			}
			if exists {
				fmt.Fprintf(cmd.OutOrStdout(), "Template %q already exists, nothing to do.\n", templateName)
				return nil
			}

			body := map[string]any{
				"name":        templateName,
				"description": templateDescription,
				"fields": []map[string]string{
					{"name": "caption", "description": "Caption for this photo.", "type": "string"},
				},
			}
			var created struct {
				TemplateID string `json:"template_id"`
			}
			if err := apiPost(token, "/2/file_properties/templates/add_for_user", body, &created); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created template %q (%s)\n", templateName, created.TemplateID)
			return nil
		},
	}
}

func accessToken(cfg *config.Config) (string, error) {
	if cfg.DropboxAppKey == "" || cfg.DropboxAppSecret == "" || cfg.DropboxRefreshToken == "" {
		return "", fmt.Errorf("DROPBOX_APP_KEY, DROPBOX_APP_SECRET and DROPBOX_REFRESH_TOKEN must be set")
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cfg.DropboxRefreshToken},
		"client_id":     {cfg.DropboxAppKey},
		"client_secret": {cfg.DropboxAppSecret},
	}
	resp, err := client.PostForm(tokenURL, form)
	if err != nil {
		return "", fmt.Errorf("obtain access token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("obtain access token: status %d: %s", resp.StatusCode, body)
	}
	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("no access token in response")
	}
	return payload.AccessToken, nil
}

func templateExists(token string) (bool, error) {
	var listed struct {
		TemplateIDs []string `json:"template_ids"`
	}
	if err := apiPost(token, "/2/file_properties/templates/list_for_user", map[string]any{}, &listed); err != nil {
		return false, err
	}
	for _, id := range listed.TemplateIDs {
		var tmpl struct {
			Name string `json:"name"`
		}
		if err := apiPost(token, "/2/file_properties/templates/get_for_user", map[string]string{"template_id": id}, &tmpl); err != nil {
			return false, err
		}
		if tmpl.Name == templateName {
			return true, nil
		}
	}
	return false, nil
}

func apiPost(token, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, apiBase+path, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("dropbox api %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("dropbox api %s: status %d: %s", path, resp.StatusCode, text)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
