// Package translate turns Hebrew text into English: a client for the
// Microsoft Translator Text API plus a run-scoped dictionary cache backed by
// the warehouse.
//
// Translator Text REST API documentation:
// https://learn.microsoft.com/en-us/azure/ai-services/translator/reference/rest-api-guide
package translate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Client calls the Translator API, one text per request.
type Client struct {
	endpoint   string
	key        string
	location   string
	sourceLang string
	targetLang string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a Client translating Hebrew to English. The underlying
// HTTP client retries transport failures; a failure response still reaches
// the caller and aborts the run.
func NewClient(endpoint, key, location string, log zerolog.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.Logger = nil
	retryClient.HTTPClient = &http.Client{
		Timeout: 60 * time.Second,
	}
	return &Client{
		endpoint:   endpoint,
		key:        key,
		location:   location,
		sourceLang: "he",
		targetLang: "en",
		httpClient: retryClient.StandardClient(),
		log:        log,
	}
}

type translationResponse []struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

// Translate returns the translation of text, or an empty string when the
// service reports none.
func (c *Client) Translate(text string) (string, error) {
	if c.key == "" {
		return "", fmt.Errorf("translator key is not configured")
	}

	req, err := c.prepareRequest(text)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation service returned %s", resp.Status)
	}

	var body translationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode translation response: %w", err)
	}
	if len(body) == 0 || len(body[0].Translations) == 0 {
		return "", nil
	}
	return body[0].Translations[0].Text, nil
}

func (c *Client) prepareRequest(text string) (*http.Request, error) {
	params := url.Values{}
	params.Set("api-version", "3.0")
	params.Set("from", c.sourceLang)
	params.Set("to", c.targetLang)
	uri := c.endpoint + "/translate?" + params.Encode()

	payload, err := json.Marshal([]map[string]string{{"text": text}})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, uri, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Ocp-Apim-Subscription-Region", c.location)
	req.Header.Set("Content-type", "application/json")
	req.Header.Set("X-ClientTraceId", uuid.New().String())
	return req, nil
}
