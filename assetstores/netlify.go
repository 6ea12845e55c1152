package assetstores

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/pkg/errors"
)

const netlifyAPIURL = "https://api.netlify.com/api/v1"

type netlifyProvider struct {
	client *http.Client
	token  string
}

type netlifySignature struct {
	URL string `json:"url"`
}

var assetURLRegexp = regexp.MustCompile(`cloud.netlifyusercontent.com/assets/([^/]+)/([^/]+)/`)

func newNetlifyProvider(token string) (*netlifyProvider, error) {
	if token == "" {
		return nil, errors.New("No access token configured for Netlify")
	}

	return &netlifyProvider{
		client: &http.Client{Timeout: 10 * time.Second},
		token:  token,
	}, nil
}

// SignURL exchanges a hosted asset key for a signed, expiring URL.
func (n *netlifyProvider) SignURL(key string) (string, error) {
	matches := assetURLRegexp.FindStringSubmatch(key)
	if len(matches) != 3 {
		return "", errors.New("file key didn't match a hosted asset URL")
	}

	apiURL := netlifyAPIURL + "/sites/" + matches[1] + "/assets/" + matches[2] + "/public_signature"
	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Add("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("signing request failed with status %d", resp.StatusCode)
	}

	signature := &netlifySignature{}
	if err := json.NewDecoder(resp.Body).Decode(signature); err != nil {
		return "", err
	}

	return signature.URL, nil
}
