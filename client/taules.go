// client is a small hand-written consumer of the taules HTTP API. It speaks
// the 3.0.0 dialect exclusively.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	headerApiVersion = "ZUMO-API-VERSION"
	apiVersion       = "3.0.0"

	headerIfMatch       = "If-Match"
	headerAuthorization = "Authorization"
)

// Config describes how to reach a taules server. The tags let applications
// embed it in their own viper-read config files.
type Config struct {
	// Address is the host and port of the server.
	Address string `json:"address" mapstructure:"address"`
	// Scheme defaults to http.
	Scheme *string `json:"scheme,omitempty" mapstructure:"scheme"`
	// BasePath defaults to /.
	BasePath *string `json:"base_path,omitempty" mapstructure:"base_path"`
	// Timeout bounds each request; zero means no bound.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	BasicAuth   *BasicAuthUser `json:"basic_auth,omitempty" mapstructure:"basic_auth"`
	BearerToken *string        `json:"bearer_token,omitempty" mapstructure:"bearer_token"`
}

type BasicAuthUser struct {
	Name     string `json:"name" mapstructure:"name"`
	Password string `json:"password" mapstructure:"password"`
}

// Taules is a client for one taules server. It is safe for concurrent use.
type Taules struct {
	baseURL    url.URL
	authHeader string
	httpClient *http.Client
}

// New builds a client from config.
func New(conf Config) *Taules {
	scheme := "http"
	if conf.Scheme != nil {
		scheme = *conf.Scheme
	}
	basePath := "/"
	if conf.BasePath != nil {
		basePath = *conf.BasePath
	}
	authHeader := ""
	if conf.BasicAuth != nil {
		creds := fmt.Sprintf("%s:%s", conf.BasicAuth.Name, conf.BasicAuth.Password)
		authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
	} else if conf.BearerToken != nil {
		authHeader = "Bearer " + *conf.BearerToken
	}
	return &Taules{
		baseURL: url.URL{
			Scheme: scheme,
			Host:   conf.Address,
			Path:   basePath,
		},
		authHeader: authHeader,
		httpClient: &http.Client{Timeout: conf.Timeout},
	}
}

// Table returns a handle on one named table.
func (t *Taules) Table(name string) *Table {
	return &Table{name: name, client: t}
}

func (t *Taules) buildURL(path string, query url.Values) url.URL {
	u := t.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u
}

// linkURL rebases a server-relative link (as found in nextLink) onto the
// configured scheme and host.
func (t *Taules) linkURL(link string) (url.URL, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return url.URL{}, fmt.Errorf("bad link [%s]: %w", link, err)
	}
	u := t.baseURL
	u.Path = parsed.Path
	u.RawQuery = parsed.RawQuery
	return u, nil
}

func (t *Taules) do(ctx context.Context, method string, u url.URL, body interface{}, ifMatch string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerApiVersion, apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.authHeader != "" {
		req.Header.Set(headerAuthorization, t.authHeader)
	}
	if ifMatch != "" {
		req.Header.Set(headerIfMatch, fmt.Sprintf("%q", ifMatch))
	}
	return t.httpClient.Do(req)
}

// parseResponse drains the response, mapping non-expected statuses to
// errors. A nil out discards the body.
func parseResponse(resp *http.Response, expected int, out interface{}) error {
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != expected {
		return errorFromResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(ioutil.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
