package treasury

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNoDetail is returned when the fiscal API has no record for a security.
var ErrNoDetail = errors.New("security detail not found")

// SecurityDetail is the subset of the fiscal API security record we use.
type SecurityDetail struct {
	CUSIP        string `json:"cusip"`
	IssueDate    string `json:"issueDate"`
	SecurityType string `json:"securityType"`
	SecurityTerm string `json:"securityTerm"`
	MaturityDate string `json:"maturityDate"`
	InterestRate string `json:"interestRate"`
	CorpusCUSIP  string `json:"corpusCusip"`
}

// FiscalClient queries the Treasury marketable securities API.
type FiscalClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewFiscalClient creates a fiscal API client.
func NewFiscalClient(baseURL, clientID, clientSecret string, opts ...Option) *FiscalClient {
	o := newOptions(opts)
	return &FiscalClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   o.httpClient,
		logger:       o.logger,
	}
}

// SecurityDetail fetches the record for cusip issued on issue.
func (c *FiscalClient) SecurityDetail(ctx context.Context, cusip string, issue time.Time) (*SecurityDetail, error) {
	url := c.baseURL + "/" + cusip + "/" + issue.Format("01/02/2006")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("client_id", c.clientID)
	req.Header.Set("client_secret", c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("security detail %s: %w", cusip, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read security detail %s: %w", cusip, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("security detail %s: %w", cusip, ErrNoDetail)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("security detail %s: unexpected status %d", cusip, resp.StatusCode)
	}

	return decodeDetail(cusip, body)
}

// decodeDetail accepts either a single record or a list of records.
func decodeDetail(cusip string, body []byte) (*SecurityDetail, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var list []SecurityDetail
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("unmarshal security detail %s: %w", cusip, err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("security detail %s: %w", cusip, ErrNoDetail)
		}
		return &list[0], nil
	}

	var d SecurityDetail
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("unmarshal security detail %s: %w", cusip, err)
	}
	return &d, nil
}
