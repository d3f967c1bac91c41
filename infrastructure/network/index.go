package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/louskac/VHP/infrastructure/logger"
)

// NetworkController is the outbound HTTP client used by all remote
// collaborator adapters (vision judge, chain gateway).
type NetworkController struct {
	BaseUrl string
	Timeout time.Duration
}

func (nc *NetworkController) client() *http.Client {
	timeout := nc.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (nc *NetworkController) Get(path string, headers *map[string]string) (*[]byte, *int, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s%s", nc.BaseUrl, path), nil)
	if err != nil {
		return nil, nil, err
	}
	return nc.do(req, headers)
}

func (nc *NetworkController) Post(path string, headers *map[string]string, body any) (*[]byte, *int, error) {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		payload = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s%s", nc.BaseUrl, path), payload)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return nc.do(req, headers)
}

func (nc *NetworkController) do(req *http.Request, headers *map[string]string) (*[]byte, *int, error) {
	if headers != nil {
		for key, value := range *headers {
			req.Header.Set(key, value)
		}
	}
	res, err := nc.client().Do(req)
	if err != nil {
		logger.Error("outbound request failed", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "url",
			Data: req.URL.String(),
		})
		return nil, nil, err
	}
	defer res.Body.Close()
	response, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &res.StatusCode, err
	}
	return &response, &res.StatusCode, nil
}
