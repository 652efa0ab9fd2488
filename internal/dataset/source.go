package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Source opens the dataset for a single read.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// NewSource picks a file or HTTP source based on the location's scheme.
func NewSource(location string) Source {
	loc := strings.TrimSpace(location)
	lower := strings.ToLower(loc)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return &HTTPSource{URL: loc}
	}
	return FileSource(loc)
}

type FileSource string

func (f FileSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(string(f))
}

func (f FileSource) String() string { return string(f) }

type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (h *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s failed status=%d", h.URL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (h *HTTPSource) String() string { return h.URL }
