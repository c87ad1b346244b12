package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/kuratuapp/liquidationblitz/pkg/errors"
)

// Gotenberg converts HTML documents to PDF through a Gotenberg service.
type Gotenberg struct {
	baseURL    string
	httpClient *http.Client
}

func NewGotenberg(baseURL string, timeout time.Duration) *Gotenberg {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gotenberg{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ping checks whether the remote service is reachable.
func (g *Gotenberg) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "gotenberg: health check")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return errors.New(errors.CodeDependency,
			fmt.Sprintf("gotenberg: health check returned status %d", resp.StatusCode))
	}
	return nil
}

// ConvertHTML renders the document through Chromium. The file must be
// named index.html for Gotenberg to treat it as the entrypoint.
func (g *Gotenberg) ConvertHTML(ctx context.Context, html []byte) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(html); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "gotenberg: convert")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, errors.New(errors.CodeDependency,
			fmt.Sprintf("gotenberg: convert returned status %d", resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}
