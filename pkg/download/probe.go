package download

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"

	"github.com/rget-dev/rget/pkg/logging"
)

// Task holds what the probe learned about the resource. It is created once
// and shared read-only by every worker.
type Task struct {
	URL           string
	Size          int64
	SupportsRange bool

	// Filename is the server-suggested output name, from Content-Disposition
	// when present, otherwise the URL path base.
	Filename string
}

// Probe issues a HEAD request and reads the size, range-support and filename
// metadata. A missing or non-positive content length is ErrInvalidResponse.
func Probe(ctx context.Context, client *http.Client, urlString string) (*Task, error) {
	logger := logging.GetLogger()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, urlString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe request for %s: %w", urlString, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe request for %s failed: %w", urlString, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("probe of %s: %w", urlString, &HTTPStatusError{StatusCode: resp.StatusCode})
	}

	trueURL := resp.Request.URL.String()
	if trueURL != urlString {
		logger.Info().Str("url", urlString).Str("redirect_url", trueURL).Msg("Redirect")
	}

	if resp.ContentLength <= 0 {
		return nil, fmt.Errorf("probe of %s: %w", urlString, ErrInvalidResponse)
	}

	task := &Task{
		URL:           trueURL,
		Size:          resp.ContentLength,
		SupportsRange: resp.Header.Get("Accept-Ranges") == "bytes",
		Filename:      suggestedFilename(resp),
	}
	logger.Debug().
		Str("url", task.URL).
		Int64("size", task.Size).
		Bool("supports_range", task.SupportsRange).
		Str("filename", task.Filename).
		Msg("Probe")
	return task, nil
}

// suggestedFilename derives an output name from the Content-Disposition
// header, falling back to the final URL path. The result is reduced to a bare
// base name so a hostile header cannot point outside the working directory.
func suggestedFilename(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := path.Base(params["filename"]); name != "." && name != "/" && name != "" {
				return name
			}
		}
	}
	return filenameFromURL(resp.Request.URL)
}

func filenameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}
