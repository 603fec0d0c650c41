package download

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

const probeURL = "http://example.com/path/file.bin"

func headResponder(status int, contentLength int64, header http.Header) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(status, "")
		resp.ContentLength = contentLength
		for k, vs := range header {
			for _, v := range vs {
				resp.Header.Add(k, v)
			}
		}
		resp.Request = req
		return resp, nil
	}
}

func TestProbeReadsSizeAndRangeSupport(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodHead, probeURL,
		headResponder(http.StatusOK, 10485760, http.Header{"Accept-Ranges": []string{"bytes"}}))

	task, err := Probe(context.Background(), client, probeURL)
	require.NoError(t, err)
	assert.EqualValues(t, 10485760, task.Size)
	assert.True(t, task.SupportsRange)
	assert.Equal(t, "file.bin", task.Filename)
}

func TestProbeNoAcceptRanges(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodHead, probeURL,
		headResponder(http.StatusOK, 1024, nil))

	task, err := Probe(context.Background(), client, probeURL)
	require.NoError(t, err)
	assert.False(t, task.SupportsRange)
}

func TestProbeMissingContentLength(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	for _, contentLength := range []int64{0, -1} {
		httpmock.RegisterResponder(http.MethodHead, probeURL,
			headResponder(http.StatusOK, contentLength, http.Header{"Accept-Ranges": []string{"bytes"}}))

		_, err := Probe(context.Background(), client, probeURL)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	}
}

func TestProbeNonSuccessStatus(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodHead, probeURL,
		headResponder(http.StatusNotFound, 0, nil))

	_, err := Probe(context.Background(), client, probeURL)
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestProbeFilenameFromContentDisposition(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	testCases := []struct {
		name        string
		disposition string
		expected    string
	}{
		{"quoted filename", `attachment; filename="data.tar.gz"`, "data.tar.gz"},
		{"bare filename", `attachment; filename=report.pdf`, "report.pdf"},
		{"traversal stripped to base name", `attachment; filename="../../etc/passwd"`, "passwd"},
		{"unparseable falls back to url", `;;;`, "file.bin"},
		{"empty filename falls back to url", `attachment; filename=""`, "file.bin"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			httpmock.RegisterResponder(http.MethodHead, probeURL,
				headResponder(http.StatusOK, 1024, http.Header{"Content-Disposition": []string{tc.disposition}}))

			task, err := Probe(context.Background(), client, probeURL)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, task.Filename)
		})
	}
}

func TestProbeFilenameFallsBackForBareHost(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodHead, "http://example.com/",
		headResponder(http.StatusOK, 1024, nil))

	task, err := Probe(context.Background(), client, "http://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "download", task.Filename)
}
