package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxDownloadSize caps the number of bytes read from a remote photo.
const maxDownloadSize = 32 << 20

// NormalizeURL completes protocol-relative URLs ("//host/path") with the https scheme.
func NormalizeURL(uri string) string {
	uri = strings.TrimSpace(uri)
	if strings.HasPrefix(uri, "//") {
		return "https:" + uri
	}
	return uri
}

// IsValidUrl tests a string to determine if it is a well-structured url or not.
func IsValidUrl(uri string) bool {
	_, err := url.ParseRequestURI(uri)
	if err != nil {
		return false
	}

	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	return true
}

// DownloadImage retrieves the remote image and returns its raw bytes together with the
// sniffed content type. The request is bound to ctx, so the caller controls the timeout.
func DownloadImage(ctx context.Context, client *http.Client, uri string) ([]byte, string, error) {
	uri = NormalizeURL(uri)
	if !IsValidUrl(uri) {
		return nil, "", fmt.Errorf("invalid image URI: %q", uri)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("unable to build request for URI %s: %w", uri, err)
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("unable to download image file from URI: %s: %w", uri, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unable to download image file from URI: %s, status %v", uri, res.Status)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxDownloadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("unable to read response body: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, "", fmt.Errorf("the downloaded file exceeds %d bytes", maxDownloadSize)
	}

	ctype := DetectContentType(data)
	if !strings.HasPrefix(ctype, "image/") {
		return nil, "", fmt.Errorf("the downloaded file is not a valid image type: %s", ctype)
	}

	return data, ctype, nil
}

// DetectContentType sniffs the MIME type from the first 512 bytes of data.
// It always returns a valid content-type and "application/octet-stream" if no others seemed to match.
func DetectContentType(data []byte) string {
	if len(data) > 512 {
		data = data[:512]
	}
	return http.DetectContentType(data)
}

// ExtensionFor maps a sniffed image content type to a file extension.
func ExtensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/webp":
		return ".webp"
	default:
		return ".img"
	}
}
