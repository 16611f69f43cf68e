package generation

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/edumap/internal/security"
)

// imageMIMEType は添付画像として送信するMIMEタイプ。
const imageMIMEType = "image/jpeg"

// DecodeImage はbase64文字列を画像データに変換する。
// "data:<mime>;base64," 形式の接頭辞は取り除く。
func DecodeImage(encoded string) ([]byte, error) {
	data := strings.TrimSpace(encoded)
	if strings.HasPrefix(data, "data:") {
		_, rest, ok := strings.Cut(data, ",")
		if !ok {
			return nil, fmt.Errorf("%w: data URL without payload", ErrInvalidImage)
		}
		data = rest
	}
	if data == "" {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	return decoded, nil
}

// ImageFetcher は画像URLから画像データを取得する。
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPImageFetcher はSSRF防止機能付きクライアントで画像を取得するImageFetcher。
type HTTPImageFetcher struct {
	guard   security.SSRFGuardService
	client  *http.Client
	maxSize int64
}

// NewHTTPImageFetcher はHTTPImageFetcherを生成する。
func NewHTTPImageFetcher(guard security.SSRFGuardService, timeout time.Duration, maxSize int64) *HTTPImageFetcher {
	return &HTTPImageFetcher{
		guard:   guard,
		client:  guard.NewSafeClient(timeout, maxSize),
		maxSize: maxSize,
	}
}

// Fetch はURLを事前検証した上で画像を取得する。
// 2xx以外の応答、画像以外のContent-Type、サイズ超過はエラーにする。
func (f *HTTPImageFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.guard.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch %s: %v", ErrInvalidImage, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrInvalidImage, rawURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: %s is not an image (%s)", ErrInvalidImage, rawURL, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidImage, rawURL, err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidImage, rawURL, f.maxSize)
	}
	return data, nil
}
