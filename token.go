package fuzzsplit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrEmptyToken is returned when the token endpoint answers 200 with an empty body.
var ErrEmptyToken = errors.New("jwt response returned empty")

// StatusError is returned when the token endpoint answers with anything but 200.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jwt response returned %d, expected 200", e.StatusCode)
}

// TokenFetcher fetches bearer tokens from an endpoint that hands them out to an authenticated session.
// The session is the set of cookies saved in CookieFile.
type TokenFetcher struct {
	Client     *Client
	CookieFile string
	// Retries is how many extra attempts are made after a failed fetch.
	Retries int
	// Limiter spaces out attempts against the token endpoint. A nil Limiter never waits.
	Limiter *rate.Limiter
	Logger  *logrus.Logger
}

// Fetch makes a single attempt at getting a token from url.
func (t *TokenFetcher) Fetch(ctx context.Context, url string) (string, error) {
	cookies, err := CookiesFromFile(t.CookieFile)
	if err != nil {
		return "", err
	}

	resp, err := t.Client.Get(ctx, url, map[string]string{"Cookie": cookies})
	if err != nil {
		return "", fmt.Errorf("requesting jwt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading jwt response: %w", err)
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// FetchWithRetry calls Fetch until it succeeds or Retries extra attempts have failed.
// A missing cookie file or one without cookies is not retried.
func (t *TokenFetcher) FetchWithRetry(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= t.Retries; attempt++ {
		if t.Limiter != nil {
			if err := t.Limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		token, err := t.Fetch(ctx, url)
		if err == nil {
			return token, nil
		}
		if errors.Is(err, ErrNoCookies) || errors.Is(err, context.Canceled) || isPathError(err) {
			return "", err
		}

		lastErr = err
		if t.Logger != nil && attempt < t.Retries {
			t.Logger.WithFields(logrus.Fields{"attempt": attempt + 1, "err": err}).Warn("Token fetch failed, retrying")
		}
	}

	return "", fmt.Errorf("fetching jwt after %d attempts: %w", t.Retries+1, lastErr)
}

// NewTokenLimiter returns a limiter allowing one token request per interval.
func NewTokenLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func isPathError(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}
