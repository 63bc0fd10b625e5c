package fuzzsplit

import (
	"bufio"
	"errors"
	"os"
	"strings"
)

// ErrNoCookies is returned when a saved request has no usable Cookie lines.
var ErrNoCookies = errors.New("no cookie values found in request file")

const (
	cookiePrefix = "Cookie"
	// Large cookie jars can push a single header line well past bufio's 64 KiB default.
	maxRequestLine = 8 << 20
)

// CookiesFromFile reads a saved HTTP request and returns the values of its Cookie header lines,
// concatenated in the order they appear. The file does not have to be a well formed request.
func CookiesFromFile(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var values strings.Builder
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxRequestLine)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, cookiePrefix) {
			continue
		}

		_, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		values.WriteString(value)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	cookies := strings.TrimSpace(values.String())
	if cookies == "" {
		return "", ErrNoCookies
	}

	return cookies, nil
}
