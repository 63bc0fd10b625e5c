package fuzzsplit

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Target is what ffuf fuzzes: either a saved raw request file or a URL containing the FUZZ keyword.
type Target struct {
	RequestFile string
	URL         string
}

// Flag returns the ffuf flag and value that select this target.
func (t Target) Flag() (string, string) {
	if t.RequestFile != "" {
		return "-request", t.RequestFile
	}
	return "-u", t.URL
}

// Config holds all runner configuration.
type Config struct {
	Target   Target
	Wordlist string
	// Time and Rate are kept as the strings the user typed; Rate is forwarded to ffuf verbatim.
	Time string
	Rate string

	// JWTURL enables a token fetch before every partition when set.
	JWTURL string
	Tokens *TokenFetcher
	// ReuseToken fetches the token once and sends it with every partition.
	ReuseToken bool

	OutputDir string
	ExtraArgs []string

	// Ledger is optional. ResumeRunID needs it.
	Ledger      *Ledger
	ResumeRunID string

	Splitter  Splitter
	Engine    Engine
	Listeners []Listener
	Logger    *logrus.Logger
}

// Validate checks the fields that must be set before a run can start.
// A nil Logger is replaced with logrus' standard logger.
func (c *Config) Validate() error {
	if c.Target.RequestFile == "" && c.Target.URL == "" {
		return errors.New("one of request file or url is required")
	}
	if c.Target.RequestFile != "" && c.Target.URL != "" {
		return errors.New("request file and url are mutually exclusive")
	}
	if c.Target.RequestFile != "" {
		if err := CheckRequestFile(c.Target.RequestFile); err != nil {
			return fmt.Errorf("invalid request file %s: %w", c.Target.RequestFile, err)
		}
	}
	if c.Wordlist == "" {
		return errors.New("wordlist is required")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if _, err := c.minutes(); err != nil {
		return err
	}
	if _, err := c.requestsPerSecond(); err != nil {
		return err
	}
	if c.JWTURL != "" {
		if c.Tokens == nil || c.Tokens.CookieFile == "" {
			return errors.New("jwt url needs a cookie file")
		}
		if c.Tokens.Retries < 0 {
			return fmt.Errorf("token retries must not be negative, got %d", c.Tokens.Retries)
		}
	}
	if c.ResumeRunID != "" && c.Ledger == nil {
		return errors.New("resuming a run needs a ledger")
	}
	if c.Splitter == nil || c.Engine == nil {
		return errors.New("splitter and engine are required")
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return nil
}

func (c *Config) minutes() (int, error) {
	return parsePositive("time", c.Time)
}

func (c *Config) requestsPerSecond() (int, error) {
	return parsePositive("rate", c.Rate)
}

func parsePositive(name, value string) (int, error) {
	n, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, value)
	}
	return int(n), nil
}
