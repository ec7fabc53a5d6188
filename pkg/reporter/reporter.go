// Package reporter delivers mined matches to their destinations: an
// append-only results file, an optional HTTP endpoint, and the log.
// Delivery failures are the caller's to log; the mining loop treats them
// as non-fatal.
package reporter

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Philogy/create3crunch/internal/crypto"
	"github.com/Philogy/create3crunch/internal/logger"
	"github.com/Philogy/create3crunch/pkg/types"
)

// Reporter persists or transmits a single match. Implementations decide
// how; the core only sees success or failure.
type Reporter interface {
	Deliver(res types.MatchResult) error
	Close() error
}

// FormatMatch renders a match as the canonical result line:
// 0x<salt> (<nonce>) => <checksummed address> => <zero bytes>.
func FormatMatch(res types.MatchResult) string {
	return fmt.Sprintf("0x%s (%d) => %s => %d",
		hex.EncodeToString(res.Salt[:]),
		res.Nonce,
		crypto.AddressBytesToChecksumString(res.Address[:]),
		res.ZeroBytes,
	)
}

// FileReporter appends one result line per match to a file.
type FileReporter struct {
	f *os.File
}

// NewFileReporter opens (creating if necessary) the output file for append.
func NewFileReporter(path string) (*FileReporter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("reporter: opening output file: %w", err)
	}
	return &FileReporter{f: f}, nil
}

// Deliver appends the match to the file.
func (r *FileReporter) Deliver(res types.MatchResult) error {
	if _, err := fmt.Fprintln(r.f, FormatMatch(res)); err != nil {
		return fmt.Errorf("reporter: writing match: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (r *FileReporter) Close() error { return r.f.Close() }

// postData is the JSON body POSTed for each match.
type postData struct {
	Salt    string `json:"salt"`
	Nonce   uint64 `json:"nonce"`
	Address string `json:"address"`
	Total   int    `json:"total"`
	Pattern int    `json:"pattern"`
}

// HTTPReporter POSTs each match as JSON to a configured URL.
type HTTPReporter struct {
	url    string
	client *http.Client
}

// NewHTTPReporter creates a reporter POSTing to url.
func NewHTTPReporter(url string) *HTTPReporter {
	return &HTTPReporter{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Deliver POSTs the match. Any non-2xx response is an error.
func (r *HTTPReporter) Deliver(res types.MatchResult) error {
	body, err := json.Marshal(postData{
		Salt:    "0x" + hex.EncodeToString(res.Salt[:]),
		Nonce:   res.Nonce,
		Address: crypto.AddressBytesToChecksumString(res.Address[:]),
		Total:   res.ZeroBytes,
		Pattern: res.PatternIndex,
	})
	if err != nil {
		return fmt.Errorf("reporter: encoding match: %w", err)
	}
	resp, err := r.client.Post(r.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("reporter: posting match: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("reporter: posting match: unexpected status %s", resp.Status)
	}
	return nil
}

// Close is a no-op for the HTTP reporter.
func (r *HTTPReporter) Close() error { return nil }

// LogReporter writes each match to the logger.
type LogReporter struct {
	log *logger.Logger
}

// NewLogReporter creates a reporter logging each match at info level.
func NewLogReporter(log *logger.Logger) *LogReporter {
	return &LogReporter{log: log}
}

// Deliver logs the match.
func (r *LogReporter) Deliver(res types.MatchResult) error {
	r.log.Infof("found %s", FormatMatch(res))
	return nil
}

// Close is a no-op for the log reporter.
func (r *LogReporter) Close() error { return nil }

// Multi fans a match out to several reporters. Deliver returns the joined
// errors of the failing members; the others still receive the match.
type Multi struct {
	reporters []Reporter
}

// NewMulti combines the given reporters.
func NewMulti(reporters ...Reporter) *Multi {
	return &Multi{reporters: reporters}
}

// Deliver hands the match to every member.
func (m *Multi) Deliver(res types.MatchResult) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Deliver(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every member.
func (m *Multi) Close() error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
