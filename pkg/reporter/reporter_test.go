package reporter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Philogy/create3crunch/pkg/types"
)

func testMatch() types.MatchResult {
	var res types.MatchResult
	for i := range res.Salt {
		res.Salt[i] = byte(i)
	}
	for i := range res.Address {
		res.Address[i] = byte(0xa0 + i)
	}
	res.Nonce = 3
	res.PatternIndex = 1
	res.ZeroBytes = 2
	return res
}

func TestFormatMatch(t *testing.T) {
	line := FormatMatch(testMatch())
	if !strings.HasPrefix(line, "0x000102") {
		t.Errorf("line does not start with salt hex: %s", line)
	}
	if !strings.Contains(line, "(3)") {
		t.Errorf("line does not carry the nonce: %s", line)
	}
	if !strings.HasSuffix(line, "=> 2") {
		t.Errorf("line does not end with the zero-byte count: %s", line)
	}
}

func TestFileReporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "found.txt")
	r, err := NewFileReporter(path)
	if err != nil {
		t.Fatalf("NewFileReporter() error: %v", err)
	}

	match := testMatch()
	if err := r.Deliver(match); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if err := r.Deliver(match); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output file: %v", err)
	}
	want := FormatMatch(match) + "\n" + FormatMatch(match) + "\n"
	if string(content) != want {
		t.Errorf("file content = %q, want %q", content, want)
	}
}

func TestHTTPReporter(t *testing.T) {
	var got postData
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	match := testMatch()
	r := NewHTTPReporter(srv.URL)
	if err := r.Deliver(match); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if got.Nonce != 3 || got.Total != 2 || got.Pattern != 1 {
		t.Errorf("posted data = %+v", got)
	}
	if !strings.HasPrefix(got.Salt, "0x") || len(got.Salt) != 66 {
		t.Errorf("posted salt = %q", got.Salt)
	}
	if !strings.HasPrefix(got.Address, "0x") || len(got.Address) != 42 {
		t.Errorf("posted address = %q", got.Address)
	}
}

func TestHTTPReporterBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := NewHTTPReporter(srv.URL).Deliver(testMatch()); err == nil {
		t.Error("Deliver() to failing endpoint should return an error")
	}
}

type collectReporter struct {
	matches []types.MatchResult
}

func (c *collectReporter) Deliver(res types.MatchResult) error {
	c.matches = append(c.matches, res)
	return nil
}

func (c *collectReporter) Close() error { return nil }

type failReporter struct{}

func (failReporter) Deliver(types.MatchResult) error { return errors.New("delivery refused") }
func (failReporter) Close() error                    { return nil }

func TestMultiDeliversToAllDespiteFailure(t *testing.T) {
	collect := &collectReporter{}
	m := NewMulti(failReporter{}, collect)

	err := m.Deliver(testMatch())
	if err == nil {
		t.Error("Deliver() should surface the failing member's error")
	}
	if len(collect.matches) != 1 {
		t.Errorf("working member got %d matches, want 1", len(collect.matches))
	}
}
