// Package history keeps a local, capped log of past scan results.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mitchellh/go-homedir"

	"github.com/had-nu/envpatrol/internal/dotenv"
	"github.com/had-nu/envpatrol/internal/log"
	"github.com/had-nu/envpatrol/internal/scanner"
	"github.com/had-nu/envpatrol/internal/types"
)

const (
	DefaultPath  = "~/.envpatrol/history.jsonl"
	DefaultLimit = 50

	// SampleBytes caps the stored excerpt of the scanned input.
	SampleBytes = 200

	redacted = "[REDACTED]"
)

// Record is one saved scan.
type Record struct {
	Timestamp time.Time       `json:"ts" yaml:"ts"`
	Score     int             `json:"score" yaml:"score"`
	Format    types.Format    `json:"format" yaml:"format"`
	Findings  []types.Finding `json:"findings" yaml:"findings"`
	Sample    string          `json:"sample" yaml:"sample"`
}

// Store is a JSONL file holding at most limit records, oldest first on disk.
type Store struct {
	path     string
	limit    int
	storeRaw bool
	now      func() time.Time
	mu       sync.Mutex
}

type Option func(*Store)

// WithLimit caps the number of kept records. Zero or less selects DefaultLimit.
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithRawSamples keeps samples verbatim instead of masking values.
func WithRawSamples(raw bool) Option {
	return func(s *Store) {
		s.storeRaw = raw
	}
}

// Open returns a Store backed by path. A leading "~" is expanded.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand history path %q: %w", path, err)
	}
	s := &Store{path: expanded, limit: DefaultLimit, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the resolved file location.
func (s *Store) Path() string {
	return s.path
}

// Save records res together with an excerpt of the scanned text and trims
// the log to the configured limit.
func (s *Store) Save(res types.ScanResult, text string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample := text
	if !s.storeRaw {
		sample = redactSample(sample)
	}
	rec := Record{
		Timestamp: s.now().UTC(),
		Score:     res.Score,
		Format:    res.Format,
		Findings:  res.Findings,
		Sample:    truncate(sample, SampleBytes),
	}
	if rec.Findings == nil {
		rec.Findings = []types.Finding{}
	}

	records, err := s.load()
	if err != nil {
		return Record{}, err
	}
	records = append(records, rec)
	if len(records) > s.limit {
		records = records[len(records)-s.limit:]
	}
	if err := s.write(records); err != nil {
		return Record{}, err
	}
	log.Debugf("(history) saved record, %d kept in %s", len(records), s.path)
	return rec, nil
}

// List returns the saved records, newest first. A missing file is an empty
// history.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Clear removes every record.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *Store) load() ([]Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	records := []Record{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Warnf("(history) skipping unreadable record: %v", err)
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return records, nil
}

// write replaces the log atomically. The file holds scan metadata, so it is
// readable by the owner only.
func (s *Store) write(records []Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.jsonl")
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod history file: %w", err)
	}
	enc := json.NewEncoder(tmp)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("write history record: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

var jsonKeyRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"\s*:`)

// redactSample masks assignment values, KEY=VALUE pieces of comments and JSON
// string values so the history never stores the secrets it reported. Lines
// without structure, such as the body of a multi-line key, are masked whole.
func redactSample(text string) string {
	if scanner.DetectFormat(text) == types.FormatJSON {
		return maskJSONStrings(text)
	}

	lines := dotenv.Split(text)
	for i, raw := range lines {
		l := dotenv.Lex(raw)
		switch {
		case l.Kind == dotenv.Comment:
			lines[i] = dotenv.MaskFragments(raw, redacted)
		case jsonKeyRe.MatchString(raw):
			lines[i] = maskJSONStrings(raw)
		case l.Kind == dotenv.Assignment:
			lines[i] = redactAssignment(l)
		case l.Kind == dotenv.Malformed:
			lines[i] = redacted
		}
	}
	return strings.Join(lines, "\n")
}

func redactAssignment(l dotenv.Line) string {
	out := l.RawKey + "="
	if l.Value != "" {
		out += redacted
	}
	if l.HasComment {
		out += " #" + dotenv.MaskFragments(l.Comment, redacted)
	}
	return out
}

// maskJSONStrings replaces every JSON string literal that is not an object
// key. A literal left open at the end of its line is masked to the line end.
func maskJSONStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '"' {
			b.WriteByte(s[i])
			i++
			continue
		}

		end, closed := i+1, false
		for end < len(s) && s[end] != '\n' {
			if s[end] == '\\' {
				end += 2
				continue
			}
			end++
			if s[end-1] == '"' {
				closed = true
				break
			}
		}
		end = min(end, len(s))

		switch {
		case closed && strings.HasPrefix(strings.TrimLeft(s[end:], " \t\r\n"), ":"):
			b.WriteString(s[i:end])
		case closed:
			b.WriteString(`"` + redacted + `"`)
		default:
			b.WriteString(`"` + redacted)
		}
		i = end
	}
	return b.String()
}
