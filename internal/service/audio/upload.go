// Package audio accepts uploaded call recordings, normalizes them for
// transcription and measures their duration.
package audio

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"voxguardian/internal/observability/metrics"
)

// Upload errors.
var (
	ErrNoAudio              = errors.New("no audio file provided")
	ErrInvalidFilename      = errors.New("invalid filename")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrUnsupportedMIME      = errors.New("unsupported MIME type")
	ErrTooLarge             = errors.New("file too large")
	ErrNotFound             = errors.New("audio file not found")
)

// Limits defines what the intake accepts.
type Limits struct {
	MaxBytes          int64
	AllowedExtensions []string // lowercase, without dot
	AllowedMIMETypes  []string
}

// DefaultLimits returns the intake limits for call recordings.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:          10 * 1024 * 1024, // 10MB
		AllowedExtensions: []string{"mp3", "wav", "m4a"},
		AllowedMIMETypes:  []string{"audio/mpeg", "audio/wav", "audio/x-m4a", "audio/mp4"},
	}
}

// StoredFile is an accepted upload on disk.
type StoredFile struct {
	CallID   string
	Name     string // stored file name, "<uuid>_<sanitized>"
	Original string
	Path     string
	Size     int64
}

// Intake validates uploads and stores them in a directory.
type Intake struct {
	dir     string
	limits  Limits
	metrics *metrics.Metrics
}

// NewIntake creates the upload directory if needed. A nil m uses the default
// metrics.
func NewIntake(dir string, limits Limits, m *metrics.Metrics) (*Intake, error) {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audio: create upload dir: %w", err)
	}
	return &Intake{dir: dir, limits: limits, metrics: m}, nil
}

// Dir returns the upload directory.
func (in *Intake) Dir() string { return in.dir }

// Limits returns the configured limits.
func (in *Intake) Limits() Limits { return in.limits }

// Accept validates filename and content type, then streams r to disk. Reads
// past MaxBytes fail with ErrTooLarge and leave nothing behind.
func (in *Intake) Accept(filename, contentType string, r io.Reader) (StoredFile, error) {
	if err := in.check(filename, contentType); err != nil {
		in.metrics.RecordUploadRejected(rejectReason(err))
		return StoredFile{}, err
	}

	safe := SanitizeFilename(filename)
	if safe == "" {
		in.metrics.RecordUploadRejected(rejectReason(ErrInvalidFilename))
		return StoredFile{}, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	callID := uuid.NewString()
	name := callID + "_" + safe
	path := filepath.Join(in.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("audio: create %s: %w", name, err)
	}

	n, err := io.Copy(f, io.LimitReader(r, in.limits.MaxBytes+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(path)
		return StoredFile{}, fmt.Errorf("audio: write %s: %w", name, err)
	case closeErr != nil:
		_ = os.Remove(path)
		return StoredFile{}, fmt.Errorf("audio: close %s: %w", name, closeErr)
	case n > in.limits.MaxBytes:
		_ = os.Remove(path)
		in.metrics.RecordUploadRejected(rejectReason(ErrTooLarge))
		return StoredFile{}, fmt.Errorf("%w: max %d bytes", ErrTooLarge, in.limits.MaxBytes)
	case n == 0:
		_ = os.Remove(path)
		in.metrics.RecordUploadRejected(rejectReason(ErrNoAudio))
		return StoredFile{}, fmt.Errorf("%w: empty file", ErrNoAudio)
	}

	in.metrics.RecordUploadAccepted(n)
	log.Info().
		Str("callId", callID).
		Str("audioFile", name).
		Int64("bytes", n).
		Msg("Upload accepted")

	return StoredFile{CallID: callID, Name: name, Original: filename, Path: path, Size: n}, nil
}

// Open resolves a stored file name inside the upload directory. Names that
// would escape the directory are reported as not found.
func (in *Intake) Open(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) || name != SanitizeFilename(name) {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(in.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Remove deletes a stored file, ignoring files that are already gone.
func (in *Intake) Remove(sf StoredFile) error {
	if err := os.Remove(sf.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (in *Intake) check(filename, contentType string) error {
	if strings.TrimSpace(filename) == "" {
		return ErrNoAudio
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !contains(in.limits.AllowedExtensions, ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !contains(in.limits.AllowedMIMETypes, strings.ToLower(mediaType)) {
		return fmt.Errorf("%w: %q", ErrUnsupportedMIME, contentType)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNoAudio):
		return "no_audio"
	case errors.Is(err, ErrInvalidFilename):
		return "invalid_filename"
	case errors.Is(err, ErrUnsupportedExtension):
		return "extension"
	case errors.Is(err, ErrUnsupportedMIME):
		return "mime"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	default:
		return "other"
	}
}

// SanitizeFilename reduces name to a safe ASCII base name: accents are
// decomposed and dropped, path separators become spaces, runs of whitespace
// become single underscores, and only [A-Za-z0-9_.-] survive. Leading and
// trailing dots and underscores are stripped. The result may be empty.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune(' ')
		case r < unicode.MaxASCII:
			b.WriteRune(r)
		}
	}

	joined := strings.Join(strings.Fields(b.String()), "_")

	b.Reset()
	for _, r := range joined {
		if r == '_' || r == '.' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
