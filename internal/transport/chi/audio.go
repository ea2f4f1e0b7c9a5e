package chi

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/somunicate/dbas/internal/domain"
)

// Audio handles GET /sounds/{id}/audio.
func (s *Server) Audio(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid sound id")
		return
	}

	snap, err := s.reference.Current()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if _, ok := snap.Catalog.Entry(id); !ok {
		s.handleDomainError(w, fmt.Errorf("%w: %q", domain.ErrSoundNotFound, id))
		return
	}

	path, err := resolveAudioPath(s.opts.AudioDir, id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if fi, statErr := os.Stat(path); statErr != nil || fi.IsDir() {
		if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
			s.handleDomainError(w, fmt.Errorf("stat audio: %w", statErr))
			return
		}
		s.handleDomainError(w, fmt.Errorf("%w: no audio for %q", domain.ErrSoundNotFound, id))
		return
	}

	http.ServeFile(w, r, path)
}

// resolveAudioPath maps a catalog identifier to a file inside dir.
// Leading whitespace and slashes are stripped; paths escaping dir are rejected.
func resolveAudioPath(dir, id string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: audio directory not configured", domain.ErrSoundNotFound)
	}
	rel := strings.TrimLeft(strings.TrimSpace(id), "/\\")
	rel = filepath.FromSlash(rel)
	if rel == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: invalid audio path %q", domain.ErrInvalidQuery, id)
	}
	return filepath.Join(dir, rel), nil
}
