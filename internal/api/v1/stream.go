package v1

import (
	"io"
	"net/http"
	"strconv"

	"github.com/vmunix/ytarr/internal/source"
)

// stream serves the playback endpoint referenced by every .strm stub. A
// filtered manifest is preferred; when resolution fails for any reason the
// raw progressive stream is relayed instead. This handler always answers
// with something playable or a plain 500, never a propagated error page.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("id")
	log := s.log.With("video", videoID)

	content, err := s.resolver.Resolve(r.Context(), videoID)
	if err == nil {
		log.Info("serving manifest", "bytes", len(content))
		h := w.Header()
		h.Set("Content-Type", "application/vnd.apple.mpegurl")
		h.Set("Content-Length", strconv.Itoa(len(content)))
		h.Set("Content-Disposition", `attachment; filename="playlist.m3u8"`)
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		_, _ = io.WriteString(w, content)
		return
	}

	log.Warn("manifest unavailable, falling back to direct stream", "error", err)
	s.streamDirect(w, r, videoID)
}

// streamDirect relays progressive-format bytes from the collaborator
// verbatim. No seeking: the upstream pipe only moves forward.
func (s *Server) streamDirect(w http.ResponseWriter, r *http.Request, videoID string) {
	cmd := s.streamer.StreamCommand(r.Context(), source.VideoURL(videoID))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stream unavailable")
		return
	}
	if err := cmd.Start(); err != nil {
		s.log.Error("fallback spawn failed", "video", videoID, "error", err)
		writeError(w, http.StatusInternalServerError, "stream unavailable")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "video/mp4")
	h.Set("Content-Disposition", `inline; filename="`+videoID+`.mp4"`)
	h.Set("Accept-Ranges", "none")
	h.Set("Cache-Control", "no-cache")

	if _, err := io.Copy(w, stdout); err != nil {
		// Client went away mid-stream; reap the process and move on.
		s.log.Debug("fallback stream interrupted", "video", videoID, "error", err)
	}
	_ = cmd.Wait()
}
