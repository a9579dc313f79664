package ytdlp

import "errors"

var (
	// ErrInvocation is returned when yt-dlp cannot be spawned or exits non-zero.
	ErrInvocation = errors.New("yt-dlp invocation failed")

	// ErrNoOutput is returned when yt-dlp exits cleanly but produces no data.
	ErrNoOutput = errors.New("yt-dlp returned no data")

	// ErrParse is returned when yt-dlp output cannot be decoded.
	ErrParse = errors.New("yt-dlp output malformed")
)
