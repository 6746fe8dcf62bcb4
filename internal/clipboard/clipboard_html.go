package clipboard

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"time"

	"go.uber.org/zap"
)

const htmlReadTimeout = 500 * time.Millisecond

// htmlReader fetches the text/html clipboard target with an external tool.
// It is a no-op when no tool is available.
type htmlReader struct {
	argv   []string
	logger *zap.Logger
}

func newHTMLReader(logger *zap.Logger) *htmlReader {
	r := &htmlReader{logger: logger}
	if runtime.GOOS != "linux" {
		return r
	}
	candidates := [][]string{
		{"xclip", "-selection", "clipboard", "-t", "text/html", "-o"},
	}
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		candidates = append([][]string{{"wl-paste", "--no-newline", "--type", "text/html"}}, candidates...)
	}
	for _, argv := range candidates {
		if _, err := exec.LookPath(argv[0]); err == nil {
			r.argv = argv
			logger.Debug("Reading clipboard markup with external tool", zap.String("tool", argv[0]))
			break
		}
	}
	return r
}

// Read returns the current markup, or "" when there is none.
func (r *htmlReader) Read(ctx context.Context) string {
	if r == nil || len(r.argv) == 0 {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, htmlReadTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...).Output()
	if err != nil {
		// Both tools exit non-zero when the target is not offered.
		return ""
	}
	return string(out)
}
