package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/berrythewa/clipstack/internal/types"
)

// Commands understood by the daemon.
const (
	CmdStatus         = "status"
	CmdList           = "list"
	CmdGet            = "get"
	CmdDelete         = "delete"
	CmdFavorite       = "favorite"
	CmdToggleFavorite = "toggle_favorite"
	CmdClear          = "clear"
	CmdSearch         = "search"
	CmdSweep          = "sweep"
	CmdUnlock         = "unlock"
	CmdPause          = "pause"
	CmdCopy           = "copy"
	CmdCapture        = "capture"
	CmdSubscribe      = "subscribe"

	CmdNoteAdd    = "note_add"
	CmdNoteGet    = "note_get"
	CmdNoteList   = "note_list"
	CmdNoteUpdate = "note_update"
	CmdNoteDelete = "note_delete"
	CmdNoteClear  = "note_clear"
)

// Response statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Error codes carried by error responses.
const (
	CodeNotFound   = "not_found"
	CodeLocked     = "locked"
	CodeInvalid    = "invalid"
	CodeUnknownCmd = "unknown_command"
	CodeInternal   = "internal"
	// CodeNeedsDaemon is returned for commands that only a running daemon
	// can serve, such as copy and pause.
	CodeNeedsDaemon = "needs_daemon"
)

// Request represents a command sent from the CLI to the daemon.
type Request struct {
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"` // Command-specific arguments
}

// Response represents a reply from the daemon to the CLI.
type Response struct {
	Status  string          `json:"status"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"` // Human-readable message or error
	Data    json.RawMessage `json:"data,omitempty"`    // Command-specific data
}

// IDArgs addresses one item.
type IDArgs struct {
	ID uint64 `json:"id"`
}

// FavoriteArgs sets the favorite flag.
type FavoriteArgs struct {
	ID       uint64 `json:"id"`
	Favorite bool   `json:"favorite"`
}

// ListArgs pages through history.
type ListArgs struct {
	Limit     int  `json:"limit,omitempty"`
	Offset    int  `json:"offset,omitempty"`
	Favorites bool `json:"favorites,omitempty"`
}

// SearchArgs filters history by substring.
type SearchArgs struct {
	Query string `json:"query"`
	ListArgs
}

// UnlockArgs carries the passphrase for this daemon session.
type UnlockArgs struct {
	Passphrase string `json:"passphrase"`
}

// PauseArgs turns recording off or back on.
type PauseArgs struct {
	Paused bool `json:"paused"`
}

// SweepArgs overrides the configured retention policy for one sweep. Zero
// values keep the configured setting.
type SweepArgs struct {
	MaxAgeDays    int   `json:"max_age_days,omitempty"`
	MaxItems      int   `json:"max_items,omitempty"`
	KeepFavorites *bool `json:"keep_favorites,omitempty"`
}

// CaptureArgs is a synthetic clipboard snapshot pushed through the capture
// pipeline.
type CaptureArgs struct {
	Text  string `json:"text,omitempty"`
	HTML  string `json:"html,omitempty"`
	Image []byte `json:"image,omitempty"`
}

// CaptureData reports what the pipeline did with a captured snapshot.
type CaptureData struct {
	Outcome string          `json:"outcome"`
	Item    *types.ClipItem `json:"item,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NoteArgs creates or replaces a note's text.
type NoteArgs struct {
	ID      uint64 `json:"id,omitempty"`
	Content string `json:"content"`
}

// StatusData is the payload of a status response.
type StatusData struct {
	PID         int               `json:"pid"`
	Driver      string            `json:"driver"`
	DBPath      string            `json:"db_path"`
	State       string            `json:"state"`
	Paused      bool              `json:"paused"`
	Items       int               `json:"items"`
	Favorites   int               `json:"favorites"`
	Subscribers int               `json:"subscribers"`
	Outcomes    map[string]uint64 `json:"outcomes"`
	StartedAt   string            `json:"started_at"`
}

// ToggleData is the payload of a toggle_favorite response.
type ToggleData struct {
	Favorite bool `json:"favorite"`
}

// CountData reports how many records an operation removed.
type CountData struct {
	Deleted int `json:"deleted"`
}

// NewRequest builds a request, encoding args when non-nil.
func NewRequest(command string, args any) (*Request, error) {
	req := &Request{Command: command}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s args: %w", command, err)
		}
		req.Args = raw
	}
	return req, nil
}

// DecodeArgs decodes the request arguments into v. Missing args leave v
// unchanged.
func (r *Request) DecodeArgs(v any) error {
	if len(r.Args) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Args, v); err != nil {
		return fmt.Errorf("invalid %s args: %w", r.Command, err)
	}
	return nil
}

// OK builds a success response carrying data.
func OK(data any) *Response {
	resp := &Response{Status: StatusOK}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Errorf(CodeInternal, "failed to encode response: %v", err)
		}
		resp.Data = raw
	}
	return resp
}

// Errorf builds an error response.
func Errorf(code, format string, args ...any) *Response {
	return &Response{Status: StatusError, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Err returns the response as an error, or nil on success.
func (r *Response) Err() error {
	if r.Status == StatusOK {
		return nil
	}
	return &RemoteError{Code: r.Code, Message: r.Message}
}

// Decode decodes the response data into v.
func (r *Response) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// RemoteError is an error reported by the daemon.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "daemon error: " + e.Code
	}
	return e.Message
}
