package daemon

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/clipboard"
	"github.com/berrythewa/clipstack/internal/crypto"
	"github.com/berrythewa/clipstack/internal/ipc"
	"github.com/berrythewa/clipstack/internal/storage"
	"github.com/berrythewa/clipstack/internal/types"
)

// errorResponse maps storage sentinels onto IPC error codes.
func errorResponse(err error) *ipc.Response {
	code := ipc.CodeInternal
	switch {
	case errors.Is(err, storage.ErrNotFound):
		code = ipc.CodeNotFound
	case errors.Is(err, storage.ErrLocked):
		code = ipc.CodeLocked
	case errors.Is(err, storage.ErrInvalidContent),
		errors.Is(err, storage.ErrEncryptionDisabled),
		errors.Is(err, crypto.ErrEmptyPassphrase):
		code = ipc.CodeInvalid
	}
	return ipc.Errorf(code, "%v", err)
}

func (d *Daemon) handle(ctx context.Context, req *ipc.Request) *ipc.Response {
	switch req.Command {
	case ipc.CmdStatus:
		return d.status()

	case ipc.CmdList:
		var args ipc.ListArgs
		if err := req.DecodeArgs(&args); err != nil {
			return ipc.Errorf(ipc.CodeInvalid, "%v", err)
		}
		items, err := d.history.List(listOptions(args))
		if err != nil {
			return errorResponse(err)
		}
		return ipc.OK(items)

	case ipc.CmdSearch:
		var args ipc.SearchArgs
		if err := req.DecodeArgs(&args); err != nil {
			return ipc.Errorf(ipc.CodeInvalid, "%v", err)
		}
		items, err := d.history.Search(args.Query, listOptions(args.ListArgs))
		if err != nil {
			return errorResponse(err)
		}
		return ipc.OK(items)

	case ipc.CmdGet:
		var args ipc.IDArgs
		if err := req.DecodeArgs(&args); err != nil {
			return ipc.Errorf(ipc.CodeInvalid, "%v", err)
		}
		item, err := d.history.Get(args.ID)
		if err != nil {
			return errorResponse(err)
		}
		return ipc.OK(item)

	case ipc.CmdDelete:
		var args ipc.IDArgs
		if err := req.DecodeArgs(&args); err != nil {
			return ipc.Errorf(ipc.CodeInvalid, "%v", err)
		}
		if err := d.history.Delete(args.ID); err != nil {
			return errorResponse(err)
		}
		return ipc.OK(nil)

	case ipc.CmdFavorite:
		var args ipc.FavoriteArgs
		if err := req.DecodeArgs(&args); err != nil {
			return ipc.Errorf(ipc.CodeInvalid, "%v", err)
		}
		if err := d.history.SetFavorite(args.ID, args.Favorite); err != nil {
			return errorResponse(err)
		}
		return ipc.OK(ipc.ToggleData{Favorite: args.Favorite})

	case ipc.CmdToggleFavorite:
		var args ipc.IDArgs
		if err := req.DecodeArgs(&args); err != nil {
			return ipc.Errorf(ipc.CodeInvalid, "%v", err)
		}
		fav, err := d.history.ToggleFavorite(args.ID)
		if err != nil {
			return errorResponse(err)
		}
		return ipc.OK(ipc.ToggleData{Favorite: fav})

	case ipc.CmdClear:
		n, err := d.history.Clear()
		if err != nil {
			return errorResponse(err)
		}
		return ipc.OK(ipc.CountData{Deleted: n})

	case ipc.CmdSweep:
		var args ipc.SweepArgs
		if err := req.DecodeArgs(&args); err != nil {
			return ipc.Errorf(ipc.CodeInvalid, "%v", err)
		}
		res, err := d.history.Sweep(SweepPolicy(Policy(d.cfg.Retention), args))
		if err != nil {
			return errorResponse(err)
		}
		return ipc.OK(res)

	case ipc.CmdUnlock:
		var args ipc.UnlockArgs
		if err := req.DecodeArgs(&args); err != nil {
			return ipc.Errorf(ipc.CodeInvalid, "%v", err)
		}
		if err := d.history.Unlock(args.Passphrase); err != nil {
			return errorResponse(err)
		}
		return ipc.OK(nil)

	case ipc.CmdPause:
		if d.offline {
			return needsDaemon(req.Command)
		}
		var args ipc.PauseArgs
		if err := req.DecodeArgs(&args); err != nil {
			return ipc.Errorf(ipc.CodeInvalid, "%v", err)
		}
		d.monitor.SetPaused(args.Paused)
		return ipc.OK(nil)

	case ipc.CmdCopy:
		if d.offline {
			return needsDaemon(req.Command)
		}
		var args ipc.IDArgs
		if err := req.DecodeArgs(&args); err != nil {
			return ipc.Errorf(ipc.CodeInvalid, "%v", err)
		}
		return d.copyToClipboard(args.ID)

	case ipc.CmdCapture:
		var args ipc.CaptureArgs
		if err := req.DecodeArgs(&args); err != nil {
			return ipc.Errorf(ipc.CodeInvalid, "%v", err)
		}
		res := d.monitor.Process(clipboard.Snapshot{Text: args.Text, HTML: args.HTML, Image: args.Image})
		data := ipc.CaptureData{Outcome: res.Outcome.String(), Item: res.Item}
		if res.Err != nil {
			data.Error = res.Err.Error()
		}
		return ipc.OK(data)

	case ipc.CmdNoteAdd, ipc.CmdNoteGet, ipc.CmdNoteList, ipc.CmdNoteUpdate, ipc.CmdNoteDelete, ipc.CmdNoteClear:
		return d.handleNote(req)
	}
	return ipc.Errorf(ipc.CodeUnknownCmd, "unknown command %q", req.Command)
}

func (d *Daemon) handleNote(req *ipc.Request) *ipc.Response {
	var args ipc.NoteArgs
	var page ipc.ListArgs
	target := any(&args)
	if req.Command == ipc.CmdNoteList {
		target = &page
	}
	if err := req.DecodeArgs(target); err != nil {
		return ipc.Errorf(ipc.CodeInvalid, "%v", err)
	}

	var (
		data any
		err  error
	)
	switch req.Command {
	case ipc.CmdNoteAdd:
		data, err = d.history.AddNote(args.Content, time.Now())
	case ipc.CmdNoteGet:
		data, err = d.history.GetNote(args.ID)
	case ipc.CmdNoteList:
		data, err = d.history.ListNotes(page.Limit, page.Offset)
	case ipc.CmdNoteUpdate:
		err = d.history.UpdateNote(args.ID, args.Content)
	case ipc.CmdNoteDelete:
		err = d.history.DeleteNote(args.ID)
	case ipc.CmdNoteClear:
		var n int
		n, err = d.history.ClearNotes()
		data = ipc.CountData{Deleted: n}
	}
	if err != nil {
		return errorResponse(err)
	}
	return ipc.OK(data)
}

func needsDaemon(command string) *ipc.Response {
	return ipc.Errorf(ipc.CodeNeedsDaemon, "%s requires a running daemon", command)
}

// SweepPolicy applies per-request overrides to the configured policy.
func SweepPolicy(policy storage.RetentionPolicy, args ipc.SweepArgs) storage.RetentionPolicy {
	if args.MaxAgeDays > 0 {
		policy.MaxAge = time.Duration(args.MaxAgeDays) * 24 * time.Hour
	}
	if args.MaxItems > 0 {
		policy.MaxItems = args.MaxItems
	}
	if args.KeepFavorites != nil {
		policy.KeepFavorites = *args.KeepFavorites
	}
	return policy
}

func listOptions(args ipc.ListArgs) storage.ListOptions {
	return storage.ListOptions{Limit: args.Limit, Offset: args.Offset, FavoritesOnly: args.Favorites}
}

func (d *Daemon) status() *ipc.Response {
	items, err := d.history.Count(false)
	if err != nil {
		return errorResponse(err)
	}
	favorites, err := d.history.Count(true)
	if err != nil {
		return errorResponse(err)
	}
	return ipc.OK(ipc.StatusData{
		PID:         os.Getpid(),
		Driver:      d.cfg.Storage.Driver,
		DBPath:      d.cfg.Storage.DBPath,
		State:       d.history.State().String(),
		Paused:      d.monitor.Paused(),
		Items:       items,
		Favorites:   favorites,
		Subscribers: d.events.Subscribers(),
		Outcomes:    d.monitor.Stats(),
		StartedAt:   d.startedAt.Format(time.RFC3339),
	})
}

func (d *Daemon) copyToClipboard(id uint64) *ipc.Response {
	item, err := d.history.Get(id)
	if err != nil {
		return errorResponse(err)
	}
	if t, ok := item.Content.(types.Text); ok && string(t) == crypto.Placeholder {
		return ipc.Errorf(ipc.CodeLocked, "clip %d cannot be decrypted", id)
	}
	if h, ok := item.Content.(types.HTML); ok && string(h) == crypto.Placeholder {
		return ipc.Errorf(ipc.CodeLocked, "clip %d cannot be decrypted", id)
	}
	d.monitor.IgnoreWrite(item.Content)
	if err := d.source.Write(item.Content); err != nil {
		return ipc.Errorf(ipc.CodeInternal, "failed to write clipboard: %v", err)
	}
	d.logger.Debug("Copied item to clipboard", zap.Uint64("id", id), zap.Stringer("kind", item.Kind()))
	return ipc.OK(nil)
}

// subscribe pushes every newly stored item to the client.
func (d *Daemon) subscribe(ctx context.Context, req *ipc.Request, send func(any) error) error {
	id, items := d.events.Subscribe()
	defer d.events.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return nil
		case item, ok := <-items:
			if !ok {
				return nil
			}
			if err := send(item); err != nil {
				return err
			}
		}
	}
}
