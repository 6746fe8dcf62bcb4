package ipc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/berrythewa/clipstack/internal/types"
)

// shortSocketPath keeps the path under the sun_path limit.
func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cs")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func startServer(t *testing.T, srv *Server) (string, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(srv.socketPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv.socketPath, cancel
}

func echoHandler(ctx context.Context, req *Request) *Response {
	switch req.Command {
	case CmdGet:
		var args IDArgs
		if err := req.DecodeArgs(&args); err != nil {
			return Errorf(CodeInvalid, "%v", err)
		}
		if args.ID != 7 {
			return Errorf(CodeNotFound, "clip %d not found", args.ID)
		}
		return OK(types.ClipItem{ID: 7, CreatedAt: time.Unix(0, 0).UTC(), Content: types.Text("seven")})
	case CmdClear:
		return OK(CountData{Deleted: 3})
	case CmdPause:
		return nil
	}
	return Errorf(CodeUnknownCmd, "unknown command %q", req.Command)
}

func TestRequestResponseRoundTrip(t *testing.T) {
	socket, _ := startServer(t, NewServer(shortSocketPath(t), echoHandler, zaptest.NewLogger(t)))

	var item types.ClipItem
	require.NoError(t, Call(socket, CmdGet, IDArgs{ID: 7}, &item))
	assert.Equal(t, uint64(7), item.ID)
	assert.Equal(t, types.Text("seven"), item.Content)

	var count CountData
	require.NoError(t, Call(socket, CmdClear, nil, &count))
	assert.Equal(t, 3, count.Deleted)

	assert.NoError(t, Call(socket, CmdPause, PauseArgs{Paused: true}, nil))

	err := Call(socket, CmdGet, IDArgs{ID: 8}, &item)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, CodeNotFound, remote.Code)
	assert.Equal(t, "clip 8 not found", remote.Error())

	err = Call(socket, "bogus", nil, nil)
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, CodeUnknownCmd, remote.Code)
}

func TestMalformedRequest(t *testing.T) {
	socket, _ := startServer(t, NewServer(shortSocketPath(t), echoHandler, nil))

	conn, err := dial(socket)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("not json\n"))
	require.NoError(t, err)

	var buf [256]byte
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf[:])
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), `"code":"invalid"`)
}

func TestClientWithoutDaemon(t *testing.T) {
	err := Call(shortSocketPath(t), CmdStatus, nil, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSecondServerRefused(t *testing.T) {
	socket, _ := startServer(t, NewServer(shortSocketPath(t), echoHandler, nil))

	err := NewServer(socket, echoHandler, nil).ListenAndServe(context.Background())
	assert.ErrorContains(t, err, "another daemon")
}

func TestSubscribeStream(t *testing.T) {
	items := make(chan *types.ClipItem)
	srv := NewServer(shortSocketPath(t), echoHandler, zaptest.NewLogger(t))
	srv.HandleStream(CmdSubscribe, func(ctx context.Context, req *Request, send func(any) error) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case item := <-items:
				if err := send(item); err != nil {
					return err
				}
			}
		}
	})
	socket, _ := startServer(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	received := make(chan *types.ClipItem, 2)
	errc := make(chan error, 1)
	go func() {
		errc <- Subscribe(ctx, socket, func(item *types.ClipItem) error {
			received <- item
			if item.ID == 2 {
				return errors.New("enough")
			}
			return nil
		})
	}()

	for id := uint64(1); id <= 2; id++ {
		select {
		case items <- &types.ClipItem{ID: id, CreatedAt: time.Now().UTC(), Content: types.Text("x")}:
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber never connected")
		}
		got := <-received
		assert.Equal(t, id, got.ID)
	}

	select {
	case err := <-errc:
		assert.EqualError(t, err, "enough")
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return")
	}
}
