package follow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/switchwatch/switchwatch/pkg/client"
	"github.com/switchwatch/switchwatch/pkg/protocol"
)

// Options configures a Follower.
type Options struct {
	URL    string
	Header http.Header

	// Switches are queried with get_switch_ports after every (re)connect.
	Switches []string

	// IdleTimeout drops a connection that delivers nothing for this long.
	// Zero waits forever.
	IdleTimeout time.Duration

	// OnEnvelope receives every decoded envelope. Defaults to Log.
	OnEnvelope func(protocol.Envelope)
}

// conn is the part of *client.Client a Follower uses.
type conn interface {
	Next(timeout time.Duration) (protocol.Envelope, error)
	GetSwitchPorts(entityID string) error
	Close() error
}

type dialFunc func(ctx context.Context, url string, header http.Header) (conn, error)

// Follower is a reconnecting websocket consumer.
type Follower struct {
	opts    Options
	dialFn  dialFunc // injectable for tests
	backoff *backoff
}

// New returns a Follower for opts.
func New(opts Options) *Follower {
	if opts.OnEnvelope == nil {
		opts.OnEnvelope = Log
	}
	return &Follower{
		opts:    opts,
		dialFn:  defaultDial,
		backoff: newBackoff(backoffInitial, backoffMax),
	}
}

func defaultDial(ctx context.Context, url string, header http.Header) (conn, error) {
	c, err := client.Dial(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Run follows the server until ctx is cancelled, reconnecting after every
// failure. It returns nil on cancellation and an error only when the server
// rejects the credentials, since retrying cannot fix that.
func (f *Follower) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		c, err := f.dialFn(ctx, f.opts.URL, f.opts.Header)
		if err != nil {
			if isPermanent(err) {
				return fmt.Errorf("follow: %w", err)
			}
			wait := f.backoff.next()
			slog.Error("follow: dial failed, will retry",
				"url", f.opts.URL,
				"err", err,
				"retry_in", wait)
			if !sleep(ctx, wait) {
				return nil
			}
			continue
		}

		slog.Info("follow: connected", "url", f.opts.URL)
		f.backoff.reset()

		err = f.follow(ctx, c)
		c.Close()

		if ctx.Err() != nil {
			return nil
		}

		wait := f.backoff.next()
		slog.Warn("follow: connection lost, will reconnect",
			"url", f.opts.URL,
			"err", err,
			"retry_in", wait)
		if !sleep(ctx, wait) {
			return nil
		}
	}
}

// follow reads envelopes from c until it fails or ctx is cancelled.
func (f *Follower) follow(ctx context.Context, c conn) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for _, id := range f.opts.Switches {
		if err := c.GetSwitchPorts(id); err != nil {
			return fmt.Errorf("request %s: %w", id, err)
		}
	}

	for {
		env, err := c.Next(f.opts.IdleTimeout)
		if err != nil {
			var decErr *protocol.DecodingError
			if errors.As(err, &decErr) {
				slog.Warn("follow: undecodable frame", "err", err)
				continue
			}
			return err
		}
		f.opts.OnEnvelope(env)
	}
}

func isPermanent(err error) bool {
	var hs *client.HandshakeError
	if !errors.As(err, &hs) {
		return false
	}
	return hs.StatusCode == http.StatusUnauthorized || hs.StatusCode == http.StatusForbidden
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
