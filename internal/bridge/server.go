// Package bridge exposes the orchestrator over gRPC so an out-of-process
// host can drive it. Messages are structpb values; there is no generated
// code.
package bridge

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/orchestrator"
	"github.com/danielpatrickdp/autobuy/internal/prefs"
	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #region interfaces

// Ticker is the part of the orchestrator the server drives.
type Ticker interface {
	Tick(ctx context.Context, snap controller.Snapshot) (orchestrator.Result, error)
	Reset(ctx context.Context) (orchestrator.Status, error)
	Status(ctx context.Context) (orchestrator.Status, error)
}

// Editor changes preferences. prefs.Store implements it.
type Editor interface {
	SetEnabled(bool)
	SetSelectedTier(tier.Tier)
	Snapshot() prefs.Preferences
}

// #endregion interfaces

// #region server

// Server implements ControllerServer on top of an orchestrator.
type Server struct {
	ticker Ticker
	editor Editor
}

// NewServer returns a server that forwards to t and e.
func NewServer(t Ticker, e Editor) *Server {
	return &Server{ticker: t, editor: e}
}

// Tick decodes a snapshot and runs one controller tick.
func (s *Server) Tick(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	snap, err := decodeSnapshot(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.ticker.Tick(ctx, snap)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeResult(res), nil
}

// Reset forces the controller idle.
func (s *Server) Reset(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.ticker.Reset(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	slog.Info("controller reset over bridge")
	return encodeStatus(st), nil
}

// Status reports the controller state.
func (s *Server) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.ticker.Status(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStatus(st), nil
}

// SetPreferences applies the fields present in the request and returns
// the resulting preferences. Absent fields are left unchanged.
func (s *Server) SetPreferences(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	enabled, hasEnabled, err := fieldBool(in, "enabled")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	id, hasTier, err := fieldString(in, "tier")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var t tier.Tier
	if hasTier {
		if t, err = tier.Parse(id); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	if hasEnabled {
		s.editor.SetEnabled(enabled)
	}
	if hasTier {
		s.editor.SetSelectedTier(t)
	}

	p := s.editor.Snapshot()
	slog.Info("preferences updated over bridge", "enabled", p.Enabled, "tier", string(p.Tier))
	return encodePreferences(p), nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrStopped):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// #endregion server
