package connect

import (
	"context"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/vctrack/internal/app/notification"
	"github.com/osa030/vctrack/internal/app/session"
	"github.com/osa030/vctrack/internal/infra/system"
)

const (
	// ServiceName is the fully-qualified name of the admin service.
	ServiceName = "vctrack.v1.AdminService"

	// GetStatusProcedure returns the session status.
	GetStatusProcedure = "/" + ServiceName + "/GetStatus"
	// WatchProcedure streams session events.
	WatchProcedure = "/" + ServiceName + "/Watch"
)

// StatusSource is the session view served by the admin API.
type StatusSource interface {
	Status(ctx context.Context) *session.Status
	Notifications() *notification.Manager
}

// HostStatsFunc samples host resource usage.
type HostStatsFunc func(ctx context.Context) (*system.Stats, error)

// AdminService implements the AdminService RPC.
type AdminService struct {
	session   StatusSource
	token     string
	hostStats HostStatsFunc

	done      chan struct{}
	closeOnce sync.Once
}

// NewAdminService creates a new AdminService.
func NewAdminService(source StatusSource, token string, hostStats HostStatsFunc) *AdminService {
	return &AdminService{
		session:   source,
		token:     token,
		hostStats: hostStats,
		done:      make(chan struct{}),
	}
}

// NewAdminServiceHandler builds the HTTP handler serving the admin service.
func NewAdminServiceHandler(svc *AdminService, opts ...connect.HandlerOption) (string, http.Handler) {
	unaryOpts := append([]connect.HandlerOption{
		connect.WithInterceptors(NewAdminAuthInterceptor(svc.token)),
	}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetStatusProcedure, connect.NewUnaryHandler(GetStatusProcedure, svc.GetStatus, unaryOpts...))
	mux.Handle(WatchProcedure, connect.NewServerStreamHandler(WatchProcedure, svc.Watch, opts...))
	return "/" + ServiceName + "/", mux
}

// GetStatus returns the current session status.
func (s *AdminService) GetStatus(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	msg, err := structpb.NewStruct(s.statusMap(ctx))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// Watch streams the current status followed by every session event until
// the client disconnects or the service closes.
func (s *AdminService) Watch(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	if err := checkToken(req.Header(), s.token); err != nil {
		return err
	}

	initial, err := structpb.NewStruct(map[string]any{
		"type":   "initial_state",
		"status": s.statusMap(ctx),
	})
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	if err := stream.Send(initial); err != nil {
		return err
	}

	notifManager := s.session.Notifications()
	subscriptionID := notifManager.Subscribe(&eventStreamAdapter{stream: stream})
	zlog.Debug().Msgf("watch subscribed: subscription_id=%s", subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.done:
	}

	notifManager.Unsubscribe(subscriptionID)
	zlog.Debug().Msgf("watch unsubscribed: subscription_id=%s", subscriptionID)
	return nil
}

// Close ends all open Watch streams.
func (s *AdminService) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *AdminService) statusMap(ctx context.Context) map[string]any {
	st := s.session.Status(ctx)

	users := make([]any, 0, len(st.Users))
	for _, u := range st.Users {
		users = append(users, map[string]any{
			"user_id":         u.UserID,
			"display_name":    u.DisplayName,
			"present":         u.Present,
			"elapsed_seconds": int64(u.Elapsed / time.Second),
			"coins":           u.Coins,
			"boost_percent":   u.Boost,
		})
	}
	scope := make([]any, 0, len(st.Scope))
	for _, id := range st.Scope {
		scope = append(scope, id)
	}

	m := map[string]any{
		"phase":                 st.Phase.String(),
		"session_id":            st.SessionID,
		"mode":                  st.Mode.String(),
		"channel_id":            st.ChannelID,
		"scope":                 scope,
		"users":                 users,
		"total_elapsed_seconds": int64(st.TotalElapsed / time.Second),
		"total_coins":           st.TotalCoins,
		"subscribers":           st.Subscribers,
	}
	if st.StartedAt != nil {
		m["started_at"] = st.StartedAt.UTC().Format(time.RFC3339)
	}

	if s.hostStats != nil {
		stats, err := s.hostStats(ctx)
		if err != nil {
			zlog.Warn().Msgf("failed to collect host stats: %v", err)
		} else {
			m["host"] = map[string]any{
				"cpu_percent":    stats.CPUPercent,
				"memory_percent": stats.MemoryPercent,
			}
		}
	}
	return m
}

// eventStreamAdapter adapts connect.ServerStream to notification.Stream.
// Broadcasts can overlap, so sends are serialised.
type eventStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[structpb.Struct]
}

func (a *eventStreamAdapter) Send(e *notification.Event) error {
	msg, err := structpb.NewStruct(eventMap(e))
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(msg)
}

func eventMap(e *notification.Event) map[string]any {
	return map[string]any{
		"type":         "event",
		"sequence_no":  int64(e.SequenceNo),
		"event":        string(e.Type),
		"session_id":   e.SessionID,
		"user_id":      e.UserID,
		"display_name": e.DisplayName,
		"time":         e.Time.UTC().Format(time.RFC3339),
	}
}
