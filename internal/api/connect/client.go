package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// UserView is one tracked user as reported by GetStatus.
type UserView struct {
	UserID         string `mapstructure:"user_id"`
	DisplayName    string `mapstructure:"display_name"`
	Present        bool   `mapstructure:"present"`
	ElapsedSeconds int64  `mapstructure:"elapsed_seconds"`
	Coins          int    `mapstructure:"coins"`
	BoostPercent   int    `mapstructure:"boost_percent"`
}

// HostView is the host usage reported by GetStatus.
type HostView struct {
	CPUPercent    float64 `mapstructure:"cpu_percent"`
	MemoryPercent float64 `mapstructure:"memory_percent"`
}

// StatusView is the decoded GetStatus response.
type StatusView struct {
	Phase               string     `mapstructure:"phase"`
	SessionID           string     `mapstructure:"session_id"`
	StartedAt           string     `mapstructure:"started_at"`
	Mode                string     `mapstructure:"mode"`
	ChannelID           string     `mapstructure:"channel_id"`
	Scope               []string   `mapstructure:"scope"`
	Users               []UserView `mapstructure:"users"`
	TotalElapsedSeconds int64      `mapstructure:"total_elapsed_seconds"`
	TotalCoins          int        `mapstructure:"total_coins"`
	Subscribers         int        `mapstructure:"subscribers"`
	Host                *HostView  `mapstructure:"host"`
}

// EventView is one decoded Watch message.
type EventView struct {
	Type        string      `mapstructure:"type"` // "initial_state" or "event"
	Status      *StatusView `mapstructure:"status"`
	SequenceNo  uint64      `mapstructure:"sequence_no"`
	Event       string      `mapstructure:"event"`
	SessionID   string      `mapstructure:"session_id"`
	UserID      string      `mapstructure:"user_id"`
	DisplayName string      `mapstructure:"display_name"`
	Time        string      `mapstructure:"time"`
}

// AdminClient calls the admin service.
type AdminClient struct {
	token     string
	getStatus *connect.Client[emptypb.Empty, structpb.Struct]
	watch     *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewAdminClient creates a client for the admin service at baseURL.
func NewAdminClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *AdminClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &AdminClient{
		token:     token,
		getStatus: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+GetStatusProcedure, opts...),
		watch:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+WatchProcedure, opts...),
	}
}

// GetStatus fetches the session status.
func (c *AdminClient) GetStatus(ctx context.Context) (*StatusView, error) {
	req := connect.NewRequest(&emptypb.Empty{})
	req.Header().Set(AdminTokenHeader, c.token)

	resp, err := c.getStatus.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}

	var view StatusView
	if err := decode(resp.Msg, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Watch streams session events to fn until ctx ends, the server closes the
// stream or fn returns an error.
func (c *AdminClient) Watch(ctx context.Context, fn func(*EventView) error) error {
	req := connect.NewRequest(&emptypb.Empty{})
	req.Header().Set(AdminTokenHeader, c.token)

	stream, err := c.watch.CallServerStream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		var ev EventView
		if err := decode(stream.Msg(), &ev); err != nil {
			return err
		}
		if err := fn(&ev); err != nil {
			return err
		}
	}
	return stream.Err()
}

// decode maps a structpb message onto a tagged struct. Numbers arrive as
// float64 and are converted to the target field type.
func decode(msg *structpb.Struct, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := dec.Decode(msg.AsMap()); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
