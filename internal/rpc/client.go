package rpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls a remote provision.v1.Provisioner service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Resolve sends req, assigning a request id when it has none.
func (c *Client) Resolve(ctx context.Context, req Request, opts ...grpc.CallOption) (*Response, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	in, err := req.ToStruct()
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ResolveMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return DecodeResponse(out)
}
