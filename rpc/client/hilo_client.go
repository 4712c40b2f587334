package client

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dDoc/lib/hilo"
	"github.com/ValentinKolb/dDoc/rpc/common"
)

// NewHiloRangeClient creates a hilo.IRangeClient that talks to the cluster through the executor
func NewHiloRangeClient(executor *RequestExecutor) hilo.IRangeClient {
	return &hiloRangeClient{executor: executor}
}

type hiloRangeClient struct {
	executor *RequestExecutor
}

// --------------------------------------------------------------------------
// Interface Methods (docu see hilo.IRangeClient)
// --------------------------------------------------------------------------

func (c *hiloRangeClient) NextRange(ctx context.Context, database string, req hilo.NextRangeRequest) (hilo.RangeGrant, error) {
	cmd := NewNextHiloCommand(database, common.NextRangeRequest{
		Tag:         req.Tag,
		Capacity:    req.Capacity,
		LastMax:     req.LastMax,
		LastToken:   req.LastToken,
		LastRangeAt: req.LastRangeAt,
		Separator:   req.Separator,
	})

	if err := c.executor.Execute(ctx, cmd); err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) && serverErr.IsConflict() {
			return hilo.RangeGrant{}, &hilo.ConflictError{Max: serverErr.Max, Token: serverErr.Token}
		}
		return hilo.RangeGrant{}, err
	}

	res := cmd.Result
	return hilo.RangeGrant{
		Range:     hilo.RangeValue{Low: res.Low, High: res.High},
		Prefix:    res.Prefix,
		ServerTag: res.ServerTag,
		Token:     res.Token,
		RangeAt:   res.LastRangeAt,
	}, nil
}

func (c *hiloRangeClient) ReturnRange(ctx context.Context, database string, req hilo.ReturnRangeRequest) error {
	return c.executor.Execute(ctx, NewHiloReturnCommand(database, common.ReturnRangeRequest{
		Tag:         req.Tag,
		Low:         req.Low,
		High:        req.High,
		LastRangeAt: req.LastRangeAt,
	}))
}
