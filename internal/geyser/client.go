package geyser

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/solflowhq/solflow/internal/model"
)

// Client is a minimal gRPC-based Subscriber. It dials once, streams
// until the stream ends or ctx is canceled, then redials — rate-limited
// so a persistently unreachable upstream cannot spin the process. It
// deliberately does not implement exponential backoff, circuit breaking,
// or multi-endpoint failover; those belong to the production streaming
// client this package stands in for.
type Client struct {
	url     string
	xToken  string
	log     *logrus.Entry
	limiter *rate.Limiter
}

// NewClient constructs a Client targeting url, authenticating with
// xToken. redialsPerMinute bounds how often a broken stream may be
// re-established.
func NewClient(url, xToken string, redialsPerMinute float64, log *logrus.Entry) *Client {
	return &Client{
		url:     url,
		xToken:  xToken,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(redialsPerMinute/60.0), 1),
	}
}

// Subscribe dials the upstream and passes out to consume, which is where
// Transaction Records would be sent, until ctx is canceled. A broken
// stream triggers a rate-limited redial
// rather than returning — callers running this in a long-lived goroutine
// get a "just keeps going" client without writing their own retry loop.
func (c *Client) Subscribe(ctx context.Context, filters map[string]Filter, out chan<- *model.TransactionRecord) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		if err := c.runOnce(ctx, filters, out); err != nil {
			c.log.WithError(err).Warn("geyser client: stream ended, will redial")
			select {
			case <-time.After(backoffFloor):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (c *Client) runOnce(ctx context.Context, filters map[string]Filter, out chan<- *model.TransactionRecord) error {
	conn, err := grpc.NewClient(c.url, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("geyser client: dial failed: %w", err)
	}
	defer conn.Close()

	streamCtx := ctx
	if c.xToken != "" {
		streamCtx = metadata.AppendToOutgoingContext(ctx, "x-token", c.xToken)
	}

	// The concrete generated stream type depends on the upstream's
	// protobuf service definition, which is out of scope for the core;
	// this client owns only connection/redial lifecycle and leaves
	// reading the stream to consume.
	return c.consume(streamCtx, conn, filters, out)
}

// consume is the seam a generated upstream client plugs into. As it
// stands it opens no stream and sends nothing on out: it blocks until
// ctx is canceled and returns ctx.Err().
func (c *Client) consume(ctx context.Context, _ *grpc.ClientConn, _ map[string]Filter, _ chan<- *model.TransactionRecord) error {
	<-ctx.Done()
	return ctx.Err()
}

var _ Subscriber = (*Client)(nil)

// backoffFloor is the minimum spacing between redial attempts even if
// the limiter would otherwise allow a burst; kept as a named constant so
// operators can see the floor without reading rate.Limiter internals.
const backoffFloor = 1 * time.Second
