package conn

import (
	"context"

	"github.com/thejerf/suture/v4"
)

// receiverService and senderService adapt Connection's two background
// tasks — receiver and sender — to suture's Service interface, so a
// panic in either restarts that task instead of silently wedging the
// connection.
type receiverService struct{ c *Connection }

func (r receiverService) Serve(ctx context.Context) error { return r.c.receiveLoop(ctx) }

type senderService struct{ c *Connection }

func (s senderService) Serve(ctx context.Context) error { return s.c.sendLoop(ctx) }

// startBackgroundTasks spins up the supervised receiver and sender
// tasks. It must be called at most once per connection, once a remote
// address is known: the dialed address (initiator, right after the
// HANDSHAKE packet is sent, so the receiver can pick up the
// HANDSHAKE|ACK) or the handshake sender's address (responder).
func (c *Connection) startBackgroundTasks(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	c.supCancel = cancel

	sup := suture.NewSimple("quicmux-connection")
	sup.Add(receiverService{c})
	sup.Add(senderService{c})
	c.sup = sup

	go sup.Serve(ctx)
}
