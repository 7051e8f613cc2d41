package messaging

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/feliperosas/taskmatch/internal/db"
)

const feedChannel = "taskmatch_messages"

// StartFeed runs the change-feed listener until ctx is cancelled. It holds a
// dedicated connection on LISTEN and fans every inserted message out to the
// per-match hubs. row_to_json column names line up with the Message json
// tags, so the payload decodes directly.
//
// Delivery to websocket subscribers is at-least-once; clients dedupe by
// message id and client token.
func StartFeed(ctx context.Context) {
	go func() {
		for {
			if err := listenOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("message feed disconnected: %v (reconnecting)", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()
}

func listenOnce(ctx context.Context) error {
	conn, err := db.Conn.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+feedChannel); err != nil {
		return err
	}
	log.Printf("message feed listening on %s", feedChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var m Message
		if err := json.Unmarshal([]byte(n.Payload), &m); err != nil {
			log.Printf("message feed: bad payload: %v", err)
			continue
		}
		BroadcastNewMessage(m.MatchID, m)
	}
}
