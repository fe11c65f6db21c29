// Package notify carries participant messaging over PubNub. Each participant
// listens on a private user-<externalID> channel; announcements go out on a
// shared channel everyone subscribes to.
package notify

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go"

	"lunch-queue/internal/status"
	"lunch-queue/services"
	"lunch-queue/utils"
)

type PubNubNotifier struct {
	pn              *pubnub.PubNub
	announceChannel string
	breaker         *utils.CircuitBreaker
}

func NewPubNubNotifier(pn *pubnub.PubNub, announceChannel string) *PubNubNotifier {
	return &PubNubNotifier{
		pn:              pn,
		announceChannel: announceChannel,
		breaker:         utils.NewCircuitBreaker("pubnub-publish"),
	}
}

// Notify publishes a direct message to the participant's private channel.
func (n *PubNubNotifier) Notify(ctx context.Context, recipientID, text string, actions ...services.Action) error {
	return n.publish(ctx, "user-"+recipientID, "direct", text, actions)
}

// Announce publishes to the shared channel.
func (n *PubNubNotifier) Announce(ctx context.Context, text string, actions ...services.Action) error {
	return n.publish(ctx, n.announceChannel, "announcement", text, actions)
}

func (n *PubNubNotifier) publish(ctx context.Context, channel, kind, text string, actions []services.Action) error {
	err := n.breaker.Execute(ctx, func() error {
		_, st, err := n.pn.Publish().
			Channel(channel).
			Message(map[string]any{
				"type":    kind,
				"text":    text,
				"actions": actions,
			}).
			Execute()
		if err != nil {
			return err
		}
		if st.Error != nil {
			return fmt.Errorf("publish status %d", st.StatusCode)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: channel %s: %v", status.ErrNotificationDelivery, channel, err)
	}
	return nil
}
