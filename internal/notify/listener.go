package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"
)

// ActionEvent is an inbound button press: which participant pressed which
// action. Published by the chat frontend on the shared action channel.
type ActionEvent struct {
	ExternalID string `json:"participant"`
	Data       string `json:"data"`
}

// Listener subscribes to the action channel and pumps decoded events into a
// buffered channel for the service loop.
type Listener struct {
	pn      *pubnub.PubNub
	lis     *pubnub.Listener
	channel string
	events  chan ActionEvent
}

func NewListener(subscribeKey, userID, channel string) *Listener {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	pnCfg.SubscribeKey = subscribeKey

	return &Listener{
		pn:      pubnub.NewPubNub(pnCfg),
		lis:     pubnub.NewListener(),
		channel: channel,
		events:  make(chan ActionEvent, 64),
	}
}

// Events yields decoded action events. Closed when the pump stops.
func (l *Listener) Events() <-chan ActionEvent {
	return l.events
}

// Start subscribes and runs the pump until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) {
	l.pn.AddListener(l.lis)
	l.pn.Subscribe().Channels([]string{l.channel}).Execute()
	go l.pump(ctx)
}

func (l *Listener) pump(ctx context.Context) {
	defer close(l.events)
	for {
		select {
		case st := <-l.lis.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				slog.Info("action listener connected", "channel", l.channel)
			case pubnub.PNReconnectedCategory:
				slog.Info("action listener reconnected", "channel", l.channel)
			case pubnub.PNDisconnectedCategory:
				slog.Warn("action listener disconnected", "channel", l.channel)
			default:
				slog.Debug("action listener status", "category", st.Category)
			}

		case message := <-l.lis.Message:
			raw, err := json.Marshal(message.Message)
			if err != nil {
				slog.Warn("action event marshal failed", "error", err)
				continue
			}
			var event ActionEvent
			if err := json.Unmarshal(raw, &event); err != nil {
				slog.Warn("action event decode failed", "error", err)
				continue
			}
			if event.ExternalID == "" || event.Data == "" {
				slog.Warn("action event missing fields", "event", string(raw))
				continue
			}
			select {
			case l.events <- event:
			case <-ctx.Done():
				l.shutdown()
				return
			}

		case <-l.lis.Presence:
			// Presence traffic is irrelevant here; drain it so the
			// listener loop never stalls.

		case <-ctx.Done():
			l.shutdown()
			return
		}
	}
}

func (l *Listener) shutdown() {
	l.pn.UnsubscribeAll()
	l.pn.Destroy()
	slog.Info("action listener stopped")
}
