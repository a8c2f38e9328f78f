package websocket

import (
	"context"
	"strings"
	"time"

	"chat-relay/internal/models"
)

// callWithTimeout runs fn with a deadline and gives up waiting once the
// deadline passes, even if fn ignores its context.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn(ctx)
		done <- result{val: val, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// SendPrivateMessage validates, persists and delivers a direct message.
// Nothing is delivered to the receiver unless the store accepted it. The
// sender gets exactly one message_accepted or message_error on the
// originating connection.
func (h *Hub) SendPrivateMessage(ctx context.Context, sender *Client, data PrivateMessageData) {
	if data.ReceiverID == 0 {
		h.deliver(sender, newMessageErrorEvent(ErrCodeValidation, reasonMissingPeer, data.ClientID))
		return
	}
	if strings.TrimSpace(data.Content) == "" {
		h.deliver(sender, newMessageErrorEvent(ErrCodeValidation, reasonEmptyContent, data.ClientID))
		return
	}

	start := time.Now()
	msg, err := callWithTimeout(ctx, h.cfg.PersistTimeout, func(ctx context.Context) (*models.ChatMessage, error) {
		return h.store.Persist(ctx, sender.userID, data.ReceiverID, data.Content)
	})
	h.metrics.observePersist(time.Since(start))
	if err != nil {
		perr := classifyPersistError(opSend, err)
		h.metrics.persistFailed(perr.Code)
		h.logger.Warn("Failed to persist message",
			"senderID", sender.userID, "receiverID", data.ReceiverID, "code", perr.Code, "error", err)
		h.deliver(sender, newMessageErrorEvent(perr.Code, perr.Reason(), data.ClientID))
		return
	}

	h.deliver(sender, NewEvent(MessageTypeMessageAccepted, MessageAcceptedData{ChatMessage: *msg, ClientID: data.ClientID}))

	// Other tabs of the sender see the message without the provisional id.
	var others []*Client
	for _, c := range h.registry.LiveHandlesFor(sender.userID) {
		if c != sender {
			others = append(others, c)
		}
	}
	h.fanOut(others, NewEvent(MessageTypeMessageAccepted, MessageAcceptedData{ChatMessage: *msg}))

	h.deliverToUser(msg.ReceiverID, NewEvent(MessageTypeMessageDelivered, *msg))

	h.logger.Debug("Message relayed", "messageID", msg.ID, "senderID", msg.SenderID, "receiverID", msg.ReceiverID)

	if h.publisher != nil {
		go h.publish(msg)
	}
}

func (h *Hub) publish(msg *models.ChatMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.PersistTimeout)
	defer cancel()

	if err := h.publisher.PublishMessage(ctx, msg); err != nil {
		h.logger.Error("Failed to publish message", "messageID", msg.ID, "error", err)
	}
}

// MarkRead forwards a read receipt to every connection of the message's
// sender. With a ReadStatusUpdater configured the receipt is persisted
// first and routed to the stored sender; otherwise the client-supplied
// sender is trusted. Receipts for an offline sender are dropped.
func (h *Hub) MarkRead(ctx context.Context, reader *Client, data MessageReadData) {
	if data.MessageID == 0 {
		h.deliver(reader, newMessageErrorEvent(ErrCodeValidation, reasonMissingMessage, ""))
		return
	}

	senderID := data.SenderID
	if h.readStatus != nil {
		start := time.Now()
		msg, err := callWithTimeout(ctx, h.cfg.PersistTimeout, func(ctx context.Context) (*models.ChatMessage, error) {
			return h.readStatus.MarkRead(ctx, data.MessageID, reader.userID)
		})
		h.metrics.observePersist(time.Since(start))
		if err != nil {
			perr := classifyPersistError(opMarkRead, err)
			h.metrics.persistFailed(perr.Code)
			h.logger.Warn("Failed to mark message read",
				"messageID", data.MessageID, "readerID", reader.userID, "code", perr.Code, "error", err)
			h.deliver(reader, newMessageErrorEvent(perr.Code, perr.Reason(), ""))
			return
		}
		senderID = msg.SenderID
	}

	if senderID == 0 {
		h.deliver(reader, newMessageErrorEvent(ErrCodeValidation, reasonMissingSender, ""))
		return
	}

	h.deliverToUser(senderID, NewEvent(MessageTypeMessageRead, MessageReadNotice{MessageID: data.MessageID}))
}
