// Package relay defines the JSON frame vocabulary exchanged over the
// persistent connection, keyed by a "type" field.
package relay

import "encoding/json"

// Frame type tags. Clients send ping and message; the server sends the rest.
const (
	FrameTypePing        = "ping"
	FrameTypePong        = "pong"
	FrameTypeMessage     = "message"
	FrameTypeMessageSent = "message_sent"
	FrameTypeOnlineUsers = "online_users"
	FrameTypeUserStatus  = "user_status"
)

// InboundFrame is the decoded form of a client frame. Only the fields
// relevant to the frame's type are populated; unknown types are preserved in
// Type so the hub can log and ignore them.
type InboundFrame struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

// decodeInbound parses a raw client frame. The error reports malformed JSON;
// an unrecognized type is not an error here.
func decodeInbound(raw []byte) (InboundFrame, error) {
	var f InboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return InboundFrame{}, err
	}
	return f, nil
}

type pongFrame struct {
	Type string `json:"type"`
}

// messageFrame is the forwarded chat message. Timestamp is assigned by the
// relay at forward time, so it is a delivery-time stamp rather than a
// send-time stamp.
type messageFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	SenderID  string `json:"senderId"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// messageSentFrame is the local echo returned to the sender. It confirms the
// relay processed the send, not that the recipient received anything.
type messageSentFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type onlineUsersFrame struct {
	Type    string   `json:"type"`
	UserIDs []string `json:"userIds"`
}

type userStatusFrame struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

func encodePong() []byte {
	payload, _ := json.Marshal(pongFrame{Type: FrameTypePong})
	return payload
}

func encodeMessage(sessionID, senderID, content, timestamp string) []byte {
	payload, _ := json.Marshal(messageFrame{
		Type:      FrameTypeMessage,
		SessionID: sessionID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: timestamp,
	})
	return payload
}

func encodeMessageSent(sessionID, content, timestamp string) []byte {
	payload, _ := json.Marshal(messageSentFrame{
		Type:      FrameTypeMessageSent,
		SessionID: sessionID,
		Content:   content,
		Timestamp: timestamp,
	})
	return payload
}

func encodeOnlineUsers(userIDs []string) []byte {
	if userIDs == nil {
		userIDs = []string{}
	}
	payload, _ := json.Marshal(onlineUsersFrame{Type: FrameTypeOnlineUsers, UserIDs: userIDs})
	return payload
}

func encodeUserStatus(userID string, isOnline bool) []byte {
	payload, _ := json.Marshal(userStatusFrame{
		Type:     FrameTypeUserStatus,
		UserID:   userID,
		IsOnline: isOnline,
	})
	return payload
}
