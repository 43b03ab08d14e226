package irisfast

// Chat kinds reported by the gateway.
const (
	ChatDirect = "direct"
	ChatGroup  = "group"
)

// Message is one inbound chat event.
type Message struct {
	Room     string `json:"room"`
	Sender   string `json:"sender"`
	SenderID string `json:"sender_id"`
	ChatType string `json:"chat_type"`
	Msg      string `json:"msg"`
	// Photo carries an attachment reference when the event is a picture.
	Photo string `json:"photo,omitempty"`
	// ReplyTo is the sender id of the quoted message, when the event is a
	// reply.
	ReplyTo string `json:"reply_to,omitempty"`
}

type ReplyRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Data string `json:"data"`
}

type FileReplyRequest struct {
	Type    string `json:"type"`
	Room    string `json:"room"`
	Data    string `json:"data"`
	Name    string `json:"name"`
	Caption string `json:"caption,omitempty"`
}
