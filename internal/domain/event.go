package domain

// ChannelEvent is a message event delivered by the chat backend's webhook.
// It is decoded from the raw webhook body and never persisted.
type ChannelEvent struct {
	Type    string       `json:"type"`
	Sender  EventUser    `json:"user"`
	Channel EventChannel `json:"channel"`
	Message EventMessage `json:"message"`
}

// EventUser identifies the user who sent the message.
type EventUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// EventChannel carries the channel id and its full member list.
type EventChannel struct {
	ID      string          `json:"id"`
	Members []ChannelMember `json:"members"`
}

// ChannelMember is one entry of a channel's member list.
type ChannelMember struct {
	UserID string `json:"user_id"`
}

// EventMessage is the message content relevant for notifications.
type EventMessage struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment is an image attached to a message.
type Attachment struct {
	ImageURL string `json:"image_url"`
	ThumbURL string `json:"thumb_url"`
}

// NotificationPayload is the JSON document pushed to each subscription.
// ChannelID lets the client route a notification click to the right channel.
type NotificationPayload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Icon      string `json:"icon,omitempty"`
	Image     string `json:"image,omitempty"`
	ChannelID string `json:"channelId"`
}

// BuildPayload derives the single notification payload for an event. The
// image falls back from the first attachment's full image to its thumbnail
// and is omitted when the message has no attachments.
func BuildPayload(event *ChannelEvent) NotificationPayload {
	payload := NotificationPayload{
		Title:     event.Sender.Name,
		Body:      event.Message.Text,
		Icon:      event.Sender.Image,
		ChannelID: event.Channel.ID,
	}

	if len(event.Message.Attachments) > 0 {
		first := event.Message.Attachments[0]
		payload.Image = first.ImageURL
		if payload.Image == "" {
			payload.Image = first.ThumbURL
		}
	}

	return payload
}
