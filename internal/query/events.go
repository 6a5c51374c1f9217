package query

import "strconv"

// NotifyPrefix marks unsolicited event lines on the wire.
const NotifyPrefix = "notify"

// TargetMode identifies the scope of a text message.
type TargetMode int

const (
	TargetModePrivate TargetMode = 1
	TargetModeChannel TargetMode = 2
	TargetModeServer  TargetMode = 3
)

// Event is one notification pushed by the server. Every variant carries the
// raw key/value map it was decoded from; typed accessors are defaulted when
// fields are missing or malformed.
type Event interface {
	// Raw returns the unescaped key/value fields of the notification line.
	Raw() map[string]string

	isEvent()
}

type base struct {
	raw map[string]string
}

func (b base) Raw() map[string]string { return b.raw }
func (base) isEvent()                 {}

// TextMessage is a chat message addressed to the query client, its channel,
// or the whole server.
type TextMessage struct {
	base
	TargetMode  TargetMode
	Message     string
	InvokerID   int
	InvokerName string
	InvokerUID  string
	// Target is the recipient client id for private messages, -1 when the
	// notification carried no target field.
	Target int
}

// ClientEntered reports a client connecting to the server.
type ClientEntered struct {
	base
	ClientID        int
	ClientName      string
	ClientUID       string
	ClientDBID      int
	TargetChannelID int
	FromChannelID   int
	ReasonID        int
	Description     string
	Country         string
	Away            bool
	AwayMessage     string
	ServerGroups    string
	InputMuted      bool
	OutputMuted     bool
	Recording       bool
}

// ClientLeft reports a client disconnecting.
type ClientLeft struct {
	base
	ClientID        int
	TargetChannelID int
	FromChannelID   int
	ReasonID        int
	ReasonMessage   string
}

// ClientMoved reports a client moved to another channel by someone else.
type ClientMoved struct {
	base
	ClientID        int
	TargetChannelID int
	ReasonID        int
	InvokerID       int
	InvokerName     string
	InvokerUID      string
}

// ClientMovedSelf reports a client switching channels on their own.
type ClientMovedSelf struct {
	base
	ClientID        int
	TargetChannelID int
	ReasonID        int
}

// ChannelEdited reports a change to channel properties.
type ChannelEdited struct {
	base
	ChannelID   int
	InvokerID   int
	InvokerName string
	InvokerUID  string
	ReasonID    int
	Topic       string
}

// ChannelDescriptionEdited reports a change to a channel description.
type ChannelDescriptionEdited struct {
	base
	ChannelID int
}

// ServerEdited reports a change to virtual server properties. Changed holds
// every field outside the invoker/reason key set.
type ServerEdited struct {
	base
	InvokerID   int
	InvokerName string
	InvokerUID  string
	ReasonID    int
	Changed     map[string]string
}

func fieldInt(fields map[string]string, key string) int {
	value, ok := fields[key]
	if !ok {
		return -1
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return parsed
}

func fieldBool(fields map[string]string, key string) bool {
	return fields[key] == "1"
}

// ParseEvent decodes a notification into its typed variant. It returns false
// for unrecognized event types; callers log those and move on.
func ParseEvent(eventType string, fields map[string]string) (Event, bool) {
	b := base{raw: fields}
	switch eventType {
	case "notifytextmessage":
		mode := TargetMode(fieldInt(fields, "targetmode"))
		switch mode {
		case TargetModePrivate, TargetModeChannel, TargetModeServer:
		default:
			mode = TargetModePrivate
		}
		return &TextMessage{
			base:        b,
			TargetMode:  mode,
			Message:     fields["msg"],
			InvokerID:   fieldInt(fields, "invokerid"),
			InvokerName: fields["invokername"],
			InvokerUID:  fields["invokeruid"],
			Target:      fieldInt(fields, "target"),
		}, true

	case "notifycliententerview":
		return &ClientEntered{
			base:            b,
			ClientID:        fieldInt(fields, "clid"),
			ClientName:      fields["client_nickname"],
			ClientUID:       fields["client_unique_identifier"],
			ClientDBID:      fieldInt(fields, "client_database_id"),
			TargetChannelID: fieldInt(fields, "ctid"),
			FromChannelID:   fieldInt(fields, "cfid"),
			ReasonID:        fieldInt(fields, "reasonid"),
			Description:     fields["client_description"],
			Country:         fields["client_country"],
			Away:            fieldBool(fields, "client_away"),
			AwayMessage:     fields["client_away_message"],
			ServerGroups:    fields["client_servergroups"],
			InputMuted:      fieldBool(fields, "client_input_muted"),
			OutputMuted:     fieldBool(fields, "client_output_muted"),
			Recording:       fieldBool(fields, "client_is_recording"),
		}, true

	case "notifyclientleftview":
		return &ClientLeft{
			base:            b,
			ClientID:        fieldInt(fields, "clid"),
			TargetChannelID: fieldInt(fields, "ctid"),
			FromChannelID:   fieldInt(fields, "cfid"),
			ReasonID:        fieldInt(fields, "reasonid"),
			ReasonMessage:   fields["reasonmsg"],
		}, true

	case "notifyclientmoved":
		// The invokerid field distinguishes a forced move from a client
		// switching channels on their own.
		if _, ok := fields["invokerid"]; ok {
			return &ClientMoved{
				base:            b,
				ClientID:        fieldInt(fields, "clid"),
				TargetChannelID: fieldInt(fields, "ctid"),
				ReasonID:        fieldInt(fields, "reasonid"),
				InvokerID:       fieldInt(fields, "invokerid"),
				InvokerName:     fields["invokername"],
				InvokerUID:      fields["invokeruid"],
			}, true
		}
		return &ClientMovedSelf{
			base:            b,
			ClientID:        fieldInt(fields, "clid"),
			TargetChannelID: fieldInt(fields, "ctid"),
			ReasonID:        fieldInt(fields, "reasonid"),
		}, true

	case "notifychanneledited":
		return &ChannelEdited{
			base:        b,
			ChannelID:   fieldInt(fields, "cid"),
			InvokerID:   fieldInt(fields, "invokerid"),
			InvokerName: fields["invokername"],
			InvokerUID:  fields["invokeruid"],
			ReasonID:    fieldInt(fields, "reasonid"),
			Topic:       fields["channel_topic"],
		}, true

	case "notifychanneldescriptionchanged":
		return &ChannelDescriptionEdited{
			base:      b,
			ChannelID: fieldInt(fields, "cid"),
		}, true

	case "notifyserveredited":
		changed := make(map[string]string)
		for key, value := range fields {
			switch key {
			case "reasonid", "invokerid", "invokername", "invokeruid":
			default:
				changed[key] = value
			}
		}
		return &ServerEdited{
			base:        b,
			InvokerID:   fieldInt(fields, "invokerid"),
			InvokerName: fields["invokername"],
			InvokerUID:  fields["invokeruid"],
			ReasonID:    fieldInt(fields, "reasonid"),
			Changed:     changed,
		}, true
	}

	return nil, false
}
