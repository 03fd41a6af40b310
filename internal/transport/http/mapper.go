package http

import (
	"github.com/vovakirdan/wirechat-dispatch/internal/core"
	"github.com/vovakirdan/wirechat-dispatch/internal/proto"
)

func wireSummary(u core.UserSummary) proto.User {
	return proto.User{
		ID:       u.UniqueID,
		Username: u.Username,
		Tag:      u.Tag,
		Avatar:   u.Avatar,
		Admin:    u.Admin,
	}
}

func wireMessage(m *core.PublicMessage) proto.Message {
	mentions := make([]proto.User, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		mentions = append(mentions, wireSummary(u))
	}
	return proto.Message{
		MessageID: m.MessageID,
		ChannelID: m.ChannelID,
		Message:   m.Body,
		Color:     m.Color,
		Creator:   wireSummary(m.Creator),
		Mentions:  mentions,
		Type:      int(m.Kind),
		Created:   m.CreatedAt.UnixMilli(),
	}
}

var payloadEvents = map[core.EventKind]string{
	core.EventMemberAdd:     proto.EventMemberAdd,
	core.EventServerJoined:  proto.EventServerJoined,
	core.EventServerRoles:   proto.EventServerRoles,
	core.EventServerMembers: proto.EventServerMembers,
	core.EventChannelMute:   proto.EventChannelMute,
	core.EventChannelUnmute: proto.EventChannelUnmute,
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventHello:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventHello,
			Data:  proto.HelloData{SocketID: string(event.Session), Protocol: proto.ProtocolVersion},
		}
	case core.EventReceiveMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReceiveMessage,
			Data:  proto.ReceiveMessage{Message: wireMessage(event.Message), TempID: event.TempID},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	}

	if name, ok := payloadEvents[event.Kind]; ok {
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: event.Payload}
	}
	return proto.Outbound{Type: proto.OutboundTypeEvent}
}
