package servers

import (
	"github.com/vovakirdan/wirechat-dispatch/internal/proto"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
)

// WireUser projects a user to its public wire shape.
func WireUser(u *store.User) proto.User {
	if u == nil {
		return proto.User{}
	}
	return proto.User{
		ID:       u.UniqueID,
		Username: u.Username,
		Tag:      u.Tag,
		Avatar:   u.Avatar,
		Admin:    u.Admin,
	}
}

// WireServer projects a created or joined server with its channels.
func WireServer(j *Joined) proto.Server {
	out := proto.Server{
		ServerID:         j.Server.ServerID,
		Name:             j.Server.Name,
		DefaultChannelID: j.Server.DefaultChannelID,
		Public:           j.Server.Public,
		Channels:         make([]proto.Channel, 0, len(j.Channels)),
	}
	if j.Creator != nil {
		out.CreatorID = j.Creator.UniqueID
	}
	for _, c := range j.Channels {
		out.Channels = append(out.Channels, proto.Channel{
			ChannelID: c.ChannelID,
			Name:      c.Name,
			ServerID:  j.Server.ServerID,
		})
	}
	return out
}
