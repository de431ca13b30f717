package model

// MonitorResponse is the hub health snapshot served on the monitor
// endpoint.
type MonitorResponse struct {
	Status      string          `json:"status"`
	Connections ConnectionStats `json:"connections"`
	Rooms       RoomStats       `json:"rooms"`
	OnlineUsers []string        `json:"onlineUsers"`
}

// ConnectionStats summarizes live connections.
type ConnectionStats struct {
	TotalConnected int `json:"totalConnected"`
}

// RoomStats summarizes joined group rooms.
type RoomStats struct {
	TotalRooms  int        `json:"totalRooms"`
	RoomDetails []RoomInfo `json:"roomDetails"`
}

// RoomInfo describes one group room and its currently joined viewers.
type RoomInfo struct {
	GroupID     string   `json:"groupId"`
	MemberCount int      `json:"memberCount"`
	Members     []string `json:"members"`
}
