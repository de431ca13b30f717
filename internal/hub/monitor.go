package hub

import (
	"sort"

	"github.com/Arin958/ChattingApp/internal/model"
)

// MonitorService gathers hub statistics for the monitor endpoint.
type MonitorService struct {
	hub *Hub
}

func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats returns a point-in-time snapshot of connections and rooms.
func (ms *MonitorService) GetStats() model.MonitorResponse {
	online := ms.hub.presence.SnapshotOnline()
	sort.Strings(online)

	rooms := ms.getRoomStats()

	status := "healthy"
	if len(online) == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: model.ConnectionStats{TotalConnected: len(online)},
		Rooms:       rooms,
		OnlineUsers: online,
	}
}

func (ms *MonitorService) getRoomStats() model.RoomStats {
	stats := model.RoomStats{
		RoomDetails: make([]model.RoomInfo, 0),
	}

	for _, bucket := range ms.hub.shards {
		bucket.RLock()
		for groupID, room := range bucket.rooms {
			members := make([]string, 0, len(room))
			for id := range room {
				members = append(members, id)
			}
			sort.Strings(members)

			stats.RoomDetails = append(stats.RoomDetails, model.RoomInfo{
				GroupID:     groupID,
				MemberCount: len(members),
				Members:     members,
			})
		}
		bucket.RUnlock()
	}

	stats.TotalRooms = len(stats.RoomDetails)
	sort.Slice(stats.RoomDetails, func(i, j int) bool {
		return stats.RoomDetails[i].GroupID < stats.RoomDetails[j].GroupID
	})
	return stats
}
