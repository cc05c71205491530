package socket

// Broadcaster provides high-level methods for broadcasting events
type Broadcaster struct {
	hub *Hub
}

func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// SendNotification pushes a stored notification to every connection of the
// user. Offline users pick it up from the notification list instead.
func (b *Broadcaster) SendNotification(userID string, notification map[string]interface{}) {
	if !b.hub.IsUserOnline(userID) {
		return
	}
	b.hub.SendToUser(userID, MessageNotification, notification)
}

// BroadcastMemberAdded tells the organization room that someone joined.
func (b *Broadcaster) BroadcastMemberAdded(orgID string, member map[string]interface{}, excludeUserID string) {
	if b.hub.GetRoomClients(orgRoom(orgID)) == 0 {
		return
	}
	b.hub.SendToRoom(orgRoom(orgID), MessageMemberAdded, map[string]interface{}{
		"organizationId": orgID,
		"member":         member,
	}, excludeUserID)
}

// BroadcastMemberRoleUpdated tells the organization room about a role change.
func (b *Broadcaster) BroadcastMemberRoleUpdated(orgID, userID, newRole, excludeUserID string) {
	if b.hub.GetRoomClients(orgRoom(orgID)) == 0 {
		return
	}
	b.hub.SendToRoom(orgRoom(orgID), MessageMemberRoleUpdated, map[string]interface{}{
		"organizationId": orgID,
		"userId":         userID,
		"newRole":        newRole,
	}, excludeUserID)
}
