package game

import "github.com/heist-game/backend/internal/models"

// ConnectionManager maps transient connection ids onto stable player ids.
// It is owned by a Session and only touched under the session lock.
type ConnectionManager struct {
	byConn map[string]string
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{byConn: make(map[string]string)}
}

// Resolve returns the player currently bound to connID
func (cm *ConnectionManager) Resolve(connID string) (string, bool) {
	id, ok := cm.byConn[connID]
	return id, ok
}

// Attach binds p to connID and marks it connected. It returns the connection
// p was bound to before when that connection is being replaced.
func (cm *ConnectionManager) Attach(p *models.Player, connID string) (replaced string) {
	if p.ConnectionID != "" && p.ConnectionID != connID {
		if cm.byConn[p.ConnectionID] == p.ID {
			delete(cm.byConn, p.ConnectionID)
			if p.Connected {
				replaced = p.ConnectionID
			}
		}
	}
	cm.byConn[connID] = p.ID
	p.ConnectionID = connID
	p.Connected = true
	return replaced
}

// Detach unbinds connID and marks its player disconnected. Connections that
// were already replaced by a reconnect resolve to nothing.
func (cm *ConnectionManager) Detach(connID string, players map[string]*models.Player) (*models.Player, bool) {
	id, ok := cm.byConn[connID]
	if !ok {
		return nil, false
	}
	delete(cm.byConn, connID)
	p := players[id]
	if p == nil {
		return nil, false
	}
	p.Connected = false
	return p, true
}

// PickHost returns the first active player in roster order, or "".
func PickHost(order []string, players map[string]*models.Player) string {
	for _, id := range order {
		if p := players[id]; p != nil && p.Active() {
			return id
		}
	}
	return ""
}
