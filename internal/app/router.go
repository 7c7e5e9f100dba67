package app

import "sync"

// Conn is a live outbound connection. Send must never block the caller; the
// websocket layer backs it with a buffered channel and a writer goroutine.
type Conn interface {
	Send(ev Event)
	Close()
}

// Router maps (session code, role) to live connections. It is the one piece
// of connection state shared across all sessions, so it carries its own lock
// and never calls back into session logic.
type Router struct {
	mu     sync.RWMutex
	groups map[string]*sessionGroup
}

type sessionGroup struct {
	hosts        map[Conn]struct{}
	presenters   map[Conn]struct{}
	participants map[string]Conn // participant id -> live conn
}

func NewRouter() *Router {
	return &Router{groups: make(map[string]*sessionGroup)}
}

func newSessionGroup() *sessionGroup {
	return &sessionGroup{
		hosts:        make(map[Conn]struct{}),
		presenters:   make(map[Conn]struct{}),
		participants: make(map[string]Conn),
	}
}

// Attach registers a connection under a session code. For participants the
// id keys the slot; a reconnect replaces (and closes) the previous conn.
func (r *Router) Attach(code string, role Role, participantID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[code]
	if !ok {
		group = newSessionGroup()
		r.groups[code] = group
	}
	switch role {
	case RoleHost:
		group.hosts[conn] = struct{}{}
	case RolePresenter:
		group.presenters[conn] = struct{}{}
	case RoleParticipant:
		if prev, ok := group.participants[participantID]; ok && prev != conn {
			prev.Close()
		}
		group.participants[participantID] = conn
	}
}

// Detach removes a connection. It only clears a participant slot if the slot
// still holds this exact conn, so a stale disconnect cannot evict a newer
// reconnect.
func (r *Router) Detach(code string, role Role, participantID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[code]
	if !ok {
		return
	}
	switch role {
	case RoleHost:
		delete(group.hosts, conn)
	case RolePresenter:
		delete(group.presenters, conn)
	case RoleParticipant:
		if cur, ok := group.participants[participantID]; ok && cur == conn {
			delete(group.participants, participantID)
		}
	}
	if len(group.hosts) == 0 && len(group.presenters) == 0 && len(group.participants) == 0 {
		delete(r.groups, code)
	}
}

// ToStaff multicasts to every host and presenter connection of a session.
func (r *Router) ToStaff(code string, ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, ok := r.groups[code]
	if !ok {
		return
	}
	for conn := range group.hosts {
		conn.Send(ev)
	}
	for conn := range group.presenters {
		conn.Send(ev)
	}
}

// ToParticipants multicasts to every connected participant of a session.
func (r *Router) ToParticipants(code string, ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, ok := r.groups[code]
	if !ok {
		return
	}
	for _, conn := range group.participants {
		conn.Send(ev)
	}
}

// ToParticipant unicasts to one participant if a conn is attached.
func (r *Router) ToParticipant(code, participantID string, ev Event) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, ok := r.groups[code]
	if !ok {
		return false
	}
	conn, ok := group.participants[participantID]
	if !ok {
		return false
	}
	conn.Send(ev)
	return true
}

// CloseParticipant detaches and closes a participant's connection (kick path).
func (r *Router) CloseParticipant(code, participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[code]
	if !ok {
		return
	}
	if conn, ok := group.participants[participantID]; ok {
		delete(group.participants, participantID)
		conn.Close()
	}
}

// DropSession atomically detaches and closes every connection of a session.
// Lookups after this see nothing; there is no stale group left behind.
func (r *Router) DropSession(code string) {
	r.mu.Lock()
	group, ok := r.groups[code]
	if ok {
		delete(r.groups, code)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	for conn := range group.hosts {
		conn.Close()
	}
	for conn := range group.presenters {
		conn.Close()
	}
	for _, conn := range group.participants {
		conn.Close()
	}
}
