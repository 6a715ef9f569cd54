package whatsapp

import (
	"sort"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// Session is one linked WhatsApp device feeding the message store.
type Session struct {
	Name      string
	CreatedAt time.Time
	Client    *whatsmeow.Client
	Device    *store.Device
}

// Connected reports whether the session has a live, logged in client.
func (s *Session) Connected() bool {
	return s != nil && s.Client != nil && s.Client.IsConnected() && s.Client.IsLoggedIn()
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	lastQR   map[string]string
	log      waLog.Logger
}

func NewManager(log waLog.Logger) *Manager {
	if log == nil {
		log = waLog.Noop
	}
	return &Manager{sessions: make(map[string]*Session), lastQR: make(map[string]string), log: log}
}

func (m *Manager) Register(name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[name]; exists {
		return nil, ErrAlreadyExists
	}
	sess := &Session{Name: name, CreatedAt: time.Now()}
	m.sessions[name] = sess
	return sess, nil
}

func (m *Manager) AttachClient(name string, dev *store.Device, client *whatsmeow.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[name]
	if !ok {
		return ErrNotFound
	}
	sess.Device = dev
	sess.Client = client
	return nil
}

// StartEventLoop logs connection state changes of a session.
func (m *Manager) StartEventLoop(sess *Session) {
	if sess == nil || sess.Client == nil {
		return
	}
	sess.Client.AddEventHandler(func(evt any) {
		switch e := evt.(type) {
		case *events.Connected:
			m.log.Infof("session %s connected", sess.Name)
		case *events.Disconnected:
			m.log.Warnf("session %s disconnected", sess.Name)
		case *events.PairSuccess:
			m.log.Infof("session %s paired jid=%s platform=%s", sess.Name, e.ID.String(), e.Platform)
			m.clearQR(sess.Name)
		case *events.LoggedOut:
			m.log.Warnf("session %s logged out: %s", sess.Name, e.Reason.String())
		}
	})
}

// List returns sessions sorted by name.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Manager) Get(name string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[name]
	return s, ok
}

// Remove disconnects and forgets a session.
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	sess, ok := m.sessions[name]
	delete(m.sessions, name)
	delete(m.lastQR, name)
	m.mu.Unlock()
	if ok && sess.Client != nil {
		sess.Client.Disconnect()
	}
}

// Close disconnects every session.
func (m *Manager) Close() {
	for _, s := range m.List() {
		m.Remove(s.Name)
	}
}

func (m *Manager) SetLastQR(name, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[name]; !ok {
		return ErrNotFound
	}
	m.lastQR[name] = code
	return nil
}

func (m *Manager) GetLastQR(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.lastQR[name]
	return v, ok
}

func (m *Manager) clearQR(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastQR, name)
}
