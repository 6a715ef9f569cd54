package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/faeln1/second-brain/internal/platform/whatsapp"
)

type SessionController struct {
	mgr *whatsapp.Manager
}

func NewSessionController(mgr *whatsapp.Manager) *SessionController {
	return &SessionController{mgr: mgr}
}

type sessionView struct {
	Name      string    `json:"name"`
	Connected bool      `json:"connected"`
	JID       string    `json:"jid,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Pairing   bool      `json:"pairing"`
}

// List handles GET /sessions.
func (c *SessionController) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	out := make([]sessionView, 0)
	for _, s := range c.mgr.List() {
		v := sessionView{Name: s.Name, Connected: s.Connected(), CreatedAt: s.CreatedAt}
		if s.Device != nil && s.Device.ID != nil {
			v.JID = s.Device.ID.String()
		}
		_, v.Pairing = c.mgr.GetLastQR(s.Name)
		out = append(out, v)
	}
	writeData(w, http.StatusOK, out)
}

// QR handles GET /sessions/{name}/qr with the pending pairing code as a PNG
// data URL.
func (c *SessionController) QR(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if _, ok := c.mgr.Get(name); !ok {
		writeError(w, http.StatusNotFound, whatsapp.ErrNotFound)
		return
	}
	code, ok := c.mgr.GetLastQR(name)
	if !ok || code == "" {
		writeData(w, http.StatusOK, map[string]string{"qrcode": ""})
		return
	}
	dataURL, err := whatsapp.PNGDataURL(code, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"qrcode": dataURL, "code": code})
}
