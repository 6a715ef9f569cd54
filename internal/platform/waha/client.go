// Package waha is a small client for the WAHA WhatsApp HTTP gateway. Only
// the group listing is used; messages arrive through its webhook.
package waha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/faeln1/second-brain/internal/domain/group"
	"github.com/hashicorp/golang-lru/v2/expirable"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var ErrNotConfigured = errors.New("waha is not configured")

type Config struct {
	BaseURL   string
	APIKey    string
	Session   string
	CacheTTL  time.Duration
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	cfg   Config
	http  *http.Client
	cache *expirable.LRU[string, []group.Info]
	log   waLog.Logger
}

// New returns nil, ErrNotConfigured when no base URL is set.
func New(cfg Config, httpClient *http.Client, log waLog.Logger) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid waha url: %w", err)
	}
	if cfg.Session == "" {
		cfg.Session = "default"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = waLog.Noop
	}
	c := &Client{cfg: cfg, http: httpClient, log: log}
	if cfg.CacheTTL > 0 {
		c.cache = expirable.NewLRU[string, []group.Info](8, nil, cfg.CacheTTL)
	}
	return c, nil
}

func (c *Client) Name() string { return group.SourceWAHA }

// ListGroups returns the groups the WAHA session has joined.
func (c *Client) ListGroups(ctx context.Context) ([]group.Info, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(c.cfg.Session); ok {
			return cached, nil
		}
	}
	endpoint := fmt.Sprintf("%s/api/%s/groups", c.cfg.BaseURL, url.PathEscape(c.cfg.Session))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("waha list groups: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("waha list groups: status %d", resp.StatusCode)
	}

	groups, err := decodeGroups(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("waha list groups: %w", err)
	}
	c.log.Debugf("waha session %s returned %d groups", c.cfg.Session, len(groups))
	if c.cache != nil {
		c.cache.Add(c.cfg.Session, groups)
	}
	return groups, nil
}

// Purge drops cached group listings.
func (c *Client) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

type rawGroup struct {
	ID            json.RawMessage   `json:"id"`
	Subject       string            `json:"subject"`
	Name          string            `json:"name"`
	Participants  []json.RawMessage `json:"participants"`
	Size          int               `json:"size"`
	GroupMetadata *struct {
		Subject      string            `json:"subject"`
		Participants []json.RawMessage `json:"participants"`
	} `json:"groupMetadata"`
}

type serializedID struct {
	Serialized string `json:"_serialized"`
}

// decodeGroups accepts both the array form and the object-keyed-by-id form
// WAHA engines return.
func decodeGroups(r io.Reader) ([]group.Info, error) {
	body, err := io.ReadAll(io.LimitReader(r, 16<<20))
	if err != nil {
		return nil, err
	}
	var list []rawGroup
	if err := json.Unmarshal(body, &list); err != nil {
		var keyed map[string]rawGroup
		if err2 := json.Unmarshal(body, &keyed); err2 != nil {
			return nil, fmt.Errorf("decode groups: %w", err)
		}
		for id, g := range keyed {
			if len(g.ID) == 0 {
				g.ID, _ = json.Marshal(id)
			}
			list = append(list, g)
		}
	}
	out := make([]group.Info, 0, len(list))
	for _, g := range list {
		info := g.toInfo()
		if info.ID == "" {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (g rawGroup) toInfo() group.Info {
	info := group.Info{ID: parseID(g.ID), Source: group.SourceWAHA}
	info.Name = firstNonEmpty(g.Subject, g.Name)
	info.ParticipantCount = len(g.Participants)
	if g.GroupMetadata != nil {
		if info.Name == "" {
			info.Name = g.GroupMetadata.Subject
		}
		if info.ParticipantCount == 0 {
			info.ParticipantCount = len(g.GroupMetadata.Participants)
		}
	}
	if info.ParticipantCount == 0 {
		info.ParticipantCount = g.Size
	}
	return info
}

func parseID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj serializedID
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Serialized)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
