package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
	_ "modernc.org/sqlite"
)

const storeExt = ".db"

var sessionNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// StoreFactory keeps one whatsmeow device database per session under baseDir.
type StoreFactory struct {
	baseDir string
	log     waLog.Logger
	mu      sync.Mutex
}

func NewStoreFactory(baseDir string, log waLog.Logger) *StoreFactory {
	if log == nil {
		log = waLog.Noop
	}
	return &StoreFactory{baseDir: baseDir, log: log}
}

// ValidSessionName reports whether name is safe to use as a file name.
func ValidSessionName(name string) bool {
	return sessionNamePattern.MatchString(name)
}

func (f *StoreFactory) Path(sessionName string) (string, error) {
	if !ValidSessionName(sessionName) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionName, sessionName)
	}
	return filepath.Join(f.baseDir, sessionName+storeExt), nil
}

// Known lists the sessions that already have a device database, so paired
// devices come back after a restart without being configured again.
func (f *StoreFactory) Known() ([]string, error) {
	entries, err := os.ReadDir(f.baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list device stores: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != storeExt {
			continue
		}
		name := strings.TrimSuffix(e.Name(), storeExt)
		if ValidSessionName(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *StoreFactory) NewDeviceStore(ctx context.Context, sessionName string) (*sqlstore.Container, error) {
	path, err := f.Path(sessionName)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
	container, err := sqlstore.New(ctx, "sqlite", dsn, f.log.Sub(sessionName))
	if err != nil {
		return nil, fmt.Errorf("open device store %s: %w", sessionName, err)
	}
	f.log.Debugf("device store %s opened at %s", sessionName, path)
	return container, nil
}
