package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/faeln1/second-brain/internal/platform/whatsapp"
)

// SessionBootstrap opens the embedded whatsmeow sessions that feed the
// message store and act as a live group directory.
type SessionBootstrap struct {
	StoreFactory *whatsapp.StoreFactory
	Manager      *whatsapp.Manager
	Log          waLog.Logger
	Events       MessageEventListener
	// QROut receives the pairing code as ASCII art. Nil disables printing.
	QROut io.Writer
}

func NewSessionBootstrap(f *whatsapp.StoreFactory, m *whatsapp.Manager, log waLog.Logger, events MessageEventListener) *SessionBootstrap {
	if log == nil {
		log = waLog.Noop
	}
	return &SessionBootstrap{StoreFactory: f, Manager: m, Log: log, Events: events}
}

// Start loads (or creates) the device store of sessionName and connects it.
// A device that was never paired gets a QR channel; codes are kept in the
// manager and printed to QROut until pairing finishes.
func (b *SessionBootstrap) Start(ctx context.Context, sessionName string) (alreadyLogged bool, err error) {
	if !whatsapp.ValidSessionName(sessionName) {
		return false, fmt.Errorf("%w: %q", whatsapp.ErrInvalidSessionName, sessionName)
	}
	if _, err := b.Manager.Register(sessionName); err != nil && !errors.Is(err, whatsapp.ErrAlreadyExists) {
		return false, err
	}
	container, err := b.StoreFactory.NewDeviceStore(ctx, sessionName)
	if err != nil {
		return false, err
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return false, fmt.Errorf("load device of %s: %w", sessionName, err)
	}
	client := whatsmeow.NewClient(device, b.Log.Sub("Client"))

	if b.Events != nil {
		client.AddEventHandler(func(evt any) {
			if e, ok := evt.(*events.Message); ok {
				if dup := cloneMessageEvent(e); dup != nil {
					go b.Events.HandleMessage(context.Background(), sessionName, dup)
				}
			}
		})
	}

	if err := b.Manager.AttachClient(sessionName, device, client); err != nil {
		return false, err
	}
	if sess, ok := b.Manager.Get(sessionName); ok {
		b.Manager.StartEventLoop(sess)
	}

	if device.ID == nil {
		// The QR channel must exist before connecting.
		qrChan, err := client.GetQRChannel(context.Background())
		if err != nil {
			return false, fmt.Errorf("failed to get QR channel: %w", err)
		}
		if err := client.Connect(); err != nil {
			return false, fmt.Errorf("connect failed: %w", err)
		}
		go b.watchQR(sessionName, qrChan)
		return false, nil
	}
	if err := client.Connect(); err != nil {
		return true, fmt.Errorf("connect failed: %w", err)
	}
	return true, nil
}

func (b *SessionBootstrap) watchQR(sessionName string, qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			_ = b.Manager.SetLastQR(sessionName, item.Code)
			b.Log.Infof("session %s waiting for pairing, scan the QR code", sessionName)
			if b.QROut != nil {
				if err := whatsapp.WriteQRASCII(b.QROut, item.Code); err != nil {
					b.Log.Warnf("print QR for %s failed: %v", sessionName, err)
				}
			}
		case whatsmeow.QRChannelSuccess.Event:
			b.Log.Infof("session %s paired", sessionName)
			return
		default:
			b.Log.Warnf("session %s pairing ended: %s", sessionName, item.Event)
			return
		}
	}
}

func cloneMessageEvent(evt *events.Message) *events.Message {
	if evt == nil {
		return nil
	}
	dup := *evt
	if evt.Message != nil {
		if msg, ok := proto.Clone(evt.Message).(*waE2E.Message); ok {
			dup.Message = msg
		}
	}
	if evt.RawMessage != nil {
		if msg, ok := proto.Clone(evt.RawMessage).(*waE2E.Message); ok {
			dup.RawMessage = msg
		}
	}
	if evt.SourceWebMsg != nil {
		if raw, ok := proto.Clone(evt.SourceWebMsg).(*waWeb.WebMessageInfo); ok {
			dup.SourceWebMsg = raw
		}
	}
	return &dup
}
