package logger

import "testing"

func TestNewFillsEveryLogger(t *testing.T) {
	for _, l := range []*Logger{New(""), New("debug"), InitForTests()} {
		if l.App == nil || l.HTTP == nil || l.Pipeline == nil || l.Ingest == nil || l.WhatsApp == nil || l.Scheduler == nil || l.DB == nil {
			t.Fatalf("nil sub logger in %+v", l)
		}
	}
	if New("info").WithRequestID("abc") == nil {
		t.Fatalf("request logger is nil")
	}
}
