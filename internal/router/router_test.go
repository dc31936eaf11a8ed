package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/nifty-data/internal/connection"
)

type event struct {
	kind    string
	payload map[string]any
	err     error
}

type recordingHandler struct {
	mu     sync.Mutex
	events []event
	closed chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{closed: make(chan struct{})}
}

func (h *recordingHandler) add(e event) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *recordingHandler) OnOpen()                        { h.add(event{kind: "open"}) }
func (h *recordingHandler) OnTick(p map[string]any)        { h.add(event{kind: "tick", payload: p}) }
func (h *recordingHandler) OnOrderUpdate(p map[string]any) { h.add(event{kind: "order", payload: p}) }
func (h *recordingHandler) OnClose(err error) {
	h.add(event{kind: "close", err: err})
	close(h.closed)
}

func (h *recordingHandler) snapshot() []event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event(nil), h.events...)
}

func (h *recordingHandler) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-h.closed:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for OnClose")
	}
}

func frame(t *testing.T, v map[string]any) connection.TimestampedMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return connection.TimestampedMessage{Data: data, ReceivedAt: time.Now()}
}

func TestRouter_DispatchOrder(t *testing.T) {
	input := make(chan connection.TimestampedMessage, 10)
	errs := make(chan error, 1)
	h := newRecordingHandler()

	r := NewRouter(input, errs, h, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	input <- frame(t, map[string]any{"t": "ck", "s": "OK", "uid": "FA0001"})
	input <- frame(t, map[string]any{"t": "tk", "e": "NSE", "tk": "26000", "lp": "24950.10"})
	input <- frame(t, map[string]any{"t": "tf", "tk": "26000", "lp": "24951.00"})
	input <- frame(t, map[string]any{"t": "uk"})
	input <- frame(t, map[string]any{"t": "om", "norenordno": "1234"})
	input <- connection.TimestampedMessage{Data: []byte("not json")}
	input <- frame(t, map[string]any{"t": "zz"})
	close(input)

	h.waitClosed(t)

	got := h.snapshot()
	kinds := make([]string, len(got))
	for i, e := range got {
		kinds[i] = e.kind
	}
	want := []string{"open", "tick", "tick", "order", "close"}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, kinds[i], want[i])
		}
	}

	if lp := got[1].payload["lp"]; lp != "24950.10" {
		t.Errorf("tick lp = %v, want 24950.10", lp)
	}
	if !errors.Is(got[4].err, ErrInputClosed) {
		t.Errorf("close err = %v, want ErrInputClosed", got[4].err)
	}

	stats := r.Stats()
	if stats.MessagesReceived != 7 {
		t.Errorf("MessagesReceived = %d, want 7", stats.MessagesReceived)
	}
	if stats.Ticks != 2 || stats.OrderUpdates != 1 || stats.Acks != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ParseErrors != 1 || stats.UnknownMessages != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

type malformedRecorder struct {
	*recordingHandler
	malformed []error
}

func (h *malformedRecorder) OnMalformed(err error) {
	h.mu.Lock()
	h.malformed = append(h.malformed, err)
	h.mu.Unlock()
}

func TestRouter_ReportsMalformedFrames(t *testing.T) {
	input := make(chan connection.TimestampedMessage, 10)
	h := &malformedRecorder{recordingHandler: newRecordingHandler()}

	r := NewRouter(input, make(chan error), h, nil)
	r.Start(context.Background())

	input <- connection.TimestampedMessage{Data: []byte(`[1,2]`)}
	input <- frame(t, map[string]any{"t": "tk", "lp": "1"})
	input <- connection.TimestampedMessage{Data: []byte(`{"t":`)}
	close(input)

	h.waitClosed(t)

	h.mu.Lock()
	malformed := append([]error(nil), h.malformed...)
	h.mu.Unlock()
	if len(malformed) != 2 {
		t.Fatalf("malformed = %v, want 2 errors", malformed)
	}
	for _, err := range malformed {
		if !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("malformed err = %v, want ErrMalformedFrame", err)
		}
	}

	got := h.snapshot()
	if len(got) != 2 || got[0].kind != "tick" || got[1].kind != "close" {
		t.Errorf("events = %+v, want tick then close", got)
	}
	if stats := r.Stats(); stats.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", stats.ParseErrors)
	}
}

func TestRouter_ConnectRejected(t *testing.T) {
	input := make(chan connection.TimestampedMessage, 10)
	h := newRecordingHandler()

	r := NewRouter(input, make(chan error), h, nil)
	r.Start(context.Background())

	input <- frame(t, map[string]any{"t": "ck", "s": "NOT_OK"})
	input <- frame(t, map[string]any{"t": "tk", "lp": "1"})

	h.waitClosed(t)
	r.Stop(context.Background())

	got := h.snapshot()
	if len(got) != 1 {
		t.Fatalf("events = %+v, want a single close", got)
	}
	if !errors.Is(got[0].err, ErrConnectRejected) {
		t.Errorf("close err = %v, want ErrConnectRejected", got[0].err)
	}
}

func TestRouter_ConnectionErrorCloses(t *testing.T) {
	input := make(chan connection.TimestampedMessage, 10)
	errs := make(chan error, 1)
	h := newRecordingHandler()

	r := NewRouter(input, errs, h, nil)
	r.Start(context.Background())

	errs <- connection.ErrStaleConnection
	h.waitClosed(t)

	got := h.snapshot()
	if len(got) != 1 || !errors.Is(got[0].err, connection.ErrStaleConnection) {
		t.Errorf("events = %+v, want close with ErrStaleConnection", got)
	}
}

func TestRouter_ReadErrorPreferredOverInputClosed(t *testing.T) {
	input := make(chan connection.TimestampedMessage)
	errs := make(chan error, 1)
	h := newRecordingHandler()

	readErr := errors.New("websocket: close 1006 (abnormal closure)")
	errs <- readErr
	close(input)

	r := NewRouter(input, errs, h, nil)
	r.Start(context.Background())
	h.waitClosed(t)

	got := h.snapshot()
	if len(got) != 1 || !errors.Is(got[0].err, readErr) {
		t.Errorf("events = %+v, want close with read error", got)
	}
}

func TestRouter_StopDoesNotCallOnClose(t *testing.T) {
	input := make(chan connection.TimestampedMessage)
	h := newRecordingHandler()

	r := NewRouter(input, make(chan error), h, nil)
	r.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := h.snapshot(); len(got) != 0 {
		t.Errorf("events after Stop = %+v, want none", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		typ     string
		kind    Kind
		wantErr bool
	}{
		{"connect ack", `{"t":"ck","s":"OK"}`, "ck", KindOpen, false},
		{"touchline ack", `{"t":"tk","lp":"1"}`, "tk", KindTick, false},
		{"touchline", `{"t":"tf"}`, "tf", KindTick, false},
		{"depth ack", `{"t":"dk"}`, "dk", KindTick, false},
		{"depth", `{"t":"df"}`, "df", KindTick, false},
		{"order update", `{"t":"om"}`, "om", KindOrder, false},
		{"order ack", `{"t":"ok"}`, "ok", KindAck, false},
		{"unsub touchline", `{"t":"uk"}`, "uk", KindAck, false},
		{"unsub depth", `{"t":"udk"}`, "udk", KindAck, false},
		{"no type", `{"lp":"1"}`, "", KindUnknown, false},
		{"array", `[1,2]`, "", KindUnknown, true},
		{"null", `null`, "", KindUnknown, true},
		{"garbage", `{`, "", KindUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Classify([]byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Errorf("err = %v, want ErrMalformedFrame", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if f.Type != tt.typ || f.Kind != tt.kind {
				t.Errorf("Classify = (%q, %v), want (%q, %v)", f.Type, f.Kind, tt.typ, tt.kind)
			}
		})
	}
}

func TestClassify_KeepsNumbersAsText(t *testing.T) {
	f, err := Classify([]byte(`{"t":"tf","lp":24950.10,"v":12345678901}`))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if f.Payload["lp"] != json.Number("24950.10") {
		t.Errorf("lp = %#v, want json.Number(\"24950.10\")", f.Payload["lp"])
	}
	if f.Payload["v"] != json.Number("12345678901") {
		t.Errorf("v = %#v", f.Payload["v"])
	}
}

func TestFrame_ConnectOK(t *testing.T) {
	ok, _ := Classify([]byte(`{"t":"ck","s":"OK"}`))
	if !ok.ConnectOK() {
		t.Error("ConnectOK() = false for s=OK")
	}
	bad, _ := Classify([]byte(`{"t":"ck","s":"Not_Ok"}`))
	if bad.ConnectOK() {
		t.Error("ConnectOK() = true for s=Not_Ok")
	}
	tick, _ := Classify([]byte(`{"t":"tk","s":"OK"}`))
	if tick.ConnectOK() {
		t.Error("ConnectOK() = true for a tick frame")
	}
}
