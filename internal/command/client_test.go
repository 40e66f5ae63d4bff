package command

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/instantiate"
	"github.com/vango-dev/widgets/internal/widget"
)

// backend is a fake command executor. reply decides the answer to each
// message; a nil reply leaves the message unanswered.
type backend struct {
	mu       sync.Mutex
	messages []Message
	reply    func(Message) *Reply
	upgrader websocket.Upgrader
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		b.mu.Lock()
		b.messages = append(b.messages, msg)
		b.mu.Unlock()

		if b.reply == nil {
			_ = conn.WriteJSON(Reply{Command: msg.Command, Callback: msg.Callback, Code: 200})
			continue
		}
		if rep := b.reply(msg); rep != nil {
			_ = conn.WriteJSON(rep)
		}
	}
}

func (b *backend) received() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.messages...)
}

func dialBackend(t *testing.T, b *backend, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	opts.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := Dial(context.Background(), opts)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCreateInstance(t *testing.T) {
	b := &backend{}
	c := dialBackend(t, b, Options{SessionID: "session-1"})

	err := c.CreateInstance(context.Background(), instantiate.Request{
		Source:        "<h1>[title]</h1>",
		TargetID:      "div-1",
		ContainerID:   "page-1",
		OriginLocator: "https://widgets.example.com/rest/widgets",
		Values:        map[string]string{"title": "Hello", "source": "sneaky"},
	})
	if err != nil {
		t.Fatalf("CreateInstance() error = %v", err)
	}

	msgs := b.received()
	if len(msgs) != 1 {
		t.Fatalf("backend received %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Command != CommandAppendWidget || m.PageID != "page-1" || m.SessionID != "session-1" || m.Callback == "" {
		t.Errorf("message = %+v", m)
	}
	want := map[string]any{
		"widgetHostBaseUrl": "https://widgets.example.com/rest/widgets",
		"parentId":          "div-1",
		"source":            "<h1>[title]</h1>",
		"title":             "Hello",
	}
	for k, v := range want {
		if m.Data[k] != v {
			t.Errorf("data[%s] = %v, want %v", k, m.Data[k], v)
		}
	}
	if len(m.Data) != len(want) {
		t.Errorf("data = %v", m.Data)
	}
}

func TestUpdateSource_Local(t *testing.T) {
	b := &backend{}
	c := dialBackend(t, b, Options{})

	if err := c.UpdateSource(context.Background(), widget.SourceRef{ID: "w1"}, "<p>new</p>"); err != nil {
		t.Fatal(err)
	}
	m := b.received()[0]
	if m.Command != CommandUpdate || m.ID != "w1" || m.Data["source"] != "<p>new</p>" {
		t.Errorf("message = %+v", m)
	}
}

func TestUpdateSource_RemotePut(t *testing.T) {
	var gotMethod, gotBody string
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		if r.URL.Path == "/widgets/locked" {
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer catalog.Close()

	b := &backend{}
	c := dialBackend(t, b, Options{})

	ref := widget.SourceRef{ID: "r1", RemoteLocator: catalog.URL + "/widgets/r1"}
	if err := c.UpdateSource(context.Background(), ref, "<b>x</b>"); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %s", gotMethod)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(gotBody), &body); err != nil || body["source"] != "<b>x</b>" {
		t.Errorf("body = %q", gotBody)
	}
	if len(b.received()) != 0 {
		t.Error("remote update went over the websocket")
	}

	ref.RemoteLocator = catalog.URL + "/widgets/locked"
	if err := c.UpdateSource(context.Background(), ref, "x"); !errors.HasCode(err, "E240") {
		t.Errorf("forbidden PUT error = %v, want E240", err)
	}

	ref.RemoteLocator = "s3://bucket/catalog.json#r1"
	if err := c.UpdateSource(context.Background(), ref, "x"); !errors.HasCode(err, "E211") {
		t.Errorf("s3 locator error = %v, want E211", err)
	}
}

func TestCreateWidget(t *testing.T) {
	b := &backend{}
	c := dialBackend(t, b, Options{})

	created, err := c.CreateWidget(context.Background(), widget.Widget{Name: "Hero (copied)", Source: "<h1></h1>"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || strings.Contains(created.ID, "-") || created.Origin != widget.OriginLocal {
		t.Errorf("created = %+v", created)
	}
	m := b.received()[0]
	if m.Command != CommandCreate || m.Data["type"] != "Widget" || m.Data["id"] != created.ID || m.Data["name"] != "Hero (copied)" {
		t.Errorf("message = %+v", m)
	}
}

func TestCreateWidget_UsesReplyEntity(t *testing.T) {
	b := &backend{reply: func(m Message) *Reply {
		return &Reply{
			Callback: m.Callback,
			Code:     201,
			Result:   []json.RawMessage{json.RawMessage(`{"id": "server-id", "name": "Stored"}`)},
		}
	}}
	c := dialBackend(t, b, Options{})

	created, err := c.CreateWidget(context.Background(), widget.Widget{Name: "Stored"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID != "server-id" {
		t.Errorf("ID = %q, want server-id", created.ID)
	}
}

func TestSend_Rejected(t *testing.T) {
	b := &backend{reply: func(m Message) *Reply {
		return &Reply{Callback: m.Callback, Code: 422, Message: "Cannot append"}
	}}
	c := dialBackend(t, b, Options{})

	err := c.CreateInstance(context.Background(), instantiate.Request{Source: "x"})
	if !errors.HasCode(err, "E240") || !strings.Contains(err.Error(), "Cannot append") {
		t.Errorf("error = %v", err)
	}
}

func TestSend_Timeout(t *testing.T) {
	b := &backend{reply: func(Message) *Reply { return nil }}
	c := dialBackend(t, b, Options{Timeout: 50 * time.Millisecond})

	err := c.CreateInstance(context.Background(), instantiate.Request{Source: "x"})
	if !errors.HasCode(err, "E240") {
		t.Errorf("error = %v, want E240", err)
	}
}

func TestSend_AfterClose(t *testing.T) {
	b := &backend{}
	c := dialBackend(t, b, Options{})
	if err := c.Close(); err != nil {
		t.Logf("Close() = %v", err)
	}
	if err := c.CreateInstance(context.Background(), instantiate.Request{Source: "x"}); !errors.HasCode(err, "E240") {
		t.Errorf("error = %v, want E240", err)
	}
}

func TestDial_Errors(t *testing.T) {
	if _, err := Dial(context.Background(), Options{}); !errors.HasCode(err, "E121") {
		t.Errorf("empty URL error = %v, want E121", err)
	}

	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()
	if _, err := Dial(context.Background(), Options{URL: url}); !errors.HasCode(err, "E240") {
		t.Errorf("unreachable error = %v, want E240", err)
	}
}

func TestReplyOK(t *testing.T) {
	for code, want := range map[int]bool{0: true, 200: true, 201: true, 400: false, 500: false} {
		if got := (Reply{Code: code}).OK(); got != want {
			t.Errorf("Reply{Code: %d}.OK() = %v", code, got)
		}
	}
}
