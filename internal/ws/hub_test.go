package ws

import (
	"context"
	"errors"
	"testing"
)

type fakeExecutor struct {
	calls []IncomingMessage
	err   error
}

func (f *fakeExecutor) Execute(ctx context.Context, userID string, in IncomingMessage) (any, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	return map[string]string{"user": userID}, nil
}

func recv(t *testing.T, c *Client) OutgoingMessage {
	t.Helper()
	select {
	case m := <-c.send:
		return m
	default:
		t.Fatal("nothing sent to client")
		return OutgoingMessage{}
	}
}

func TestHandleMessageResults(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewHub(10)
	h.SetExecutor(exec)
	c := NewClient(h, nil, "alice")
	ctx := context.Background()

	h.HandleMessage(ctx, c, IncomingMessage{Type: EventSendMessage, RequestID: "r1", ConversationID: "c1", Content: "hi"})
	out := recv(t, c)
	p, ok := out.Payload.(CommandResultPayload)
	if out.Type != EventCommandOK || !ok || p.RequestID != "r1" || p.Op != "send_message" {
		t.Errorf("ok result = %+v", out)
	}

	exec.err = errors.New("permission denied")
	h.HandleMessage(ctx, c, IncomingMessage{Type: EventVote, RequestID: "r2"})
	out = recv(t, c)
	p, _ = out.Payload.(CommandResultPayload)
	if out.Type != EventCommandFailed || p.Error != "permission denied" {
		t.Errorf("failed result = %+v", out)
	}

	h.HandleMessage(ctx, c, IncomingMessage{Type: EventTyping})
	if len(c.send) != 0 {
		t.Error("typing produced a reply")
	}
	h.HandleMessage(ctx, c, IncomingMessage{Type: "bogus"})
	if out := recv(t, c); out.Type != EventError {
		t.Errorf("unknown type reply = %+v", out)
	}
	if len(exec.calls) != 2 {
		t.Errorf("executor calls = %d", len(exec.calls))
	}
}

func TestSendToUser(t *testing.T) {
	h := NewHub(10)
	a1 := NewClient(h, nil, "alice")
	a2 := NewClient(h, nil, "alice")
	b := NewClient(h, nil, "bob")
	h.addClient(a1)
	h.addClient(a2)
	h.addClient(b)

	h.SendToUser("alice", OutgoingMessage{Type: EventConversationsChanged, Payload: ConversationsChangedPayload{Revision: 3}})
	recv(t, a1)
	recv(t, a2)
	if len(b.send) != 0 {
		t.Error("bob received alice's event")
	}
	if !h.Connected("alice") || h.Connected("carol") {
		t.Error("Connected is wrong")
	}

	h.removeClient(a1)
	h.removeClient(a2)
	if h.Connected("alice") {
		t.Error("alice still connected")
	}
}

func TestConnectionLimit(t *testing.T) {
	h := NewHub(1)
	a := NewClient(h, nil, "alice")
	b := NewClient(h, nil, "bob")
	h.addClient(a)
	h.addClient(b)
	if h.Connected("bob") {
		t.Error("limit not enforced")
	}
	select {
	case <-b.done:
	default:
		t.Error("rejected client not closed")
	}
}

func TestCoalesceKeepsLatestRevisions(t *testing.T) {
	batch := []OutgoingMessage{
		{Type: EventConversationsChanged, Payload: ConversationsChangedPayload{Revision: 1}},
		{Type: EventMessagesChanged, Payload: MessagesChangedPayload{ConversationID: "c1", Revision: 1}},
		{Type: EventCommandOK, Payload: CommandResultPayload{Op: "vote"}},
		{Type: EventMessagesChanged, Payload: MessagesChangedPayload{ConversationID: "c2", Revision: 2}},
		{Type: EventConversationsChanged, Payload: ConversationsChangedPayload{Revision: 3}},
		{Type: EventMessagesChanged, Payload: MessagesChangedPayload{ConversationID: "c1", Revision: 4}},
		{Type: EventCommandOK, Payload: CommandResultPayload{Op: "vote"}},
	}
	got := coalesce(batch)
	if len(got) != 5 {
		t.Fatalf("coalesce kept %d events: %+v", len(got), got)
	}
	if p := got[0].Payload.(ConversationsChangedPayload); p.Revision != 3 {
		t.Errorf("conversations revision = %d, want 3", p.Revision)
	}
	if p := got[1].Payload.(MessagesChangedPayload); p.ConversationID != "c1" || p.Revision != 4 {
		t.Errorf("c1 = %+v", p)
	}
	if got[2].Type != EventCommandOK || got[4].Type != EventCommandOK {
		t.Errorf("command replies must not merge: %+v", got)
	}
	if p := batch[0].Payload.(ConversationsChangedPayload); p.Revision != 1 {
		t.Error("input batch modified")
	}
}
