package events

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestEventNames(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{Started{}, "started"},
		{Finished{}, "finished"},
		{Progress{}, "progress"},
		{FileProgress{}, "progress"},
		{Speed{}, "speed"},
		{Estimated{}, "estimated"},
		{Removed{}, "remove"},
		{Missing{}, "missing"},
		{Ignored{}, "ignored"},
		{Error{}, "error"},
		{DownloadStarted{}, "start-download"},
		{DownloadFinished{}, "finished-download"},
		{DecompressStarted{}, "start-decompress"},
		{DecompressProgress{}, "decompress-progress"},
		{DecompressFinished{}, "finished-decompress"},
	}

	for _, tt := range tests {
		if got := tt.msg.EventName(); got != tt.want {
			t.Errorf("%T.EventName() = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestChannelSinkDropsLossyWhenFull(t *testing.T) {
	s := NewChannelSink(1)

	s.Publish(Speed{BytesPerSecond: 1})
	// Buffer is full; a second tick must not block.
	s.Publish(Speed{BytesPerSecond: 2})

	got := <-s.C()
	if sp, ok := got.(Speed); !ok || sp.BytesPerSecond != 1 {
		t.Fatalf("first message = %#v, want Speed{1}", got)
	}

	done := make(chan struct{})
	go func() {
		s.Publish(Finished{Workflow: WorkflowAssets})
		close(done)
	}()
	if msg := <-s.C(); msg.EventName() != "finished" {
		t.Errorf("message = %q, want finished", msg.EventName())
	}
	<-done

	s.Close()
	s.Publish(Started{}) // no panic after close
	if _, ok := <-s.C(); ok {
		t.Error("channel should be closed")
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Publish(Started{Workflow: WorkflowAssets})
	r.Publish(Missing{Path: "a.txt"})
	r.Publish(Missing{Path: "b.txt"})

	if r.Count("missing") != 2 {
		t.Errorf("Count(missing) = %d, want 2", r.Count("missing"))
	}
	names := r.Names()
	if len(names) != 3 || names[0] != "started" {
		t.Errorf("Names() = %v", names)
	}
}

func TestMarshalJSON(t *testing.T) {
	b, err := json.Marshal(Estimated{Seconds: math.Inf(1)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"seconds":null}` {
		t.Errorf("Estimated(+Inf) = %s", b)
	}

	b, err = json.Marshal(Error{URL: "http://x", Err: errors.New("boom")})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"url":"http://x","error":"boom"}` {
		t.Errorf("Error = %s", b)
	}
}
