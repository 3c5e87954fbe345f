package message

import "testing"

func TestNewDataAndControl(t *testing.T) {
	d := NewData(map[string]string{"a": "1"}, "x", "y")
	if d.IsControl() || d.Kind.String() != "data" {
		t.Fatalf("expected data message, got %v", d.Kind)
	}
	if len(d.Payload) != 2 || d.ID == "" {
		t.Fatalf("unexpected message %+v", d)
	}
	c := NewControl(nil)
	if !c.IsControl() || c.Kind.String() != "control" || len(c.Payload) != 0 {
		t.Fatalf("unexpected control message %+v", c)
	}
	if c.ID == d.ID {
		t.Fatalf("expected distinct ids")
	}
}

func TestCollector(t *testing.T) {
	var c Collector
	var s Sink = &c
	_ = s.Send(NewData(nil, "1"))
	_ = s.Send(NewData(nil, "2"))
	got := c.Messages()
	if len(got) != 2 || got[0].Payload[0] != "1" || got[1].Payload[0] != "2" {
		t.Fatalf("unexpected order %+v", got)
	}
	c.Reset()
	if len(c.Messages()) != 0 {
		t.Fatalf("expected empty after reset")
	}
}

func TestSinkFunc(t *testing.T) {
	n := 0
	s := SinkFunc(func(Message) error { n++; return nil })
	_ = s.Send(NewControl(nil))
	if n != 1 {
		t.Fatalf("expected 1 call, got %d", n)
	}
}
