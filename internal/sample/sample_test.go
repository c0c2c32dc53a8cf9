package sample

import "testing"

func TestJSONValueProjection(t *testing.T) {
	cases := []struct {
		name string
		s    *Sample
		want string
	}{
		{"trigger", NewTrigger(1), "null"},
		{"bool true", NewBoolean(1, true), "true"},
		{"bool false", NewBoolean(1, false), "false"},
		{"numeric", NewNumeric(1, 21.5), "21.5"},
		{"string", NewString(1, `a"b`), `"a\"b"`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.s.JSONValue(); got != c.want {
				t.Fatalf("JSONValue() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestJSONRejectsEmbeddedNUL(t *testing.T) {
	if _, err := NewJSON(1, "a\x00b"); err == nil {
		t.Fatal("expected error for embedded NUL byte")
	}
	if _, err := NewJSON(1, `{"a":1}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBufferEntryJSON(t *testing.T) {
	tr := NewTrigger(2)
	if got, want := tr.BufferEntryJSON(), `{"t":2}`; got != want {
		t.Fatalf("trigger entry = %q, want %q", got, want)
	}
	n := NewNumeric(2, 10)
	if got, want := n.BufferEntryJSON(), `{"t":2,"v":10}`; got != want {
		t.Fatalf("numeric entry = %q, want %q", got, want)
	}
}

func TestAccessorsWrongKind(t *testing.T) {
	n := NewNumeric(1, 5)
	if _, ok := n.Bool(); ok {
		t.Fatal("Bool() should not be ok on a Numeric sample")
	}
	if v, ok := n.Float(); !ok || v != 5 {
		t.Fatalf("Float() = (%v, %v), want (5, true)", v, ok)
	}
}

func TestWithTimestampDoesNotMutateOriginal(t *testing.T) {
	s := NewNumeric(0, 1)
	s2 := s.WithTimestamp(100)
	if s.Timestamp() != 0 {
		t.Fatalf("original timestamp mutated: %v", s.Timestamp())
	}
	if s2.Timestamp() != 100 {
		t.Fatalf("new timestamp = %v, want 100", s2.Timestamp())
	}
}
