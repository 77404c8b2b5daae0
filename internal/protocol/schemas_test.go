package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tilerealm.gg/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, raw string) {
		t.Helper()
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("unmarshal sample: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	intentSchema := compile("intent.schema.json")
	posSchema := compile("pos.schema.json")
	stepSchema := compile("step.schema.json")
	entitySchema := compile("entity.schema.json")
	rosterSchema := compile("roster.schema.json")
	batchSchema := compile("batch.schema.json")

	validate(helloSchema, `{"type":"hello","name":"alice","map":"overworld"}`)
	validate(helloSchema, `{"type":"hello","name":"alice","resume":"r-123"}`)
	validate(welcomeSchema, `{
	  "type":"welcome","id":"P000001","session":"s-1","resume":"r-1",
	  "map":"overworld","x":32,"y":32,
	  "tick_rate_hz":20,"view_w":30,"view_h":14
	}`)
	validate(intentSchema, `{"type":"h","x":10,"y":12,"d":2}`)
	validate(intentSchema, `{"type":"m","x":10,"y":12,"d":0}`)
	validate(posSchema, `{"type":"pos","x":10,"y":12}`)
	validate(posSchema, `{"type":"pos","x":5,"y":5,"t":1}`)
	validate(stepSchema, `{"type":"move","id":"P000002","x":11,"y":12}`)
	validate(entitySchema, `{"type":"p","id":"P000002","ch":"player","s":250,"d":1,"x":11,"y":12}`)
	validate(entitySchema, `{"type":"p","id":"P000002","ch":"player","d":3}`)
	validate(rosterSchema, `{"type":"pl","data":[{"type":"p","id":"E000001","ch":"mob","x":4,"y":9}]}`)
	validate(batchSchema, `{"type":"pkg","data":[
	  {"type":"move","id":"P000002","x":11,"y":12},
	  {"type":"pos","x":10,"y":12}
	]}`)
}

func TestSchemas_RejectBadIntent(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "intent.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	bad := []string{
		`{"type":"h","x":10,"y":12,"d":4}`,
		`{"type":"h","x":10,"y":12}`,
		`{"type":"teleport","x":10,"y":12,"d":1}`,
	}
	for _, raw := range bad {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := s.Validate(v); err == nil {
			t.Fatalf("expected validation error for %s", raw)
		}
	}
}

func TestMarshaledMessagesMatchSchemas(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", name))
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}
	roundtrip := func(s *jsonschema.Schema, msg any) {
		t.Helper()
		b, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}

	roundtrip(compile("welcome.schema.json"), protocol.WelcomeMsg{
		Type: protocol.TypeWelcome, ID: "P000001", SessionID: "s", Resume: "r",
		Map: "overworld", X: 1, Y: 2, TickRateHz: 20, ViewWidth: 30, ViewHeight: 14,
	})
	roundtrip(compile("pos.schema.json"), protocol.PosMsg{Type: protocol.TypePos, X: 3, Y: 4})
	roundtrip(compile("step.schema.json"), protocol.StepMsg{Type: protocol.TypeStep, ID: "P000002", X: 5, Y: 6})
	roundtrip(compile("entity.schema.json"), protocol.EntityMsg{
		Type: protocol.TypeEntity, ID: "P000002", Ch: "player",
		D: protocol.IntPtr(2), X: protocol.IntPtr(5), Y: protocol.IntPtr(6),
	})
}
