package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AlhasanIQ/mcp-clarify/config"
	"github.com/AlhasanIQ/mcp-clarify/contract"
)

type fakeSession struct {
	params []*mcp.ElicitParams
	result *mcp.ElicitResult
	err    error
}

func (s *fakeSession) Elicit(_ context.Context, params *mcp.ElicitParams) (*mcp.ElicitResult, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func defaultMCPDialect(t *testing.T) Dialect {
	t.Helper()
	d, err := DialectFromConfig(config.DefaultMCPDialect())
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}
	return d
}

func TestMCPElicitMapsSchemaCall(t *testing.T) {
	want := &mcp.ElicitResult{Action: "accept", Content: map[string]any{"answer": "dev"}}
	session := &fakeSession{result: want}
	p, err := NewMCP(session, defaultMCPDialect(t))
	if err != nil {
		t.Fatalf("NewMCP: %v", err)
	}

	schema := &jsonschema.Schema{Type: "object"}
	got, err := p.Elicit(context.Background(), contract.ElicitCall{
		TextKey:  contract.TextKeyPrompt,
		Text:     "Which env?",
		Arg:      contract.ArgPositional,
		Encoding: contract.EncodingJSON,
		Schema:   schema,
	})
	if err != nil {
		t.Fatalf("Elicit: %v", err)
	}
	if got != want {
		t.Fatalf("expected raw *mcp.ElicitResult back, got %#v", got)
	}
	if len(session.params) != 1 {
		t.Fatalf("expected one elicitation, got %d", len(session.params))
	}
	if session.params[0].Message != "Which env?" || session.params[0].RequestedSchema != schema {
		t.Fatalf("unexpected params: %#v", session.params[0])
	}
}

func TestMCPElicitWithoutSchemaLeavesSchemaUnset(t *testing.T) {
	session := &fakeSession{result: &mcp.ElicitResult{Action: "decline"}}
	p, _ := NewMCP(session, defaultMCPDialect(t))

	if _, err := p.Elicit(context.Background(), contract.ElicitCall{
		TextKey:  contract.TextKeyMessage,
		Text:     "Ship it?",
		Encoding: contract.EncodingNone,
	}); err != nil {
		t.Fatalf("Elicit: %v", err)
	}
	if session.params[0].RequestedSchema != nil {
		t.Fatalf("expected no requested schema, got %#v", session.params[0].RequestedSchema)
	}
}

func TestMCPElicitWrapsSessionError(t *testing.T) {
	boom := errors.New("client does not support elicitation")
	p, _ := NewMCP(&fakeSession{err: boom}, defaultMCPDialect(t))

	_, err := p.Elicit(context.Background(), contract.ElicitCall{TextKey: contract.TextKeyMessage, Encoding: contract.EncodingNone})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped session error, got %v", err)
	}
}

func TestMCPElicitRejectsOutsideDialect(t *testing.T) {
	session := &fakeSession{}
	d := Dialect{
		TextKeys:   []contract.TextKey{contract.TextKeyPrompt},
		SchemaArgs: []contract.SchemaArg{contract.ArgSchema},
		Encodings:  []contract.SchemaEncoding{contract.EncodingJSON},
	}
	p, _ := NewMCP(session, d)

	_, err := p.Elicit(context.Background(), contract.ElicitCall{TextKey: contract.TextKeyMessage, Arg: contract.ArgSchema, Encoding: contract.EncodingJSON})
	if !errors.Is(err, ErrUnsupportedCall) {
		t.Fatalf("expected ErrUnsupportedCall, got %v", err)
	}
	if len(session.params) != 0 {
		t.Fatalf("rejected call must not reach the session")
	}
}
