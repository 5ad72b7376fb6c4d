package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeResponses(t *testing.T, out *bytes.Buffer) []Response {
	t.Helper()
	var responses []Response
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func TestServer_DispatchesRegisteredMethod(t *testing.T) {
	s := NewServer(nil)
	s.Register("ping", func(ctx context.Context, params json.RawMessage) (any, error) {
		return map[string]string{"pong": "ok"}, nil
	})

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	var out bytes.Buffer
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	responses := decodeResponses(t, &out)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error != nil {
		t.Fatalf("unexpected error: %+v", responses[0].Error)
	}
}

func TestServer_UnknownMethodReturnsMethodNotFound(t *testing.T) {
	s := NewServer(nil)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"nope"}` + "\n")
	var out bytes.Buffer
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	responses := decodeResponses(t, &out)
	if len(responses) != 1 || responses[0].Error == nil {
		t.Fatalf("expected a method-not-found error, got %+v", responses)
	}
	if responses[0].Error.Code != CodeMethodNotFound {
		t.Fatalf("expected code %d, got %d", CodeMethodNotFound, responses[0].Error.Code)
	}
}

func TestServer_MalformedJSONReturnsParseError(t *testing.T) {
	s := NewServer(nil)

	in := strings.NewReader(`{not json` + "\n")
	var out bytes.Buffer
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	responses := decodeResponses(t, &out)
	if len(responses) != 1 || responses[0].Error == nil {
		t.Fatalf("expected a parse error, got %+v", responses)
	}
	if responses[0].Error.Code != CodeParseError {
		t.Fatalf("expected code %d, got %d", CodeParseError, responses[0].Error.Code)
	}
}

func TestServer_MissingMethodReturnsInvalidRequest(t *testing.T) {
	s := NewServer(nil)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1}` + "\n")
	var out bytes.Buffer
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	responses := decodeResponses(t, &out)
	if len(responses) != 1 || responses[0].Error == nil {
		t.Fatalf("expected an invalid-request error, got %+v", responses)
	}
	if responses[0].Error.Code != CodeInvalidRequest {
		t.Fatalf("expected code %d, got %d", CodeInvalidRequest, responses[0].Error.Code)
	}
}

func TestServer_HandlerErrorReturnsInternalError(t *testing.T) {
	s := NewServer(nil)
	s.Register("boom", func(ctx context.Context, params json.RawMessage) (any, error) {
		return nil, errors.New("kaboom")
	})

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"boom"}` + "\n")
	var out bytes.Buffer
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	responses := decodeResponses(t, &out)
	if len(responses) != 1 || responses[0].Error == nil {
		t.Fatalf("expected an internal error, got %+v", responses)
	}
	if responses[0].Error.Code != CodeInternalError {
		t.Fatalf("expected code %d, got %d", CodeInternalError, responses[0].Error.Code)
	}
}

func TestServer_HandlesMultipleRequestsOnOneStream(t *testing.T) {
	s := NewServer(nil)
	s.Register("echo", func(ctx context.Context, params json.RawMessage) (any, error) {
		return string(params), nil
	})

	in := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"echo","params":"a"}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"echo","params":"b"}` + "\n",
	)
	var out bytes.Buffer
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	responses := decodeResponses(t, &out)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
}

func TestServer_BlankLinesAreIgnored(t *testing.T) {
	s := NewServer(nil)
	s.Register("ping", func(ctx context.Context, params json.RawMessage) (any, error) {
		return "pong", nil
	})

	in := strings.NewReader("\n\n" + `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n\n")
	var out bytes.Buffer
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	responses := decodeResponses(t, &out)
	if len(responses) != 1 {
		t.Fatalf("expected exactly 1 response from blank-line-padded input, got %d", len(responses))
	}
}
