package query_test

import (
	"errors"
	"testing"

	"doorman/internal/query"
)

func TestParseErrorLineSuccess(t *testing.T) {
	if err := query.ParseErrorLine("error id=0 msg=ok"); err != nil {
		t.Fatalf("expected nil for id=0, got %v", err)
	}
	if err := query.ParseErrorLine("error"); err != nil {
		t.Fatalf("expected nil for bare error line, got %v", err)
	}
}

func TestParseErrorLineFailure(t *testing.T) {
	err := query.ParseErrorLine(`error id=512 msg=invalid\sparameter`)
	if err == nil {
		t.Fatal("expected QueryError for nonzero id")
	}
	if err.ID != 512 {
		t.Fatalf("ID = %d, want 512", err.ID)
	}
	if err.Message != "invalid parameter" {
		t.Fatalf("Message = %q, want %q", err.Message, "invalid parameter")
	}
	if err.Code != query.CodeInvalidClientID {
		t.Fatalf("Code = %q, want %q", err.Code, query.CodeInvalidClientID)
	}
}

func TestParseErrorLineUnknownID(t *testing.T) {
	err := query.ParseErrorLine("error id=99999 msg=weird")
	if err == nil {
		t.Fatal("expected QueryError")
	}
	if err.Code != query.CodeUndefined {
		t.Fatalf("Code = %q, want %q", err.Code, query.CodeUndefined)
	}
}

func TestTimeoutIsConnectionError(t *testing.T) {
	if !errors.Is(query.ErrTimeout, query.ErrConnection) {
		t.Fatal("ErrTimeout should wrap ErrConnection")
	}
	if !errors.Is(query.ErrClosed, query.ErrConnection) {
		t.Fatal("ErrClosed should wrap ErrConnection")
	}
}

func TestQueryErrorMessage(t *testing.T) {
	err := query.NewQueryError(513, `nickname\sis\salready\sin\suse`)
	if err.Code != query.CodeNicknameInUse {
		t.Fatalf("Code = %q, want %q", err.Code, query.CodeNicknameInUse)
	}
	want := "query failed: id=513 msg=nickname is already in use"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
