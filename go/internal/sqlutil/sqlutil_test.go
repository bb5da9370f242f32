package sqlutil

import (
	"encoding/json"
	"testing"
)

func TestNullConverters(t *testing.T) {
	if v := ToSqlString(""); v.Valid {
		t.Error("empty string should be NULL")
	}
	if got := FromSqlString(ToSqlString("kids")); got != "kids" {
		t.Errorf("round trip = %q", got)
	}
	if v := ToNullRawMessage(nil); v.Valid {
		t.Error("nil JSON should be NULL")
	}
	if got := FromNullRawMessage(ToNullRawMessage(json.RawMessage(`[1]`))); string(got) != "[1]" {
		t.Errorf("raw message = %s", got)
	}
}
