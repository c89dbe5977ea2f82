package log

import (
	"bytes"
	"encoding/json"
	"errors"
	stdlog "log"
	"strings"
	"testing"
)

func TestWriteWithoutRequest(t *testing.T) {
	var buf bytes.Buffer
	old, oldFlags := stdlog.Writer(), stdlog.Flags()
	stdlog.SetOutput(&buf)
	stdlog.SetFlags(0)
	defer func() {
		stdlog.SetOutput(old)
		stdlog.SetFlags(oldFlags)
	}()

	Error(nil, "recommend.train.fail", errors.New("catalog is empty"), map[string]any{"crops": 0})

	var e entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &e); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if e.Level != "error" || e.Action != "recommend.train.fail" || e.Err != "catalog is empty" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Path != "" || e.ReqID != "" {
		t.Fatalf("request fields should be empty without ctx: %+v", e)
	}
}
