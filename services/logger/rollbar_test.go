package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/student"
	"github.com/rapor-tpq/rapor/core/user"
)

func newTestLogger(t *testing.T, debug bool) (*RollbarLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	conf := core.NewTestConfig()
	conf.Debug = debug
	logger := NewRollbarLogger(log.New(&buf, "TEST : ", 0), conf)
	logger.Enable(false)
	return logger, &buf
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger, _ := newTestLogger(t, false)
	err := errors.New("boom")
	extra := map[string]interface{}{"request_id": "abc"}
	usr := user.User{ID: 3, Username: "siti"}
	other := user.User{ID: 4, Username: "budi"}
	std := student.Student{ID: 9, Name: "Ahmad", Class: "A"}

	got := logger.prepare("failed", []interface{}{err, usr, extra, other})
	assert.Equal(t, []interface{}{"failed", err, extra}, got)

	got = logger.prepare("report", []interface{}{std, err})
	assert.Equal(t, []interface{}{"report", err, map[string]interface{}{"student_id": 9, "student_class": "A"}}, got)

	got = logger.prepare("plain", nil)
	assert.Equal(t, []interface{}{"plain"}, got)
}

func TestRollbarLogger_log(t *testing.T) {
	logger, buf := newTestLogger(t, false)

	logger.Debug("hidden")
	logger.Info("server started", map[string]string{"addr": ":8000"})
	logger.Error("prediction failed", errors.New("model expects 12 features"), user.User{ID: 3, Username: "siti"})

	out := buf.String()
	for _, want := range []string{
		"TEST : [INFO] server started", "map[addr::8000]",
		"TEST : [ERROR] prediction failed", "model expects 12 features", "user: 3 (siti)",
	} {
		assert.True(t, strings.Contains(out, want), "output %q does not contain %q", out, want)
	}
	assert.NotContains(t, out, "hidden")

	logger, buf = newTestLogger(t, true)
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "[DEBUG] shown")
}
