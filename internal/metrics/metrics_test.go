package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDefault_Singleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestRecorders(t *testing.T) {
	m := Default()

	before := testutil.ToFloat64(m.ToolCalls.WithLabelValues("read_file", "false"))
	m.RecordToolCall("read_file", false, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(m.ToolCalls.WithLabelValues("read_file", "false")))

	before = testutil.ToFloat64(m.RedFlags.WithLabelValues("unspecified"))
	m.RecordRedFlag("")
	assert.Equal(t, before+1, testutil.ToFloat64(m.RedFlags.WithLabelValues("unspecified")))

	m.RecordLoop("specialist", "completed", 2)
	m.RecordSubtask("accepted")
	m.RecordPhase("parallel", "round", time.Second)
	m.RecordBackendRetry("scripted")
	m.RecordBackendCall("scripted", time.Millisecond)
	m.RecordSpecialistError()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "agentlab_tool_calls_total"))
}
