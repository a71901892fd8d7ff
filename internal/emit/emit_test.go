package emit

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metroharvest/internal/civic"
)

func TestWriterEmitsNDJSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	first := civic.NewEvent("Regular Board Meeting", time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC), "One Gateway Plaza", civic.StatusPassed)
	first.ID = "10"
	second := civic.NewEvent("Finance Committee", time.Date(2024, time.March, 6, 10, 0, 0, 0, time.UTC), "Not available", civic.StatusTentative)
	second.ID = "11"

	require.NoError(t, w.Write(first))
	require.NoError(t, w.Write(second))
	assert.Equal(t, 2, w.Count())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var decoded civic.Event
	require.NoError(t, json.Unmarshal(lines[0], &decoded))
	assert.Equal(t, "Regular Board Meeting", decoded.Name)
	assert.Equal(t, civic.StatusPassed, decoded.Status)
}

func TestWriterKeepsURLsUnescaped(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	ev := civic.NewEvent("Regular Board Meeting", time.Now().UTC(), "Not available", civic.StatusPassed)
	ev.AddSource("https://example.com/MeetingDetail.aspx?ID=642118&Options=info", "web")

	require.NoError(t, w.Write(ev))
	assert.Contains(t, buf.String(), "ID=642118&Options=info")
}
