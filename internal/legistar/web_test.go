package legistar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellTextTreatsPlaceholderAsAbsent(t *testing.T) {
	assert.Equal(t, "", cellText("Not available"))
	assert.Equal(t, "", cellText("Not available"))
	assert.Equal(t, "", cellText("  Not available  "))
	assert.Equal(t, "Meeting video", cellText(" Meeting video "))
	assert.Equal(t, "RBM Minutes", cellText("RBM Minutes"))
}

func TestWindowOpenURLExtraction(t *testing.T) {
	onclick := "window.open('https://media.example.com/MediaPlayer.php?view_id=2&event_id=123','player');return false;"
	m := windowOpenURL.FindStringSubmatch(onclick)
	if assert.NotNil(t, m) {
		assert.Equal(t, "https://media.example.com/MediaPlayer.php?view_id=2&event_id=123", m[1])
	}

	assert.Nil(t, windowOpenURL.FindStringSubmatch("return false;"))
}
