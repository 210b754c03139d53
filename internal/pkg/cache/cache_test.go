package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "kiosk:geocode:-6.2000:106.8000", Key("kiosk", "geocode", "-6.2000", "106.8000"))
	assert.Equal(t, "kiosk:geocode", Key("kiosk", "", "geocode", ""))
	assert.Equal(t, "kiosk", Key("kiosk"))
}
