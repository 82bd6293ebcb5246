package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	uaChromeWin  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaEdgeWin    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
	uaOperaMac   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/105.0.0.0"
	uaFirefoxLin = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	uaSafariMac  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	uaChromeAnd  = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	uaSafariIPad = "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
)

// TestClassifyBrowser checks that the most specific rule wins:
// Edge and Opera UAs also contain "Chrome", Chrome also contains "Safari".
func TestClassifyBrowser(t *testing.T) {
	assert.Equal(t, "Edge", ClassifyBrowser(uaEdgeWin))
	assert.Equal(t, "Opera", ClassifyBrowser(uaOperaMac))
	assert.Equal(t, "Chrome", ClassifyBrowser(uaChromeWin))
	assert.Equal(t, "Firefox", ClassifyBrowser(uaFirefoxLin))
	assert.Equal(t, "Safari", ClassifyBrowser(uaSafariMac))
	assert.Equal(t, "Other", ClassifyBrowser("curl/8.4.0"))
	assert.Equal(t, "Other", ClassifyBrowser(""))
}

// TestClassifyOS checks Android before iOS and both before desktop systems,
// since an Android UA also contains "Linux".
func TestClassifyOS(t *testing.T) {
	assert.Equal(t, "Android", ClassifyOS(uaChromeAnd))
	assert.Equal(t, "iOS", ClassifyOS(uaSafariIPad))
	assert.Equal(t, "Windows", ClassifyOS(uaChromeWin))
	assert.Equal(t, "macOS", ClassifyOS(uaSafariMac))
	assert.Equal(t, "Linux", ClassifyOS(uaFirefoxLin))
	assert.Equal(t, "Other", ClassifyOS("curl/8.4.0"))
}

// TestClassifyDevice checks the Desktop default and Mobile-over-Tablet priority
func TestClassifyDevice(t *testing.T) {
	assert.Equal(t, "Mobile", ClassifyDevice(uaChromeAnd))
	assert.Equal(t, "Tablet", ClassifyDevice(uaSafariIPad))
	assert.Equal(t, "Desktop", ClassifyDevice(uaChromeWin))
	assert.Equal(t, "Desktop", ClassifyDevice(""))
}
