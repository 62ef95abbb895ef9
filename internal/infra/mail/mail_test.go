package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOTPEmail(t *testing.T) {
	html, err := RenderOTPEmail(OTPEmailData{Code: "123456", Email: "a@b.com"})
	require.NoError(t, err)
	assert.Contains(t, html, "123456")
	assert.Contains(t, html, "document shared with a@b.com")
}

func TestRenderViewedEmailEscapes(t *testing.T) {
	html, err := RenderViewedEmail(ViewedEmailData{
		Title:       "<script>alert(1)</script>",
		Kind:        "dataroom",
		ViewerEmail: "v@x.com",
		Location:    "Berlin, DE",
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "Your dataroom was viewed")
	assert.Contains(t, html, "v@x.com")
	assert.Contains(t, html, "Location: Berlin, DE")
}

func TestRenderViewedEmailOmitsLocation(t *testing.T) {
	html, err := RenderViewedEmail(ViewedEmailData{Title: "Deck"})
	require.NoError(t, err)
	assert.Contains(t, html, "Your document was viewed")
	assert.NotContains(t, html, "Location:")
}

func TestLogMailer(t *testing.T) {
	require.NoError(t, NewLogMailer(nil).Send(context.Background(), Message{To: []string{"a@b.com"}}))
}
