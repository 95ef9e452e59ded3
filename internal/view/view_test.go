package view

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/savedcarts/internal/domain"
)

func newRenderer(t *testing.T, site string, loc *time.Location) *Renderer {
	t.Helper()
	r, err := NewRenderer(site, loc)
	require.NoError(t, err)
	return r
}

func TestSaveButton(t *testing.T) {
	out, err := newRenderer(t, "https://shop.example.com/", nil).SaveButton()
	require.NoError(t, err)
	assert.Equal(t,
		`<div class="scd-buttons"><a class="checkout-button button" href="https://shop.example.com/scd-save-cart">Save cart</a></div>`,
		strings.TrimSpace(string(out)))
}

func TestSavedCartsTable_Rows(t *testing.T) {
	r := newRenderer(t, "https://shop.example.com", time.UTC)
	out, err := r.SavedCartsTable([]domain.Snapshot{
		{SavedAt: 1700000000},
		{SavedAt: 1000},
	})
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `<h2>Saved carts</h2>`)
	assert.Contains(t, html, `<tr><th>Saved on</th><th>Action</th><th>Delete</th></tr>`)
	assert.Contains(t, html, `<td class="text-center">Nov 14 2023</td>`)
	assert.Contains(t, html, `href="https://shop.example.com/scd-restore-cart/?scd-cart=1700000000">Restore</a>`)
	assert.Contains(t, html, `href="https://shop.example.com/scd-delete-cart/?scd-cart=1700000000">Delete</a>`)
	assert.Contains(t, html, `<td class="text-center">Jan 01 1970</td>`)
	assert.NotContains(t, html, "No saved carts")

	// Storage order, not date order.
	assert.Less(t, strings.Index(html, "scd-cart=1700000000"), strings.Index(html, "scd-cart=1000"))
}

func TestSavedCartsTable_Empty(t *testing.T) {
	out, err := newRenderer(t, "", nil).SavedCartsTable(nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<tr><td class="text-center" colspan="3">No saved carts</td></tr>`)
	assert.NotContains(t, string(out), "Restore")
}

func TestFormatDate_UsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)

	// 2023-12-31 20:00 UTC is already Jan 1 in Tokyo.
	ts := time.Date(2023, 12, 31, 20, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, "Dec 31 2023", newRenderer(t, "", time.UTC).FormatDate(ts))
	assert.Equal(t, "Jan 01 2024", newRenderer(t, "", tokyo).FormatDate(ts))
}

func TestNotices(t *testing.T) {
	r := newRenderer(t, "", nil)

	out, err := r.Notices([]string{"Cart saved successfully.", "<b>x</b>"})
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, `<div class="woocommerce-message" role="alert">Cart saved successfully.</div>`)
	assert.Contains(t, html, "&lt;b&gt;x&lt;/b&gt;")

	out, err = r.Notices(nil)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(out)))
}

func TestStatic(t *testing.T) {
	css, err := fs.ReadFile(Static(), "scd.css")
	require.NoError(t, err)
	assert.Contains(t, string(css), ".scd-carts")
}
